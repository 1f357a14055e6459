// ABOUTME: mDNS browsing for relays
// ABOUTME: Repeats queries until the context ends and streams what answers
package discovery

import (
	"context"
	"time"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// DefaultQueryTimeout bounds one mDNS query round
const DefaultQueryTimeout = 3 * time.Second

// Browse queries for relays in rounds of queryTimeout until ctx ends. The
// returned channel is closed afterwards. A relay answering several rounds
// is sent each time.
func Browse(ctx context.Context, queryTimeout time.Duration) <-chan *Relay {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	relays := make(chan *Relay, 10)

	go func() {
		defer close(relays)
		for ctx.Err() == nil {
			query(ctx, queryTimeout, relays)
		}
	}()
	return relays
}

func query(ctx context.Context, timeout time.Duration, relays chan<- *Relay) {
	entries := make(chan *mdns.ServiceEntry, 10)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for entry := range entries {
			r := relayFromEntry(entry)
			if r == nil {
				continue
			}
			log.Debug().Str("name", r.Name).Str("addr", r.Addr()).Msg("relay answered")
			select {
			case relays <- r:
			case <-ctx.Done():
			}
		}
	}()

	params := mdns.DefaultParams(ServiceType)
	params.Entries = entries
	params.Timeout = timeout
	params.DisableIPv6 = true
	if err := mdns.Query(params); err != nil {
		log.Debug().Err(err).Msg("mdns query failed")
	}
	close(entries)
	<-done
}

// Discover browses for timeout and returns the relays found, one per address
func Discover(ctx context.Context, timeout time.Duration) []*Relay {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	seen := make(map[string]bool)
	var found []*Relay
	for r := range Browse(ctx, min(timeout, DefaultQueryTimeout)) {
		if !seen[r.Addr()] {
			seen[r.Addr()] = true
			found = append(found, r)
		}
	}
	return found
}
