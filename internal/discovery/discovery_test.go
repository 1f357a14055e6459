// ABOUTME: Tests for relay discovery
// ABOUTME: Checks TXT records, service entry parsing and browse shutdown
package discovery

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/hashicorp/mdns"
)

func TestEncodeTXT(t *testing.T) {
	tests := []struct {
		name     string
		backends []string
		want     []string
	}{
		{"no backends", nil, []string{"path=/imaqt", "codec=adpcm-ima-qt"}},
		{"backends", []string{"libav", "native"}, []string{"path=/imaqt", "codec=adpcm-ima-qt", "backends=libav,native"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeTXT(DefaultPath, tt.backends)
			if len(got) != len(tt.want) {
				t.Fatalf("encodeTXT() = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("txt[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestRelayFromEntry(t *testing.T) {
	entry := &mdns.ServiceEntry{
		Name:       "Studio._imaqt._tcp.local.",
		AddrV4:     net.ParseIP("192.168.1.20"),
		Port:       8928,
		InfoFields: []string{"path=/relay", "codec=adpcm-ima-qt", "backends=native", "junk"},
	}

	r := relayFromEntry(entry)
	if r == nil {
		t.Fatal("entry with IPv4 address was skipped")
	}
	if r.Name != "Studio" {
		t.Errorf("Name = %q, want Studio", r.Name)
	}
	if r.URL() != "ws://192.168.1.20:8928/relay" {
		t.Errorf("URL() = %q", r.URL())
	}
	if len(r.Backends) != 1 || r.Backends[0] != "native" {
		t.Errorf("Backends = %v", r.Backends)
	}

	bare := relayFromEntry(&mdns.ServiceEntry{Name: "x", AddrV4: net.ParseIP("10.0.0.1"), Port: 1})
	if bare == nil || bare.Path != DefaultPath {
		t.Errorf("entry without TXT = %+v, want default path", bare)
	}
}

func TestRelayFromEntrySkips(t *testing.T) {
	tests := []struct {
		name  string
		entry *mdns.ServiceEntry
	}{
		{"no address", &mdns.ServiceEntry{Name: "x"}},
		{"other codec", &mdns.ServiceEntry{Name: "x", AddrV4: net.ParseIP("10.0.0.1"), InfoFields: []string{"codec=opus"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if r := relayFromEntry(tt.entry); r != nil {
				t.Errorf("relayFromEntry() = %+v, want nil", r)
			}
		})
	}
}

func TestBrowseClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	select {
	case _, ok := <-Browse(ctx, 50*time.Millisecond):
		if ok {
			t.Error("expected a closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Browse did not stop after cancel")
	}
}
