// ABOUTME: mDNS advertisement for a running relay
// ABOUTME: Publishes the service on every up, non-loopback IPv4 interface
package discovery

import (
	"fmt"
	"net"

	"github.com/hashicorp/mdns"
	"github.com/rs/zerolog/log"
)

// Config describes the advertised relay
type Config struct {
	ServiceName string
	Port        int
	Path        string   // defaults to DefaultPath
	Backends    []string // codec backends, sent in TXT
}

// Advertiser answers mDNS queries for one relay until closed
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts answering queries for cfg
func Advertise(cfg Config) (*Advertiser, error) {
	if cfg.Path == "" {
		cfg.Path = DefaultPath
	}

	ips, err := localIPv4()
	if err != nil {
		return nil, fmt.Errorf("failed to list interfaces: %w", err)
	}

	zone, err := mdns.NewMDNSService(cfg.ServiceName, ServiceType, "", "", cfg.Port, ips, encodeTXT(cfg.Path, cfg.Backends))
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: zone})
	if err != nil {
		return nil, fmt.Errorf("failed to start mdns responder: %w", err)
	}

	log.Info().
		Str("name", cfg.ServiceName).
		Int("port", cfg.Port).
		Int("addrs", len(ips)).
		Str("type", ServiceType).
		Msg("advertising relay")
	return &Advertiser{server: server}, nil
}

// Close stops answering queries
func (a *Advertiser) Close() error {
	return a.server.Shutdown()
}

func localIPv4() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var ips []net.IP
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil && !ipnet.IP.IsLoopback() {
				ips = append(ips, ipnet.IP)
			}
		}
	}
	return ips, nil
}
