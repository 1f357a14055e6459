// ABOUTME: Relay records as advertised over DNS-SD
// ABOUTME: TXT encoding for the relay side, entry parsing for browsers
package discovery

import (
	"net"
	"strconv"
	"strings"

	"github.com/hashicorp/mdns"
)

// ServiceType is the DNS-SD type relays advertise
const ServiceType = "_imaqt._tcp"

// DefaultPath is assumed when a relay advertises no path
const DefaultPath = "/imaqt"

const codecName = "adpcm-ima-qt"

// Relay is one relay found on the network
type Relay struct {
	Name     string
	Host     string
	Port     int
	Path     string
	Backends []string
}

// Addr returns host:port
func (r *Relay) Addr() string {
	return net.JoinHostPort(r.Host, strconv.Itoa(r.Port))
}

// URL returns the relay's WebSocket endpoint
func (r *Relay) URL() string {
	return "ws://" + r.Addr() + r.Path
}

func encodeTXT(path string, backends []string) []string {
	txt := []string{"path=" + path, "codec=" + codecName}
	if len(backends) > 0 {
		txt = append(txt, "backends="+strings.Join(backends, ","))
	}
	return txt
}

// relayFromEntry returns nil for entries without an IPv4 address or for
// services announcing another codec
func relayFromEntry(entry *mdns.ServiceEntry) *Relay {
	if entry.AddrV4 == nil {
		return nil
	}
	r := &Relay{
		Name: strings.TrimSuffix(entry.Name, "."+ServiceType+".local."),
		Host: entry.AddrV4.String(),
		Port: entry.Port,
		Path: DefaultPath,
	}
	for _, field := range entry.InfoFields {
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			continue
		}
		switch key {
		case "path":
			r.Path = value
		case "codec":
			if value != codecName {
				return nil
			}
		case "backends":
			r.Backends = strings.Split(value, ",")
		}
	}
	return r
}
