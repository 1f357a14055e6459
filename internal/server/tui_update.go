// ABOUTME: Relay state snapshots for the dashboard
// ABOUTME: Connection count, codec backends and open sessions
package server

import "github.com/Sendspin/imaqt-go/pkg/codec"

// status snapshots the relay for the dashboard
func (s *Server) status() RelayStatus {
	s.clientsMu.RLock()
	connections := len(s.clients)
	s.clientsMu.RUnlock()

	return RelayStatus{
		Name:        s.config.Name,
		Port:        s.config.Port,
		Backends:    s.config.Registry.Backends(codec.IDAdpcmImaQt),
		Connections: connections,
		Sessions:    s.Sessions(),
	}
}

// updateTUI nudges the dashboard after a connection or session change
func (s *Server) updateTUI() {
	if s.tui != nil {
		s.tui.Refresh()
	}
}
