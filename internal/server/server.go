// ABOUTME: Relay server exposing adpcm codec sessions over WebSocket
// ABOUTME: Manages connections, per-connection sessions, mDNS and shutdown
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/internal/discovery"
	"github.com/Sendspin/imaqt-go/internal/version"
	"github.com/Sendspin/imaqt-go/pkg/codec"
	"github.com/Sendspin/imaqt-go/pkg/protocol"
)

const (
	// DefaultPort is the relay listen port
	DefaultPort = 8937

	// DefaultMaxMessageSize limits one incoming WebSocket message
	DefaultMaxMessageSize = 4 << 20

	sendQueueSize = 256
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
)

var errServerStopping = errors.New("server stopping")

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool
	Debug      bool
	UseTUI     bool

	// Backend is used when a client does not ask for one
	Backend string

	// Registry overrides codec.Default
	Registry *codec.Registry

	MaxMessageSize int64
}

// Server is the imaqt relay
type Server struct {
	config   Config
	serverID string
	upgrader websocket.Upgrader

	httpServer *http.Server
	mux        *http.ServeMux

	clients   map[string]*Client
	clientsMu sync.RWMutex

	advertiser *discovery.Advertiser

	tui       *Dashboard
	startTime time.Time

	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is one connected WebSocket peer
type Client struct {
	ID         string
	RemoteAddr string
	Conn       *websocket.Conn

	// session is only touched by the connection's read loop; sessionMu
	// guards it for the TUI snapshot
	session   *Session
	sessionMu sync.RWMutex
	seq       uint64

	sendChan chan interface{}
	done     chan struct{}
}

// SessionInfo describes an open session for display
type SessionInfo struct {
	ClientID   string
	RemoteAddr string
	SessionID  string
	Mode       protocol.Mode
	Backend    string
	SampleRate int
	Channels   int
	Inputs     uint64
	Failed     uint64
	Age        time.Duration
}

// New creates a new server instance
func New(config Config) *Server {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.Name == "" {
		config.Name = "imaqt relay"
	}
	if config.Registry == nil {
		config.Registry = codec.Default
	}
	if config.MaxMessageSize <= 0 {
		config.MaxMessageSize = DefaultMaxMessageSize
	}

	s := &Server{
		config:   config,
		serverID: uuid.New().String(),
		mux:      http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// the relay is meant for trusted local networks
				if origin := r.Header.Get("Origin"); origin != "" {
					log.Debug().Str("origin", origin).Msg("accepting websocket from browser origin")
				}
				return true
			},
		},
		clients:   make(map[string]*Client),
		startTime: time.Now(),
		stopChan:  make(chan struct{}),
	}
	s.mux.HandleFunc(protocol.Path, s.handleWebSocket)
	return s
}

// Handler returns the HTTP handler serving the relay endpoint
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start runs the server until Stop is called, the TUI quits or the
// listener fails.
func (s *Server) Start() error {
	if s.config.UseTUI {
		s.tui = NewDashboard(s.status)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.tui.Run(); err != nil {
				log.Error().Err(err).Msg("TUI failed")
			}
		}()
	}

	log.Info().
		Str("name", s.config.Name).
		Str("server_id", s.serverID).
		Str("version", version.Version).
		Msg("relay starting")

	if s.config.EnableMDNS {
		adv, err := discovery.Advertise(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Path:        protocol.Path,
			Backends:    s.config.Registry.Backends(codec.IDAdpcmImaQt),
		})
		if err != nil {
			log.Warn().Err(err).Msg("failed to start mDNS advertisement")
		}
		s.advertiser = adv
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		s.cleanup()
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	log.Info().Str("addr", addr).Str("path", protocol.Path).Msg("websocket server listening")

	s.httpServer = &http.Server{
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.Serve(ln); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var tuiQuitChan <-chan struct{}
	if s.tui != nil {
		tuiQuitChan = s.tui.Quit()
		s.updateTUI()
	}

	var serverErr error
	select {
	case <-s.stopChan:
		log.Info().Msg("relay shutting down")
	case <-tuiQuitChan:
		log.Info().Msg("TUI quit requested, shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("HTTP server error")
		serverErr = err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP server shutdown error")
	}
	s.cleanup()

	log.Info().Msg("relay stopped cleanly")
	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// cleanup rejects new connections, closes the open ones and waits for
// their goroutines
func (s *Server) cleanup() {
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	s.Stop()

	if s.tui != nil {
		s.tui.Stop()
	}
	if s.advertiser != nil {
		s.advertiser.Close()
	}

	s.clientsMu.RLock()
	for _, client := range s.clients {
		client.Conn.Close()
	}
	s.clientsMu.RUnlock()

	s.wg.Wait()
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// Sessions returns the sessions open right now, oldest first
func (s *Server) Sessions() []SessionInfo {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	infos := make([]SessionInfo, 0, len(s.clients))
	for _, client := range s.clients {
		client.sessionMu.RLock()
		sess := client.session
		client.sessionMu.RUnlock()
		if sess == nil {
			continue
		}
		opened := sess.Opened()
		inputs, failed := sess.Inputs()
		infos = append(infos, SessionInfo{
			ClientID:   client.ID,
			RemoteAddr: client.RemoteAddr,
			SessionID:  sess.ID,
			Mode:       sess.Mode,
			Backend:    opened.Backend,
			SampleRate: opened.SampleRate,
			Channels:   opened.Channels,
			Inputs:     inputs,
			Failed:     failed,
			Age:        time.Since(sess.Started),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Age > infos[j].Age })
	return infos
}

// handleWebSocket upgrades and serves one connection
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	shutdown := s.isShutdown
	s.shutdownMu.RUnlock()
	if shutdown {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade error")
		return
	}

	log.Debug().Str("remote", r.RemoteAddr).Msg("new websocket connection")
	s.handleConnection(conn, r.RemoteAddr)
}

// handleConnection runs the read loop for one client
func (s *Server) handleConnection(conn *websocket.Conn, remoteAddr string) {
	defer conn.Close()
	conn.SetReadLimit(s.config.MaxMessageSize)

	client := &Client{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		Conn:       conn,
		sendChan:   make(chan interface{}, sendQueueSize),
		done:       make(chan struct{}),
	}

	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()
	s.updateTUI()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client)
	}()

	defer func() {
		s.closeSession(client)

		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()

		close(client.sendChan)
		log.Debug().Str("client_id", client.ID).Msg("client disconnected")
		s.updateTUI()
	}()

	for {
		messageType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("client_id", client.ID).Msg("websocket error")
			}
			return
		}

		var handleErr error
		if messageType == websocket.BinaryMessage {
			handleErr = s.handleInput(client, data)
		} else {
			handleErr = s.handleClientMessage(client, data)
		}
		if handleErr != nil {
			log.Debug().Err(handleErr).Str("client_id", client.ID).Msg("dropping connection")
			return
		}
	}
}

// clientWriter sends queued messages to the client
func (s *Server) clientWriter(client *Client) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer close(client.done)

	for {
		select {
		case msg, ok := <-client.sendChan:
			if !ok {
				return
			}

			switch v := msg.(type) {
			case []byte:
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.BinaryMessage, v); err != nil {
					log.Warn().Err(err).Str("client_id", client.ID).Msg("error writing binary message")
					client.Conn.Close()
					return
				}
			default:
				data, err := json.Marshal(v)
				if err != nil {
					log.Error().Err(err).Msg("error marshaling message")
					continue
				}
				client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
				if err := client.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
					log.Warn().Err(err).Str("client_id", client.ID).Msg("error writing text message")
					client.Conn.Close()
					return
				}
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.Conn.Close()
				return
			}
		}
	}
}

// handleClientMessage processes a control message
func (s *Server) handleClientMessage(client *Client, data []byte) error {
	env, err := protocol.ParseEnvelope(data)
	if err != nil {
		return s.sendError(client, protocol.KindBadRequest, 0, err.Error())
	}

	switch env.Type {
	case protocol.TypeSessionOpen:
		return s.handleOpen(client, env)
	case protocol.TypeSessionClose:
		return s.handleClose(client)
	default:
		log.Debug().Str("type", env.Type).Msg("unknown message type")
		return s.sendError(client, protocol.KindUnknownMessage, 0, fmt.Sprintf("unknown message type %q", env.Type))
	}
}

func (s *Server) handleOpen(client *Client, env protocol.Envelope) error {
	if sess := client.currentSession(); sess != nil {
		return s.sendError(client, protocol.KindSessionOpen, 0, fmt.Sprintf("session %s is still open", sess.ID))
	}

	var req protocol.SessionOpen
	if err := env.Decode(&req); err != nil {
		return s.sendError(client, protocol.KindBadRequest, 0, err.Error())
	}
	if err := req.Validate(); err != nil {
		return s.sendError(client, protocol.KindBadRequest, 0, err.Error())
	}

	sess, err := openSession(req, s.config.Registry, s.config.Backend)
	if err != nil {
		se := toSessionError(err)
		log.Debug().Err(err).Str("mode", string(req.Mode)).Msg("session open failed")
		return s.sendError(client, se.Kind, se.Code, se.Message)
	}

	client.sessionMu.Lock()
	client.session = sess
	client.seq = 0
	client.sessionMu.Unlock()

	opened := sess.Opened()
	log.Info().
		Str("client_id", client.ID).
		Str("session_id", sess.ID).
		Str("mode", string(sess.Mode)).
		Str("backend", opened.Backend).
		Int("sample_rate", opened.SampleRate).
		Int("channels", opened.Channels).
		Msg("session opened")
	s.updateTUI()

	return s.send(client, protocol.Message{Type: protocol.TypeSessionOpened, Payload: opened})
}

func (s *Server) handleClose(client *Client) error {
	sess := client.currentSession()
	if sess == nil {
		return s.sendError(client, protocol.KindNoSession, 0, "no session open")
	}
	stats := s.closeSession(client)
	s.updateTUI()
	return s.send(client, protocol.Message{
		Type:    protocol.TypeSessionClosed,
		Payload: protocol.SessionClosed{SessionID: sess.ID, Stats: stats},
	})
}

// handleInput runs one binary message through the open session. Outputs
// are queued in order and followed by session/done.
func (s *Server) handleInput(client *Client, data []byte) error {
	client.seq++
	done := protocol.SessionDone{Seq: client.seq}

	sess := client.currentSession()
	if sess == nil {
		done.Error = &protocol.SessionError{Kind: protocol.KindNoSession, Message: "no session open"}
		return s.send(client, protocol.Message{Type: protocol.TypeSessionDone, Payload: done})
	}

	var sendErr error
	outputs, err := sess.Process(data, func(out []byte) {
		if sendErr == nil {
			sendErr = s.send(client, out)
		}
	})
	if sendErr != nil {
		return sendErr
	}
	done.Outputs = outputs
	if err != nil {
		done.Error = toSessionError(err)
		log.Debug().Err(err).Str("session_id", sess.ID).Uint64("seq", done.Seq).Msg("session input failed")
	}

	if s.config.Debug {
		log.Debug().
			Str("session_id", sess.ID).
			Uint64("seq", done.Seq).
			Int("input_bytes", len(data)).
			Int("outputs", outputs).
			Msg("session input processed")
	}
	return s.send(client, protocol.Message{Type: protocol.TypeSessionDone, Payload: done})
}

// closeSession closes the client's session, if any, and returns its final
// counters
func (s *Server) closeSession(client *Client) protocol.Stats {
	client.sessionMu.Lock()
	sess := client.session
	client.session = nil
	client.sessionMu.Unlock()

	if sess == nil {
		return protocol.Stats{}
	}
	stats := sess.Stats()
	if err := sess.Close(); err != nil {
		log.Warn().Err(err).Str("session_id", sess.ID).Msg("error closing session")
	}
	log.Info().
		Str("session_id", sess.ID).
		Uint64("inputs", stats.Inputs).
		Uint64("outputs", stats.Outputs).
		Uint64("errors", stats.Errors).
		Msg("session closed")
	return stats
}

func (c *Client) currentSession() *Session {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.session
}

// send queues a message for the writer. It blocks while the queue is full
// so outputs are never dropped.
func (s *Server) send(client *Client, msg interface{}) error {
	select {
	case client.sendChan <- msg:
		return nil
	case <-client.done:
		return fmt.Errorf("client writer stopped")
	case <-s.stopChan:
		return errServerStopping
	}
}

func (s *Server) sendError(client *Client, kind string, code int, message string) error {
	return s.send(client, protocol.Message{
		Type:    protocol.TypeSessionError,
		Payload: protocol.SessionError{Kind: kind, Code: code, Message: message},
	})
}
