// ABOUTME: WebSocket client for the imaqt relay
// ABOUTME: One request in flight at a time, replies collected until session/done
package protocol

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds each wait for a relay reply
const DefaultTimeout = 10 * time.Second

// ErrNoSession is returned when a call needs an open session
var ErrNoSession = errors.New("no session open")

// Client talks to a relay over one WebSocket connection
type Client struct {
	conn    *websocket.Conn
	mu      sync.Mutex
	timeout time.Duration
	session *SessionOpened
	seq     uint64
	closed  bool
}

// Dial connects to a relay. addr is host:port or a ws:// URL.
func Dial(ctx context.Context, addr string) (*Client, error) {
	target := addr
	if !strings.HasPrefix(addr, "ws://") && !strings.HasPrefix(addr, "wss://") {
		u := url.URL{Scheme: "ws", Host: addr, Path: Path}
		target = u.String()
	}

	log.Debug().Str("url", target).Msg("connecting to relay")
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}

	return &Client{conn: conn, timeout: DefaultTimeout}, nil
}

// SetTimeout changes how long the client waits for each reply
func (c *Client) SetTimeout(d time.Duration) {
	c.mu.Lock()
	c.timeout = d
	c.mu.Unlock()
}

// Session returns the open session, or nil
func (c *Client) Session() *SessionOpened {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Open opens a session on the relay
func (c *Client) Open(req SessionOpen) (SessionOpened, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return SessionOpened{}, fmt.Errorf("client closed")
	}
	if c.session != nil {
		return SessionOpened{}, fmt.Errorf("session %s already open", c.session.SessionID)
	}

	if err := c.conn.WriteJSON(Message{Type: TypeSessionOpen, Payload: req}); err != nil {
		return SessionOpened{}, fmt.Errorf("failed to send %s: %w", TypeSessionOpen, err)
	}

	env, err := c.readText()
	if err != nil {
		return SessionOpened{}, err
	}

	switch env.Type {
	case TypeSessionOpened:
		var opened SessionOpened
		if err := env.Decode(&opened); err != nil {
			return SessionOpened{}, err
		}
		c.session = &opened
		c.seq = 0
		log.Debug().
			Str("session_id", opened.SessionID).
			Str("mode", string(opened.Mode)).
			Str("backend", opened.Backend).
			Msg("relay session opened")
		return opened, nil
	case TypeSessionError:
		return SessionOpened{}, decodeError(env)
	default:
		return SessionOpened{}, fmt.Errorf("expected %s, got %s", TypeSessionOpened, env.Type)
	}
}

// Process sends one input and returns the outputs the relay produced for
// it. Outputs received before a reported failure are returned with the
// error.
func (c *Client) Process(data []byte) ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrNoSession
	}

	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return nil, fmt.Errorf("failed to send input: %w", err)
	}
	c.seq++

	var outputs [][]byte
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return outputs, err
		}
		messageType, payload, err := c.conn.ReadMessage()
		if err != nil {
			return outputs, fmt.Errorf("read failed: %w", err)
		}

		if messageType == websocket.BinaryMessage {
			outputs = append(outputs, payload)
			continue
		}

		env, err := ParseEnvelope(payload)
		if err != nil {
			return outputs, err
		}
		switch env.Type {
		case TypeSessionDone:
			var done SessionDone
			if err := env.Decode(&done); err != nil {
				return outputs, err
			}
			if done.Seq != c.seq {
				return outputs, fmt.Errorf("reply for input %d, expected %d", done.Seq, c.seq)
			}
			if done.Outputs != len(outputs) {
				return outputs, fmt.Errorf("relay reported %d outputs, received %d", done.Outputs, len(outputs))
			}
			if done.Error != nil {
				return outputs, done.Error
			}
			return outputs, nil
		case TypeSessionError:
			return outputs, decodeError(env)
		default:
			log.Debug().Str("type", env.Type).Msg("ignoring unexpected relay message")
		}
	}
}

// CloseSession ends the open session and returns its final counters
func (c *Client) CloseSession() (Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closeSession()
}

func (c *Client) closeSession() (Stats, error) {
	if c.session == nil {
		return Stats{}, ErrNoSession
	}
	c.session = nil

	if err := c.conn.WriteJSON(Message{Type: TypeSessionClose}); err != nil {
		return Stats{}, fmt.Errorf("failed to send %s: %w", TypeSessionClose, err)
	}

	for {
		env, err := c.readText()
		if err != nil {
			return Stats{}, err
		}
		switch env.Type {
		case TypeSessionClosed:
			var closed SessionClosed
			if err := env.Decode(&closed); err != nil {
				return Stats{}, err
			}
			return closed.Stats, nil
		case TypeSessionError:
			return Stats{}, decodeError(env)
		}
	}
}

// Close ends any open session and closes the connection. It is safe to
// call more than once.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true

	var sessionErr error
	if c.session != nil {
		_, sessionErr = c.closeSession()
	}

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	if err := c.conn.Close(); err != nil {
		return err
	}
	return sessionErr
}

// readText reads the next text message, skipping stray binary frames
func (c *Client) readText() (Envelope, error) {
	for {
		if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
			return Envelope{}, err
		}
		messageType, data, err := c.conn.ReadMessage()
		if err != nil {
			return Envelope{}, fmt.Errorf("read failed: %w", err)
		}
		if messageType == websocket.TextMessage {
			return ParseEnvelope(data)
		}
	}
}

func decodeError(env Envelope) error {
	var se SessionError
	if err := env.Decode(&se); err != nil {
		return err
	}
	return &se
}
