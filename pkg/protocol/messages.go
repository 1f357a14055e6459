// ABOUTME: Relay protocol message type definitions
// ABOUTME: JSON control messages wrapped in a {type, payload} envelope
package protocol

import (
	"encoding/json"
	"fmt"
)

// Path is the WebSocket endpoint served by the relay
const Path = "/imaqt"

// Message types
const (
	TypeSessionOpen   = "session/open"
	TypeSessionOpened = "session/opened"
	TypeSessionDone   = "session/done"
	TypeSessionError  = "session/error"
	TypeSessionClose  = "session/close"
	TypeSessionClosed = "session/closed"
)

// Mode selects what a session does with binary input
type Mode string

const (
	// ModeDecode turns ADPCM chunks into 16-bit PCM
	ModeDecode Mode = "decode"
	// ModeEncode turns 16-bit PCM into ADPCM chunks
	ModeEncode Mode = "encode"
	// ModeTranscode turns ADPCM chunks into 20ms Opus packets
	ModeTranscode Mode = "transcode"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeDecode, ModeEncode, ModeTranscode:
		return true
	}
	return false
}

// Message is the top-level wrapper for all protocol messages
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Envelope is a received message with its payload left undecoded
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ParseEnvelope decodes the outer message
func ParseEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, fmt.Errorf("invalid message: %w", err)
	}
	if env.Type == "" {
		return env, fmt.Errorf("invalid message: missing type")
	}
	return env, nil
}

// Decode unmarshals the payload into v. An absent payload leaves v untouched.
func (e Envelope) Decode(v interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", e.Type, err)
	}
	return nil
}

// SessionOpen asks the relay to open a codec session
type SessionOpen struct {
	Mode        Mode   `json:"mode"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	BitRate     int64  `json:"bit_rate,omitempty"`
	Backend     string `json:"backend,omitempty"`
	StopOnError bool   `json:"stop_on_error,omitempty"`
}

// Validate checks the request before a session is opened
func (o SessionOpen) Validate() error {
	if !o.Mode.Valid() {
		return fmt.Errorf("unknown mode %q", o.Mode)
	}
	return nil
}

// SessionOpened describes the session the relay opened
type SessionOpened struct {
	SessionID   string `json:"session_id"`
	Mode        Mode   `json:"mode"`
	Backend     string `json:"backend"`
	SampleRate  int    `json:"sample_rate"`
	Channels    int    `json:"channels"`
	ChunkSize   int    `json:"chunk_size"`
	FrameSize   int    `json:"frame_size,omitempty"`
	PCMSize     int    `json:"pcm_size,omitempty"`
	OutputCodec string `json:"output_codec"`
	OutputRate  int    `json:"output_rate"`
}

// SessionDone ends the replies to one binary input
type SessionDone struct {
	Seq     uint64        `json:"seq"`
	Outputs int           `json:"outputs"`
	Error   *SessionError `json:"error,omitempty"`
}

// SessionError reports a failure. The session stays open.
type SessionError struct {
	Kind    string `json:"kind"`
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
}

// Error kinds the relay reports besides the codec session kinds
const (
	KindNoSession      = "no_session"
	KindSessionOpen    = "session_already_open"
	KindBadRequest     = "bad_request"
	KindUnknownMessage = "unknown_message"
)

func (e *SessionError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("remote %s (code %d): %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("remote %s: %s", e.Kind, e.Message)
}

// SessionClosed carries the final session counters
type SessionClosed struct {
	SessionID string `json:"session_id"`
	Stats     Stats  `json:"stats"`
}

// Stats mirrors the codec session counters
type Stats struct {
	Inputs       uint64 `json:"inputs"`
	Outputs      uint64 `json:"outputs"`
	Chunks       uint64 `json:"chunks"`
	Frames       uint64 `json:"frames"`
	Packets      uint64 `json:"packets"`
	BytesIn      uint64 `json:"bytes_in"`
	BytesOut     uint64 `json:"bytes_out"`
	DroppedBytes uint64 `json:"dropped_bytes"`
	Errors       uint64 `json:"errors"`
}
