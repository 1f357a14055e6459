// ABOUTME: Error kinds reported by ADPCM sessions
// ABOUTME: Error carries the failing operation and the codec's numeric code
package adpcm

import (
	"errors"
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/codec"
)

// Error kinds. Match them with errors.Is.
var (
	ErrCodecUnavailable     = errors.New("codec unavailable")
	ErrOpenFailed           = errors.New("codec open failed")
	ErrInvalidChunkSize     = errors.New("invalid chunk size")
	ErrDecodeSubmitFailed   = errors.New("decode submit failed")
	ErrDecodeRetrieveFailed = errors.New("decode retrieve failed")
	ErrEncodeFailed         = errors.New("encode failed")
	ErrInvalidPCMLength     = errors.New("invalid pcm length")
	ErrSessionClosed        = errors.New("session closed")
)

// Error describes one failed session operation
type Error struct {
	Kind error  // one of the Err* kinds above
	Op   string // operation that failed, e.g. "decode"
	Code int    // codec return code, 0 when the codec was not involved
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("adpcm: %s: %v", e.Op, e.Kind)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	// a codec.Error cause already prints its code
	var ce *codec.Error
	if e.Code != 0 && !errors.As(e.Err, &ce) {
		msg += fmt.Sprintf(" (code=%d)", e.Code)
	}
	return msg
}

// Unwrap exposes both the kind and the underlying cause
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(kind error, op string, err error) *Error {
	e := &Error{Kind: kind, Op: op, Err: err}
	var ce *codec.Error
	if errors.As(err, &ce) {
		e.Code = ce.Code
	}
	return e
}

// Kind returns the error kind of err, or nil if err did not come from a session
func Kind(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// KindName returns a stable identifier for an error kind, used on the wire
func KindName(kind error) string {
	switch kind {
	case ErrCodecUnavailable:
		return "codec_unavailable"
	case ErrOpenFailed:
		return "open_failed"
	case ErrInvalidChunkSize:
		return "invalid_chunk_size"
	case ErrDecodeSubmitFailed:
		return "decode_submit_failed"
	case ErrDecodeRetrieveFailed:
		return "decode_retrieve_failed"
	case ErrEncodeFailed:
		return "encode_failed"
	case ErrInvalidPCMLength:
		return "invalid_pcm_length"
	case ErrSessionClosed:
		return "session_closed"
	case nil:
		return ""
	default:
		return "unknown"
	}
}
