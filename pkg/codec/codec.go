// ABOUTME: Codec identifiers, parameters and context interfaces
// ABOUTME: Backends implement DecoderContext and EncoderContext
package codec

import "fmt"

// ID identifies a compression format
type ID int

const (
	IDNone ID = iota
	IDAdpcmImaQt
	IDPcmS16LE
)

// String returns the libavcodec-style codec name
func (id ID) String() string {
	switch id {
	case IDAdpcmImaQt:
		return "adpcm_ima_qt"
	case IDPcmS16LE:
		return "pcm_s16le"
	case IDNone:
		return "none"
	default:
		return fmt.Sprintf("codec(%d)", int(id))
	}
}

// SampleFormat describes how raw samples are laid out in a frame
type SampleFormat int

const (
	SampleFmtNone SampleFormat = iota
	SampleFmtS16               // interleaved signed 16-bit
	SampleFmtS16P              // planar signed 16-bit
)

// BytesPerSample returns the size of one sample of one channel
func (f SampleFormat) BytesPerSample() int {
	switch f {
	case SampleFmtS16, SampleFmtS16P:
		return 2
	default:
		return 0
	}
}

// IsPlanar reports whether each channel is stored in its own plane
func (f SampleFormat) IsPlanar() bool {
	return f == SampleFmtS16P
}

func (f SampleFormat) String() string {
	switch f {
	case SampleFmtS16:
		return "s16"
	case SampleFmtS16P:
		return "s16p"
	default:
		return "none"
	}
}

// Parameters configures a codec context at open time
type Parameters struct {
	SampleRate   int
	Channels     int
	BitRate      int64 // encoders only, bits per second
	SampleFormat SampleFormat
}

// DecoderContext is an open decoder instance.
// Contexts are not safe for concurrent use.
type DecoderContext interface {
	// SendPacket submits one compressed unit. A nil packet starts draining.
	SendPacket(pkt *Packet) error

	// ReceiveFrame retrieves one decoded frame into frame.
	// Returns ErrAgain when more input is needed, ErrEOF once drained.
	ReceiveFrame(frame *Frame) error

	// Parameters returns the negotiated parameters
	Parameters() Parameters

	// Close releases the context
	Close() error
}

// EncoderContext is an open encoder instance.
// Contexts are not safe for concurrent use.
type EncoderContext interface {
	// FrameSize returns the number of samples per channel each frame must carry
	FrameSize() int

	// BlockAlign returns the size in bytes of one encoded packet
	BlockAlign() int

	// SendFrame submits one raw frame. A nil frame flushes the encoder.
	SendFrame(frame *Frame) error

	// ReceivePacket retrieves one encoded packet into pkt. pkt.Data is a new
	// slice owned by the caller.
	// Returns ErrAgain when more input is needed, ErrEOF once flushed.
	ReceivePacket(pkt *Packet) error

	// Reset leaves the flushed state so new frames are accepted again
	Reset() error

	// Parameters returns the negotiated parameters
	Parameters() Parameters

	// Close releases the context
	Close() error
}

// Codec describes one backend's implementation of a format
type Codec struct {
	ID       ID
	Name     string
	Backend  string
	Priority int // higher wins when no backend is requested

	NewDecoder func(p Parameters) (DecoderContext, error)
	NewEncoder func(p Parameters) (EncoderContext, error)
}

func (c *Codec) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.Backend)
}
