// ABOUTME: Encoder interfaces
// ABOUTME: Encoder turns int32 samples into codec bytes, FrameEncoder adds a fixed frame size
package encode

// Encoder converts interleaved int32 samples in the 24-bit range to encoded
// bytes. Implementations are not safe for concurrent use.
type Encoder interface {
	Encode(samples []int32) ([]byte, error)
	Close() error
}

// FrameEncoder is an Encoder that only accepts whole frames. FrameSize is
// in samples per channel. Opus takes exactly one frame per call, ADPCM any
// number of frames.
type FrameEncoder interface {
	Encoder
	FrameSize() int
}
