// ABOUTME: ADPCM-IMA-QT audio encoder
// ABOUTME: Encodes int32 samples to concatenated 34-byte-per-channel chunks
package encode

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/adpcm"
	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// ADPCMEncoder encodes QuickTime IMA ADPCM through an adpcm session
type ADPCMEncoder struct {
	session *adpcm.Encoder
}

// NewADPCM creates a new ADPCM encoder using the default codec backend
func NewADPCM(format audio.Format) (Encoder, error) {
	e, err := NewADPCMWithConfig(format, adpcm.Config{})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NewADPCMWithConfig creates an ADPCM encoder with explicit session options.
// Sample rate, channels and bit rate are taken from format.
func NewADPCMWithConfig(format audio.Format, cfg adpcm.Config) (*ADPCMEncoder, error) {
	if format.Codec != audio.CodecADPCM {
		return nil, fmt.Errorf("invalid codec for ADPCM encoder: %s", format.Codec)
	}
	if format.BitDepth != 0 && format.BitDepth != 16 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16)", format.BitDepth)
	}

	cfg.SampleRate = format.SampleRate
	cfg.Channels = format.Channels
	cfg.BitRate = format.BitRate

	session, err := adpcm.OpenEncoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adpcm encoder: %w", err)
	}
	return &ADPCMEncoder{session: session}, nil
}

// FrameSize returns the number of samples per channel in one chunk
func (e *ADPCMEncoder) FrameSize() int {
	return e.session.FrameSize()
}

// Encode converts int32 samples to ADPCM chunks. Samples past the last
// whole frame are dropped.
func (e *ADPCMEncoder) Encode(samples []int32) ([]byte, error) {
	var out []byte
	err := e.session.Encode(audio.Int32ToPCM16(samples), func(chunk []byte) {
		out = append(out, chunk...)
	})
	if err != nil {
		return out, fmt.Errorf("adpcm encode error: %w", err)
	}
	return out, nil
}

// Stats returns the underlying session counters
func (e *ADPCMEncoder) Stats() adpcm.Stats {
	return e.session.Stats()
}

// Close releases the codec session
func (e *ADPCMEncoder) Close() error {
	return e.session.Close()
}
