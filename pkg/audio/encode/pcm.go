// ABOUTME: PCM audio encoder
// ABOUTME: Encodes int32 samples to 16-bit or 24-bit little-endian PCM bytes
package encode

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// PCMEncoder writes interleaved little-endian PCM
type PCMEncoder struct {
	format audio.Format
}

// NewPCM creates a PCM encoder for 16 or 24-bit output
func NewPCM(format audio.Format) (Encoder, error) {
	if format.Codec != audio.CodecPCM {
		return nil, fmt.Errorf("invalid codec for PCM encoder: %s", format.Codec)
	}
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}
	return &PCMEncoder{format: format}, nil
}

// Encode converts samples to PCM bytes. A sample count that does not fill
// whole frames is rejected.
func (e *PCMEncoder) Encode(samples []int32) ([]byte, error) {
	if e.format.Channels > 0 && len(samples)%e.format.Channels != 0 {
		return nil, fmt.Errorf("%d samples do not divide into %d channels", len(samples), e.format.Channels)
	}

	if e.format.BitDepth == 16 {
		return audio.Int32ToPCM16(samples), nil
	}

	out := make([]byte, 0, len(samples)*3)
	for _, s := range samples {
		b := audio.SampleTo24Bit(s)
		out = append(out, b[:]...)
	}
	return out, nil
}

func (e *PCMEncoder) Close() error {
	return nil
}
