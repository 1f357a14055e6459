// ABOUTME: PCM audio decoder
// ABOUTME: Decodes 16-bit and 24-bit little-endian PCM to int32 samples
package decode

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// PCMDecoder reads interleaved little-endian PCM
type PCMDecoder struct {
	format audio.Format
}

// NewPCM creates a PCM decoder for 16 or 24-bit input
func NewPCM(format audio.Format) (Decoder, error) {
	if format.Codec != audio.CodecPCM {
		return nil, fmt.Errorf("invalid codec for PCM decoder: %s", format.Codec)
	}
	if format.BitDepth != 16 && format.BitDepth != 24 {
		return nil, fmt.Errorf("unsupported bit depth: %d (supported: 16, 24)", format.BitDepth)
	}
	return &PCMDecoder{format: format}, nil
}

// Decode converts whole frames of PCM bytes to samples. A trailing partial
// frame is an error.
func (d *PCMDecoder) Decode(data []byte) ([]int32, error) {
	frame := d.format.BitDepth / 8
	if d.format.Channels > 0 {
		frame *= d.format.Channels
	}
	if len(data)%frame != 0 {
		return nil, fmt.Errorf("pcm length %d is not a multiple of the %d-byte frame", len(data), frame)
	}

	if d.format.BitDepth == 16 {
		return audio.PCM16ToInt32(data), nil
	}

	samples := make([]int32, len(data)/3)
	for i := range samples {
		samples[i] = audio.SampleFrom24Bit([3]byte(data[i*3 : i*3+3]))
	}
	return samples, nil
}

func (d *PCMDecoder) Close() error {
	return nil
}
