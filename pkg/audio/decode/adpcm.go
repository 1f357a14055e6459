// ABOUTME: ADPCM-IMA-QT audio decoder
// ABOUTME: Decodes whole 34-byte-per-channel chunks to int32 samples
package decode

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/adpcm"
	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// ADPCMDecoder decodes QuickTime IMA ADPCM through an adpcm session
type ADPCMDecoder struct {
	session *adpcm.Decoder
	pcm     []byte
}

// NewADPCM creates a new ADPCM decoder using the default codec backend
func NewADPCM(format audio.Format) (Decoder, error) {
	d, err := NewADPCMWithConfig(format, adpcm.Config{})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// NewADPCMWithConfig creates an ADPCM decoder with explicit session options.
// Sample rate and channels are taken from format.
func NewADPCMWithConfig(format audio.Format, cfg adpcm.Config) (*ADPCMDecoder, error) {
	if format.Codec != audio.CodecADPCM {
		return nil, fmt.Errorf("invalid codec for ADPCM decoder: %s", format.Codec)
	}

	cfg.SampleRate = format.SampleRate
	cfg.Channels = format.Channels

	session, err := adpcm.OpenDecoder(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create adpcm decoder: %w", err)
	}
	return &ADPCMDecoder{session: session}, nil
}

// ChunkSize returns the size of one encoded chunk
func (d *ADPCMDecoder) ChunkSize() int {
	return d.session.ChunkSize()
}

// Decode converts one or more whole ADPCM chunks to int32 samples
func (d *ADPCMDecoder) Decode(data []byte) ([]int32, error) {
	chunk := d.session.ChunkSize()
	if len(data)%chunk != 0 {
		return nil, &adpcm.Error{
			Kind: adpcm.ErrInvalidChunkSize,
			Op:   "decode",
			Err:  fmt.Errorf("data length %d is not a multiple of %d", len(data), chunk),
		}
	}

	d.pcm = d.pcm[:0]
	for off := 0; off < len(data); off += chunk {
		var err error
		d.pcm, err = d.session.DecodeTo(d.pcm, data[off:off+chunk])
		if err != nil {
			return nil, fmt.Errorf("adpcm decode failed at offset %d: %w", off, err)
		}
	}
	return audio.PCM16ToInt32(d.pcm), nil
}

// Close releases the codec session
func (d *ADPCMDecoder) Close() error {
	return d.session.Close()
}
