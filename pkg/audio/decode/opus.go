// ABOUTME: Opus audio decoder
// ABOUTME: Decodes Opus packets to int32 samples
package decode

import (
	"errors"
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// maxOpusFrame is 120ms at 48kHz, the longest frame a packet can carry
const maxOpusFrame = 5760

var errDecoderClosed = errors.New("decoder closed")

// OpusDecoder decodes one packet per call
type OpusDecoder struct {
	decoder  *opus.Decoder
	channels int
	pcm      []int16
}

// NewOpus creates an Opus decoder at one of the libopus sample rates
func NewOpus(format audio.Format) (Decoder, error) {
	if format.Codec != audio.CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus decoder: %s", format.Codec)
	}
	if !audio.IsOpusRate(format.SampleRate) {
		return nil, fmt.Errorf("unsupported opus sample rate %d (supported: %v)", format.SampleRate, audio.OpusRates)
	}

	dec, err := opus.NewDecoder(format.SampleRate, format.Channels)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus decoder: %w", err)
	}

	return &OpusDecoder{
		decoder:  dec,
		channels: format.Channels,
		pcm:      make([]int16, maxOpusFrame*format.Channels),
	}, nil
}

// Decode converts one Opus packet to samples
func (d *OpusDecoder) Decode(data []byte) ([]int32, error) {
	if d.decoder == nil {
		return nil, errDecoderClosed
	}

	n, err := d.decoder.Decode(data, d.pcm)
	if err != nil {
		return nil, fmt.Errorf("opus decode failed: %w", err)
	}

	samples := make([]int32, n*d.channels)
	for i := range samples {
		samples[i] = audio.SampleFromInt16(d.pcm[i])
	}
	return samples, nil
}

// Close drops the libopus state. Later Decode calls fail.
func (d *OpusDecoder) Close() error {
	d.decoder = nil
	return nil
}
