// ABOUTME: Opus audio encoder
// ABOUTME: Encodes 20ms frames of int32 samples to Opus packets
package encode

import (
	"errors"
	"fmt"
	"time"

	"github.com/Sendspin/imaqt-go/pkg/audio"
	"gopkg.in/hraban/opus.v2"
)

// OpusFrameDuration is the length of audio in each packet
const OpusFrameDuration = 20 * time.Millisecond

// maxOpusPacket is the largest packet libopus will produce
const maxOpusPacket = 4000

var errEncoderClosed = errors.New("encoder closed")

// OpusEncoder encodes one fixed-size frame per call
type OpusEncoder struct {
	encoder   *opus.Encoder
	channels  int
	frameSize int
	pcm       []int16
	packet    []byte
}

// NewOpus creates an Opus encoder. The sample rate must be one libopus
// supports; callers resample first.
func NewOpus(format audio.Format) (Encoder, error) {
	if format.Codec != audio.CodecOpus {
		return nil, fmt.Errorf("invalid codec for Opus encoder: %s", format.Codec)
	}
	if !audio.IsOpusRate(format.SampleRate) {
		return nil, fmt.Errorf("unsupported opus sample rate %d (supported: %v)", format.SampleRate, audio.OpusRates)
	}
	if format.Channels != 1 && format.Channels != 2 {
		return nil, fmt.Errorf("unsupported opus channel count: %d", format.Channels)
	}

	enc, err := opus.NewEncoder(format.SampleRate, format.Channels, opus.AppAudio)
	if err != nil {
		return nil, fmt.Errorf("failed to create opus encoder: %w", err)
	}
	if format.BitRate > 0 {
		if err := enc.SetBitrate(int(format.BitRate)); err != nil {
			return nil, fmt.Errorf("failed to set opus bitrate %d: %w", format.BitRate, err)
		}
	}

	frameSize := int(int64(format.SampleRate) * int64(OpusFrameDuration) / int64(time.Second))
	return &OpusEncoder{
		encoder:   enc,
		channels:  format.Channels,
		frameSize: frameSize,
		pcm:       make([]int16, frameSize*format.Channels),
		packet:    make([]byte, maxOpusPacket),
	}, nil
}

// FrameSize returns the samples per channel each Encode call takes
func (e *OpusEncoder) FrameSize() int {
	return e.frameSize
}

// Encode converts exactly one frame to a packet. The returned slice is
// owned by the caller.
func (e *OpusEncoder) Encode(samples []int32) ([]byte, error) {
	if e.encoder == nil {
		return nil, errEncoderClosed
	}
	if len(samples) != len(e.pcm) {
		return nil, fmt.Errorf("opus frame must have %d samples, got %d", len(e.pcm), len(samples))
	}

	for i, s := range samples {
		e.pcm[i] = audio.SampleToInt16(s)
	}

	n, err := e.encoder.Encode(e.pcm, e.packet)
	if err != nil {
		return nil, fmt.Errorf("opus encode error: %w", err)
	}
	return append([]byte(nil), e.packet[:n]...), nil
}

// Close drops the libopus state. Later Encode calls fail.
func (e *OpusEncoder) Close() error {
	e.encoder = nil
	return nil
}
