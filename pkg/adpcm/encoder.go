// ABOUTME: Encode session turning interleaved PCM into ADPCM-IMA-QT chunks
// ABOUTME: Whole frames are encoded, the codec flushed and reset per call
package adpcm

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/codec"
)

// Encoder is an open encode session
type Encoder struct {
	mu        sync.Mutex
	ctx       codec.EncoderContext
	cfg       Config
	backend   string
	frameSize int

	frame  *codec.Frame
	pkt    codec.Packet
	stats  Stats
	closed bool
}

// OpenEncoder looks up an ADPCM-IMA-QT encoder and opens a session
func OpenEncoder(cfg Config) (*Encoder, error) {
	c, err := cfg.lookup(true)
	if err != nil {
		return nil, newError(ErrCodecUnavailable, "open encoder", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, newError(ErrOpenFailed, "open encoder", err)
	}

	params := cfg.parameters()
	params.SampleFormat = codec.SampleFmtS16P
	ctx, err := c.NewEncoder(params)
	if err != nil {
		return nil, newError(ErrOpenFailed, "open encoder", err)
	}

	frameSize := ctx.FrameSize()
	if frameSize <= 0 {
		ctx.Close()
		return nil, newError(ErrOpenFailed, "open encoder",
			codec.Errorf(codec.CodeInvalidArgument, "codec reported frame size %d", frameSize))
	}

	log.Debug().
		Str("backend", c.Backend).
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Int64("bit_rate", cfg.BitRate).
		Int("frame_size", frameSize).
		Msg("adpcm encoder opened")

	return &Encoder{
		ctx:       ctx,
		cfg:       cfg,
		backend:   c.Backend,
		frameSize: frameSize,
		frame:     codec.AllocFrame(frameSize, cfg.Channels, codec.SampleFmtS16P),
	}, nil
}

// FrameSize returns the number of samples per channel in one codec frame
func (e *Encoder) FrameSize() int {
	return e.frameSize
}

// FrameBytes returns the interleaved PCM size of one codec frame
func (e *Encoder) FrameBytes() int {
	return e.frameSize * e.cfg.Channels * 2
}

// ChunkSize returns the size of one encoded chunk
func (e *Encoder) ChunkSize() int {
	return BlockSize * e.cfg.Channels
}

// Channels returns the configured channel count
func (e *Encoder) Channels() int {
	return e.cfg.Channels
}

// SampleRate returns the configured sample rate
func (e *Encoder) SampleRate() int {
	return e.cfg.SampleRate
}

// Backend returns the name of the codec implementation in use
func (e *Encoder) Backend() string {
	return e.backend
}

// Encode encodes interleaved 16-bit little-endian PCM. Each encoded chunk is
// passed to emit in order and emit may keep the slice. Bytes past the
// last whole frame are dropped. emit runs with the session locked and must
// not call back into the Encoder.
func (e *Encoder) Encode(pcm []byte, emit func(chunk []byte)) error {
	if e == nil {
		return newError(ErrSessionClosed, "encode", nil)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed || e.ctx == nil {
		return newError(ErrSessionClosed, "encode", nil)
	}
	if len(pcm)%(2*e.cfg.Channels) != 0 {
		e.stats.Errors++
		return newError(ErrInvalidPCMLength, "encode",
			fmt.Errorf("%d bytes is not a multiple of %d", len(pcm), 2*e.cfg.Channels))
	}

	var errs []error
	frameBytes := e.FrameBytes()
	frames := len(pcm) / frameBytes

	submitted := 0
	for submitted < frames {
		i := submitted
		submitted++
		audio.DeinterleaveInto(e.frame.Data, pcm[i*frameBytes:(i+1)*frameBytes])
		if err := e.submit(e.frame, emit); err != nil {
			errs = append(errs, err)
			if e.cfg.StopOnError {
				break
			}
		}
	}
	e.stats.BytesIn += uint64(submitted * frameBytes)

	// frames skipped after a stop count as dropped, as does a partial tail
	if dropped := len(pcm) - submitted*frameBytes; dropped > 0 {
		e.stats.DroppedBytes += uint64(dropped)
		log.Debug().
			Int("dropped_bytes", dropped).
			Int("frame_bytes", frameBytes).
			Msg("adpcm encoder dropped input")
	}

	if err := e.submit(nil, emit); err != nil {
		errs = append(errs, err)
	}
	if err := e.ctx.Reset(); err != nil {
		e.stats.Errors++
		errs = append(errs, newError(ErrEncodeFailed, "reset", err))
	}

	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return errors.Join(errs...)
	}
}

// EncodeAll encodes pcm and returns the chunks it produced. Chunks emitted
// before a failure are returned alongside the error.
func (e *Encoder) EncodeAll(pcm []byte) ([][]byte, error) {
	var chunks [][]byte
	err := e.Encode(pcm, func(chunk []byte) {
		chunks = append(chunks, chunk)
	})
	return chunks, err
}

// Stats returns a snapshot of the session counters
func (e *Encoder) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}

// Close releases the codec context. It is safe to call more than once
// and on a nil or never-opened Encoder.
func (e *Encoder) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.ctx == nil {
		return nil
	}

	err := e.ctx.Close()
	e.ctx = nil
	e.frame = nil

	log.Debug().
		Str("backend", e.backend).
		Uint64("frames", e.stats.Frames).
		Uint64("packets", e.stats.Packets).
		Uint64("dropped_bytes", e.stats.DroppedBytes).
		Msg("adpcm encoder closed")

	if err != nil {
		return fmt.Errorf("close encoder: %w", err)
	}
	return nil
}
