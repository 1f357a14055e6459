// ABOUTME: Decode session turning ADPCM-IMA-QT chunks into interleaved PCM
// ABOUTME: One chunk of 34 bytes per channel yields 64 samples per channel
package adpcm

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/codec"
)

// Decoder is an open decode session
type Decoder struct {
	mu      sync.Mutex
	ctx     codec.DecoderContext
	cfg     Config
	backend string

	pkt    codec.Packet
	frame  codec.Frame
	stats  Stats
	closed bool
}

// OpenDecoder looks up an ADPCM-IMA-QT decoder and opens a session
func OpenDecoder(cfg Config) (*Decoder, error) {
	c, err := cfg.lookup(false)
	if err != nil {
		return nil, newError(ErrCodecUnavailable, "open decoder", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, newError(ErrOpenFailed, "open decoder", err)
	}

	ctx, err := c.NewDecoder(cfg.parameters())
	if err != nil {
		return nil, newError(ErrOpenFailed, "open decoder", err)
	}

	log.Debug().
		Str("backend", c.Backend).
		Int("sample_rate", cfg.SampleRate).
		Int("channels", cfg.Channels).
		Msg("adpcm decoder opened")

	return &Decoder{ctx: ctx, cfg: cfg, backend: c.Backend}, nil
}

// ChunkSize returns the exact input size Decode accepts
func (d *Decoder) ChunkSize() int {
	return BlockSize * d.cfg.Channels
}

// PCMSize returns the number of PCM bytes one chunk decodes to
func (d *Decoder) PCMSize() int {
	return DecodedSamplesPerChunk * 2 * d.cfg.Channels
}

// Channels returns the configured channel count
func (d *Decoder) Channels() int {
	return d.cfg.Channels
}

// SampleRate returns the configured sample rate
func (d *Decoder) SampleRate() int {
	return d.cfg.SampleRate
}

// Backend returns the name of the codec implementation in use
func (d *Decoder) Backend() string {
	return d.backend
}

// Decode decodes one chunk into a newly allocated interleaved 16-bit
// little-endian buffer.
func (d *Decoder) Decode(chunk []byte) ([]byte, error) {
	return d.DecodeTo(nil, chunk)
}

// DecodeTo decodes one chunk and appends the PCM to dst.
// On error dst is returned unchanged.
func (d *Decoder) DecodeTo(dst, chunk []byte) ([]byte, error) {
	if d == nil {
		return dst, newError(ErrSessionClosed, "decode", nil)
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.ctx == nil {
		return dst, newError(ErrSessionClosed, "decode", nil)
	}
	if len(chunk) != d.ChunkSize() {
		d.stats.Errors++
		return dst, newError(ErrInvalidChunkSize, "decode",
			fmt.Errorf("got %d bytes, want %d", len(chunk), d.ChunkSize()))
	}

	d.pkt.Data = chunk
	err := d.ctx.SendPacket(&d.pkt)
	d.pkt.Data = nil
	if err != nil {
		d.stats.Errors++
		return dst, newError(ErrDecodeSubmitFailed, "decode", err)
	}

	if err := d.ctx.ReceiveFrame(&d.frame); err != nil {
		d.stats.Errors++
		return dst, newError(ErrDecodeRetrieveFailed, "decode", err)
	}

	if len(d.frame.Data) == 0 || (d.frame.Format.IsPlanar() && len(d.frame.Data) < d.cfg.Channels) {
		d.stats.Errors++
		return dst, newError(ErrDecodeRetrieveFailed, "decode",
			codec.Errorf(codec.CodeInvalidData, "frame has %d planes for %d channels", len(d.frame.Data), d.cfg.Channels))
	}

	start := len(dst)
	if d.frame.Format.IsPlanar() {
		dst = audio.InterleaveTo(dst, d.frame.Data[:d.cfg.Channels])
	} else {
		dst = append(dst, d.frame.Data[0]...)
	}

	d.stats.Chunks++
	d.stats.BytesIn += uint64(len(chunk))
	d.stats.BytesOut += uint64(len(dst) - start)
	return dst, nil
}

// Stats returns a snapshot of the session counters
func (d *Decoder) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stats
}

// Close releases the codec context. It is safe to call more than once
// and on a nil or never-opened Decoder.
func (d *Decoder) Close() error {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	if d.ctx == nil {
		return nil
	}

	err := d.ctx.Close()
	d.ctx = nil
	d.frame.Unref()

	log.Debug().
		Str("backend", d.backend).
		Uint64("chunks", d.stats.Chunks).
		Uint64("errors", d.stats.Errors).
		Msg("adpcm decoder closed")

	if err != nil {
		return fmt.Errorf("close decoder: %w", err)
	}
	return nil
}
