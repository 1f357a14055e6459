// ABOUTME: Relay session modes wrapping adpcm codec sessions
// ABOUTME: decode, encode and transcode (ADPCM to 20ms Opus packets)
package server

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/adpcm"
	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/audio/encode"
	"github.com/Sendspin/imaqt-go/pkg/audio/resample"
	"github.com/Sendspin/imaqt-go/pkg/codec"
	"github.com/Sendspin/imaqt-go/pkg/protocol"
)

// OpusRate is the rate transcode sessions resample to when the input rate
// is not one Opus accepts
const OpusRate = 48000

// KindTranscodeFailed reports an Opus failure in a transcode session
const KindTranscodeFailed = "transcode_failed"

// processor runs one session mode
type processor interface {
	process(data []byte, emit func([]byte)) error
	describe() protocol.SessionOpened
	stats() protocol.Stats
	close() error
}

// Session is one open codec session on a connection
type Session struct {
	ID      string
	Mode    protocol.Mode
	Started time.Time

	proc   processor
	opened protocol.SessionOpened

	// counters read by the TUI while the connection is processing
	inputs  atomic.Uint64
	outputs atomic.Uint64
	failed  atomic.Uint64
}

// openSession opens the codec session a client asked for
func openSession(req protocol.SessionOpen, registry *codec.Registry, defaultBackend string) (*Session, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	cfg := adpcm.Config{
		SampleRate:  req.SampleRate,
		Channels:    req.Channels,
		BitRate:     req.BitRate,
		Backend:     req.Backend,
		Registry:    registry,
		StopOnError: req.StopOnError,
	}
	if cfg.Backend == "" {
		cfg.Backend = defaultBackend
	}

	var proc processor
	var err error
	switch req.Mode {
	case protocol.ModeDecode:
		proc, err = newDecodeProcessor(cfg)
	case protocol.ModeEncode:
		proc, err = newEncodeProcessor(cfg)
	case protocol.ModeTranscode:
		proc, err = newTranscodeProcessor(cfg)
	}
	if err != nil {
		return nil, err
	}

	s := &Session{
		ID:      uuid.New().String(),
		Mode:    req.Mode,
		Started: time.Now(),
		proc:    proc,
	}
	s.opened = proc.describe()
	s.opened.SessionID = s.ID
	s.opened.Mode = s.Mode
	return s, nil
}

// Opened returns the session/opened reply
func (s *Session) Opened() protocol.SessionOpened {
	return s.opened
}

// Inputs returns how many inputs were processed and how many failed
func (s *Session) Inputs() (total, failed uint64) {
	return s.inputs.Load(), s.failed.Load()
}

// Process runs one input through the session. emit receives each output.
// Process, Stats and Close belong to the connection goroutine.
func (s *Session) Process(data []byte, emit func([]byte)) (int, error) {
	s.inputs.Add(1)
	outputs := 0
	err := s.proc.process(data, func(out []byte) {
		outputs++
		emit(out)
	})
	s.outputs.Add(uint64(outputs))
	if err != nil {
		s.failed.Add(1)
	}
	return outputs, err
}

// Stats returns the session counters
func (s *Session) Stats() protocol.Stats {
	st := s.proc.stats()
	st.Inputs = s.inputs.Load()
	st.Outputs = s.outputs.Load()
	return st
}

// Close releases the codec session
func (s *Session) Close() error {
	return s.proc.close()
}

// toSessionError maps an error to its wire form
func toSessionError(err error) *protocol.SessionError {
	se := &protocol.SessionError{Kind: adpcm.KindName(adpcm.Kind(err)), Message: err.Error()}
	var e *adpcm.Error
	if errors.As(err, &e) {
		se.Code = e.Code
	}
	if se.Kind == "" {
		se.Kind = KindTranscodeFailed
	}
	return se
}

func fromAdpcmStats(st adpcm.Stats) protocol.Stats {
	return protocol.Stats{
		Chunks:       st.Chunks,
		Frames:       st.Frames,
		Packets:      st.Packets,
		BytesIn:      st.BytesIn,
		BytesOut:     st.BytesOut,
		DroppedBytes: st.DroppedBytes,
		Errors:       st.Errors,
	}
}

// decodeChunks decodes every whole chunk in data and appends the PCM to dst.
// Input that is not a whole number of chunks goes to the decoder as-is so
// it is rejected without reaching the codec.
func decodeChunks(dec *adpcm.Decoder, dst, data []byte) ([]byte, error) {
	size := dec.ChunkSize()
	if len(data) == 0 || len(data)%size != 0 {
		_, err := dec.Decode(data)
		return dst, err
	}
	for off := 0; off < len(data); off += size {
		var err error
		dst, err = dec.DecodeTo(dst, data[off:off+size])
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// decodeProcessor turns ADPCM chunks into one PCM output per input
type decodeProcessor struct {
	dec *adpcm.Decoder
}

func newDecodeProcessor(cfg adpcm.Config) (*decodeProcessor, error) {
	dec, err := adpcm.OpenDecoder(cfg)
	if err != nil {
		return nil, err
	}
	return &decodeProcessor{dec: dec}, nil
}

func (p *decodeProcessor) process(data []byte, emit func([]byte)) error {
	pcm, err := decodeChunks(p.dec, nil, data)
	if len(pcm) > 0 {
		emit(pcm)
	}
	return err
}

func (p *decodeProcessor) describe() protocol.SessionOpened {
	return protocol.SessionOpened{
		Backend:     p.dec.Backend(),
		SampleRate:  p.dec.SampleRate(),
		Channels:    p.dec.Channels(),
		ChunkSize:   p.dec.ChunkSize(),
		FrameSize:   adpcm.DecodedSamplesPerChunk,
		PCMSize:     p.dec.PCMSize(),
		OutputCodec: audio.CodecPCM,
		OutputRate:  p.dec.SampleRate(),
	}
}

func (p *decodeProcessor) stats() protocol.Stats { return fromAdpcmStats(p.dec.Stats()) }
func (p *decodeProcessor) close() error          { return p.dec.Close() }

// encodeProcessor turns PCM into one output per ADPCM chunk
type encodeProcessor struct {
	enc *adpcm.Encoder
}

func newEncodeProcessor(cfg adpcm.Config) (*encodeProcessor, error) {
	enc, err := adpcm.OpenEncoder(cfg)
	if err != nil {
		return nil, err
	}
	return &encodeProcessor{enc: enc}, nil
}

func (p *encodeProcessor) process(data []byte, emit func([]byte)) error {
	return p.enc.Encode(data, emit)
}

func (p *encodeProcessor) describe() protocol.SessionOpened {
	return protocol.SessionOpened{
		Backend:     p.enc.Backend(),
		SampleRate:  p.enc.SampleRate(),
		Channels:    p.enc.Channels(),
		ChunkSize:   p.enc.ChunkSize(),
		FrameSize:   p.enc.FrameSize(),
		PCMSize:     p.enc.FrameBytes(),
		OutputCodec: audio.CodecADPCM,
		OutputRate:  p.enc.SampleRate(),
	}
}

func (p *encodeProcessor) stats() protocol.Stats { return fromAdpcmStats(p.enc.Stats()) }
func (p *encodeProcessor) close() error          { return p.enc.Close() }

// transcodeProcessor decodes ADPCM and re-encodes the PCM as 20ms Opus packets
type transcodeProcessor struct {
	dec       *adpcm.Decoder
	opus      encode.FrameEncoder
	resampler *resample.Resampler
	rate      int

	frameSamples int
	pcm          []byte
	pending      []int32
	resampled    []int32
	packets      uint64
	bytesOut     uint64
	errors       uint64
}

func newTranscodeProcessor(cfg adpcm.Config) (*transcodeProcessor, error) {
	dec, err := adpcm.OpenDecoder(cfg)
	if err != nil {
		return nil, err
	}

	p := &transcodeProcessor{dec: dec, rate: cfg.SampleRate}
	if !audio.IsOpusRate(cfg.SampleRate) {
		p.rate = OpusRate
		p.resampler = resample.New(cfg.SampleRate, OpusRate, cfg.Channels)
	}

	enc, err := encode.New(audio.Format{
		Codec:      audio.CodecOpus,
		SampleRate: p.rate,
		Channels:   cfg.Channels,
		BitDepth:   16,
		BitRate:    cfg.BitRate,
	})
	if err != nil {
		dec.Close()
		return nil, fmt.Errorf("transcode: %w", err)
	}
	fe, ok := enc.(encode.FrameEncoder)
	if !ok {
		enc.Close()
		dec.Close()
		return nil, fmt.Errorf("transcode: opus encoder has no fixed frame size")
	}
	p.opus = fe
	p.frameSamples = fe.FrameSize() * cfg.Channels

	log.Debug().
		Int("input_rate", cfg.SampleRate).
		Int("output_rate", p.rate).
		Int("frame_samples", p.frameSamples).
		Msg("transcode session opened")
	return p, nil
}

func (p *transcodeProcessor) process(data []byte, emit func([]byte)) error {
	var err error
	p.pcm, err = decodeChunks(p.dec, p.pcm[:0], data)
	if len(p.pcm) > 0 {
		samples := audio.PCM16ToInt32(p.pcm)
		if p.resampler != nil {
			need := p.resampler.OutputSamplesNeeded(len(samples))
			if cap(p.resampled) < need {
				p.resampled = make([]int32, need)
			}
			n := p.resampler.Resample(samples, p.resampled[:need])
			samples = p.resampled[:n]
		}
		p.pending = append(p.pending, samples...)
	}

	for len(p.pending) >= p.frameSamples {
		pkt, encErr := p.opus.Encode(p.pending[:p.frameSamples])
		n := copy(p.pending, p.pending[p.frameSamples:])
		p.pending = p.pending[:n]
		if encErr != nil {
			p.errors++
			return encErr
		}
		p.packets++
		p.bytesOut += uint64(len(pkt))
		emit(pkt)
	}
	return err
}

func (p *transcodeProcessor) describe() protocol.SessionOpened {
	return protocol.SessionOpened{
		Backend:     p.dec.Backend(),
		SampleRate:  p.dec.SampleRate(),
		Channels:    p.dec.Channels(),
		ChunkSize:   p.dec.ChunkSize(),
		FrameSize:   p.opus.FrameSize(),
		OutputCodec: audio.CodecOpus,
		OutputRate:  p.rate,
	}
}

func (p *transcodeProcessor) stats() protocol.Stats {
	st := fromAdpcmStats(p.dec.Stats())
	st.Packets = p.packets
	st.BytesOut = p.bytesOut
	st.Errors += p.errors
	st.DroppedBytes = uint64(len(p.pending) * 2)
	return st
}

func (p *transcodeProcessor) close() error {
	if len(p.pending) > 0 {
		log.Debug().
			Int("samples", len(p.pending)).
			Msg("transcode dropped partial opus frame")
	}
	p.opus.Close()
	return p.dec.Close()
}
