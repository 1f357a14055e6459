// ABOUTME: AIFF-C ima4 file source
// ABOUTME: Packets are decoded through an adpcm decode session
package source

import (
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/adpcm"
	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/container/aifc"
)

// AIFCSource reads QuickTime IMA4 audio from an AIFF-C file
type AIFCSource struct {
	file    *os.File
	reader  *aifc.Reader
	decoder *adpcm.Decoder
	tags

	pcm     []byte
	pending []int32
}

// NewAIFC opens an AIFF-C file with the default codec backend
func NewAIFC(path string) (*AIFCSource, error) {
	return NewAIFCWithConfig(path, adpcm.Config{})
}

// NewAIFCWithConfig opens an AIFF-C file. Sample rate and channels in cfg
// are taken from the file; the backend and registry are used as given.
func NewAIFCWithConfig(path string, cfg adpcm.Config) (*AIFCSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open AIFF-C file: %w", err)
	}

	rd, err := aifc.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	cfg.SampleRate = rd.SampleRate()
	cfg.Channels = rd.Channels()
	dec, err := adpcm.OpenDecoder(cfg)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to open ima4 decoder: %w", err)
	}

	s := &AIFCSource{file: f, reader: rd, decoder: dec, tags: tagsFromPath(path)}
	log.Debug().
		Str("title", s.title).
		Int("sample_rate", rd.SampleRate()).
		Int("channels", rd.Channels()).
		Int("packets", rd.Packets()).
		Str("backend", dec.Backend()).
		Msg("loaded aifc")
	return s, nil
}

func (s *AIFCSource) Read(samples []int32) (int, error) {
	n := copy(samples, s.pending)
	s.pending = s.pending[n:]

	for n < len(samples) {
		chunk, err := s.reader.ReadChunk()
		if err == io.EOF {
			if n == 0 {
				return 0, io.EOF
			}
			break
		}
		if err != nil {
			return n, err
		}

		s.pcm, err = s.decoder.DecodeTo(s.pcm[:0], chunk)
		if err != nil {
			return n, err
		}
		decoded := audio.PCM16ToInt32(s.pcm)
		c := copy(samples[n:], decoded)
		n += c
		s.pending = append(s.pending, decoded[c:]...)
	}
	return n, nil
}

// Stats returns the decode session counters
func (s *AIFCSource) Stats() adpcm.Stats { return s.decoder.Stats() }

func (s *AIFCSource) SampleRate() int { return s.reader.SampleRate() }
func (s *AIFCSource) Channels() int   { return s.reader.Channels() }
func (s *AIFCSource) Close() error {
	derr := s.decoder.Close()
	if err := s.file.Close(); err != nil {
		return err
	}
	return derr
}
