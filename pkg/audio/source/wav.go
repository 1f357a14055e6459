// ABOUTME: WAV file source reading 16 or 24-bit PCM
// ABOUTME: Wraps pkg/container/wav
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/container/wav"
)

// WAVSource reads from a PCM WAVE file
type WAVSource struct {
	file   *os.File
	reader *wav.Reader
	buf    []byte
	tags
}

// NewWAV opens a WAVE file
func NewWAV(path string) (*WAVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open WAV file: %w", err)
	}

	rd, err := wav.NewReader(bufio.NewReader(f))
	if err != nil {
		f.Close()
		return nil, err
	}

	s := &WAVSource{file: f, reader: rd, tags: tagsFromPath(path)}
	log.Debug().
		Str("title", s.title).
		Int("sample_rate", rd.SampleRate()).
		Int("channels", rd.Channels()).
		Int("bit_depth", rd.BitDepth()).
		Msg("loaded wav")
	return s, nil
}

func (s *WAVSource) Read(samples []int32) (int, error) {
	width := s.reader.BitDepth() / 8
	numBytes := len(samples) * width
	if cap(s.buf) < numBytes {
		s.buf = make([]byte, numBytes)
	}
	buf := s.buf[:numBytes]

	n, err := io.ReadFull(s.reader, buf)
	switch err {
	case nil, io.ErrUnexpectedEOF:
	case io.EOF:
		return 0, io.EOF
	default:
		return 0, err
	}

	numSamples := n / width
	for i := 0; i < numSamples; i++ {
		if width == 2 {
			samples[i] = audio.SampleFromInt16(int16(uint16(buf[i*2]) | uint16(buf[i*2+1])<<8))
		} else {
			samples[i] = audio.SampleFrom24Bit([3]byte{buf[i*3], buf[i*3+1], buf[i*3+2]})
		}
	}
	return numSamples, nil
}

func (s *WAVSource) SampleRate() int { return s.reader.SampleRate() }
func (s *WAVSource) Channels() int   { return s.reader.Channels() }
func (s *WAVSource) Close() error {
	return s.file.Close()
}
