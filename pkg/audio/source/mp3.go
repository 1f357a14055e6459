// ABOUTME: MP3 file source backed by go-mp3
// ABOUTME: go-mp3 decodes to 16-bit little-endian stereo at the file's rate
package source

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/hajimehoshi/go-mp3"
	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// MP3Source reads from an MP3 file
type MP3Source struct {
	tags
	file *os.File
	dec  *mp3.Decoder
	raw  []byte
}

// NewMP3 opens an MP3 file
func NewMP3(path string) (*MP3Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open MP3 file: %w", err)
	}

	dec, err := mp3.NewDecoder(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode MP3: %w", err)
	}

	s := &MP3Source{tags: tagsFromPath(path), file: f, dec: dec}
	log.Debug().
		Str("title", s.title).
		Int("sample_rate", dec.SampleRate()).
		Dur("length", s.Length()).
		Msg("loaded mp3")
	return s, nil
}

func (s *MP3Source) Read(samples []int32) (int, error) {
	want := len(samples) * 2
	if cap(s.raw) < want {
		s.raw = make([]byte, want)
	}
	raw := s.raw[:want]

	n, err := io.ReadFull(s.dec, raw)
	switch err {
	case nil, io.ErrUnexpectedEOF:
	case io.EOF:
		return 0, io.EOF
	default:
		return 0, err
	}

	count := n / 2
	for i := range count {
		samples[i] = audio.SampleFromInt16(int16(binary.LittleEndian.Uint16(raw[i*2:])))
	}
	return count, nil
}

// Length is the decoded duration
func (s *MP3Source) Length() time.Duration {
	frames := s.dec.Length() / 4
	return time.Duration(frames) * time.Second / time.Duration(s.dec.SampleRate())
}

func (s *MP3Source) SampleRate() int { return s.dec.SampleRate() }
func (s *MP3Source) Channels() int   { return 2 }
func (s *MP3Source) Close() error    { return s.file.Close() }
