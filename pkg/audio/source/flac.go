// ABOUTME: FLAC file source backed by mewkiz/flac
// ABOUTME: Reads Vorbis comment tags and scales any bit depth to 24 bits
package source

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/meta"
	"github.com/rs/zerolog/log"
)

// FLACSource reads from a FLAC file
type FLACSource struct {
	tags
	file     *os.File
	stream   *flac.Stream
	channels int
	shift    int // left shift to 24 bits, negative for deeper files

	// decoded samples the caller's buffer had no room for
	spill []int32
}

// NewFLAC opens a FLAC file
func NewFLAC(path string) (*FLACSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open FLAC file: %w", err)
	}

	stream, err := flac.Parse(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to decode FLAC: %w", err)
	}

	s := &FLACSource{
		tags:     tagsFromPath(path),
		file:     f,
		stream:   stream,
		channels: int(stream.Info.NChannels),
		shift:    24 - int(stream.Info.BitsPerSample),
	}
	for _, block := range stream.Blocks {
		if vc, ok := block.Body.(*meta.VorbisComment); ok {
			s.applyComments(vc.Tags)
		}
	}

	log.Debug().
		Str("title", s.title).
		Str("artist", s.artist).
		Uint32("sample_rate", stream.Info.SampleRate).
		Int("channels", s.channels).
		Uint8("bit_depth", stream.Info.BitsPerSample).
		Msg("loaded flac")
	return s, nil
}

// applyComments takes TITLE, ARTIST and ALBUM from Vorbis comments
func (s *FLACSource) applyComments(comments [][2]string) {
	for _, kv := range comments {
		if kv[1] == "" {
			continue
		}
		switch strings.ToUpper(kv[0]) {
		case "TITLE":
			s.title = kv[1]
		case "ARTIST":
			s.artist = kv[1]
		case "ALBUM":
			s.album = kv[1]
		}
	}
}

func (s *FLACSource) Read(samples []int32) (int, error) {
	n := copy(samples, s.spill)
	s.spill = s.spill[n:]

	for n < len(samples) {
		frame, err := s.stream.ParseNext()
		if err == io.EOF {
			if n == 0 {
				return 0, io.EOF
			}
			break
		}
		if err != nil {
			return n, fmt.Errorf("failed to parse FLAC frame: %w", err)
		}

		for i := range int(frame.BlockSize) {
			for ch := range s.channels {
				v := scaleTo24(frame.Subframes[ch].Samples[i], s.shift)
				if n < len(samples) {
					samples[n] = v
					n++
				} else {
					s.spill = append(s.spill, v)
				}
			}
		}
	}
	return n, nil
}

func scaleTo24(sample int32, shift int) int32 {
	if shift >= 0 {
		return sample << shift
	}
	return sample >> -shift
}

func (s *FLACSource) SampleRate() int { return int(s.stream.Info.SampleRate) }
func (s *FLACSource) Channels() int   { return s.channels }
func (s *FLACSource) Close() error    { return s.file.Close() }
