// ABOUTME: Audio source abstraction for reading PCM from files or generators
// ABOUTME: Dispatches MP3, FLAC, WAV and AIFF-C ima4 files by extension
package source

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultSampleRate is used by generated sources when none is given
	DefaultSampleRate = 44100
	// DefaultChannels is used by generated sources when none is given
	DefaultChannels = 2
)

// Source provides interleaved PCM samples in the 24-bit range
type Source interface {
	// Read fills samples and returns how many were written. At the end of
	// the stream it returns 0, io.EOF.
	Read(samples []int32) (int, error)
	// SampleRate returns the sample rate of the audio
	SampleRate() int
	// Channels returns the number of channels
	Channels() int
	// Metadata returns title, artist, album
	Metadata() (title, artist, album string)
	// Close closes the audio source
	Close() error
}

// Open creates a source from a file path. An empty path returns an
// endless test tone.
func Open(path string) (Source, error) {
	if path == "" {
		return NewTone(DefaultSampleRate, DefaultChannels, 0), nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("audio file not found: %s", path)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".mp3":
		return NewMP3(path)
	case ".flac":
		return NewFLAC(path)
	case ".wav", ".wave":
		return NewWAV(path)
	case ".aifc", ".aiff", ".aif":
		return NewAIFC(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .mp3, .flac, .wav, .aifc)", ext)
	}
}

// tags is what a source reports from Metadata
type tags struct {
	title, artist, album string
}

// tagsFromPath titles a file after its base name without extension
func tagsFromPath(path string) tags {
	name := filepath.Base(path)
	return tags{title: strings.TrimSuffix(name, filepath.Ext(name))}
}

func (t tags) Metadata() (title, artist, album string) {
	return t.title, t.artist, t.album
}

// ReadFull reads from src until buf is full or the stream ends. It returns
// io.EOF only together with a short count.
func ReadFull(src Source, buf []int32) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := src.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
		if m == 0 {
			return n, io.ErrNoProgress
		}
	}
	return n, nil
}
