// ABOUTME: Sine tone generator
// ABOUTME: The same 440 Hz signal on every channel at half scale
package source

import (
	"io"
	"math"
	"time"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// ToneFrequency is the pitch of NewTone (A4)
const ToneFrequency = 440.0

// ToneSource generates a sine tone
type ToneSource struct {
	rate     int
	channels int
	step     float64 // phase advance per frame, radians
	phase    float64
	left     uint64 // frames still to produce
	endless  bool
}

// NewTone creates a 440 Hz tone. Zero rate or channels take the defaults;
// a zero duration never ends.
func NewTone(sampleRate, channels int, duration time.Duration) *ToneSource {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	if channels == 0 {
		channels = DefaultChannels
	}
	return &ToneSource{
		rate:     sampleRate,
		channels: channels,
		step:     2 * math.Pi * ToneFrequency / float64(sampleRate),
		left:     uint64(duration.Seconds() * float64(sampleRate)),
		endless:  duration <= 0,
	}
}

func (s *ToneSource) Read(samples []int32) (int, error) {
	frames := uint64(len(samples) / s.channels)
	if !s.endless {
		if s.left == 0 {
			return 0, io.EOF
		}
		frames = min(frames, s.left)
		s.left -= frames
	}

	for f := range int(frames) {
		v := int32(math.Sin(s.phase) * audio.Max24Bit / 2)
		for ch := range s.channels {
			samples[f*s.channels+ch] = v
		}
		s.phase = math.Mod(s.phase+s.step, 2*math.Pi)
	}
	return int(frames) * s.channels, nil
}

func (s *ToneSource) SampleRate() int { return s.rate }
func (s *ToneSource) Channels() int   { return s.channels }
func (s *ToneSource) Metadata() (string, string, string) {
	return "Test Tone", "imaqt", ""
}
func (s *ToneSource) Close() error { return nil }
