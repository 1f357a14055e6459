// ABOUTME: Audio type definitions
// ABOUTME: Defines stream formats, codec names and sample conversions
package audio

import (
	"fmt"
	"time"
)

// Codec names used in Format.Codec
const (
	CodecPCM   = "pcm"
	CodecOpus  = "opus"
	CodecADPCM = "adpcm-ima-qt"
)

// Samples travel between packages as int32 in the 24-bit range
const (
	Max24Bit = 8388607
	Min24Bit = -8388608
)

// OpusRates are the sample rates libopus accepts
var OpusRates = []int{8000, 12000, 16000, 24000, 48000}

// Format describes an audio stream
type Format struct {
	Codec      string
	SampleRate int
	Channels   int
	BitDepth   int
	BitRate    int64 // requested encoder bit rate, 0 for codec default
}

// Validate checks the fields every codec needs
func (f Format) Validate() error {
	switch {
	case f.SampleRate <= 0:
		return fmt.Errorf("invalid sample rate: %d", f.SampleRate)
	case f.Channels <= 0:
		return fmt.Errorf("invalid channel count: %d", f.Channels)
	case f.BitRate < 0:
		return fmt.Errorf("invalid bit rate: %d", f.BitRate)
	}
	return nil
}

// FrameBytes is the size of one interleaved PCM frame (one sample per
// channel) at the format's bit depth. It is 0 for compressed codecs.
func (f Format) FrameBytes() int {
	if f.Codec != CodecPCM {
		return 0
	}
	return f.BitDepth / 8 * f.Channels
}

// Duration converts an interleaved sample count to playback time
func (f Format) Duration(samples int) time.Duration {
	if f.SampleRate <= 0 || f.Channels <= 0 {
		return 0
	}
	frames := int64(samples / f.Channels)
	return time.Duration(frames * int64(time.Second) / int64(f.SampleRate))
}

func (f Format) String() string {
	if f.BitDepth == 0 {
		return fmt.Sprintf("%s %dHz %dch", f.Codec, f.SampleRate, f.Channels)
	}
	return fmt.Sprintf("%s %dHz %dch %d-bit", f.Codec, f.SampleRate, f.Channels, f.BitDepth)
}

// IsOpusRate reports whether libopus can run at rate without resampling
func IsOpusRate(rate int) bool {
	for _, r := range OpusRates {
		if r == rate {
			return true
		}
	}
	return false
}

// SampleToInt16 drops the low 8 bits of a 24-bit sample
func SampleToInt16(sample int32) int16 {
	return int16(sample >> 8)
}

// SampleFromInt16 places a 16-bit sample in the upper bits of the 24-bit range
func SampleFromInt16(sample int16) int32 {
	return int32(sample) << 8
}

// SampleTo24Bit packs the low 24 bits little-endian
func SampleTo24Bit(sample int32) [3]byte {
	return [3]byte{byte(sample), byte(sample >> 8), byte(sample >> 16)}
}

// SampleFrom24Bit unpacks a little-endian 24-bit sample with sign extension
func SampleFrom24Bit(b [3]byte) int32 {
	return int32(uint32(b[0])<<8|uint32(b[1])<<16|uint32(b[2])<<24) >> 8
}
