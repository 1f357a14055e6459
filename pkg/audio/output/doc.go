// ABOUTME: Audio output package for playing audio
// ABOUTME: Provides Output interface with oto and malgo implementations
// Package output provides audio playback backends.
//
// Two device backends are available: oto (16-bit) and malgo (16, 24 or
// 32-bit through miniaudio). The null backend discards audio.
//
// Example:
//
//	out, err := output.New("malgo")
//	err = out.Open(44100, 2, 16)
//	err = out.Write(samples)
//	err = out.Close()
package output
