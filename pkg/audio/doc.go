// ABOUTME: Audio fundamentals package providing core types and utilities
// ABOUTME: Defines Format, codec names and sample conversion functions
// Package audio provides fundamental audio types and utilities.
//
// Samples travel between packages as int32 values in the 24-bit range.
// 16-bit PCM is shifted up by 8 bits on the way in and down on the way out.
//
// The package defines:
//   - Format: codec, sample rate, channels, bit depth and requested bit rate
//   - 16-bit and 24-bit sample conversions
//   - Interleave and Deinterleave for planar 16-bit audio
//
// Example:
//
//	format := audio.Format{
//	    Codec:      audio.CodecADPCM,
//	    SampleRate: 44100,
//	    Channels:   2,
//	    BitDepth:   16,
//	}
//
//	planes := audio.Deinterleave(pcm, format.Channels)
//	pcm = audio.Interleave(planes)
package audio
