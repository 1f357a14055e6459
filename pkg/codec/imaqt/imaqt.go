// ABOUTME: Native QuickTime IMA ADPCM codec registration
// ABOUTME: Registers decoder and encoder factories as the "native" backend
// Package imaqt implements the QuickTime flavour of IMA ADPCM ("ima4") in Go
// and registers it with the default codec registry.
//
// Each channel is coded in independent 34-byte blocks of 64 samples, so a
// stereo packet is 68 bytes. Importing the package for side effects is
// enough to make the codec available:
//
//	import _ "github.com/Sendspin/imaqt-go/pkg/codec/imaqt"
package imaqt

import (
	"github.com/Sendspin/imaqt-go/pkg/codec"
)

// Backend is the registry name of this implementation
const Backend = "native"

// MaxChannels is the largest channel count the codec accepts
const MaxChannels = 2

func init() {
	codec.Register(Codec())
}

// Codec returns the registry entry for the native implementation
func Codec() *codec.Codec {
	return &codec.Codec{
		ID:         codec.IDAdpcmImaQt,
		Name:       codec.IDAdpcmImaQt.String(),
		Backend:    Backend,
		Priority:   0,
		NewDecoder: NewDecoder,
		NewEncoder: NewEncoder,
	}
}

// EffectiveBitRate is the fixed output rate of the codec in bits per second
func EffectiveBitRate(sampleRate, channels int) int64 {
	return int64(sampleRate) * int64(channels) * BlockSize * 8 / SamplesPerBlock
}

func validate(p codec.Parameters) error {
	if p.SampleRate <= 0 {
		return codec.Errorf(codec.CodeInvalidArgument, "imaqt: invalid sample rate %d", p.SampleRate)
	}
	if p.Channels < 1 || p.Channels > MaxChannels {
		return codec.Errorf(codec.CodeInvalidArgument,
			"imaqt: unsupported channel count %d (supported: 1, 2)", p.Channels)
	}
	if p.BitRate < 0 {
		return codec.Errorf(codec.CodeInvalidArgument, "imaqt: invalid bit rate %d", p.BitRate)
	}
	return nil
}
