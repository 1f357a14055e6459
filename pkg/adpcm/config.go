// ABOUTME: Session configuration and codec lookup
// ABOUTME: Resolves the ADPCM-IMA-QT implementation from a codec registry
package adpcm

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/codec"
	_ "github.com/Sendspin/imaqt-go/pkg/codec/imaqt" // native backend, always available
)

const (
	// BlockSize is the encoded size of one channel's block in bytes
	BlockSize = 34
	// DecodedSamplesPerChunk is the number of samples per channel in one chunk
	DecodedSamplesPerChunk = 64
)

// Config configures a decode or encode session
type Config struct {
	SampleRate int
	Channels   int
	BitRate    int64 // encoder only; the codec's output rate is fixed

	// Backend selects a registered implementation by name, "" picks the best
	Backend string
	// Registry to look the codec up in, codec.Default when nil
	Registry *codec.Registry
	// StopOnError aborts Encode at the first failing frame
	StopOnError bool
}

func (c Config) registry() *codec.Registry {
	if c.Registry == nil {
		return codec.Default
	}
	return c.Registry
}

func (c Config) parameters() codec.Parameters {
	return codec.Parameters{
		SampleRate: c.SampleRate,
		Channels:   c.Channels,
		BitRate:    c.BitRate,
	}
}

func (c Config) validate() error {
	if c.SampleRate <= 0 {
		return codec.Errorf(codec.CodeInvalidArgument, "invalid sample rate %d", c.SampleRate)
	}
	if c.Channels < 1 || c.Channels > 2 {
		return codec.Errorf(codec.CodeInvalidArgument, "unsupported channel count %d (supported: 1, 2)", c.Channels)
	}
	if c.BitRate < 0 {
		return codec.Errorf(codec.CodeInvalidArgument, "invalid bit rate %d", c.BitRate)
	}
	return nil
}

func (c Config) lookup(encoder bool) (*codec.Codec, error) {
	var found *codec.Codec
	if encoder {
		found = c.registry().FindEncoder(codec.IDAdpcmImaQt, c.Backend)
	} else {
		found = c.registry().FindDecoder(codec.IDAdpcmImaQt, c.Backend)
	}
	if found != nil {
		return found, nil
	}

	code := codec.CodeDecoderNotFound
	if encoder {
		code = codec.CodeEncoderNotFound
	}
	msg := "no adpcm_ima_qt implementation registered"
	if c.Backend != "" {
		msg = fmt.Sprintf("backend %q has no adpcm_ima_qt implementation", c.Backend)
	}
	return nil, codec.NewError(code, msg)
}
