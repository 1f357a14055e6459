// ABOUTME: Encoder factory
// ABOUTME: Picks an encoder implementation from the format's codec name
package encode

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// New creates an encoder for format.Codec
func New(format audio.Format) (Encoder, error) {
	switch format.Codec {
	case audio.CodecPCM:
		return NewPCM(format)
	case audio.CodecOpus:
		return NewOpus(format)
	case audio.CodecADPCM:
		return NewADPCM(format)
	default:
		return nil, fmt.Errorf("unsupported codec: %q", format.Codec)
	}
}
