// ABOUTME: Decoder factory
// ABOUTME: Picks a decoder implementation from the format's codec name
package decode

import (
	"fmt"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// New creates a decoder for format.Codec
func New(format audio.Format) (Decoder, error) {
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
