// ABOUTME: Fake codec contexts for session tests
// ABOUTME: Count calls, inject failures and delay output
package adpcm

import (
	"github.com/Sendspin/imaqt-go/pkg/codec"
	"github.com/Sendspin/imaqt-go/pkg/codec/imaqt"
)

// countingDecoder wraps the native decoder and counts submissions
type countingDecoder struct {
	codec.DecoderContext
	sends *int
}

func (c *countingDecoder) SendPacket(pkt *codec.Packet) error {
	*c.sends++
	return c.DecoderContext.SendPacket(pkt)
}

// fakeEncoder emits one packet per frame, tagged with the frame number
type fakeEncoder struct {
	params    codec.Parameters
	frameSize int

	delay      int          // packets held back until flush
	failOn     map[int]bool // frame numbers rejected with invalid data
	againFirst bool         // refuse the first frame once with EAGAIN

	queue    [][]byte
	flushing bool
	frames   int
	resets   int
	closed   bool
}

func (f *fakeEncoder) FrameSize() int  { return f.frameSize }
func (f *fakeEncoder) BlockAlign() int { return BlockSize * f.params.Channels }

func (f *fakeEncoder) SendFrame(frame *codec.Frame) error {
	if frame == nil {
		f.flushing = true
		return nil
	}
	if f.flushing {
		return codec.ErrEOF
	}
	if f.againFirst {
		f.againFirst = false
		return codec.ErrAgain
	}

	f.frames++
	if f.failOn[f.frames] {
		return codec.ErrInvalidData
	}
	pkt := make([]byte, BlockSize*f.params.Channels)
	pkt[0] = byte(f.frames)
	f.queue = append(f.queue, pkt)
	return nil
}

func (f *fakeEncoder) ReceivePacket(pkt *codec.Packet) error {
	if len(f.queue) > f.delay || (f.flushing && len(f.queue) > 0) {
		pkt.Data = f.queue[0]
		pkt.Duration = f.frameSize
		f.queue = f.queue[1:]
		return nil
	}
	if f.flushing {
		return codec.ErrEOF
	}
	return codec.ErrAgain
}

func (f *fakeEncoder) Reset() error {
	f.flushing = false
	f.resets++
	return nil
}

func (f *fakeEncoder) Parameters() codec.Parameters { return f.params }

func (f *fakeEncoder) Close() error {
	f.closed = true
	return nil
}

// fakeRegistry registers a single "fake" backend built from the given hooks
func fakeRegistry(dec func(codec.Parameters) (codec.DecoderContext, error),
	enc func(codec.Parameters) (codec.EncoderContext, error)) *codec.Registry {
	r := codec.NewRegistry()
	r.Register(&codec.Codec{
		ID:         codec.IDAdpcmImaQt,
		Name:       "fake",
		Backend:    "fake",
		NewDecoder: dec,
		NewEncoder: enc,
	})
	return r
}

func countingRegistry(sends *int) *codec.Registry {
	return fakeRegistry(func(p codec.Parameters) (codec.DecoderContext, error) {
		inner, err := imaqt.NewDecoder(p)
		if err != nil {
			return nil, err
		}
		return &countingDecoder{DecoderContext: inner, sends: sends}, nil
	}, nil)
}

func encoderRegistry(fake *fakeEncoder) *codec.Registry {
	return fakeRegistry(nil, func(p codec.Parameters) (codec.EncoderContext, error) {
		fake.params = p
		if fake.frameSize == 0 {
			fake.frameSize = DecodedSamplesPerChunk
		}
		return fake, nil
	})
}
