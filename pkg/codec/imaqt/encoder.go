// ABOUTME: Native IMA-QT encoder context
// ABOUTME: Consumes 64-sample planar frames and queues one packet per frame
package imaqt

import (
	"github.com/Sendspin/imaqt-go/pkg/codec"
)

type encoder struct {
	params     codec.Parameters
	blockAlign int
	status     []channelState

	queued    []byte
	hasQueued bool
	flushing  bool
	closed    bool
}

// NewEncoder opens a native encoder context
func NewEncoder(p codec.Parameters) (codec.EncoderContext, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	if p.SampleFormat != codec.SampleFmtNone && p.SampleFormat != codec.SampleFmtS16P {
		return nil, codec.Errorf(codec.CodeInvalidArgument,
			"imaqt: sample format %s not supported (want s16p)", p.SampleFormat)
	}
	p.SampleFormat = codec.SampleFmtS16P
	p.BitRate = EffectiveBitRate(p.SampleRate, p.Channels)

	return &encoder{
		params:     p,
		blockAlign: BlockSize * p.Channels,
		status:     make([]channelState, p.Channels),
		queued:     make([]byte, BlockSize*p.Channels),
	}, nil
}

func (e *encoder) FrameSize() int {
	return SamplesPerBlock
}

func (e *encoder) BlockAlign() int {
	return e.blockAlign
}

func (e *encoder) SendFrame(frame *codec.Frame) error {
	if e.closed {
		return codec.ErrInvalidArgument
	}
	if e.flushing {
		return codec.ErrEOF
	}
	if frame == nil {
		e.flushing = true
		return nil
	}
	if e.hasQueued {
		return codec.ErrAgain
	}
	if err := e.checkFrame(frame); err != nil {
		return err
	}

	for ch := 0; ch < e.params.Channels; ch++ {
		block := e.queued[ch*BlockSize : (ch+1)*BlockSize]
		e.status[ch].encodeBlock(frame.Data[ch], block)
	}
	e.hasQueued = true
	return nil
}

func (e *encoder) checkFrame(frame *codec.Frame) error {
	if frame.Format != codec.SampleFmtS16P {
		return codec.Errorf(codec.CodeInvalidArgument, "imaqt: frame format %s, want s16p", frame.Format)
	}
	if frame.NbSamples != SamplesPerBlock {
		return codec.Errorf(codec.CodeInvalidArgument,
			"imaqt: frame has %d samples, want %d", frame.NbSamples, SamplesPerBlock)
	}
	if frame.Channels != e.params.Channels || len(frame.Data) < e.params.Channels {
		return codec.Errorf(codec.CodeInvalidArgument,
			"imaqt: frame has %d channels, want %d", frame.Channels, e.params.Channels)
	}
	for ch := 0; ch < e.params.Channels; ch++ {
		if len(frame.Data[ch]) < SamplesPerBlock*2 {
			return codec.Errorf(codec.CodeInvalidArgument, "imaqt: plane %d too short", ch)
		}
	}
	return nil
}

func (e *encoder) ReceivePacket(pkt *codec.Packet) error {
	if e.closed {
		return codec.ErrInvalidArgument
	}
	if e.hasQueued {
		e.hasQueued = false
		pkt.Data = append([]byte(nil), e.queued...)
		pkt.Duration = SamplesPerBlock
		return nil
	}
	if e.flushing {
		return codec.ErrEOF
	}
	return codec.ErrAgain
}

func (e *encoder) Reset() error {
	if e.closed {
		return codec.ErrInvalidArgument
	}
	e.flushing = false
	e.hasQueued = false
	return nil
}

func (e *encoder) Parameters() codec.Parameters {
	return e.params
}

func (e *encoder) Close() error {
	e.closed = true
	e.queued = nil
	e.status = nil
	return nil
}
