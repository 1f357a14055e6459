// ABOUTME: Native IMA-QT decoder context
// ABOUTME: One queued packet produces one planar S16 frame
package imaqt

import (
	"github.com/Sendspin/imaqt-go/pkg/codec"
)

type decoder struct {
	params     codec.Parameters
	blockAlign int
	status     []channelState

	pending    []byte
	hasPending bool
	draining   bool
	closed     bool
}

// NewDecoder opens a native decoder context
func NewDecoder(p codec.Parameters) (codec.DecoderContext, error) {
	if err := validate(p); err != nil {
		return nil, err
	}
	p.SampleFormat = codec.SampleFmtS16P

	return &decoder{
		params:     p,
		blockAlign: BlockSize * p.Channels,
		status:     make([]channelState, p.Channels),
	}, nil
}

func (d *decoder) SendPacket(pkt *codec.Packet) error {
	if d.closed {
		return codec.ErrInvalidArgument
	}
	if d.draining {
		return codec.ErrEOF
	}
	if pkt == nil || len(pkt.Data) == 0 {
		d.draining = true
		return nil
	}
	if d.hasPending {
		return codec.ErrAgain
	}
	if len(pkt.Data)%d.blockAlign != 0 {
		return codec.Errorf(codec.CodeInvalidData,
			"imaqt: packet size %d is not a multiple of %d", len(pkt.Data), d.blockAlign)
	}

	d.pending = append(d.pending[:0], pkt.Data...)
	d.hasPending = true
	return nil
}

func (d *decoder) ReceiveFrame(frame *codec.Frame) error {
	if d.closed {
		return codec.ErrInvalidArgument
	}
	if !d.hasPending {
		if d.draining {
			return codec.ErrEOF
		}
		return codec.ErrAgain
	}
	d.hasPending = false

	channels := d.params.Channels
	blocks := len(d.pending) / d.blockAlign
	frame.Alloc(blocks*SamplesPerBlock, channels, codec.SampleFmtS16P)

	planeBytes := SamplesPerBlock * 2
	for b := 0; b < blocks; b++ {
		group := d.pending[b*d.blockAlign:]
		for ch := 0; ch < channels; ch++ {
			block := group[ch*BlockSize : (ch+1)*BlockSize]
			out := frame.Data[ch][b*planeBytes:]
			if err := d.status[ch].decodeBlock(block, out); err != nil {
				frame.Unref()
				return err
			}
		}
	}
	return nil
}

func (d *decoder) Parameters() codec.Parameters {
	return d.params
}

func (d *decoder) Close() error {
	d.closed = true
	d.pending = nil
	d.status = nil
	return nil
}
