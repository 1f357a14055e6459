// ABOUTME: Submit-and-drain loop between the encode session and the codec
// ABOUTME: Explicit states replace the send/receive return-code juggling
package adpcm

import (
	"github.com/Sendspin/imaqt-go/pkg/codec"
)

type drainState int

const (
	stateNeedSubmit drainState = iota
	stateDraining
	stateDone
	stateFailed
)

func (s drainState) String() string {
	switch s {
	case stateNeedSubmit:
		return "need-submit"
	case stateDraining:
		return "draining"
	case stateDone:
		return "done"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// submit sends one frame (nil flushes) and emits every packet the codec
// produces until it asks for more input or reports end of stream.
// A codec that refuses the frame because output is pending is drained
// and offered the frame once more.
func (e *Encoder) submit(frame *codec.Frame, emit func([]byte)) error {
	op := "encode"
	if frame == nil {
		op = "flush"
	}

	var (
		failure  error
		retried  bool
		resubmit bool
	)

	state := stateNeedSubmit
	for state != stateDone && state != stateFailed {
		switch state {
		case stateNeedSubmit:
			err := e.ctx.SendFrame(frame)
			switch {
			case err == nil:
				if frame != nil {
					e.stats.Frames++
				}
				state = stateDraining
			case codec.IsAgain(err) && !retried:
				retried = true
				resubmit = true
				state = stateDraining
			case codec.IsEOF(err) && frame == nil:
				// already flushed, collect anything left
				state = stateDraining
			default:
				failure = newError(ErrEncodeFailed, op, err)
				state = stateFailed
			}

		case stateDraining:
			err := e.ctx.ReceivePacket(&e.pkt)
			switch {
			case err == nil:
				e.emit(emit)
			case codec.IsAgain(err) || codec.IsEOF(err):
				if resubmit {
					resubmit = false
					state = stateNeedSubmit
				} else {
					state = stateDone
				}
			default:
				failure = newError(ErrEncodeFailed, op, err)
				state = stateFailed
			}
		}
	}

	if failure != nil {
		e.stats.Errors++
	}
	return failure
}

func (e *Encoder) emit(emit func([]byte)) {
	chunk := e.pkt.Data
	e.pkt.Data = nil
	e.pkt.Duration = 0

	e.stats.Packets++
	e.stats.BytesOut += uint64(len(chunk))
	if emit != nil {
		emit(chunk)
	}
}
