// ABOUTME: Codec context boundary package modelled on libavcodec's send/receive API
// ABOUTME: Defines codec IDs, frames, packets, contexts, errors and the backend registry
// Package codec is the boundary between session adapters and the library that
// actually performs compression.
//
// A backend registers a Codec describing how to open decoder and encoder
// contexts. Contexts follow the libavcodec model: compressed packets are
// submitted with SendPacket and raw frames retrieved with ReceiveFrame (and
// the reverse for encoding). Retrieval distinguishes three outcomes:
//   - success: a frame/packet was produced
//   - ErrAgain: no output until more input is submitted
//   - ErrEOF: the context was drained and will produce no more output
//
// Any other error is a hard failure for that call.
//
// Example:
//
//	c := codec.FindDecoder(codec.IDAdpcmImaQt, "")
//	dec, err := c.NewDecoder(codec.Parameters{SampleRate: 44100, Channels: 2})
//	err = dec.SendPacket(&codec.Packet{Data: chunk})
//	err = dec.ReceiveFrame(frame)
package codec
