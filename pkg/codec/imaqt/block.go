// ABOUTME: QuickTime IMA4 block coding for a single channel
// ABOUTME: 34-byte blocks: 2-byte predictor/step header plus 64 4-bit codes
package imaqt

import (
	"encoding/binary"

	"github.com/Sendspin/imaqt-go/pkg/codec"
)

const (
	// BlockSize is the size of one channel's block in bytes
	BlockSize = 34
	// SamplesPerBlock is the number of samples one block decodes to
	SamplesPerBlock = 64

	headerSize = 2
)

// channelState is the running predictor for one channel
type channelState struct {
	predictor int32
	stepIndex int32
}

func clampInt16(v int32) int32 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return v
}

func clampIndex(v int32) int32 {
	if v < 0 {
		return 0
	}
	if v > maxStepIndex {
		return maxStepIndex
	}
	return v
}

// expand decodes one 4-bit code and advances the state
func (s *channelState) expand(code byte) int16 {
	step := stepTable[s.stepIndex]

	diff := step >> 3
	if code&4 != 0 {
		diff += step
	}
	if code&2 != 0 {
		diff += step >> 1
	}
	if code&1 != 0 {
		diff += step >> 2
	}

	if code&8 != 0 {
		s.predictor = clampInt16(s.predictor - diff)
	} else {
		s.predictor = clampInt16(s.predictor + diff)
	}
	s.stepIndex = clampIndex(s.stepIndex + indexTable[code])

	return int16(s.predictor)
}

// compress quantizes one sample to a 4-bit code and advances the state
func (s *channelState) compress(sample int16) byte {
	delta := int32(sample) - s.predictor
	step := stepTable[s.stepIndex]

	var code byte
	if delta < 0 {
		code = 8
		delta = -delta
	}

	diff := delta + step>>3
	if delta >= step {
		code |= 4
		delta -= step
	}
	step >>= 1
	if delta >= step {
		code |= 2
		delta -= step
	}
	step >>= 1
	if delta >= step {
		code |= 1
		delta -= step
	}
	diff -= delta

	if code&8 != 0 {
		s.predictor = clampInt16(s.predictor - diff)
	} else {
		s.predictor = clampInt16(s.predictor + diff)
	}
	s.stepIndex = clampIndex(s.stepIndex + indexTable[code])

	return code
}

// decodeBlock decodes one 34-byte block into 64 little-endian samples in out
func (s *channelState) decodeBlock(block []byte, out []byte) error {
	header := int32(int16(binary.BigEndian.Uint16(block)))
	stepIndex := header & 0x7F
	predictor := header &^ 0x7F

	// Keep the running predictor when the header only carries the truncated
	// form of it, otherwise resynchronise.
	if s.stepIndex == stepIndex {
		diff := predictor - s.predictor
		if diff < 0 {
			diff = -diff
		}
		if diff > 0x7F {
			s.predictor = predictor
		}
	} else {
		s.stepIndex = stepIndex
		s.predictor = predictor
	}

	if s.stepIndex > maxStepIndex {
		return codec.Errorf(codec.CodeInvalidData, "imaqt: step index %d out of range", s.stepIndex)
	}

	for i, b := range block[headerSize:BlockSize] {
		lo := s.expand(b & 0x0F)
		hi := s.expand(b >> 4)
		binary.LittleEndian.PutUint16(out[i*4:], uint16(lo))
		binary.LittleEndian.PutUint16(out[i*4+2:], uint16(hi))
	}
	return nil
}

// encodeBlock encodes 64 little-endian samples from in into a 34-byte block
func (s *channelState) encodeBlock(in []byte, block []byte) {
	header := uint16(s.predictor)&0xFF80 | uint16(s.stepIndex)
	binary.BigEndian.PutUint16(block, header)

	for i := 0; i < SamplesPerBlock/2; i++ {
		t1 := s.compress(int16(binary.LittleEndian.Uint16(in[i*4:])))
		t2 := s.compress(int16(binary.LittleEndian.Uint16(in[i*4+2:])))
		block[headerSize+i] = t2<<4 | t1
	}
}
