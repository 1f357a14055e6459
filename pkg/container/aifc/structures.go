// ABOUTME: AIFF-C chunk identifiers and header structures
// ABOUTME: Includes 80-bit extended float conversion for sample rates
package aifc

import "math"

const (
	idFORM = 0x464F524D // "FORM"
	idAIFC = 0x41494643 // "AIFC"
	idAIFF = 0x41494646 // "AIFF"
	idFVER = 0x46564552 // "FVER"
	idCOMM = 0x434F4D4D // "COMM"
	idSSND = 0x53534E44 // "SSND"

	// CompressionIMA4 is the COMM compression type for QuickTime IMA ADPCM
	CompressionIMA4 = 0x696D6134 // "ima4"
	// CompressionNameIMA4 is the conventional compression name for ima4
	CompressionNameIMA4 = "IMA 4:1"

	aifcVersion1 = 0xA2805140

	// PacketBytes is the size of one ima4 packet per channel
	PacketBytes = 34
	// SamplesPerPacket is the number of samples per channel in one packet
	SamplesPerPacket = 64
)

// ExtendedFloat is an IEEE 754 80-bit extended precision value:
// Sign * 1.Mantissa * pow(2, Exponent - 0x3FFF)
type ExtendedFloat struct {
	Sign     bool
	Exponent uint16
	Mantissa uint64
}

// ExtendedFromF64 converts a float64 to its 80-bit form
func ExtendedFromF64(val float64) ExtendedFloat {
	if val == 0 {
		return ExtendedFloat{}
	}

	bits := math.Float64bits(val)
	sign := bits & 0x8000000000000000
	exponent := (bits ^ sign) >> 52
	mantissa := bits & 0xFFFFFFFFFFFFF

	return ExtendedFloat{
		Sign:     sign != 0,
		Exponent: uint16(exponent + 0x3FFF - 1023),
		Mantissa: 0x8000000000000000 | (mantissa << (63 - 52)),
	}
}

// F64FromExtended converts an 80-bit extended value to float64
func F64FromExtended(val ExtendedFloat) float64 {
	if val.Exponent == 0 && val.Mantissa == 0 {
		return 0
	}

	sign := 1.0
	if val.Sign {
		sign = -1
	}
	mant := float64(val.Mantissa) / math.Pow(2, 63)
	return sign * mant * math.Pow(2, float64(val.Exponent)-0x3FFF)
}

func (e ExtendedFloat) bytes() [10]byte {
	var b [10]byte
	exp := e.Exponent & 0x7FFF
	if e.Sign {
		exp |= 0x8000
	}
	b[0] = byte(exp >> 8)
	b[1] = byte(exp)
	for i := 0; i < 8; i++ {
		b[2+i] = byte(e.Mantissa >> (56 - 8*i))
	}
	return b
}

func extendedFromBytes(b []byte) ExtendedFloat {
	exp := uint16(b[0])<<8 | uint16(b[1])
	var mant uint64
	for i := 0; i < 8; i++ {
		mant = mant<<8 | uint64(b[2+i])
	}
	return ExtendedFloat{
		Sign:     exp&0x8000 != 0,
		Exponent: exp & 0x7FFF,
		Mantissa: mant,
	}
}

// CommonChunk is the decoded COMM chunk
type CommonChunk struct {
	NumChannels     int16
	NumSampleFrames uint32 // packets for ima4
	SampleSize      int16
	SampleRate      ExtendedFloat
	CompressionType uint32
	CompressionName string
}

func fourCC(id uint32) string {
	return string([]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)})
}
