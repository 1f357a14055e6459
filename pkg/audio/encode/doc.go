// Package encode turns interleaved int32 samples (24-bit range) into codec
// bytes.
//
// New picks an implementation from an audio.Format: raw little-endian PCM
// at 16 or 24 bits, Opus through libopus, or ADPCM-IMA-QT through an adpcm
// encode session. Opus and ADPCM work in fixed frames and implement
// FrameEncoder; Opus wants exactly one 20 ms frame per call while ADPCM
// accepts any length and drops a short tail.
//
//	enc, err := encode.New(audio.Format{Codec: audio.CodecOpus, SampleRate: 48000, Channels: 2, BitDepth: 16})
//	pkt, err := enc.Encode(samples)
package encode
