// Package decode turns codec bytes back into interleaved int32 samples in
// the 24-bit range.
//
// New covers raw PCM, Opus packets and ADPCM-IMA-QT chunks. Whole files
// (MP3, FLAC, WAV, AIFF-C) are read through package source instead.
//
//	dec, err := decode.New(format)
//	samples, err := dec.Decode(chunk)
package decode
