// ABOUTME: ADPCM-IMA-QT session adapter package
// ABOUTME: Converts between fixed-size ADPCM chunks and interleaved 16-bit PCM
// Package adpcm turns an ADPCM-IMA-QT codec into simple byte-buffer sessions.
//
// A Decoder accepts chunks of exactly 34 bytes per channel and returns 64
// interleaved 16-bit little-endian samples per channel. An Encoder accepts
// interleaved PCM of any whole-sample length, encodes every complete
// 64-sample frame, flushes the codec and emits one chunk per frame. Partial
// trailing frames are dropped and counted in Stats.
//
// The codec itself is looked up in a codec.Registry. The pure Go backend is
// always registered; building with -tags libav adds FFmpeg's implementation
// and makes it the default.
//
// Example:
//
//	dec, err := adpcm.OpenDecoder(adpcm.Config{SampleRate: 44100, Channels: 2})
//	if err != nil {
//	    return err
//	}
//	defer dec.Close()
//
//	pcm, err := dec.Decode(chunk) // len(chunk) == dec.ChunkSize()
//
//	enc, err := adpcm.OpenEncoder(adpcm.Config{SampleRate: 44100, Channels: 2, BitRate: 64000})
//	if err != nil {
//	    return err
//	}
//	defer enc.Close()
//
//	err = enc.Encode(pcm, func(chunk []byte) {
//	    out.Write(chunk)
//	})
//
// Failures are *Error values whose Kind matches one of the Err* variables
// with errors.Is. A failed call leaves the session usable.
package adpcm
