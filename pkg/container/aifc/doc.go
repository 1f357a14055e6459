// ABOUTME: AIFF-C container support for QuickTime IMA4 audio
// ABOUTME: Reads and writes FORM/AIFC files carrying ima4 chunks
// Package aifc reads and writes AIFF-C files whose sound data is
// QuickTime IMA ADPCM ("ima4", "IMA 4:1").
//
// The SSND chunk holds packets of 34 bytes per channel, exactly the chunks
// produced by an adpcm.Encoder, and the COMM chunk's numSampleFrames counts
// packets rather than samples.
//
// Example:
//
//	w, err := aifc.NewWriter(file, 44100, 2)
//	err = enc.Encode(pcm, func(chunk []byte) { w.WriteChunk(chunk) })
//	err = w.Close()
//
//	r, err := aifc.NewReader(file)
//	for {
//	    chunk, err := r.ReadChunk()
//	    if err == io.EOF {
//	        break
//	    }
//	    pcm, err := dec.Decode(chunk)
//	}
package aifc
