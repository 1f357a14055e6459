// Package resample converts interleaved int32 audio between sample rates.
//
// The relay uses it to bring ADPCM input at rates Opus cannot take (such as
// 44.1 kHz) to 48 kHz before encoding. Calls may be chunked freely: the
// resampler holds one input frame back so interpolation is continuous across
// chunk boundaries.
//
//	r := resample.New(44100, 48000, 2)
//	out := make([]int32, r.OutputSamplesNeeded(len(in)))
//	out = out[:r.Resample(in, out)]
package resample
