// ABOUTME: 16-bit little-endian PCM byte helpers
// ABOUTME: Converts between planar and interleaved layouts and int32 samples
package audio

import "encoding/binary"

// Interleave merges equal-length 16-bit planes into one interleaved buffer,
// taking two bytes from each plane in turn. A single plane is copied as-is.
func Interleave(planes [][]byte) []byte {
	return InterleaveTo(nil, planes)
}

// InterleaveTo appends the interleaved planes to dst
func InterleaveTo(dst []byte, planes [][]byte) []byte {
	if len(planes) == 0 {
		return dst
	}
	if len(planes) == 1 {
		return append(dst, planes[0]...)
	}

	n := len(planes[0])
	for _, p := range planes[1:] {
		if len(p) < n {
			n = len(p)
		}
	}
	n &^= 1

	start := len(dst)
	dst = append(dst, make([]byte, n*len(planes))...)
	out := dst[start:]

	pos := 0
	for i := 0; i < n; i += 2 {
		for _, p := range planes {
			out[pos] = p[i]
			out[pos+1] = p[i+1]
			pos += 2
		}
	}
	return dst
}

// Deinterleave splits interleaved 16-bit PCM into one plane per channel.
// Trailing bytes that do not form a whole sample frame are ignored.
func Deinterleave(pcm []byte, channels int) [][]byte {
	if channels <= 0 {
		return nil
	}
	samples := len(pcm) / (2 * channels)
	planes := make([][]byte, channels)
	for ch := range planes {
		planes[ch] = make([]byte, samples*2)
	}
	DeinterleaveInto(planes, pcm)
	return planes
}

// DeinterleaveInto fills existing planes from interleaved PCM, stopping
// at whichever runs out first. Returns the number of samples per channel.
func DeinterleaveInto(planes [][]byte, pcm []byte) int {
	channels := len(planes)
	if channels == 0 {
		return 0
	}
	samples := len(pcm) / (2 * channels)
	for _, p := range planes {
		if len(p)/2 < samples {
			samples = len(p) / 2
		}
	}

	pos := 0
	for i := 0; i < samples; i++ {
		for ch := 0; ch < channels; ch++ {
			planes[ch][i*2] = pcm[pos]
			planes[ch][i*2+1] = pcm[pos+1]
			pos += 2
		}
	}
	return samples
}

// PCM16ToInt32 converts 16-bit little-endian PCM to int32 samples in the
// 24-bit range used throughout the audio packages.
func PCM16ToInt32(pcm []byte) []int32 {
	samples := make([]int32, len(pcm)/2)
	for i := range samples {
		samples[i] = SampleFromInt16(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
	}
	return samples
}

// Int32ToPCM16 converts int32 samples in the 24-bit range to 16-bit
// little-endian PCM.
func Int32ToPCM16(samples []int32) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(SampleToInt16(s)))
	}
	return pcm
}
