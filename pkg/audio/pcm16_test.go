// ABOUTME: Tests for 16-bit PCM layout helpers
// ABOUTME: Covers interleave/deinterleave inverses and int32 conversion
package audio

import (
	"bytes"
	"testing"
)

func TestInterleave(t *testing.T) {
	tests := []struct {
		name     string
		planes   [][]byte
		expected []byte
	}{
		{"empty", nil, nil},
		{"mono passthrough", [][]byte{{1, 2, 3, 4}}, []byte{1, 2, 3, 4}},
		{"stereo", [][]byte{{1, 2, 3, 4}, {5, 6, 7, 8}}, []byte{1, 2, 5, 6, 3, 4, 7, 8}},
		{"uneven planes", [][]byte{{1, 2, 3, 4}, {5, 6}}, []byte{1, 2, 5, 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Interleave(tt.planes)
			if !bytes.Equal(result, tt.expected) {
				t.Errorf("expected %v, got %v", tt.expected, result)
			}
		})
	}
}

func TestDeinterleave(t *testing.T) {
	pcm := []byte{1, 2, 5, 6, 3, 4, 7, 8, 9}
	planes := Deinterleave(pcm, 2)
	if len(planes) != 2 {
		t.Fatalf("expected 2 planes, got %d", len(planes))
	}
	if !bytes.Equal(planes[0], []byte{1, 2, 3, 4}) {
		t.Errorf("left plane = %v", planes[0])
	}
	if !bytes.Equal(planes[1], []byte{5, 6, 7, 8}) {
		t.Errorf("right plane = %v", planes[1])
	}

	if Deinterleave(pcm, 0) != nil {
		t.Errorf("expected nil for zero channels")
	}
}

func TestInterleaveInverse(t *testing.T) {
	for _, channels := range []int{1, 2} {
		pcm := make([]byte, 256*channels)
		for i := range pcm {
			pcm[i] = byte(i * 7)
		}
		got := Interleave(Deinterleave(pcm, channels))
		if !bytes.Equal(got, pcm) {
			t.Errorf("channels=%d: interleave(deinterleave(x)) != x", channels)
		}
	}
}

func TestPCM16Conversion(t *testing.T) {
	pcm := []byte{0x00, 0x00, 0x01, 0x00, 0xFF, 0xFF, 0xFF, 0x7F, 0x00, 0x80}
	samples := PCM16ToInt32(pcm)
	expected := []int32{0, 1 << 8, -1 << 8, 32767 << 8, -32768 << 8}
	for i := range expected {
		if samples[i] != expected[i] {
			t.Errorf("sample %d: expected %d, got %d", i, expected[i], samples[i])
		}
	}

	if back := Int32ToPCM16(samples); !bytes.Equal(back, pcm) {
		t.Errorf("round trip mismatch: %v", back)
	}
}
