// ABOUTME: Unit tests for PCM encoder
// ABOUTME: Tests format checks and 16/24-bit byte layout
package encode

import (
	"bytes"
	"testing"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

func TestNewPCM(t *testing.T) {
	tests := []struct {
		name        string
		format      audio.Format
		errContains string
	}{
		{"16-bit", audio.Format{Codec: audio.CodecPCM, SampleRate: 44100, Channels: 2, BitDepth: 16}, ""},
		{"24-bit", audio.Format{Codec: audio.CodecPCM, SampleRate: 44100, Channels: 1, BitDepth: 24}, ""},
		{"wrong codec", audio.Format{Codec: audio.CodecADPCM, SampleRate: 44100, Channels: 2, BitDepth: 16}, "invalid codec"},
		{"32-bit", audio.Format{Codec: audio.CodecPCM, SampleRate: 44100, Channels: 2, BitDepth: 32}, "unsupported bit depth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := NewPCM(tt.format)
			if tt.errContains != "" {
				if err == nil || !contains(err.Error(), tt.errContains) {
					t.Errorf("NewPCM() error = %v, want error containing %q", err, tt.errContains)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPCM() unexpected error = %v", err)
			}
			if err := enc.Close(); err != nil {
				t.Errorf("Close() error = %v", err)
			}
		})
	}
}

func TestPCMEncoderLayout(t *testing.T) {
	// one stereo frame at full scale, one at an arbitrary level
	samples := []int32{audio.Max24Bit, audio.Min24Bit, 0x123456, -0x567890}

	tests := []struct {
		bitDepth int
		want     []byte
	}{
		{16, []byte{0xFF, 0x7F, 0x00, 0x80, 0x34, 0x12, 0x87, 0xA9}},
		{24, []byte{0xFF, 0xFF, 0x7F, 0x00, 0x00, 0x80, 0x56, 0x34, 0x12, 0x70, 0x87, 0xA9}},
	}

	for _, tt := range tests {
		enc, err := NewPCM(audio.Format{Codec: audio.CodecPCM, SampleRate: 8000, Channels: 2, BitDepth: tt.bitDepth})
		if err != nil {
			t.Fatal(err)
		}
		got, err := enc.Encode(samples)
		if err != nil {
			t.Fatalf("%d-bit Encode() error = %v", tt.bitDepth, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("%d-bit Encode() = % x, want % x", tt.bitDepth, got, tt.want)
		}
	}
}

func TestPCMEncoderPartialFrame(t *testing.T) {
	enc, err := NewPCM(audio.Format{Codec: audio.CodecPCM, SampleRate: 8000, Channels: 2, BitDepth: 16})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := enc.Encode(make([]int32, 3)); err == nil {
		t.Error("Encode() of 3 samples into 2 channels should fail")
	}
	if out, err := enc.Encode(nil); err != nil || len(out) != 0 {
		t.Errorf("Encode(nil) = %v, %v", out, err)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > 0 && len(substr) > 0 && indexOf(s, substr) >= 0))
}

func indexOf(s, substr string) int {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
