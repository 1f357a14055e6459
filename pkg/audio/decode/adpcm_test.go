// ABOUTME: Tests for ADPCM decoder
// ABOUTME: Tests chunk handling and round trips through the encoder
package decode

import (
	"errors"
	"testing"

	"github.com/Sendspin/imaqt-go/pkg/adpcm"
	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/audio/encode"
)

func TestNewADPCM(t *testing.T) {
	format := audio.Format{Codec: audio.CodecADPCM, SampleRate: 44100, Channels: 2, BitDepth: 16}

	decoder, err := NewADPCM(format)
	if err != nil {
		t.Fatalf("failed to create decoder: %v", err)
	}
	defer decoder.Close()

	if got := decoder.(*ADPCMDecoder).ChunkSize(); got != 68 {
		t.Errorf("expected chunk size 68, got %d", got)
	}
}

func TestNewADPCM_InvalidCodec(t *testing.T) {
	format := audio.Format{Codec: audio.CodecOpus, SampleRate: 48000, Channels: 2}

	decoder, err := NewADPCM(format)
	if err == nil {
		t.Fatal("expected error for invalid codec, got nil")
	}
	if decoder != nil {
		t.Fatal("expected decoder to be nil for invalid codec")
	}

	expectedError := "invalid codec for ADPCM decoder: opus"
	if err.Error() != expectedError {
		t.Errorf("expected error %q, got %q", expectedError, err.Error())
	}
}

func TestADPCMDecode_MultipleChunks(t *testing.T) {
	decoder, err := NewADPCM(audio.Format{Codec: audio.CodecADPCM, SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer decoder.Close()

	samples, err := decoder.Decode(make([]byte, 34*4))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}
	if len(samples) != 64*4 {
		t.Errorf("expected %d samples, got %d", 64*4, len(samples))
	}

	for _, n := range []int{1, 35, 34*2 + 33} {
		_, err := decoder.Decode(make([]byte, n))
		if !errors.Is(err, adpcm.ErrInvalidChunkSize) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrInvalidChunkSize", n, err)
		}
		if adpcm.KindName(adpcm.Kind(err)) != "invalid_chunk_size" {
			t.Errorf("Decode(%d bytes) kind = %v", n, adpcm.Kind(err))
		}
	}
}

func TestADPCMDecode_CorruptChunk(t *testing.T) {
	decoder, err := NewADPCM(audio.Format{Codec: audio.CodecADPCM, SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer decoder.Close()

	data := make([]byte, 34)
	data[1] = 0x7F // step index 127
	_, err = decoder.Decode(data)
	if !errors.Is(err, adpcm.ErrDecodeRetrieveFailed) {
		t.Errorf("expected ErrDecodeRetrieveFailed, got %v", err)
	}
}

func TestADPCMRoundTrip(t *testing.T) {
	format := audio.Format{Codec: audio.CodecADPCM, SampleRate: 44100, Channels: 2, BitDepth: 16}

	encoder, err := encode.New(format)
	if err != nil {
		t.Fatal(err)
	}
	defer encoder.Close()
	decoder, err := New(format)
	if err != nil {
		t.Fatal(err)
	}
	defer decoder.Close()

	input := make([]int32, 64*2*10)
	for i := range input {
		input[i] = int32((i/2)%128-64) << 12
	}

	data, err := encoder.Encode(input)
	if err != nil {
		t.Fatal(err)
	}
	output, err := decoder.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(output) != len(input) {
		t.Errorf("expected %d samples after round trip, got %d", len(input), len(output))
	}
}

func TestNew_UnsupportedCodec(t *testing.T) {
	if _, err := New(audio.Format{Codec: "flac", SampleRate: 44100, Channels: 2}); err == nil {
		t.Error("expected error for unsupported codec")
	}
}
