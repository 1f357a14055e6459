// ABOUTME: Tests for decode sessions
// ABOUTME: Covers lifecycle, chunk validation, output ownership and errors
package adpcm

import (
	"bytes"
	"errors"
	"testing"

	"github.com/Sendspin/imaqt-go/pkg/codec"
)

func TestOpenCloseCycles(t *testing.T) {
	for i := 0; i < 200; i++ {
		dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: 2})
		if err != nil {
			t.Fatalf("cycle %d: OpenDecoder() error = %v", i, err)
		}
		enc, err := OpenEncoder(Config{SampleRate: 44100, Channels: 2, BitRate: 64000})
		if err != nil {
			t.Fatalf("cycle %d: OpenEncoder() error = %v", i, err)
		}
		if err := dec.Close(); err != nil {
			t.Fatalf("cycle %d: decoder Close() error = %v", i, err)
		}
		if err := enc.Close(); err != nil {
			t.Fatalf("cycle %d: encoder Close() error = %v", i, err)
		}
		// second close is a no-op
		if err := dec.Close(); err != nil {
			t.Fatalf("cycle %d: second Close() error = %v", i, err)
		}
	}
}

func TestCloseNeverOpened(t *testing.T) {
	var nilDec *Decoder
	if err := nilDec.Close(); err != nil {
		t.Errorf("nil Decoder Close() error = %v", err)
	}
	var nilEnc *Encoder
	if err := nilEnc.Close(); err != nil {
		t.Errorf("nil Encoder Close() error = %v", err)
	}
	if err := (&Decoder{}).Close(); err != nil {
		t.Errorf("zero Decoder Close() error = %v", err)
	}
	if err := (&Encoder{}).Close(); err != nil {
		t.Errorf("zero Encoder Close() error = %v", err)
	}

	if _, err := (&Decoder{}).Decode(make([]byte, 34)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Decode() on zero Decoder = %v, want ErrSessionClosed", err)
	}
}

func TestOpenDecoderFailures(t *testing.T) {
	tests := []struct {
		name     string
		cfg      Config
		wantKind error
		wantCode int
	}{
		{
			name:     "empty registry",
			cfg:      Config{SampleRate: 44100, Channels: 2, Registry: codec.NewRegistry()},
			wantKind: ErrCodecUnavailable,
			wantCode: codec.CodeDecoderNotFound,
		},
		{
			name:     "unknown backend",
			cfg:      Config{SampleRate: 44100, Channels: 2, Backend: "no-such-backend"},
			wantKind: ErrCodecUnavailable,
			wantCode: codec.CodeDecoderNotFound,
		},
		{
			name:     "zero channels",
			cfg:      Config{SampleRate: 44100, Channels: 0},
			wantKind: ErrOpenFailed,
			wantCode: codec.CodeInvalidArgument,
		},
		{
			name:     "three channels",
			cfg:      Config{SampleRate: 44100, Channels: 3},
			wantKind: ErrOpenFailed,
			wantCode: codec.CodeInvalidArgument,
		},
		{
			name:     "zero sample rate",
			cfg:      Config{SampleRate: 0, Channels: 1},
			wantKind: ErrOpenFailed,
			wantCode: codec.CodeInvalidArgument,
		},
		{
			name: "backend rejects",
			cfg: Config{SampleRate: 44100, Channels: 1, Registry: fakeRegistry(
				func(codec.Parameters) (codec.DecoderContext, error) { return nil, codec.ErrNoMemory }, nil)},
			wantKind: ErrOpenFailed,
			wantCode: codec.CodeNoMemory,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := OpenDecoder(tt.cfg)
			if err == nil {
				dec.Close()
				t.Fatal("OpenDecoder() expected error, got nil")
			}
			if dec != nil {
				t.Errorf("OpenDecoder() returned a session alongside the error")
			}
			if !errors.Is(err, tt.wantKind) {
				t.Errorf("error = %v, want kind %v", err, tt.wantKind)
			}
			var e *Error
			if !errors.As(err, &e) {
				t.Fatalf("error %T is not *Error", err)
			}
			if e.Code != tt.wantCode {
				t.Errorf("Code = %d, want %d", e.Code, tt.wantCode)
			}
		})
	}
}

func TestChunkAndPCMSize(t *testing.T) {
	tests := []struct {
		channels  int
		chunkSize int
		pcmSize   int
	}{
		{1, 34, 128},
		{2, 68, 256},
	}

	for _, tt := range tests {
		dec, err := OpenDecoder(Config{SampleRate: 22050, Channels: tt.channels})
		if err != nil {
			t.Fatal(err)
		}
		if dec.ChunkSize() != tt.chunkSize {
			t.Errorf("channels=%d: ChunkSize() = %d, want %d", tt.channels, dec.ChunkSize(), tt.chunkSize)
		}
		if dec.PCMSize() != tt.pcmSize {
			t.Errorf("channels=%d: PCMSize() = %d, want %d", tt.channels, dec.PCMSize(), tt.pcmSize)
		}
		dec.Close()
	}
}

func TestDecodeInvalidChunkSize(t *testing.T) {
	var sends int
	dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: 2, Registry: countingRegistry(&sends)})
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	for _, size := range []int{0, 1, 34, 67, 69, 136} {
		out, err := dec.Decode(make([]byte, size))
		if !errors.Is(err, ErrInvalidChunkSize) {
			t.Errorf("Decode(%d bytes) error = %v, want ErrInvalidChunkSize", size, err)
		}
		if out != nil {
			t.Errorf("Decode(%d bytes) returned output", size)
		}
		var e *Error
		if errors.As(err, &e) && e.Code != 0 {
			t.Errorf("Decode(%d bytes) Code = %d, want 0 without a codec call", size, e.Code)
		}
	}
	if sends != 0 {
		t.Errorf("codec was invoked %d times for invalid chunks", sends)
	}

	// the session is still usable
	if _, err := dec.Decode(make([]byte, 68)); err != nil {
		t.Errorf("Decode() after invalid chunk error = %v", err)
	}
	if sends != 1 {
		t.Errorf("expected one codec call, got %d", sends)
	}
}

func TestDecodeSilence(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		chunk    int
		want     int
	}{
		{"mono", 1, 34, 128},
		{"stereo", 2, 68, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: tt.channels})
			if err != nil {
				t.Fatal(err)
			}
			defer dec.Close()

			out, err := dec.Decode(make([]byte, tt.chunk))
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if !bytes.Equal(out, make([]byte, tt.want)) {
				t.Errorf("expected %d zero bytes, got %d bytes", tt.want, len(out))
			}
		})
	}
}

func TestDecodeOutputsDoNotAlias(t *testing.T) {
	for _, channels := range []int{1, 2} {
		dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: channels})
		if err != nil {
			t.Fatal(err)
		}

		chunk := make([]byte, dec.ChunkSize())
		first, err := dec.Decode(chunk)
		if err != nil {
			t.Fatal(err)
		}
		for i := range first {
			first[i] = 0xAA
		}

		second, err := dec.Decode(chunk)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(second, make([]byte, len(second))) {
			t.Errorf("channels=%d: second output changed by writes to the first", channels)
		}
		dec.Close()
	}
}

func TestDecodeTo(t *testing.T) {
	dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: 2})
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	buf := []byte{1, 2, 3}
	buf, err = dec.DecodeTo(buf, make([]byte, 68))
	if err != nil {
		t.Fatal(err)
	}
	if len(buf) != 3+256 {
		t.Fatalf("len = %d, want %d", len(buf), 3+256)
	}
	if !bytes.Equal(buf[:3], []byte{1, 2, 3}) {
		t.Errorf("prefix overwritten: %v", buf[:3])
	}

	buf, err = dec.DecodeTo(buf, make([]byte, 10))
	if err == nil || len(buf) != 3+256 {
		t.Errorf("failed DecodeTo should leave dst unchanged, len = %d", len(buf))
	}
}

func TestDecodeRetrieveFailure(t *testing.T) {
	dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()

	chunk := make([]byte, 34)
	chunk[1] = 100 // step index out of range
	_, err = dec.Decode(chunk)
	if !errors.Is(err, ErrDecodeRetrieveFailed) {
		t.Fatalf("error = %v, want ErrDecodeRetrieveFailed", err)
	}
	if !errors.Is(err, codec.ErrInvalidData) {
		t.Errorf("error should wrap codec.ErrInvalidData: %v", err)
	}
	if Kind(err) != ErrDecodeRetrieveFailed || KindName(Kind(err)) != "decode_retrieve_failed" {
		t.Errorf("Kind() = %v", Kind(err))
	}

	if _, err := dec.Decode(make([]byte, 34)); err != nil {
		t.Errorf("session unusable after failure: %v", err)
	}
	if got := dec.Stats().Errors; got != 1 {
		t.Errorf("Stats().Errors = %d, want 1", got)
	}
}

func TestDecodeAfterClose(t *testing.T) {
	dec, err := OpenDecoder(Config{SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatal(err)
	}
	dec.Close()

	if _, err := dec.Decode(make([]byte, 34)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("Decode() after Close() = %v, want ErrSessionClosed", err)
	}
}
