// ABOUTME: Tests for the codec registry and error codes
// ABOUTME: Covers priority ordering, backend selection and errors.Is matching
package codec

import (
	"errors"
	"fmt"
	"testing"
)

func dummyDecoder(p Parameters) (DecoderContext, error) { return nil, nil }
func dummyEncoder(p Parameters) (EncoderContext, error) { return nil, nil }

func TestRegistryPriority(t *testing.T) {
	r := NewRegistry()
	r.Register(&Codec{ID: IDAdpcmImaQt, Name: "a", Backend: "low", Priority: 0, NewDecoder: dummyDecoder})
	r.Register(&Codec{ID: IDAdpcmImaQt, Name: "b", Backend: "high", Priority: 10, NewDecoder: dummyDecoder})

	c := r.FindDecoder(IDAdpcmImaQt, "")
	if c == nil || c.Backend != "high" {
		t.Fatalf("expected high priority backend, got %v", c)
	}

	c = r.FindDecoder(IDAdpcmImaQt, "low")
	if c == nil || c.Backend != "low" {
		t.Fatalf("expected named backend, got %v", c)
	}

	if got := r.Backends(IDAdpcmImaQt); len(got) != 2 || got[0] != "high" {
		t.Errorf("unexpected backend order: %v", got)
	}
}

func TestRegistryMissing(t *testing.T) {
	r := NewRegistry()
	r.Register(&Codec{ID: IDAdpcmImaQt, Backend: "dec-only", NewDecoder: dummyDecoder})

	if c := r.FindEncoder(IDAdpcmImaQt, ""); c != nil {
		t.Errorf("expected no encoder, got %v", c)
	}
	if c := r.FindDecoder(IDPcmS16LE, ""); c != nil {
		t.Errorf("expected no decoder for unregistered id, got %v", c)
	}
	if c := r.FindDecoder(IDAdpcmImaQt, "libav"); c != nil {
		t.Errorf("expected no decoder for unknown backend, got %v", c)
	}

	var nilRegistry *Registry
	if c := nilRegistry.FindDecoder(IDAdpcmImaQt, ""); c != nil {
		t.Errorf("nil registry should find nothing")
	}
	if got := nilRegistry.Backends(IDAdpcmImaQt); got != nil {
		t.Errorf("nil registry Backends() = %v, want nil", got)
	}
}

func TestRegistryZeroValue(t *testing.T) {
	var r Registry
	if got := r.Backends(IDAdpcmImaQt); len(got) != 0 {
		t.Errorf("empty registry Backends() = %v", got)
	}

	r.Register(&Codec{ID: IDAdpcmImaQt, Name: "zero", Backend: "native", NewDecoder: dummyDecoder})
	if c := r.FindDecoder(IDAdpcmImaQt, "native"); c == nil || c.Name != "zero" {
		t.Errorf("FindDecoder() after Register on zero Registry = %v", c)
	}
	if got := r.Backends(IDAdpcmImaQt); len(got) != 1 || got[0] != "native" {
		t.Errorf("Backends() = %v, want [native]", got)
	}
}

func TestRegistryReplace(t *testing.T) {
	r := NewRegistry()
	r.Register(&Codec{ID: IDAdpcmImaQt, Name: "first", Backend: "native", NewEncoder: dummyEncoder})
	r.Register(&Codec{ID: IDAdpcmImaQt, Name: "second", Backend: "native", NewEncoder: dummyEncoder})

	if got := r.Backends(IDAdpcmImaQt); len(got) != 1 {
		t.Fatalf("expected one backend after replace, got %v", got)
	}
	if c := r.FindEncoder(IDAdpcmImaQt, ""); c.Name != "second" {
		t.Errorf("expected replacement codec, got %s", c.Name)
	}
}

func TestErrorCodes(t *testing.T) {
	wrapped := fmt.Errorf("receive: %w", NewError(CodeAgain, ""))
	if !IsAgain(wrapped) {
		t.Error("expected wrapped EAGAIN to match ErrAgain")
	}
	if IsEOF(wrapped) {
		t.Error("EAGAIN must not match ErrEOF")
	}
	if Code(wrapped) != CodeAgain {
		t.Errorf("expected code %d, got %d", CodeAgain, Code(wrapped))
	}
	if Code(errors.New("plain")) != CodeUnknown {
		t.Error("plain errors should report CodeUnknown")
	}
	if Code(nil) != 0 {
		t.Error("nil error should report code 0")
	}
	if !errors.Is(Errorf(CodeInvalidData, "bad step index %d", 99), ErrInvalidData) {
		t.Error("expected code match for formatted error")
	}
}

func TestFrameAlloc(t *testing.T) {
	f := AllocFrame(64, 2, SampleFmtS16P)
	if len(f.Data) != 2 {
		t.Fatalf("expected 2 planes, got %d", len(f.Data))
	}
	if f.Linesize() != 128 {
		t.Errorf("expected linesize 128, got %d", f.Linesize())
	}

	f.Data[0][0] = 0xFF
	f.Alloc(64, 2, SampleFmtS16P)
	if f.Data[0][0] != 0 {
		t.Error("realloc should clear reused buffers")
	}

	f.Alloc(10, 2, SampleFmtS16)
	if len(f.Data) != 1 || len(f.Data[0]) != 40 {
		t.Errorf("interleaved frame should have one 40-byte plane, got %d planes", len(f.Data))
	}
}
