// ABOUTME: Tests for session errors
// ABOUTME: Message format, kind matching and wire names
package adpcm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Sendspin/imaqt-go/pkg/codec"
)

func TestErrorMessageCode(t *testing.T) {
	cause := &codec.Error{Code: codec.CodeInvalidData, Msg: "step index 127 out of range"}
	code := fmt.Sprintf("(code=%d)", codec.CodeInvalidData)

	tests := []struct {
		name string
		err  *Error
		want string
	}{
		{"codec cause", newError(ErrDecodeRetrieveFailed, "decode", cause), "adpcm: decode: decode retrieve failed: step index 127 out of range " + code},
		{"wrapped codec cause", newError(ErrEncodeFailed, "encode", fmt.Errorf("send: %w", cause)), "adpcm: encode: encode failed: send: step index 127 out of range " + code},
		{"plain cause", &Error{Kind: ErrOpenFailed, Op: "open", Code: -5, Err: errors.New("boom")}, "adpcm: open: codec open failed: boom (code=-5)"},
		{"no cause", newError(ErrSessionClosed, "decode", nil), "adpcm: decode: session closed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
			if n := strings.Count(got, "(code="); n > 1 {
				t.Errorf("code printed %d times: %q", n, got)
			}
		})
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := newError(ErrDecodeRetrieveFailed, "decode", codec.ErrInvalidData)
	if !errors.Is(err, ErrDecodeRetrieveFailed) || !errors.Is(err, codec.ErrInvalidData) {
		t.Errorf("errors.Is failed for %v", err)
	}
	if err.Code != codec.CodeInvalidData {
		t.Errorf("Code = %d, want %d", err.Code, codec.CodeInvalidData)
	}
	if Kind(errors.New("other")) != nil {
		t.Error("Kind() of a foreign error should be nil")
	}
	if KindName(ErrInvalidChunkSize) != "invalid_chunk_size" {
		t.Errorf("KindName() = %q", KindName(ErrInvalidChunkSize))
	}
}
