// ABOUTME: Codec error codes compatible with libavcodec return values
// ABOUTME: Distinguishes try-again and end-of-stream from hard failures
package codec

import (
	"errors"
	"fmt"
)

// Error codes share their numeric values with libavutil's AVERROR codes so a
// cgo backend can pass return values through unchanged.
const (
	CodeUnknown         = -1
	CodeAgain           = -11         // AVERROR(EAGAIN)
	CodeNoMemory        = -12         // AVERROR(ENOMEM)
	CodeInvalidArgument = -22         // AVERROR(EINVAL)
	CodeEOF             = -541478725  // AVERROR_EOF
	CodeInvalidData     = -1094995529 // AVERROR_INVALIDDATA
	CodeDecoderNotFound = -1128613112 // AVERROR_DECODER_NOT_FOUND
	CodeEncoderNotFound = -1129203192 // AVERROR_ENCODER_NOT_FOUND
)

// Error is a codec failure carrying a numeric code
type Error struct {
	Code int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (code=%d)", e.Msg, e.Code)
}

// Is matches any codec error with the same code
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrAgain           = &Error{Code: CodeAgain, Msg: "resource temporarily unavailable"}
	ErrEOF             = &Error{Code: CodeEOF, Msg: "end of file"}
	ErrInvalidData     = &Error{Code: CodeInvalidData, Msg: "invalid data found when processing input"}
	ErrInvalidArgument = &Error{Code: CodeInvalidArgument, Msg: "invalid argument"}
	ErrNoMemory        = &Error{Code: CodeNoMemory, Msg: "cannot allocate memory"}
)

// NewError builds an error for a code, reusing the well-known messages
func NewError(code int, msg string) *Error {
	if msg == "" {
		switch code {
		case CodeAgain:
			msg = ErrAgain.Msg
		case CodeEOF:
			msg = ErrEOF.Msg
		case CodeInvalidData:
			msg = ErrInvalidData.Msg
		case CodeInvalidArgument:
			msg = ErrInvalidArgument.Msg
		case CodeNoMemory:
			msg = ErrNoMemory.Msg
		default:
			msg = "codec error"
		}
	}
	return &Error{Code: code, Msg: msg}
}

// Errorf builds an error for a code with a formatted message
func Errorf(code int, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

// Code extracts the codec code from err, or CodeUnknown
func Code(err error) int {
	if err == nil {
		return 0
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	return CodeUnknown
}

// IsAgain reports whether err is the try-again signal
func IsAgain(err error) bool {
	return errors.Is(err, ErrAgain)
}

// IsEOF reports whether err is the end-of-stream signal
func IsEOF(err error) bool {
	return errors.Is(err, ErrEOF)
}
