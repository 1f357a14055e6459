// ABOUTME: libavcodec backend for the IMA-QT codec
// ABOUTME: Package documentation and build instructions
// Package libav binds FFmpeg's adpcm_ima_qt decoder and encoder through cgo.
//
// The backend is only compiled with the libav build tag and requires the
// libavcodec and libavutil development packages (FFmpeg 5.1 or newer):
//
//	go build -tags libav ./...
//
// When linked in it registers with a higher priority than the native Go
// implementation, so sessions opened without an explicit backend use it.
// Returned error codes are libav's AVERROR values unchanged.
package libav
