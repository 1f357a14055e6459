// ABOUTME: The Decoder interface shared by every codec adapter
// ABOUTME: Output is interleaved int32 in the 24-bit range
package decode

// Decoder turns one unit of codec input (a PCM buffer, an Opus packet or an
// ADPCM chunk) into samples. The result is owned by the caller. A Decoder
// is used from one goroutine at a time.
type Decoder interface {
	Decode(data []byte) ([]int32, error)
	Close() error
}
