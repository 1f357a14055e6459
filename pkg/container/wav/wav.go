// ABOUTME: WAV PCM reader and writer
// ABOUTME: Streams 16/24-bit RIFF WAVE data with sizes patched on Close
// Package wav reads and writes uncompressed PCM WAVE files.
package wav

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	formatPCM = 1

	idRIFF = 0x52494646 // "RIFF"
	idWAVE = 0x57415645 // "WAVE"
	idFmt  = 0x666d7420 // "fmt "
	idData = 0x64617461 // "data"

	headerSize = 44
)

// Header is the decoded fmt chunk
type Header struct {
	Format        uint16
	NChannels     uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
}

// Reader reads PCM frames from a WAVE stream
type Reader struct {
	r        io.Reader
	header   Header
	dataSize int64
	read     int64
}

// NewReader parses the RIFF header and stops at the start of the data chunk
func NewReader(r io.Reader) (*Reader, error) {
	var riff [12]byte
	if _, err := io.ReadFull(r, riff[:]); err != nil {
		return nil, fmt.Errorf("wav: read header: %w", err)
	}
	if binary.BigEndian.Uint32(riff[0:]) != idRIFF {
		return nil, errors.New("wav: invalid wav header")
	}
	if binary.BigEndian.Uint32(riff[8:]) != idWAVE {
		return nil, errors.New("wav: invalid wave format")
	}

	rd := &Reader{r: r}
	hasHeader := false
	for {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			return nil, fmt.Errorf("wav: read chunk header: %w", err)
		}
		id := binary.BigEndian.Uint32(ch[0:])
		size := int64(binary.LittleEndian.Uint32(ch[4:]))

		switch id {
		case idFmt:
			buf := make([]byte, size+size&1)
			if _, err := io.ReadFull(r, buf); err != nil {
				return nil, fmt.Errorf("wav: read fmt chunk: %w", err)
			}
			if size < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too small (%d bytes)", size)
			}
			le := binary.LittleEndian
			rd.header = Header{
				Format:        le.Uint16(buf[0:]),
				NChannels:     le.Uint16(buf[2:]),
				SampleRate:    le.Uint32(buf[4:]),
				ByteRate:      le.Uint32(buf[8:]),
				BlockAlign:    le.Uint16(buf[12:]),
				BitsPerSample: le.Uint16(buf[14:]),
			}
			hasHeader = true
		case idData:
			if !hasHeader {
				return nil, errors.New("wav: data chunk before fmt chunk")
			}
			if err := rd.validate(); err != nil {
				return nil, err
			}
			rd.dataSize = size
			return rd, nil
		default:
			if _, err := io.CopyN(io.Discard, r, size+size&1); err != nil {
				return nil, fmt.Errorf("wav: skip chunk: %w", err)
			}
		}
	}
}

func (rd *Reader) validate() error {
	h := rd.header
	if h.Format != formatPCM {
		return fmt.Errorf("wav: unsupported format %d (only PCM)", h.Format)
	}
	if h.BitsPerSample != 16 && h.BitsPerSample != 24 {
		return fmt.Errorf("wav: unsupported bit depth %d (supported: 16, 24)", h.BitsPerSample)
	}
	if h.NChannels == 0 || h.SampleRate == 0 {
		return fmt.Errorf("wav: invalid format %d ch / %d Hz", h.NChannels, h.SampleRate)
	}
	return nil
}

// Header returns the parsed fmt chunk
func (rd *Reader) Header() Header {
	return rd.header
}

// Channels returns the number of interleaved channels
func (rd *Reader) Channels() int {
	return int(rd.header.NChannels)
}

// SampleRate returns the sample rate in Hz
func (rd *Reader) SampleRate() int {
	return int(rd.header.SampleRate)
}

// BitDepth returns the bits per sample
func (rd *Reader) BitDepth() int {
	return int(rd.header.BitsPerSample)
}

// Read reads raw little-endian PCM bytes from the data chunk. Short final
// frames are returned as-is.
func (rd *Reader) Read(p []byte) (int, error) {
	remaining := rd.dataSize - rd.read
	if remaining <= 0 {
		return 0, io.EOF
	}
	if int64(len(p)) > remaining {
		p = p[:remaining]
	}
	n, err := rd.r.Read(p)
	rd.read += int64(n)
	if err == io.EOF && rd.read < rd.dataSize {
		err = io.ErrUnexpectedEOF
	}
	return n, err
}

// Writer writes 16-bit PCM to a WAVE stream
type Writer struct {
	ws       io.WriteSeeker
	start    int64
	dataSize int64
	closed   bool
}

// NewWriter writes a 16-bit PCM WAVE header to ws. Sizes are patched on Close.
func NewWriter(ws io.WriteSeeker, sampleRate, channels int) (*Writer, error) {
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("wav: invalid format %d ch / %d Hz", channels, sampleRate)
	}
	start, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("wav: seek: %w", err)
	}

	blockAlign := channels * 2
	hdr := make([]byte, headerSize)
	be, le := binary.BigEndian, binary.LittleEndian
	be.PutUint32(hdr[0:], idRIFF)
	le.PutUint32(hdr[4:], headerSize-8)
	be.PutUint32(hdr[8:], idWAVE)
	be.PutUint32(hdr[12:], idFmt)
	le.PutUint32(hdr[16:], 16)
	le.PutUint16(hdr[20:], formatPCM)
	le.PutUint16(hdr[22:], uint16(channels))
	le.PutUint32(hdr[24:], uint32(sampleRate))
	le.PutUint32(hdr[28:], uint32(sampleRate*blockAlign))
	le.PutUint16(hdr[32:], uint16(blockAlign))
	le.PutUint16(hdr[34:], 16)
	be.PutUint32(hdr[36:], idData)
	le.PutUint32(hdr[40:], 0)

	if _, err := ws.Write(hdr); err != nil {
		return nil, fmt.Errorf("wav: write header: %w", err)
	}
	return &Writer{ws: ws, start: start}, nil
}

// Write appends interleaved 16-bit little-endian PCM
func (w *Writer) Write(p []byte) (int, error) {
	if w.closed {
		return 0, errors.New("wav: write to closed writer")
	}
	n, err := w.ws.Write(p)
	w.dataSize += int64(n)
	return n, err
}

// Close patches the RIFF and data sizes. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	end, err := w.ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("wav: seek: %w", err)
	}
	if w.dataSize&1 == 1 {
		if _, err := w.ws.Write([]byte{0}); err != nil {
			return fmt.Errorf("wav: write pad byte: %w", err)
		}
		end++
	}

	var b [4]byte
	patch := func(off int64, val uint32) error {
		if _, err := w.ws.Seek(w.start+off, io.SeekStart); err != nil {
			return err
		}
		binary.LittleEndian.PutUint32(b[:], val)
		_, err := w.ws.Write(b[:])
		return err
	}
	if err := patch(4, uint32(headerSize-8+w.dataSize+w.dataSize&1)); err != nil {
		return fmt.Errorf("wav: patch riff size: %w", err)
	}
	if err := patch(40, uint32(w.dataSize)); err != nil {
		return fmt.Errorf("wav: patch data size: %w", err)
	}
	if _, err := w.ws.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("wav: seek to end: %w", err)
	}
	return nil
}
