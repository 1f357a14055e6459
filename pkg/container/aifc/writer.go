// ABOUTME: Streaming AIFF-C ima4 writer
// ABOUTME: Writes the header up front and patches sizes on Close when possible
package aifc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	commSize   = 30 // 18 base bytes + compression type + "IMA 4:1" pstring
	headerSize = 12 + 12 + 8 + commSize + 16

	offFormSize   = 4
	offFrameCount = 12 + 12 + 8 + 2
	offSSNDSize   = 12 + 12 + 8 + commSize + 4
)

// Writer writes ima4 packets to an AIFF-C stream
type Writer struct {
	w        io.Writer
	ws       io.WriteSeeker // nil when w cannot seek
	start    int64
	channels int

	declared int // packets promised in the header, -1 when patched on Close
	packets  int
	closed   bool
}

// NewWriter writes an AIFF-C header to w. The packet count is patched on
// Close, so w must implement io.WriteSeeker.
func NewWriter(w io.Writer, sampleRate, channels int) (*Writer, error) {
	ws, ok := w.(io.WriteSeeker)
	if !ok {
		return nil, errors.New("aifc: writer must be seekable, use NewWriterSize for streams")
	}
	start, err := ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("aifc: seek: %w", err)
	}

	wr := &Writer{w: w, ws: ws, start: start, channels: channels, declared: -1}
	if err := wr.writeHeader(sampleRate, 0); err != nil {
		return nil, err
	}
	return wr, nil
}

// NewWriterSize writes an AIFF-C header declaring exactly packets packet
// groups, for sinks that cannot seek. Close fails if a different number
// was written.
func NewWriterSize(w io.Writer, sampleRate, channels, packets int) (*Writer, error) {
	wr := &Writer{w: w, channels: channels, declared: packets}
	if err := wr.writeHeader(sampleRate, packets); err != nil {
		return nil, err
	}
	return wr, nil
}

func (wr *Writer) writeHeader(sampleRate, packets int) error {
	if wr.channels < 1 || wr.channels > 0x7FFF {
		return fmt.Errorf("aifc: invalid channel count %d", wr.channels)
	}
	if sampleRate <= 0 {
		return fmt.Errorf("aifc: invalid sample rate %d", sampleRate)
	}

	dataSize := uint32(packets * PacketBytes * wr.channels)
	hdr := make([]byte, headerSize)
	be := binary.BigEndian

	be.PutUint32(hdr[0:], idFORM)
	be.PutUint32(hdr[4:], headerSize-8+dataSize)
	be.PutUint32(hdr[8:], idAIFC)

	be.PutUint32(hdr[12:], idFVER)
	be.PutUint32(hdr[16:], 4)
	be.PutUint32(hdr[20:], aifcVersion1)

	comm := hdr[24:]
	be.PutUint32(comm[0:], idCOMM)
	be.PutUint32(comm[4:], commSize)
	be.PutUint16(comm[8:], uint16(wr.channels))
	be.PutUint32(comm[10:], uint32(packets))
	be.PutUint16(comm[14:], 16)
	rate := ExtendedFromF64(float64(sampleRate)).bytes()
	copy(comm[16:26], rate[:])
	be.PutUint32(comm[26:], CompressionIMA4)
	comm[30] = byte(len(CompressionNameIMA4))
	copy(comm[31:], CompressionNameIMA4)

	ssnd := hdr[24+8+commSize:]
	be.PutUint32(ssnd[0:], idSSND)
	be.PutUint32(ssnd[4:], 8+dataSize)
	// offset and block size stay zero

	if _, err := wr.w.Write(hdr); err != nil {
		return fmt.Errorf("aifc: write header: %w", err)
	}
	return nil
}

// ChunkSize returns the size WriteChunk expects
func (wr *Writer) ChunkSize() int {
	return PacketBytes * wr.channels
}

// Packets returns the number of packet groups written so far
func (wr *Writer) Packets() int {
	return wr.packets
}

// WriteChunk appends one packet group of 34 bytes per channel
func (wr *Writer) WriteChunk(chunk []byte) error {
	if wr.closed {
		return errors.New("aifc: write to closed writer")
	}
	if len(chunk) != wr.ChunkSize() {
		return fmt.Errorf("aifc: chunk is %d bytes, want %d", len(chunk), wr.ChunkSize())
	}
	if _, err := wr.w.Write(chunk); err != nil {
		return fmt.Errorf("aifc: write packet: %w", err)
	}
	wr.packets++
	return nil
}

// Close finalises the header. It does not close the underlying writer.
func (wr *Writer) Close() error {
	if wr.closed {
		return nil
	}
	wr.closed = true

	if wr.ws == nil {
		if wr.packets != wr.declared {
			return fmt.Errorf("aifc: declared %d packets but wrote %d", wr.declared, wr.packets)
		}
		return nil
	}

	dataSize := uint32(wr.packets * wr.ChunkSize())
	patches := []struct {
		off int64
		val uint32
	}{
		{offFormSize, headerSize - 8 + dataSize},
		{offFrameCount, uint32(wr.packets)},
		{offSSNDSize, 8 + dataSize},
	}

	end, err := wr.ws.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("aifc: seek: %w", err)
	}
	var b [4]byte
	for _, p := range patches {
		if _, err := wr.ws.Seek(wr.start+p.off, io.SeekStart); err != nil {
			return fmt.Errorf("aifc: seek to header: %w", err)
		}
		binary.BigEndian.PutUint32(b[:], p.val)
		if _, err := wr.ws.Write(b[:]); err != nil {
			return fmt.Errorf("aifc: patch header: %w", err)
		}
	}
	if _, err := wr.ws.Seek(end, io.SeekStart); err != nil {
		return fmt.Errorf("aifc: seek to end: %w", err)
	}
	return nil
}
