// ABOUTME: Streaming AIFF-C ima4 reader
// ABOUTME: Locates COMM and SSND chunks and yields one packet group at a time
package aifc

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// ErrNotIMA4 is returned for AIFF or AIFF-C files that are not ima4 coded
var ErrNotIMA4 = errors.New("aifc: compression type is not ima4")

// Reader reads ima4 packets from an AIFF-C stream
type Reader struct {
	r      io.ReadSeeker
	common CommonChunk

	dataStart int64
	dataSize  int64
	read      int64
}

// NewReader parses the file header and positions the reader at the first packet
func NewReader(r io.ReadSeeker) (*Reader, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("aifc: read FORM header: %w", err)
	}
	if binary.BigEndian.Uint32(hdr[0:]) != idFORM {
		return nil, errors.New("aifc: file didn't have FORM header")
	}
	switch binary.BigEndian.Uint32(hdr[8:]) {
	case idAIFC:
	case idAIFF:
		return nil, ErrNotIMA4
	default:
		return nil, errors.New("aifc: file didn't have AIFC type")
	}

	rd := &Reader{r: r}
	var haveCommon, haveData bool

	for !haveCommon || !haveData {
		var ch [8]byte
		if _, err := io.ReadFull(r, ch[:]); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, fmt.Errorf("aifc: missing COMM or SSND chunk")
			}
			return nil, fmt.Errorf("aifc: read chunk header: %w", err)
		}
		id := binary.BigEndian.Uint32(ch[0:])
		size := int64(binary.BigEndian.Uint32(ch[4:]))

		start, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fmt.Errorf("aifc: seek: %w", err)
		}

		switch id {
		case idCOMM:
			if err := rd.parseCommon(size); err != nil {
				return nil, err
			}
			haveCommon = true
		case idSSND:
			var ssnd [8]byte
			if _, err := io.ReadFull(r, ssnd[:]); err != nil {
				return nil, fmt.Errorf("aifc: read SSND header: %w", err)
			}
			offset := int64(binary.BigEndian.Uint32(ssnd[0:]))
			rd.dataStart = start + 8 + offset
			rd.dataSize = size - 8 - offset
			if rd.dataSize < 0 {
				return nil, fmt.Errorf("aifc: SSND offset %d exceeds chunk size %d", offset, size)
			}
			haveData = true
		}

		// chunks are padded to even sizes
		next := start + size + size&1
		if _, err := r.Seek(next, io.SeekStart); err != nil {
			return nil, fmt.Errorf("aifc: skip %s chunk: %w", fourCC(id), err)
		}
	}

	if _, err := r.Seek(rd.dataStart, io.SeekStart); err != nil {
		return nil, fmt.Errorf("aifc: seek to sound data: %w", err)
	}
	return rd, nil
}

func (rd *Reader) parseCommon(size int64) error {
	if size < 22 {
		return fmt.Errorf("aifc: COMM chunk too small (%d bytes)", size)
	}
	buf := make([]byte, size)
	if _, err := io.ReadFull(rd.r, buf); err != nil {
		return fmt.Errorf("aifc: read COMM chunk: %w", err)
	}

	c := &rd.common
	c.NumChannels = int16(binary.BigEndian.Uint16(buf[0:]))
	c.NumSampleFrames = binary.BigEndian.Uint32(buf[2:])
	c.SampleSize = int16(binary.BigEndian.Uint16(buf[6:]))
	c.SampleRate = extendedFromBytes(buf[8:18])
	c.CompressionType = binary.BigEndian.Uint32(buf[18:])
	if len(buf) > 22 {
		n := int(buf[22])
		if 23+n <= len(buf) {
			c.CompressionName = string(buf[23 : 23+n])
		}
	}

	if c.CompressionType != CompressionIMA4 {
		return fmt.Errorf("%w (got %q)", ErrNotIMA4, fourCC(c.CompressionType))
	}
	if c.NumChannels < 1 {
		return fmt.Errorf("aifc: invalid channel count %d", c.NumChannels)
	}
	return nil
}

// Common returns the parsed COMM chunk
func (rd *Reader) Common() CommonChunk {
	return rd.common
}

// Channels returns the number of interleaved channels
func (rd *Reader) Channels() int {
	return int(rd.common.NumChannels)
}

// SampleRate returns the sample rate rounded to the nearest integer
func (rd *Reader) SampleRate() int {
	return int(F64FromExtended(rd.common.SampleRate) + 0.5)
}

// ChunkSize returns the size of one packet group (all channels)
func (rd *Reader) ChunkSize() int {
	return PacketBytes * rd.Channels()
}

// Packets returns the number of packet groups declared in COMM
func (rd *Reader) Packets() int {
	return int(rd.common.NumSampleFrames)
}

// Samples returns the number of samples per channel in the file
func (rd *Reader) Samples() int {
	return rd.Packets() * SamplesPerPacket
}

// ReadChunk reads the next packet group. It returns io.EOF after the last
// one and io.ErrUnexpectedEOF if the sound data ends mid-packet.
func (rd *Reader) ReadChunk() ([]byte, error) {
	size := int64(rd.ChunkSize())
	remaining := rd.dataSize - rd.read
	if remaining <= 0 {
		return nil, io.EOF
	}
	if remaining < size {
		rd.read = rd.dataSize
		return nil, io.ErrUnexpectedEOF
	}

	chunk := make([]byte, size)
	if _, err := io.ReadFull(rd.r, chunk); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	rd.read += size
	return chunk, nil
}
