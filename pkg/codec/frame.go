// ABOUTME: Raw audio frames and compressed packets
// ABOUTME: Frames carry one plane per channel for planar formats
package codec

// Frame holds raw audio. For planar formats Data has one plane per channel,
// for interleaved formats a single plane.
type Frame struct {
	NbSamples int // samples per channel
	Channels  int
	Format    SampleFormat
	Data      [][]byte
}

// AllocFrame allocates a frame with zeroed buffers
func AllocFrame(nbSamples, channels int, format SampleFormat) *Frame {
	f := &Frame{}
	f.Alloc(nbSamples, channels, format)
	return f
}

// Alloc (re)allocates the frame buffers, reusing capacity where possible
func (f *Frame) Alloc(nbSamples, channels int, format SampleFormat) {
	f.NbSamples = nbSamples
	f.Channels = channels
	f.Format = format

	planes := 1
	size := nbSamples * channels * format.BytesPerSample()
	if format.IsPlanar() {
		planes = channels
		size = nbSamples * format.BytesPerSample()
	}

	if cap(f.Data) < planes {
		f.Data = make([][]byte, planes)
	}
	f.Data = f.Data[:planes]
	for i := range f.Data {
		if cap(f.Data[i]) < size {
			f.Data[i] = make([]byte, size)
		} else {
			f.Data[i] = f.Data[i][:size]
			clear(f.Data[i])
		}
	}
}

// Linesize returns the size in bytes of the first plane
func (f *Frame) Linesize() int {
	if len(f.Data) == 0 {
		return 0
	}
	return len(f.Data[0])
}

// Unref drops the frame's buffers
func (f *Frame) Unref() {
	f.NbSamples = 0
	f.Data = nil
}

// Packet holds one unit of compressed data
type Packet struct {
	Data     []byte
	Duration int // samples per channel represented by Data
}

// Unref drops the packet's payload
func (p *Packet) Unref() {
	p.Data = nil
	p.Duration = 0
}
