// ABOUTME: Sample ring buffer between Write and a device callback
// ABOUTME: Writers fill what fits, the callback reads and zero-fills underruns
package output

import "sync"

type ringBuffer struct {
	mu    sync.Mutex
	buf   []int32
	read  int
	count int
}

func newRingBuffer(capacity int) *ringBuffer {
	return &ringBuffer{buf: make([]int32, capacity)}
}

// write copies as many samples as fit and returns how many it took
func (rb *ringBuffer) write(samples []int32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(samples), len(rb.buf)-rb.count)
	end := (rb.read + rb.count) % len(rb.buf)
	first := copy(rb.buf[end:], samples[:n])
	copy(rb.buf, samples[first:n])
	rb.count += n
	return n
}

// readInto fills dst, padding with silence when the buffer runs dry, and
// returns how many real samples it copied
func (rb *ringBuffer) readInto(dst []int32) int {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	n := min(len(dst), rb.count)
	first := copy(dst[:n], rb.buf[rb.read:])
	copy(dst[first:n], rb.buf)
	rb.read = (rb.read + n) % len(rb.buf)
	rb.count -= n

	clear(dst[n:])
	return n
}

func (rb *ringBuffer) available() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count
}

func (rb *ringBuffer) free() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return len(rb.buf) - rb.count
}
