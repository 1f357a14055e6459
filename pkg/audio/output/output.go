// ABOUTME: Audio output interface definition
// ABOUTME: Common interface for audio playback backends and a factory to pick one
package output

import (
	"fmt"
	"sync"
)

// Output represents an audio output device
type Output interface {
	// Open initializes the output device
	Open(sampleRate, channels, bitDepth int) error

	// Write outputs audio samples (blocks until queued)
	Write(samples []int32) error

	// Close drains queued audio and releases output resources
	Close() error
}

// Backends lists the names New accepts
var Backends = []string{"oto", "malgo", "null"}

// New returns the named output backend. An empty name selects oto.
func New(name string) (Output, error) {
	switch name {
	case "", "oto":
		return NewOto(), nil
	case "malgo":
		return NewMalgo(), nil
	case "null":
		return NewNull(), nil
	default:
		return nil, fmt.Errorf("unknown output backend %q (available: %v)", name, Backends)
	}
}

// Null discards audio and counts what it was given
type Null struct {
	mu      sync.Mutex
	samples uint64
	opened  bool
}

// NewNull creates an output that plays nothing
func NewNull() *Null {
	return &Null{}
}

func (n *Null) Open(sampleRate, channels, bitDepth int) error {
	if sampleRate <= 0 || channels <= 0 {
		return fmt.Errorf("invalid output format: %dHz %dch", sampleRate, channels)
	}
	n.mu.Lock()
	n.opened = true
	n.mu.Unlock()
	return nil
}

func (n *Null) Write(samples []int32) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if !n.opened {
		return fmt.Errorf("output not initialized")
	}
	n.samples += uint64(len(samples))
	return nil
}

func (n *Null) Close() error {
	n.mu.Lock()
	n.opened = false
	n.mu.Unlock()
	return nil
}

// Samples returns how many samples were written
func (n *Null) Samples() uint64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.samples
}
