// ABOUTME: Malgo-based audio output with 16, 24 and 32-bit device formats
// ABOUTME: A ring buffer decouples Write from the miniaudio data callback
package output

import (
	"context"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// Malgo plays through miniaudio at 16, 24 or 32 bits. Write feeds a ring
// buffer that the device callback drains.
type Malgo struct {
	volume

	ctx        context.Context
	cancel     context.CancelFunc
	malgoCtx   *malgo.AllocatedContext
	device     *malgo.Device
	sampleRate int
	channels   int
	bitDepth   int
	ring       *ringBuffer
	scratch    []int32
	mu         sync.Mutex
}

// ringDuration is how much audio Write may queue ahead of the device
const ringDuration = 500 * time.Millisecond

var malgoFormats = map[int]malgo.FormatType{
	16: malgo.FormatS16,
	24: malgo.FormatS24,
	32: malgo.FormatS32,
}

// NewMalgo creates a new Malgo output
func NewMalgo() *Malgo {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Malgo{ctx: ctx, cancel: cancel}
	m.reset()
	return m
}

// Open initializes the output device with specified format
func (m *Malgo) Open(sampleRate, channels, bitDepth int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If already initialized with same format, reuse
	if m.device != nil && m.sampleRate == sampleRate && m.channels == channels && m.bitDepth == bitDepth {
		return nil
	}

	// If format changed, reinitialize
	if m.device != nil {
		log.Debug().
			Str("from", fmt.Sprintf("%dHz/%dch/%dbit", m.sampleRate, m.channels, m.bitDepth)).
			Str("to", fmt.Sprintf("%dHz/%dch/%dbit", sampleRate, channels, bitDepth)).
			Msg("format change, reinitializing device")
		if err := m.closeDevice(); err != nil {
			return fmt.Errorf("failed to close old device: %w", err)
		}
	}

	// Create malgo context if needed
	if m.malgoCtx == nil {
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
		if err != nil {
			return fmt.Errorf("failed to initialize malgo context: %w", err)
		}
		m.malgoCtx = ctx
	}

	format, ok := malgoFormats[bitDepth]
	if !ok {
		return fmt.Errorf("unsupported bit depth: %d (supported: 16, 24, 32)", bitDepth)
	}

	m.ring = newRingBuffer(int(int64(sampleRate*channels) * int64(ringDuration) / int64(time.Second)))

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = format
	deviceConfig.Playback.Channels = uint32(channels)
	deviceConfig.SampleRate = uint32(sampleRate)
	deviceConfig.Alsa.NoMMap = 1

	device, err := malgo.InitDevice(m.malgoCtx.Context, deviceConfig, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, frameCount uint32) {
			m.fill(out, frameCount)
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		return fmt.Errorf("failed to start device: %w", err)
	}

	m.device = device
	m.sampleRate = sampleRate
	m.channels = channels
	m.bitDepth = bitDepth

	log.Info().
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Int("bit_depth", bitDepth).
		Int("buffer_samples", len(m.ring.buf)).
		Msg("malgo output initialized")

	return nil
}

// Write queues samples, waiting while the ring buffer is full
func (m *Malgo) Write(samples []int32) error {
	m.mu.Lock()
	ring := m.ring
	ready := m.device != nil
	m.mu.Unlock()
	if !ready {
		return fmt.Errorf("output not initialized")
	}

	pending := m.apply(samples)
	for len(pending) > 0 {
		n := ring.write(pending)
		pending = pending[n:]
		if n > 0 {
			continue
		}
		select {
		case <-m.ctx.Done():
			return fmt.Errorf("output closed")
		case <-time.After(5 * time.Millisecond):
		}
	}
	return nil
}

// fill runs on the device thread and converts queued samples to the
// device format
func (m *Malgo) fill(out []byte, frameCount uint32) {
	n := int(frameCount) * m.channels
	if cap(m.scratch) < n {
		m.scratch = make([]int32, n)
	}
	samples := m.scratch[:n]
	m.ring.readInto(samples)

	switch m.bitDepth {
	case 16:
		copy(out, audio.Int32ToPCM16(samples))
	case 24:
		for i, s := range samples {
			b := audio.SampleTo24Bit(s)
			copy(out[i*3:], b[:])
		}
	case 32:
		for i, s := range samples {
			binary.LittleEndian.PutUint32(out[i*4:], uint32(s)<<8)
		}
	}
}

// Close releases output resources
func (m *Malgo) Close() error {
	m.mu.Lock()
	ring := m.ring
	m.mu.Unlock()
	if ring != nil {
		deadline := time.Now().Add(drainTimeout)
		for ring.available() > 0 && time.Now().Before(deadline) {
			time.Sleep(10 * time.Millisecond)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.closeDevice(); err != nil {
		return err
	}

	if m.malgoCtx != nil {
		if err := m.malgoCtx.Uninit(); err != nil {
			log.Warn().Err(err).Msg("malgo context uninit failed")
		}
		m.malgoCtx.Free()
		m.malgoCtx = nil
	}

	m.cancel()
	return nil
}

// closeDevice stops and uninitializes the device (must hold m.mu)
func (m *Malgo) closeDevice() error {
	if m.device != nil {
		if err := m.device.Stop(); err != nil {
			log.Warn().Err(err).Msg("malgo device stop failed")
		}
		m.device.Uninit()
		m.device = nil
	}
	return nil
}
