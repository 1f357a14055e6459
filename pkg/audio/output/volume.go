// ABOUTME: Software volume shared by the device outputs
// ABOUTME: Safe to change from a UI goroutine while playback writes
package output

import (
	"sync/atomic"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// volume holds a 0-100 level and a mute flag. The zero value is silent, so
// outputs call reset in their constructors.
type volume struct {
	level atomic.Int32
	muted atomic.Bool
}

func (v *volume) reset() {
	v.level.Store(100)
	v.muted.Store(false)
}

// SetVolume sets the level, clamped to 0-100
func (v *volume) SetVolume(level int) {
	v.level.Store(int32(clampVolume(level)))
}

// SetMuted sets the mute state
func (v *volume) SetMuted(muted bool) {
	v.muted.Store(muted)
}

// GetVolume returns the level
func (v *volume) GetVolume() int {
	return int(v.level.Load())
}

// IsMuted returns the mute state
func (v *volume) IsMuted() bool {
	return v.muted.Load()
}

// apply returns samples scaled by the current level
func (v *volume) apply(samples []int32) []int32 {
	return applyVolume(samples, v.GetVolume(), v.IsMuted())
}

func clampVolume(level int) int {
	switch {
	case level < 0:
		return 0
	case level > 100:
		return 100
	}
	return level
}

// applyVolume scales samples into a new slice, clipping at the 24-bit range
func applyVolume(samples []int32, level int, muted bool) []int32 {
	out := make([]int32, len(samples))
	if muted || level <= 0 {
		return out
	}
	if level >= 100 {
		copy(out, samples)
		return out
	}

	for i, s := range samples {
		scaled := int64(s) * int64(level) / 100
		switch {
		case scaled > audio.Max24Bit:
			scaled = audio.Max24Bit
		case scaled < audio.Min24Bit:
			scaled = audio.Min24Bit
		}
		out[i] = int32(scaled)
	}
	return out
}
