// ABOUTME: Linear resampler for converting audio sample rates
// ABOUTME: Integer phase stepping, with the last input frame carried across calls
package resample

// Resampler converts interleaved int32 audio between two rates by linear
// interpolation. The read position is kept as a whole frame index plus a
// phase in 1/den steps, so it never drifts over long streams.
type Resampler struct {
	inputRate  int
	outputRate int
	channels   int

	step  int // input advance per output frame, in 1/den units
	den   int
	frame int // read frame, 0 is the carried frame when primed
	phase int

	carry  []int32 // last frame of the previous call
	primed bool
}

// New creates a resampler from inputRate to outputRate
func New(inputRate, outputRate, channels int) *Resampler {
	g := gcd(inputRate, outputRate)
	return &Resampler{
		inputRate:  inputRate,
		outputRate: outputRate,
		channels:   channels,
		step:       inputRate / g,
		den:        outputRate / g,
		carry:      make([]int32, channels),
	}
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}

// Resample converts input into output and returns the number of samples
// written. Input left over once output is full is discarded; size output
// with OutputSamplesNeeded.
func (r *Resampler) Resample(input []int32, output []int32) int {
	inFrames := len(input) / r.channels
	if inFrames == 0 {
		return 0
	}

	frames := inFrames
	if r.primed {
		frames++
	}
	at := func(frame, ch int) int64 {
		if r.primed {
			if frame == 0 {
				return int64(r.carry[ch])
			}
			frame--
		}
		return int64(input[frame*r.channels+ch])
	}

	outFrames := len(output) / r.channels
	n := 0
	frame, phase := r.frame, r.phase
	for n < outFrames && frame < frames-1 {
		for ch := 0; ch < r.channels; ch++ {
			a, b := at(frame, ch), at(frame+1, ch)
			output[n*r.channels+ch] = int32(a + (b-a)*int64(phase)/int64(r.den))
		}
		n++
		phase += r.step
		frame += phase / r.den
		phase %= r.den
	}

	// the last input frame becomes frame 0 of the next call
	r.frame = frame - (frames - 1)
	if r.frame < 0 {
		r.frame, r.phase = 0, 0
	} else {
		r.phase = phase
	}
	copy(r.carry, input[(inFrames-1)*r.channels:inFrames*r.channels])
	r.primed = true

	return n * r.channels
}

// Reset forgets the carried frame and read position
func (r *Resampler) Reset() {
	r.frame, r.phase = 0, 0
	r.primed = false
	clear(r.carry)
}

// Ratio returns input frames consumed per output frame
func (r *Resampler) Ratio() float64 {
	return float64(r.step) / float64(r.den)
}

// OutputSamplesNeeded is an upper bound on the samples one call produces
// from inputSamples
func (r *Resampler) OutputSamplesNeeded(inputSamples int) int {
	inFrames := inputSamples / r.channels
	return (inFrames*r.den/r.step + 2) * r.channels
}

// InputSamplesNeeded is the input that yields about outputSamples
func (r *Resampler) InputSamplesNeeded(outputSamples int) int {
	outFrames := outputSamples / r.channels
	return outFrames * r.step / r.den * r.channels
}
