// ABOUTME: Resampling wrapper for audio sources
// ABOUTME: Converts any source to a target sample rate with linear interpolation
package source

import (
	"io"

	"github.com/Sendspin/imaqt-go/pkg/audio/resample"
)

// ResampledSource wraps a Source and resamples to a target sample rate
type ResampledSource struct {
	source      Source
	resampler   *resample.Resampler
	targetRate  int
	inputBuffer []int32
	eof         bool
}

// Resampled wraps src so it produces targetRate. src is returned as-is when
// it already runs at that rate.
func Resampled(src Source, targetRate int) Source {
	if src.SampleRate() == targetRate {
		return src
	}

	inputRate := src.SampleRate()
	channels := src.Channels()

	// 100ms of input per read
	inputSamples := (inputRate / 10) * channels

	return &ResampledSource{
		source:      src,
		resampler:   resample.New(inputRate, targetRate, channels),
		targetRate:  targetRate,
		inputBuffer: make([]int32, inputSamples),
	}
}

func (r *ResampledSource) Read(samples []int32) (int, error) {
	if r.eof {
		return 0, io.EOF
	}

	channels := r.source.Channels()
	// stay short of filling samples so no input is discarded
	margin := (int(r.resampler.Ratio()) + 2) * channels
	neededInput := r.resampler.InputSamplesNeeded(len(samples)) - margin
	if neededInput < channels {
		neededInput = channels
	}
	if neededInput > len(r.inputBuffer) {
		neededInput = len(r.inputBuffer)
	}

	n, err := ReadFull(r.source, r.inputBuffer[:neededInput])
	if err == io.EOF {
		r.eof = true
		if n < channels {
			return 0, io.EOF
		}
	} else if err != nil {
		return 0, err
	}

	return r.resampler.Resample(r.inputBuffer[:n], samples), nil
}

func (r *ResampledSource) SampleRate() int {
	return r.targetRate
}

func (r *ResampledSource) Channels() int {
	return r.source.Channels()
}

func (r *ResampledSource) Metadata() (string, string, string) {
	return r.source.Metadata()
}

func (r *ResampledSource) Close() error {
	return r.source.Close()
}
