// ABOUTME: Oto-based audio output implementation
// ABOUTME: Streams 16-bit PCM through a pipe into one persistent oto player
package output

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/pkg/audio"
)

// drainTimeout bounds how long Close waits for queued audio
const drainTimeout = 2 * time.Second

// Oto plays through the oto library. oto allows one context per process,
// so an Oto cannot change format once opened.
type Oto struct {
	volume

	otoCtx     *oto.Context
	player     *oto.Player
	pipeWriter *io.PipeWriter
	sampleRate int
	channels   int
}

// NewOto creates an output at full volume
func NewOto() *Oto {
	o := &Oto{}
	o.reset()
	return o
}

// Open creates the oto context and starts a player reading from a pipe.
// oto output is always 16-bit.
func (o *Oto) Open(sampleRate, channels, bitDepth int) error {
	if bitDepth != 16 {
		log.Warn().Int("bit_depth", bitDepth).Msg("oto plays 16-bit only, converting")
	}

	if o.otoCtx != nil {
		if o.sampleRate != sampleRate || o.channels != channels {
			return fmt.Errorf("oto cannot switch format (%dHz %dch -> %dHz %dch)",
				o.sampleRate, o.channels, sampleRate, channels)
		}
		if o.pipeWriter != nil {
			return nil
		}
		// reopened after Close
		if err := o.otoCtx.Resume(); err != nil {
			return fmt.Errorf("failed to resume oto context: %w", err)
		}
	} else {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: channels,
			Format:       oto.FormatSignedInt16LE,
		})
		if err != nil {
			return fmt.Errorf("failed to create oto context: %w", err)
		}
		<-ready
		o.otoCtx = ctx
	}

	pr, pw := io.Pipe()
	o.pipeWriter = pw
	o.player = o.otoCtx.NewPlayer(pr)
	o.player.Play()
	o.sampleRate = sampleRate
	o.channels = channels

	log.Info().
		Int("sample_rate", sampleRate).
		Int("channels", channels).
		Msg("oto output initialized")
	return nil
}

// Write blocks until the player has taken the samples
func (o *Oto) Write(samples []int32) error {
	if o.pipeWriter == nil {
		return fmt.Errorf("output not initialized")
	}
	if _, err := o.pipeWriter.Write(audio.Int32ToPCM16(o.apply(samples))); err != nil {
		return fmt.Errorf("pipe write failed: %w", err)
	}
	return nil
}

// Close lets queued audio finish, up to drainTimeout, then stops the player
func (o *Oto) Close() error {
	if o.pipeWriter == nil {
		return nil
	}
	o.pipeWriter.Close()
	o.pipeWriter = nil

	deadline := time.Now().Add(drainTimeout)
	for o.player.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	err := o.player.Close()
	o.player = nil
	if serr := o.otoCtx.Suspend(); serr != nil && err == nil {
		err = serr
	}
	return err
}
