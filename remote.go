// ABOUTME: imaqt remote command running codec work on a relay
// ABOUTME: Finds a relay over mDNS unless one is given and streams a file through it
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/internal/discovery"
	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/audio/decode"
	"github.com/Sendspin/imaqt-go/pkg/container/aifc"
	"github.com/Sendspin/imaqt-go/pkg/container/wav"
	"github.com/Sendspin/imaqt-go/pkg/protocol"
)

// resolveRelay returns addr, or the first relay found on the local network
func resolveRelay(ctx context.Context, addr string, timeout time.Duration) (string, error) {
	if addr != "" {
		return addr, nil
	}
	log.Info().Dur("timeout", timeout).Msg("looking for relays")
	servers := discovery.Discover(ctx, timeout)
	if len(servers) == 0 {
		return "", fmt.Errorf("no relay found after %s", timeout)
	}
	s := servers[0]
	log.Info().Str("name", s.Name).Str("addr", s.Addr()).Strs("backends", s.Backends).Msg("discovered relay")
	return s.URL(), nil
}

func runRemote(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("remote", flag.ContinueOnError)
	common := addCommonFlags(fs)
	server := fs.String("server", "", "Relay address host:port or ws:// URL (default: discover with mDNS)")
	mode := fs.String("mode", "", "decode, encode or transcode (default: decode for AIFF-C input, encode otherwise)")
	out := fs.String("o", "", "Output file (default: input name with .wav or .aifc)")
	rate := fs.Int("rate", 0, "Resample to this rate before encoding")
	bitRate := fs.Int64("bitrate", 0, "Encoder bit rate (opus bit rate for transcode)")
	batch := fs.Int("batch", 32, "Codec frames per relay request")
	discoverTimeout := fs.Duration("discover-timeout", 5*time.Second, "How long to browse for relays")
	duration := fs.Duration("duration", 5*time.Second, "Length of the test tone")
	pos, err := common.parse(fs, args, 1)
	if err != nil {
		return err
	}
	if *batch < 1 {
		return fmt.Errorf("batch must be at least 1")
	}

	input := pos[0]
	m := protocol.Mode(*mode)
	if m == "" {
		m = protocol.ModeEncode
		if isAIFC(input) {
			m = protocol.ModeDecode
		}
	}
	if !m.Valid() {
		return fmt.Errorf("unknown mode %q", m)
	}

	outPath := *out
	if outPath == "" {
		if m == protocol.ModeEncode {
			outPath = withExt(input, ".aifc")
		} else {
			outPath = withExt(input, ".wav")
		}
	}
	if outPath == input {
		return fmt.Errorf("output %s would overwrite the input", outPath)
	}

	ctx := context.Background()
	addr, err := resolveRelay(ctx, *server, *discoverTimeout)
	if err != nil {
		return err
	}

	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	client, err := protocol.Dial(dialCtx, addr)
	cancel()
	if err != nil {
		return err
	}
	defer client.Close()

	job := remoteJob{
		client:  client,
		backend: *common.backend,
		bitRate: *bitRate,
		batch:   *batch,
		outPath: outPath,
	}
	switch m {
	case protocol.ModeEncode:
		err = job.encode(input, *rate, *duration)
	default:
		err = job.decode(input, m)
	}
	if err != nil {
		return err
	}

	stats, err := client.CloseSession()
	if err != nil {
		return err
	}
	log.Info().
		Uint64("inputs", stats.Inputs).
		Uint64("outputs", stats.Outputs).
		Uint64("errors", stats.Errors).
		Uint64("dropped_bytes", stats.DroppedBytes).
		Msg("relay session closed")
	fmt.Fprintf(stdout, "%s: %d relay requests, %d outputs, %d errors\n", outPath, stats.Inputs, stats.Outputs, stats.Errors)
	return nil
}

type remoteJob struct {
	client  *protocol.Client
	backend string
	bitRate int64
	batch   int
	outPath string
}

// process sends one input and logs a failure the relay recovered from
func (j *remoteJob) process(data []byte) ([][]byte, error) {
	outputs, err := j.client.Process(data)
	var se *protocol.SessionError
	if errors.As(err, &se) {
		log.Warn().Str("kind", se.Kind).Int("code", se.Code).Msg(se.Message)
		return outputs, nil
	}
	return outputs, err
}

func (j *remoteJob) encode(input string, rate int, duration time.Duration) error {
	src, err := openSource(input, rate, duration, "")
	if err != nil {
		return err
	}
	defer src.Close()

	opened, err := j.client.Open(protocol.SessionOpen{
		Mode:       protocol.ModeEncode,
		SampleRate: src.SampleRate(),
		Channels:   src.Channels(),
		BitRate:    j.bitRate,
		Backend:    j.backend,
	})
	if err != nil {
		return err
	}

	f, err := createFile(j.outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := aifc.NewWriter(f, src.SampleRate(), src.Channels())
	if err != nil {
		return err
	}

	frame := opened.FrameSize * src.Channels()
	err = readPCM(src, frame*j.batch, frame, func(pcm []byte) error {
		chunks, err := j.process(pcm)
		for _, chunk := range chunks {
			if werr := w.WriteChunk(chunk); werr != nil {
				return werr
			}
		}
		return err
	})
	if err != nil {
		return err
	}
	return w.Close()
}

// decode runs an AIFF-C file through a decode or transcode session and
// writes the PCM to WAV. Opus packets from a transcode session are decoded
// locally.
func (j *remoteJob) decode(input string, mode protocol.Mode) error {
	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()
	rd, err := aifc.NewReader(in)
	if err != nil {
		return err
	}

	opened, err := j.client.Open(protocol.SessionOpen{
		Mode:       mode,
		SampleRate: rd.SampleRate(),
		Channels:   rd.Channels(),
		BitRate:    j.bitRate,
		Backend:    j.backend,
	})
	if err != nil {
		return err
	}

	var opus decode.Decoder
	if opened.OutputCodec == audio.CodecOpus {
		opus, err = decode.New(audio.Format{
			Codec:      audio.CodecOpus,
			SampleRate: opened.OutputRate,
			Channels:   opened.Channels,
			BitDepth:   16,
		})
		if err != nil {
			return err
		}
		defer opus.Close()
	}

	f, err := createFile(j.outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	w, err := wav.NewWriter(f, opened.OutputRate, opened.Channels)
	if err != nil {
		return err
	}

	writeOutputs := func(outputs [][]byte) error {
		for _, o := range outputs {
			pcm := o
			if opus != nil {
				samples, err := opus.Decode(o)
				if err != nil {
					return fmt.Errorf("failed to decode opus packet: %w", err)
				}
				pcm = audio.Int32ToPCM16(samples)
			}
			if _, err := w.Write(pcm); err != nil {
				return fmt.Errorf("failed to write PCM: %w", err)
			}
		}
		return nil
	}

	data := make([]byte, 0, rd.ChunkSize()*j.batch)
	flush := func() error {
		if len(data) == 0 {
			return nil
		}
		outputs, err := j.process(data)
		data = data[:0]
		if werr := writeOutputs(outputs); werr != nil {
			return werr
		}
		return err
	}

	for {
		chunk, err := rd.ReadChunk()
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warn().Msg("sound data ends mid-packet, stopping")
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		data = append(data, chunk...)
		if len(data) == cap(data) {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}
	return w.Close()
}
