// ABOUTME: Local imaqt commands working on files and output devices
// ABOUTME: encode, decode, play (with an optional TUI), info and backends
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/internal/logger"
	"github.com/Sendspin/imaqt-go/internal/ui"
	"github.com/Sendspin/imaqt-go/internal/version"
	"github.com/Sendspin/imaqt-go/pkg/adpcm"
	"github.com/Sendspin/imaqt-go/pkg/audio"
	"github.com/Sendspin/imaqt-go/pkg/audio/output"
	"github.com/Sendspin/imaqt-go/pkg/audio/source"
	"github.com/Sendspin/imaqt-go/pkg/codec"
	"github.com/Sendspin/imaqt-go/pkg/container/aifc"
	"github.com/Sendspin/imaqt-go/pkg/container/wav"
)

// chunksPerRead is how many codec frames are read from a source at once
const chunksPerRead = 32

func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func isAIFC(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aifc", ".aiff", ".aif":
		return true
	}
	return false
}

// openSource opens input, or a test tone when input is "tone", and
// resamples it when rate is set
func openSource(input string, rate int, duration time.Duration, backend string) (source.Source, error) {
	var src source.Source
	var err error
	switch {
	case input == "tone":
		toneRate := rate
		if toneRate == 0 {
			toneRate = source.DefaultSampleRate
		}
		src = source.NewTone(toneRate, source.DefaultChannels, duration)
	case isAIFC(input) && backend != "":
		src, err = source.NewAIFCWithConfig(input, adpcm.Config{Backend: backend})
	default:
		src, err = source.Open(input)
	}
	if err != nil {
		return nil, err
	}
	if rate > 0 && rate != src.SampleRate() {
		log.Info().Int("from", src.SampleRate()).Int("to", rate).Msg("resampling source")
		src = source.Resampled(src, rate)
	}
	return src, nil
}

// readPCM reads src in blocks of blockSamples interleaved samples and
// passes each block to fn as 16-bit PCM. The final block is padded with
// silence up to a multiple of align samples.
func readPCM(src source.Source, blockSamples, align int, fn func(pcm []byte) error) error {
	buf := make([]int32, blockSamples)
	for {
		n, err := source.ReadFull(src, buf)
		if n > 0 {
			if rem := n % align; rem != 0 {
				pad := align - rem
				for i := n; i < n+pad; i++ {
					buf[i] = 0
				}
				n += pad
			}
			if ferr := fn(audio.Int32ToPCM16(buf[:n])); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output: %w", err)
	}
	return f, nil
}

func runEncode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	common := addCommonFlags(fs)
	out := fs.String("o", "", "Output AIFF-C file (default: input name with .aifc)")
	rate := fs.Int("rate", 0, "Resample to this rate first (default: keep the source rate)")
	bitRate := fs.Int64("bitrate", 0, "Bit rate passed to the encoder (0: codec default)")
	stopOnError := fs.Bool("stop-on-error", false, "Stop at the first frame the codec rejects")
	duration := fs.Duration("duration", 5*time.Second, "Length of the test tone")
	pos, err := common.parse(fs, args, 1)
	if err != nil {
		return err
	}

	input := pos[0]
	outPath := *out
	if outPath == "" {
		if input == "tone" {
			outPath = "tone.aifc"
		} else {
			outPath = withExt(input, ".aifc")
		}
	}
	if outPath == input {
		return fmt.Errorf("output %s would overwrite the input", outPath)
	}

	src, err := openSource(input, *rate, *duration, *common.backend)
	if err != nil {
		return err
	}
	defer src.Close()

	enc, err := adpcm.OpenEncoder(adpcm.Config{
		SampleRate:  src.SampleRate(),
		Channels:    src.Channels(),
		BitRate:     *bitRate,
		Backend:     *common.backend,
		StopOnError: *stopOnError,
	})
	if err != nil {
		return err
	}
	defer enc.Close()

	f, err := createFile(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := aifc.NewWriter(f, src.SampleRate(), src.Channels())
	if err != nil {
		return err
	}

	var writeErr error
	frame := enc.FrameSize() * src.Channels()
	err = readPCM(src, frame*chunksPerRead, frame, func(pcm []byte) error {
		encErr := enc.Encode(pcm, func(chunk []byte) {
			if writeErr == nil {
				writeErr = w.WriteChunk(chunk)
			}
		})
		if writeErr != nil {
			return writeErr
		}
		if encErr != nil && *stopOnError {
			return encErr
		}
		if encErr != nil {
			log.Warn().Err(encErr).Msg("encode error, continuing")
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}

	stats := enc.Stats()
	log.Info().
		Str("output", outPath).
		Str("backend", enc.Backend()).
		Uint64("packets", stats.Packets).
		Uint64("errors", stats.Errors).
		Msg("encode finished")
	fmt.Fprintf(stdout, "%s: %d packets, %d Hz, %d ch\n", outPath, w.Packets(), src.SampleRate(), src.Channels())
	return nil
}

func runDecode(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	common := addCommonFlags(fs)
	out := fs.String("o", "", "Output WAV file (default: input name with .wav)")
	pos, err := common.parse(fs, args, 1)
	if err != nil {
		return err
	}

	input := pos[0]
	outPath := *out
	if outPath == "" {
		outPath = withExt(input, ".wav")
	}
	if outPath == input {
		return fmt.Errorf("output %s would overwrite the input", outPath)
	}

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	defer in.Close()

	rd, err := aifc.NewReader(in)
	if err != nil {
		return err
	}

	dec, err := adpcm.OpenDecoder(adpcm.Config{
		SampleRate: rd.SampleRate(),
		Channels:   rd.Channels(),
		Backend:    *common.backend,
	})
	if err != nil {
		return err
	}
	defer dec.Close()

	f, err := createFile(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := wav.NewWriter(f, rd.SampleRate(), rd.Channels())
	if err != nil {
		return err
	}

	var pcm []byte
	for {
		chunk, err := rd.ReadChunk()
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Warn().Int("packets", rd.Packets()).Msg("sound data ends mid-packet, stopping")
			break
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		pcm, err = dec.DecodeTo(pcm[:0], chunk)
		if err != nil {
			log.Warn().Err(err).Msg("skipping packet")
			continue
		}
		if _, err := w.Write(pcm); err != nil {
			return fmt.Errorf("failed to write PCM: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	stats := dec.Stats()
	log.Info().
		Str("output", outPath).
		Str("backend", dec.Backend()).
		Uint64("chunks", stats.Chunks).
		Uint64("errors", stats.Errors).
		Msg("decode finished")
	fmt.Fprintf(stdout, "%s: %d samples, %d Hz, %d ch\n",
		outPath, stats.BytesOut/uint64(2*rd.Channels()), rd.SampleRate(), rd.Channels())
	return nil
}

// volumeSetter is implemented by outputs with software volume
type volumeSetter interface {
	SetVolume(volume int)
	SetMuted(muted bool)
}

func runPlay(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("play", flag.ContinueOnError)
	common := addCommonFlags(fs)
	backend := fs.String("output", "oto", fmt.Sprintf("Output backend %v", output.Backends))
	duration := fs.Duration("duration", 5*time.Second, "Length of the test tone")
	noTUI := fs.Bool("no-tui", false, "Disable the TUI")
	logFile := fs.String("log-file", "imaqt-play.log", "Log file used while the TUI is shown")
	pos, err := common.parse(fs, args, 1)
	if err != nil {
		return err
	}

	useTUI := !*noTUI && logger.IsTerminal(stdout)
	if useTUI {
		f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("error opening log file: %w", err)
		}
		defer f.Close()
		logger.Init(*common.logLevel, f)
	}

	input := pos[0]
	src, err := openSource(input, 0, *duration, *common.backend)
	if err != nil {
		return err
	}
	defer src.Close()

	out, err := output.New(*backend)
	if err != nil {
		return err
	}
	if err := out.Open(src.SampleRate(), src.Channels(), 16); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	title, artist, album := src.Metadata()
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(input)), ".")
	if input == "tone" {
		format = "tone"
	}

	var prog *tea.Program
	if useTUI {
		ctrl := ui.NewControls()
		prog = ui.New(ctrl)
		tuiDone := make(chan struct{})
		go func() {
			defer close(tuiDone)
			if _, err := prog.Run(); err != nil {
				log.Error().Err(err).Msg("TUI failed")
			}
		}()
		defer func() {
			prog.Quit()
			<-tuiDone
		}()

		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		go handleControls(ctx, cancel, out, ctrl)

		prog.Send(ui.StatusMsg{
			Title:      title,
			Artist:     artist,
			Album:      album,
			Format:     format,
			Output:     *backend,
			SampleRate: src.SampleRate(),
			Channels:   src.Channels(),
		})
	} else {
		name := title
		if artist != "" {
			name = artist + " - " + title
		}
		fmt.Fprintf(stdout, "Playing %s (%d Hz, %d ch)\n", name, src.SampleRate(), src.Channels())
	}

	buf := make([]int32, 4096*src.Channels())
	var played uint64
	for ctx.Err() == nil {
		n, err := src.Read(buf)
		if n > 0 {
			if werr := out.Write(buf[:n]); werr != nil {
				out.Close()
				return werr
			}
			played += uint64(n)
			if prog != nil {
				status := ui.StatusMsg{Played: played}
				if st, ok := src.(statser); ok {
					stats := st.Stats()
					status.Chunks, status.Errors = stats.Chunks, stats.Errors
				}
				prog.Send(status)
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			out.Close()
			return err
		}
	}

	if prog != nil {
		prog.Send(ui.StatusMsg{Finished: true})
	}
	log.Debug().Uint64("samples", played).Msg("playback finished")
	return out.Close()
}

// statser is implemented by sources that decode ADPCM
type statser interface {
	Stats() adpcm.Stats
}

// handleControls applies TUI volume changes to out until ctx ends or the
// user quits
func handleControls(ctx context.Context, cancel context.CancelFunc, out output.Output, ctrl *ui.Controls) {
	vs, ok := out.(volumeSetter)
	for {
		select {
		case vol := <-ctrl.Volume:
			log.Debug().Int("volume", vol.Volume).Bool("muted", vol.Muted).Msg("volume change")
			if ok {
				vs.SetVolume(vol.Volume)
				vs.SetMuted(vol.Muted)
			}
		case <-ctrl.Quit:
			cancel()
			return
		case <-ctx.Done():
			return
		}
	}
}

func runInfo(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("info", flag.ContinueOnError)
	common := addCommonFlags(fs)
	pos, err := common.parse(fs, args, 1)
	if err != nil {
		return err
	}
	path := pos[0]

	if isAIFC(path) {
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		rd, err := aifc.NewReader(f)
		if err != nil {
			return err
		}
		comm := rd.Common()
		dur := time.Duration(float64(rd.Samples()) / float64(rd.SampleRate()) * float64(time.Second))

		fmt.Fprintf(stdout, "File:        %s\n", path)
		fmt.Fprintf(stdout, "Format:      AIFF-C %s (%s)\n", fourCC(comm.CompressionType), comm.CompressionName)
		fmt.Fprintf(stdout, "Sample rate: %d Hz\n", rd.SampleRate())
		fmt.Fprintf(stdout, "Channels:    %d\n", rd.Channels())
		fmt.Fprintf(stdout, "Packets:     %d\n", rd.Packets())
		fmt.Fprintf(stdout, "Samples:     %d per channel\n", rd.Samples())
		fmt.Fprintf(stdout, "Duration:    %s\n", dur.Round(time.Millisecond))
		fmt.Fprintf(stdout, "Chunk size:  %d bytes\n", rd.ChunkSize())
		return nil
	}

	src, err := source.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()
	title, artist, album := src.Metadata()

	fmt.Fprintf(stdout, "File:        %s\n", path)
	fmt.Fprintf(stdout, "Format:      %s\n", strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	fmt.Fprintf(stdout, "Sample rate: %d Hz\n", src.SampleRate())
	fmt.Fprintf(stdout, "Channels:    %d\n", src.Channels())
	fmt.Fprintf(stdout, "Title:       %s\n", title)
	if artist != "" {
		fmt.Fprintf(stdout, "Artist:      %s\n", artist)
	}
	if album != "" {
		fmt.Fprintf(stdout, "Album:       %s\n", album)
	}
	return nil
}

func fourCC(v uint32) string {
	return string([]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)})
}

func runBackends(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("backends", flag.ContinueOnError)
	common := addCommonFlags(fs)
	if _, err := common.parse(fs, args, 0); err != nil {
		return err
	}

	fmt.Fprintln(stdout, version.String())
	fmt.Fprintf(stdout, "\nCodec %s backends (best first):\n", codec.IDAdpcmImaQt)
	for _, name := range codec.Default.Backends(codec.IDAdpcmImaQt) {
		var modes []string
		if codec.Default.FindDecoder(codec.IDAdpcmImaQt, name) != nil {
			modes = append(modes, "decode")
		}
		if codec.Default.FindEncoder(codec.IDAdpcmImaQt, name) != nil {
			modes = append(modes, "encode")
		}
		fmt.Fprintf(stdout, "  %-8s %s\n", name, strings.Join(modes, " "))
	}

	fmt.Fprintf(stdout, "\nOutput backends: %s\n", strings.Join(output.Backends, ", "))
	return nil
}
