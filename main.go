// ABOUTME: Entry point for the imaqt command line tool
// ABOUTME: Dispatches encode, decode, play, info, remote and backends
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/internal/logger"
	"github.com/Sendspin/imaqt-go/internal/version"
)

// errUsage reports bad arguments; the command's usage has already been shown
var errUsage = errors.New("invalid arguments")

type command struct {
	name  string
	usage string
	run   func(args []string, stdout io.Writer) error
}

var commands = []command{
	{"encode", "encode [flags] <input|tone>   encode audio to an AIFF-C ima4 file", runEncode},
	{"decode", "decode [flags] <file.aifc>    decode an AIFF-C ima4 file to WAV", runDecode},
	{"play", "play [flags] <file>            play a file through an output backend", runPlay},
	{"info", "info <file>                    describe an audio file", runInfo},
	{"remote", "remote [flags] <file>          encode, decode or transcode through a relay", runRemote},
	{"backends", "backends                       list codec and output backends", runBackends},
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal().Err(err).Msg("imaqt failed")
	}
}

func run(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		printUsage(os.Stderr)
		return errUsage
	}

	name := args[0]
	if name == "-h" || name == "-help" || name == "help" {
		printUsage(stdout)
		return nil
	}
	if name == "-version" || name == "version" {
		fmt.Fprintln(stdout, version.String())
		return nil
	}

	for _, c := range commands {
		if c.name == name {
			return c.run(args[1:], stdout)
		}
	}
	fmt.Fprintf(os.Stderr, "unknown command %q\n\n", name)
	printUsage(os.Stderr)
	return errUsage
}

func printUsage(w io.Writer) {
	fmt.Fprintf(w, "%s - QuickTime IMA ADPCM toolkit\n\nUsage:\n", version.String())
	for _, c := range commands {
		fmt.Fprintf(w, "  imaqt %s\n", c.usage)
	}
	fmt.Fprintln(w, "\nRun 'imaqt <command> -h' for command flags.")
}

// commonFlags are accepted by every command that touches a codec
type commonFlags struct {
	backend  *string
	logLevel *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		backend:  fs.String("backend", os.Getenv("IMAQT_BACKEND"), "Codec backend (default: best available, env IMAQT_BACKEND)"),
		logLevel: fs.String("log-level", "", "Log level: debug, info, warn, error (default: env LOG_LEVEL or info)"),
	}
}

// parse parses args and sets up logging. It returns the positional arguments.
func (c commonFlags) parse(fs *flag.FlagSet, args []string, want int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	logger.Init(*c.logLevel, os.Stderr)
	if fs.NArg() != want {
		fmt.Fprintf(fs.Output(), "%s: expected %d argument(s), got %d\n", fs.Name(), want, fs.NArg())
		fs.Usage()
		return nil, errUsage
	}
	return fs.Args(), nil
}
