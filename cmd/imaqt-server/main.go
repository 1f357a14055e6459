// ABOUTME: Entry point for the imaqt relay server
// ABOUTME: Parses CLI flags, sets up logging and runs the relay until interrupted
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/Sendspin/imaqt-go/internal/logger"
	"github.com/Sendspin/imaqt-go/internal/server"
)

var (
	port       = flag.Int("port", server.DefaultPort, "WebSocket server port")
	name       = flag.String("name", "", "Relay friendly name (default: hostname-imaqt-relay)")
	logFile    = flag.String("log-file", "imaqt-server.log", "Log file path")
	logLevel   = flag.String("log-level", "", "Log level: debug, info, warn, error (default: env LOG_LEVEL or info)")
	debug      = flag.Bool("debug", false, "Enable debug logging")
	noMDNS     = flag.Bool("no-mdns", false, "Disable mDNS advertisement")
	noTUI      = flag.Bool("no-tui", false, "Disable TUI, stream logs to stdout instead")
	backend    = flag.String("backend", os.Getenv("IMAQT_BACKEND"), "Default codec backend for sessions (env IMAQT_BACKEND)")
	maxMessage = flag.Int64("max-message", server.DefaultMaxMessageSize, "Largest accepted WebSocket message in bytes")
)

func main() {
	flag.Parse()
	useTUI := !*noTUI

	f, err := os.OpenFile(*logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	// the TUI owns the terminal, so logs only go to the file
	var w io.Writer = f
	if !useTUI {
		w = io.MultiWriter(os.Stdout, f)
	}
	level := *logLevel
	if *debug {
		level = "debug"
	}
	logger.Init(level, w)

	relayName := *name
	if relayName == "" {
		hostname, err := os.Hostname()
		if err != nil {
			hostname = "unknown"
		}
		relayName = fmt.Sprintf("%s-imaqt-relay", hostname)
	}

	log.Info().
		Str("name", relayName).
		Int("port", *port).
		Str("log_file", *logFile).
		Msg("starting imaqt relay")

	srv := server.New(server.Config{
		Port:           *port,
		Name:           relayName,
		EnableMDNS:     !*noMDNS,
		Debug:          *debug,
		UseTUI:         useTUI,
		Backend:        *backend,
		MaxMessageSize: *maxMessage,
	})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info().Str("signal", sig.String()).Msg("shutting down gracefully")
		srv.Stop()
	}()

	if err := srv.Start(); err != nil {
		log.Fatal().Err(err).Msg("relay error")
	}
	log.Info().Msg("relay stopped")
}
