package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/hammamikhairi/moodspeak/internal/config"
	"github.com/hammamikhairi/moodspeak/internal/engine"
	"github.com/hammamikhairi/moodspeak/internal/logger"
	"github.com/hammamikhairi/moodspeak/internal/playback"
	"github.com/hammamikhairi/moodspeak/internal/speech"
	"github.com/hammamikhairi/moodspeak/internal/storage"
)

// runRender synthesizes tagged text in one request and writes the
// combined clip to a file or stdout. Text comes from the arguments, or
// stdin when there are none.
func runRender(args []string) int {
	fs := flag.NewFlagSet("render", flag.ContinueOnError)
	configPath := fs.String("config", "", "config file")
	outPath := fs.String("o", "-", "output file (\"-\" for stdout)")
	verbose := fs.Bool("verbose", false, "log to stderr")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	level := logger.LevelOff
	if *verbose {
		level = logger.LevelVerbose
	}
	log := logger.New(level, os.Stderr)

	text := strings.Join(fs.Args(), " ")
	if text == "" {
		b, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: reading stdin: %v\n", err)
			return 1
		}
		text = string(b)
	}

	store, err := storage.OpenFileStore(cfg.Storage.StateFile, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	synth := newSynthesizer(cfg, log)
	defer synth.Wait()

	quiet := speech.NewNoOp(log)
	eng := engine.New(playback.New(synth, quiet, quiet, log), synth, store, log,
		engine.WithEnvAPIKey(cfg.APIKey()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var out io.Writer = os.Stdout
	if *outPath != "-" {
		f, err := os.Create(*outPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		defer f.Close()
		out = f
	}

	n, err := eng.Render(ctx, text, out)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if *outPath != "-" {
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", n, *outPath)
	}
	return 0
}
