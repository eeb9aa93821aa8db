// Command moodspeak speaks typed text with the emotion it is tagged with.
//
// Usage:
//
//	moodspeak [-config FILE] [-verbose] [-quiet] [-no-audio] [-transport http|websocket]
//	moodspeak render [-o FILE] [TEXT...]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/moodspeak/internal/command"
	"github.com/hammamikhairi/moodspeak/internal/config"
	"github.com/hammamikhairi/moodspeak/internal/display"
	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/engine"
	"github.com/hammamikhairi/moodspeak/internal/hume"
	"github.com/hammamikhairi/moodspeak/internal/logger"
	"github.com/hammamikhairi/moodspeak/internal/playback"
	"github.com/hammamikhairi/moodspeak/internal/speech"
	"github.com/hammamikhairi/moodspeak/internal/storage"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) > 1 && os.Args[1] == "render" {
		os.Exit(runRender(os.Args[2:]))
	}

	configPath := flag.String("config", "", "config file (default ./"+config.DefaultConfigFilename+" if present)")
	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", "", "file to write logs to (use \"stderr\" to log to console)")
	noAudio := flag.Bool("no-audio", false, "do not open the audio device; synthesized clips are discarded")
	transport := flag.String("transport", "", "synthesis transport: http or websocket (overrides the config file)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if *transport != "" {
		cfg.Hume.Transport = *transport
		if err := cfg.Validate(); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(2)
		}
	}
	if *logFile != "" {
		cfg.Log.File = *logFile
	}

	logOut, closeLog := openLog(cfg.Log.File)
	defer closeLog()

	// Third-party libraries log through the standard package; keep that
	// out of the terminal too.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel(cfg.Log.Level, *verbose, *quiet), logOut)

	// Cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.OpenFileStore(cfg.Storage.StateFile, log.Named("storage"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	synth := newSynthesizer(cfg, log)
	defer synth.Wait()

	var output domain.AudioOutput = speech.NewNoOp(log)
	if !*noAudio {
		player, err := speech.NewPlayer(log.Named("player"), cfg.Hume.Format, cfg.Audio.SampleRate, cfg.Audio.Channels)
		if err != nil {
			log.Error("audio device unavailable, clips will not be heard: %v", err)
		} else {
			output = player
		}
	}
	fallback := newFallback(cfg, log)

	var eng *engine.Engine
	ui := display.NewUI(statusFunc(func() engine.Status { return eng.Status() }))
	notifier := command.NewCLINotifier(log, ui.Printf)
	reporter := command.NewEventReporter(notifier, log)

	seq := playback.New(synth, output, fallback, log.Named("playback"),
		playback.WithObserver(reporter.Observe),
	)
	eng = engine.New(seq, synth, store, log.Named("engine"),
		engine.WithEnvAPIKey(cfg.APIKey()),
		engine.WithNotifier(notifier),
	)
	eng.PrefetchShortcuts(ctx)

	app := &cliApp{
		engine: eng,
		parser: command.NewKeywordParser(log),
		log:    log,
		ui:     ui,
	}

	fmt.Println(display.RenderBanner())
	fmt.Println(display.Tagline(eng.HasAPIKey(), cfg.Hume.APIKeyVariable))
	fmt.Println()

	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal and blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	eng.Stop()
	cancel()
}

// statusFunc adapts a closure to display.StatusSource.
type statusFunc func() engine.Status

func (f statusFunc) Status() engine.Status { return f() }

// openLog directs logs to a file by default so the prompt stays clean.
func openLog(path string) (io.Writer, func()) {
	if path == "" || path == "stderr" {
		return os.Stderr, func() {}
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		_ = os.MkdirAll(dir, 0o755)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", path, err)
		return os.Stderr, func() {}
	}
	return f, func() { f.Close() }
}

func logLevel(name string, verbose, quiet bool) logger.Level {
	level, ok := logger.ParseLevel(name)
	if !ok {
		level = logger.LevelNormal
	}
	if verbose {
		level = logger.LevelVerbose
	}
	if quiet {
		level = logger.LevelOff
	}
	return level
}

// newSynthesizer builds the remote client for the configured transport
// behind the clip cache.
func newSynthesizer(cfg *config.Config, log *logger.Logger) *speech.CachedSynthesizer {
	var remote domain.Synthesizer
	switch cfg.Hume.Transport {
	case config.TransportWebSocket:
		remote = hume.NewStreamClient(log.Named("hume"),
			hume.WithStreamURL(cfg.Hume.StreamURL),
			hume.WithStreamFormat(cfg.Hume.Format),
			hume.WithReadTimeout(cfg.Timeout()),
		)
	default:
		remote = hume.NewClient(log.Named("hume"),
			hume.WithBaseURL(cfg.Hume.BaseURL),
			hume.WithAudioFormat(cfg.Hume.Format),
			hume.WithHTTPTimeout(cfg.Timeout()),
		)
	}
	log.Info("synthesis via %s (%s)", cfg.Hume.Transport, cfg.Hume.Format)

	cache := speech.NewAudioCache(cfg.Hume.Format, cfg.Audio.CacheDir, cfg.Audio.DiskCache, log.Named("cache"))
	return speech.NewCachedSynthesizer(remote, cache, log.Named("cache"))
}

func newFallback(cfg *config.Config, log *logger.Logger) domain.FallbackSpeaker {
	if cfg.Fallback.Engine == "none" {
		return speech.NewNoOp(log)
	}
	local := speech.NewLocalSpeaker(log.Named("fallback"), cfg.Fallback.WordsPerMinute)
	if !local.IsAvailable() {
		log.Info("no offline speech engine found; failed segments will be skipped")
	} else {
		log.Info("offline voice: %s", local.Engine())
	}
	return local
}
