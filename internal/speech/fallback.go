package speech

import (
	"context"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// Compile-time interface check.
var _ domain.FallbackSpeaker = (*LocalSpeaker)(nil)

// runner executes a local speech command and blocks until it exits.
type runner func(ctx context.Context, name string, args ...string) error

func execRunner(ctx context.Context, name string, args ...string) error {
	return exec.CommandContext(ctx, name, args...).Run()
}

// LocalSpeaker speaks through the platform's offline engine: say on macOS,
// espeak-ng or espeak elsewhere. Emotion is not expressed.
type LocalSpeaker struct {
	log     *logger.Logger
	command string
	wpm     int
	run     runner

	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// NewLocalSpeaker locates an offline engine. The speaker is usable even
// when none was found; IsAvailable reports that and Speak only logs.
func NewLocalSpeaker(log *logger.Logger, wpm int) *LocalSpeaker {
	if wpm <= 0 {
		wpm = DefaultWordsPerMinute
	}
	return &LocalSpeaker{log: log, command: findEngine(runtime.GOOS, exec.LookPath), wpm: wpm, run: execRunner}
}

func findEngine(goos string, lookPath func(string) (string, error)) string {
	candidates := []string{"espeak-ng", "espeak"}
	if goos == "darwin" {
		candidates = []string{"say"}
	}
	for _, name := range candidates {
		if _, err := lookPath(name); err == nil {
			return name
		}
	}
	return ""
}

// IsAvailable reports whether an offline engine was found.
func (s *LocalSpeaker) IsAvailable() bool {
	return s.command != ""
}

// Engine returns the command used, or "" when none is available.
func (s *LocalSpeaker) Engine() string {
	return s.command
}

// args builds the command line. The user rate scales words per minute;
// pitch is only understood by espeak, on its 0-99 scale.
func (s *LocalSpeaker) args(text string, p domain.Prosody) []string {
	rate := p.Rate
	if rate <= 0 {
		rate = 1
	}
	wpm := strconv.Itoa(int(float64(s.wpm) * rate))

	if s.command == "say" {
		return []string{"-r", wpm, text}
	}

	pitch := p.Pitch
	if pitch <= 0 {
		pitch = 1
	}
	pv := int(pitch * 50)
	if pv > 99 {
		pv = 99
	}
	return []string{"-s", wpm, "-p", strconv.Itoa(pv), text}
}

// Speak blocks until the text has been spoken, Stop is called, or ctx is
// done. Failures are logged, never returned.
func (s *LocalSpeaker) Speak(ctx context.Context, text string, p domain.Prosody) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}
	if !s.IsAvailable() {
		s.log.Warn("no offline speech engine available, skipping %q", truncateForLog(text, 40))
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.cancel = cancel
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
	}()

	s.log.Debug("fallback %s: speaking %q", s.command, truncateForLog(text, 40))
	if err := s.run(runCtx, s.command, s.args(text, p)...); err != nil && runCtx.Err() == nil {
		s.log.Warn("fallback %s failed: %v", s.command, err)
	}
}

// Stop kills the utterance in progress, if any.
func (s *LocalSpeaker) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// truncateForLog shortens s to at most n runes.
func truncateForLog(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
