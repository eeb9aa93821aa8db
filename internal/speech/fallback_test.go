package speech

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

func TestFindEngine(t *testing.T) {
	has := func(names ...string) func(string) (string, error) {
		return func(name string) (string, error) {
			for _, n := range names {
				if n == name {
					return "/usr/bin/" + name, nil
				}
			}
			return "", exec.ErrNotFound
		}
	}

	assert.Equal(t, "say", findEngine("darwin", has("say", "espeak")))
	assert.Equal(t, "espeak-ng", findEngine("linux", has("espeak", "espeak-ng")))
	assert.Equal(t, "espeak", findEngine("linux", has("espeak")))
	assert.Empty(t, findEngine("linux", has("say")))
}

func TestTruncateForLogKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", truncateForLog("short", 10))
	got := truncateForLog("héllo wörld ünïcode", 8)
	assert.Equal(t, "héllo...", got)
	assert.True(t, utf8.ValidString(got))
}

func TestLocalSpeakerArgs(t *testing.T) {
	s := &LocalSpeaker{log: quiet, command: "espeak", wpm: 180}
	assert.Equal(t, []string{"-s", "270", "-p", "99", "hi"}, s.args("hi", domain.Prosody{Rate: 1.5, Pitch: 2}))
	assert.Equal(t, []string{"-s", "180", "-p", "50", "hi"}, s.args("hi", domain.Prosody{}))

	s.command = "say"
	assert.Equal(t, []string{"-r", "90", "hi"}, s.args("hi", domain.Prosody{Rate: 0.5, Pitch: 2}))
}

func TestLocalSpeakerSpeakRunsEngine(t *testing.T) {
	var got []string
	s := &LocalSpeaker{log: quiet, command: "espeak", wpm: 180,
		run: func(ctx context.Context, name string, args ...string) error {
			got = append([]string{name}, args...)
			return errors.New("exit status 1")
		}}

	s.Speak(context.Background(), "  hello  ", domain.Prosody{Rate: 1, Pitch: 1})
	assert.Equal(t, []string{"espeak", "-s", "180", "-p", "50", "hello"}, got)
}

func TestLocalSpeakerUnavailableIsSilent(t *testing.T) {
	s := &LocalSpeaker{log: quiet, run: func(context.Context, string, ...string) error {
		t.Fatal("engine must not run")
		return nil
	}}
	assert.False(t, s.IsAvailable())
	s.Speak(context.Background(), "hello", domain.Prosody{})
}

func TestLocalSpeakerStopInterrupts(t *testing.T) {
	started := make(chan struct{})
	s := &LocalSpeaker{log: quiet, command: "say", wpm: 180,
		run: func(ctx context.Context, name string, args ...string) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		}}

	done := make(chan struct{})
	go func() {
		s.Speak(context.Background(), "a long sentence", domain.Prosody{})
		close(done)
	}()

	<-started
	s.Stop()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.Fail(t, "Speak did not return after Stop")
	}
}
