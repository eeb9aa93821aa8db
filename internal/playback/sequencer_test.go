package playback

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

var quiet = logger.New(logger.LevelOff, nil)

// fakeSynth returns the request text as audio and fails for texts in fail.
type fakeSynth struct {
	calls    atomic.Int32
	fail     map[string]bool
	mu       sync.Mutex
	speeds   []float64
	prefetch []string
}

func (f *fakeSynth) Synthesize(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.speeds = append(f.speeds, reqs[0].Speed)
	f.mu.Unlock()
	if f.fail[reqs[0].Text] {
		return nil, &domain.NetworkError{Op: "post", Err: errors.New("connection refused")}
	}
	return []byte(reqs[0].Text), nil
}

type prefetchingSynth struct{ *fakeSynth }

func (p prefetchingSynth) Prefetch(ctx context.Context, apiKey string, reqs ...domain.UtteranceRequest) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range reqs {
		p.prefetch = append(p.prefetch, r.Text)
	}
}

// fakeOutput records clips. A clip with a gate blocks once until the gate
// closes or ctx is done.
type fakeOutput struct {
	mu        sync.Mutex
	started   []string
	completed []string
	gates     map[string]chan struct{}
	startedCh chan string
}

func newFakeOutput() *fakeOutput {
	return &fakeOutput{gates: map[string]chan struct{}{}, startedCh: make(chan string, 32)}
}

func (o *fakeOutput) gate(name string) chan struct{} {
	ch := make(chan struct{})
	o.mu.Lock()
	o.gates[name] = ch
	o.mu.Unlock()
	return ch
}

func (o *fakeOutput) Play(ctx context.Context, audio []byte) error {
	name := string(audio)
	o.mu.Lock()
	o.started = append(o.started, name)
	gate := o.gates[name]
	delete(o.gates, name)
	o.mu.Unlock()
	o.startedCh <- name

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	o.mu.Lock()
	o.completed = append(o.completed, name)
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) Stop() {}

func (o *fakeOutput) completedClips() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.completed...)
}

func (o *fakeOutput) waitStarted(t *testing.T, name string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-o.startedCh:
			if got == name {
				return
			}
		case <-timeout:
			require.FailNow(t, "clip never started", name)
		}
	}
}

type fakeFallback struct {
	mu     sync.Mutex
	spoken []string
}

func (f *fakeFallback) Speak(ctx context.Context, text string, p domain.Prosody) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.spoken = append(f.spoken, text)
}

func (f *fakeFallback) Stop() {}

func (f *fakeFallback) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.spoken...)
}

// recorder collects events.
type recorder struct {
	mu     sync.Mutex
	events []domain.PlaybackEvent
}

func (r *recorder) observe(ev domain.PlaybackEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) of(t domain.PlaybackEventType) []domain.PlaybackEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.PlaybackEvent
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func segs(texts ...string) []domain.Segment {
	out := make([]domain.Segment, 0, len(texts))
	for _, t := range texts {
		out = append(out, domain.Segment{Emotion: domain.EmotionNeutral, Text: t})
	}
	return out
}

var settings = domain.VoiceSettings{VoiceName: "Ava Song", VoiceProvider: domain.ProviderHumeAI, Rate: 1, Pitch: 1, APIKey: "k"}

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "sequence did not finish")
	}
}

func TestPlaySpeaksSegmentsInOrder(t *testing.T) {
	synth, out, fb, rec := &fakeSynth{}, newFakeOutput(), &fakeFallback{}, &recorder{}
	s := New(synth, out, fb, quiet, WithObserver(rec.observe))

	done, err := s.Play(context.Background(), segs("a", "b", "c"), settings)
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, []string{"a", "b", "c"}, out.completedClips())
	assert.Empty(t, fb.texts())
	assert.Equal(t, domain.StateIdle, s.Status().State)
	assert.Len(t, rec.of(domain.EventSegmentStarted), 3)
	assert.Len(t, rec.of(domain.EventSequenceFinished), 1)
}

func TestSegmentFailureFallsBackAndContinues(t *testing.T) {
	synth := &fakeSynth{fail: map[string]bool{"b": true}}
	out, fb, rec := newFakeOutput(), &fakeFallback{}, &recorder{}
	s := New(synth, out, fb, quiet, WithObserver(rec.observe))

	done, err := s.Play(context.Background(), segs("a", "b", "c"), settings)
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, []string{"a", "c"}, out.completedClips())
	assert.Equal(t, []string{"b"}, fb.texts())

	finished := rec.of(domain.EventSegmentFinished)
	require.Len(t, finished, 3)
	assert.Equal(t, domain.SourceRemote, finished[0].Source)
	assert.Equal(t, domain.SourceFallback, finished[1].Source)
	assert.True(t, domain.IsSegmentFailure(finished[1].Err))
	assert.Equal(t, domain.SourceRemote, finished[2].Source)
	assert.Equal(t, domain.StateIdle, s.Status().State)
}

func TestPlayWithoutKeyMakesNoCalls(t *testing.T) {
	synth, out, fb := &fakeSynth{}, newFakeOutput(), &fakeFallback{}
	s := New(synth, out, fb, quiet)

	noKey := settings
	noKey.APIKey = ""
	_, err := s.Play(context.Background(), segs("a"), noKey)

	var cfg *domain.ConfigurationError
	require.ErrorAs(t, err, &cfg)
	assert.Zero(t, synth.calls.Load())
	assert.Empty(t, fb.texts())
	assert.Equal(t, domain.StateIdle, s.Status().State)
}

func TestPlayNothing(t *testing.T) {
	s := New(&fakeSynth{}, newFakeOutput(), &fakeFallback{}, quiet)
	_, err := s.Play(context.Background(), nil, settings)
	assert.ErrorIs(t, err, domain.ErrNothingToPlay)
}

func TestStopThenFreshPlay(t *testing.T) {
	synth, out, fb, rec := &fakeSynth{}, newFakeOutput(), &fakeFallback{}, &recorder{}
	s := New(synth, out, fb, quiet, WithObserver(rec.observe))
	out.gate("first")

	_, err := s.Play(context.Background(), segs("first", "second"), settings)
	require.NoError(t, err)
	out.waitStarted(t, "first")

	start := time.Now()
	s.Stop()
	assert.Less(t, time.Since(start), 200*time.Millisecond)

	st := s.Status()
	assert.Equal(t, domain.StateIdle, st.State)
	assert.Zero(t, st.Cursor)
	assert.Len(t, rec.of(domain.EventSequenceStopped), 1)

	done, err := s.Play(context.Background(), segs("fresh"), settings)
	require.NoError(t, err)
	waitDone(t, done)
	assert.Equal(t, []string{"fresh"}, out.completedClips())

	s.Stop()
	s.Stop()
	assert.Len(t, rec.of(domain.EventSequenceStopped), 1, "stopping while idle emits nothing")
}

func TestPauseResumeDoesNotRespeakFinishedSegments(t *testing.T) {
	synth, out, fb := &fakeSynth{}, newFakeOutput(), &fakeFallback{}
	s := New(synth, out, fb, quiet)
	out.gate("b")

	_, err := s.Play(context.Background(), segs("a", "b", "c"), settings)
	require.NoError(t, err)
	out.waitStarted(t, "b")

	require.NoError(t, s.Pause())
	st := s.Status()
	assert.Equal(t, domain.StatePaused, st.State)
	assert.Equal(t, 1, st.Cursor)
	assert.Equal(t, 3, st.Total)

	assert.ErrorIs(t, s.Pause(), domain.ErrNotSpeaking)

	done, err := s.Resume(context.Background())
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, []string{"a", "b", "c"}, out.completedClips())
	assert.Equal(t, domain.StateIdle, s.Status().State)
}

func TestResumeRequiresPause(t *testing.T) {
	s := New(&fakeSynth{}, newFakeOutput(), &fakeFallback{}, quiet)
	_, err := s.Resume(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotPaused)
	assert.ErrorIs(t, s.Pause(), domain.ErrNotSpeaking)
}

func TestStopWhilePausedResetsCursor(t *testing.T) {
	out := newFakeOutput()
	s := New(&fakeSynth{}, out, &fakeFallback{}, quiet)
	out.gate("b")

	_, err := s.Play(context.Background(), segs("a", "b"), settings)
	require.NoError(t, err)
	out.waitStarted(t, "b")
	require.NoError(t, s.Pause())

	s.Stop()
	st := s.Status()
	assert.Equal(t, domain.StateIdle, st.State)
	assert.Zero(t, st.Cursor)
	_, err = s.Resume(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotPaused)
}

func TestPlayReplacesActiveRun(t *testing.T) {
	out := newFakeOutput()
	s := New(&fakeSynth{}, out, &fakeFallback{}, quiet)
	out.gate("old-1")

	_, err := s.Play(context.Background(), segs("old-1", "old-2"), settings)
	require.NoError(t, err)
	out.waitStarted(t, "old-1")

	done, err := s.Play(context.Background(), segs("new-1", "new-2"), settings)
	require.NoError(t, err)
	waitDone(t, done)

	assert.Equal(t, []string{"new-1", "new-2"}, out.completedClips())
}

func TestCancelledContextEndsRun(t *testing.T) {
	out := newFakeOutput()
	s := New(&fakeSynth{}, out, &fakeFallback{}, quiet)
	out.gate("a")

	ctx, cancel := context.WithCancel(context.Background())
	done, err := s.Play(ctx, segs("a", "b"), settings)
	require.NoError(t, err)
	out.waitStarted(t, "a")

	cancel()
	waitDone(t, done)
	assert.Equal(t, domain.StateIdle, s.Status().State)
	assert.Empty(t, out.completedClips())
}

func TestSpeedCombinesRateAndEmotion(t *testing.T) {
	synth := &fakeSynth{}
	s := New(synth, newFakeOutput(), &fakeFallback{}, quiet)

	fast := settings
	fast.Rate = 1.2
	done, err := s.Play(context.Background(), []domain.Segment{{Emotion: domain.EmotionSad, Text: "slow"}}, fast)
	require.NoError(t, err)
	waitDone(t, done)

	require.Len(t, synth.speeds, 1)
	assert.InDelta(t, 1.02, synth.speeds[0], 1e-9)
}

func TestPrefetchesNextSegment(t *testing.T) {
	synth := prefetchingSynth{&fakeSynth{}}
	s := New(synth, newFakeOutput(), &fakeFallback{}, quiet)

	done, err := s.Play(context.Background(), segs("a", "b", "c"), settings)
	require.NoError(t, err)
	waitDone(t, done)

	synth.mu.Lock()
	defer synth.mu.Unlock()
	assert.Equal(t, []string{"b", "c"}, synth.prefetch)
}
