package speech

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

type countingSynth struct {
	calls atomic.Int32
	delay time.Duration
	err   error
}

func (s *countingSynth) Synthesize(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return []byte("audio:" + reqs[0].Text), nil
}

// gatedSynth blocks until release is closed or its own ctx ends.
type gatedSynth struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (s *gatedSynth) Synthesize(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	if s.calls.Add(1) == 1 {
		close(s.started)
	}
	select {
	case <-s.release:
		return []byte("audio:" + reqs[0].Text), nil
	case <-ctx.Done():
		return nil, &domain.NetworkError{Op: "POST", Err: ctx.Err()}
	}
}

func reqs(texts ...string) []domain.UtteranceRequest {
	out := make([]domain.UtteranceRequest, 0, len(texts))
	for _, t := range texts {
		out = append(out, domain.UtteranceRequest{Text: t, VoiceName: "Ava Song", Speed: 1})
	}
	return out
}

func TestCachedSynthesizerHitsCache(t *testing.T) {
	next := &countingSynth{}
	s := NewCachedSynthesizer(next, NewAudioCache("mp3", "", false, quiet), quiet)

	for i := 0; i < 3; i++ {
		audio, err := s.Synthesize(context.Background(), "k", reqs("hello"))
		require.NoError(t, err)
		assert.Equal(t, "audio:hello", string(audio))
	}
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachedSynthesizerKeyCoversStyle(t *testing.T) {
	next := &countingSynth{}
	s := NewCachedSynthesizer(next, NewAudioCache("mp3", "", false, quiet), quiet)

	a := reqs("hello")
	b := reqs("hello")
	b[0].Description = "sad"
	_, _ = s.Synthesize(context.Background(), "k", a)
	_, _ = s.Synthesize(context.Background(), "k", b)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedSynthesizerDoesNotCacheErrors(t *testing.T) {
	next := &countingSynth{err: &domain.NetworkError{Op: "post", Err: errors.New("down")}}
	s := NewCachedSynthesizer(next, NewAudioCache("mp3", "", false, quiet), quiet)

	for i := 0; i < 2; i++ {
		_, err := s.Synthesize(context.Background(), "k", reqs("hello"))
		assert.True(t, domain.IsSegmentFailure(err))
	}
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedSynthesizerCollapsesConcurrentCalls(t *testing.T) {
	next := &countingSynth{delay: 50 * time.Millisecond}
	s := NewCachedSynthesizer(next, NewAudioCache("mp3", "", false, quiet), quiet)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Synthesize(context.Background(), "k", reqs("same"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), next.calls.Load())
}

func TestCachedSynthesizerMissingKey(t *testing.T) {
	next := &countingSynth{}
	s := NewCachedSynthesizer(next, NewAudioCache("mp3", "", false, quiet), quiet)

	_, err := s.Synthesize(context.Background(), "", reqs("hello"))
	assert.ErrorIs(t, err, domain.ErrMissingAPIKey)
	assert.Zero(t, next.calls.Load())
}

func TestPrefetchWarmsCache(t *testing.T) {
	next := &countingSynth{}
	cache := NewAudioCache("mp3", "", false, quiet)
	s := NewCachedSynthesizer(next, cache, quiet)

	s.Prefetch(context.Background(), "k", reqs("one", "two")...)
	s.Wait()
	assert.Equal(t, int32(2), next.calls.Load())

	audio, err := s.Synthesize(context.Background(), "k", reqs("two"))
	require.NoError(t, err)
	assert.Equal(t, "audio:two", string(audio))
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestAudioCacheDiskLayer(t *testing.T) {
	dir := t.TempDir()
	writer := NewAudioCache("mp3", dir, true, quiet)
	key := writer.Key(reqs("persist me"))
	writer.Put(key, []byte("clip"))

	reader := NewAudioCache("mp3", dir, false, quiet)
	assert.True(t, reader.Has(key))
	data, ok := reader.Get(key)
	require.True(t, ok)
	assert.Equal(t, "clip", string(data))
	assert.Equal(t, 1, reader.Len())

	hits, misses := reader.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Zero(t, misses)

	reader.Clear()
	assert.Zero(t, reader.Len())
}

func TestAudioCacheKeyIncludesFormat(t *testing.T) {
	mp3 := NewAudioCache("mp3", "", false, quiet)
	wav := NewAudioCache("wav", "", false, quiet)
	assert.NotEqual(t, mp3.Key(reqs("x")), wav.Key(reqs("x")))
	assert.Equal(t, mp3.Key(reqs("x")), mp3.Key(reqs("x")))
}

func TestCachedSynthesizerJoinerSurvivesStarterCancel(t *testing.T) {
	next := &gatedSynth{started: make(chan struct{}), release: make(chan struct{})}
	s := NewCachedSynthesizer(next, NewAudioCache("mp3", "", false, quiet), quiet)

	ctx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Synthesize(ctx, "k", reqs("shared"))
		firstErr <- err
	}()
	<-next.started

	type result struct {
		audio []byte
		err   error
	}
	second := make(chan result, 1)
	go func() {
		audio, err := s.Synthesize(context.Background(), "k", reqs("shared"))
		second <- result{audio, err}
	}()
	time.Sleep(20 * time.Millisecond) // let the second caller join the flight

	cancel()
	select {
	case err := <-firstErr:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		require.FailNow(t, "cancelled caller did not return")
	}

	close(next.release)
	select {
	case res := <-second:
		require.NoError(t, res.err)
		assert.Equal(t, "audio:shared", string(res.audio))
	case <-time.After(2 * time.Second):
		require.FailNow(t, "joined caller never got audio")
	}
	assert.Equal(t, int32(1), next.calls.Load())
}
