package speech

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// flightTimeout bounds a shared synthesis call once it no longer follows
// the context of the caller that started it.
const flightTimeout = 2 * time.Minute

// Compile-time interface check.
var _ domain.Synthesizer = (*CachedSynthesizer)(nil)

// CachedSynthesizer answers repeated batches from an AudioCache and
// collapses concurrent identical requests into one remote call. Failures
// are never cached.
type CachedSynthesizer struct {
	next  domain.Synthesizer
	cache *AudioCache
	log   *logger.Logger
	group singleflight.Group

	wg sync.WaitGroup // in-flight prefetches
}

// NewCachedSynthesizer wraps next with cache.
func NewCachedSynthesizer(next domain.Synthesizer, cache *AudioCache, log *logger.Logger) *CachedSynthesizer {
	return &CachedSynthesizer{next: next, cache: cache, log: log}
}

// Synthesize returns the cached clip for reqs or synthesizes and stores it.
// A missing key is reported before the cache is consulted.
func (s *CachedSynthesizer) Synthesize(ctx context.Context, apiKey string, reqs []domain.UtteranceRequest) ([]byte, error) {
	if apiKey == "" {
		return nil, &domain.ConfigurationError{Setting: "api_key", Err: domain.ErrMissingAPIKey}
	}
	if len(reqs) == 0 {
		return nil, domain.ErrNothingToPlay
	}

	key := s.cache.Key(reqs)
	if audio, ok := s.cache.Get(key); ok {
		return audio, nil
	}

	// The flight outlives any single caller: a joiner must not fail because
	// the caller that started it was cancelled. Each caller still stops
	// waiting on its own ctx below.
	ch := s.group.DoChan(key, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()
		audio, err := s.next.Synthesize(fctx, apiKey, reqs)
		if err != nil {
			return nil, err
		}
		s.cache.Put(key, audio)
		return audio, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			s.log.Debug("synthesis shared with a concurrent request")
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Prefetch synthesizes each request in the background so a later
// Synthesize of the same single request is a cache hit. Errors are logged.
func (s *CachedSynthesizer) Prefetch(ctx context.Context, apiKey string, reqs ...domain.UtteranceRequest) {
	if apiKey == "" {
		return
	}
	for _, r := range reqs {
		batch := []domain.UtteranceRequest{r}
		if s.cache.Has(s.cache.Key(batch)) {
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if _, err := s.Synthesize(ctx, apiKey, batch); err != nil && ctx.Err() == nil {
				s.log.Debug("prefetch failed for %s: %v", batch[0], err)
			}
		}()
	}
}

// Wait blocks until in-flight prefetches finish.
func (s *CachedSynthesizer) Wait() {
	s.wg.Wait()
}
