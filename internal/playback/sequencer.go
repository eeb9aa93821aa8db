// Package playback speaks a list of emotion-tagged segments one after
// another, with pause, resume, and stop.
package playback

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
	"github.com/hammamikhairi/moodspeak/internal/utterance"
)

// Prefetcher is implemented by synthesizers that can warm a cache for
// requests that will be needed soon.
type Prefetcher interface {
	Prefetch(ctx context.Context, apiKey string, reqs ...domain.UtteranceRequest)
}

// Observer receives playback events. It is called from the sequencer's
// goroutines and must not call back into the Sequencer.
type Observer func(domain.PlaybackEvent)

// Option configures the Sequencer.
type Option func(*Sequencer)

// WithObserver registers fn for playback events.
func WithObserver(fn Observer) Option {
	return func(s *Sequencer) {
		s.observer = fn
	}
}

// WithPrefetch toggles synthesizing the next segment while the current
// one plays. On by default; it only has effect when the synthesizer is a
// Prefetcher.
func WithPrefetch(enabled bool) Option {
	return func(s *Sequencer) {
		s.prefetch = enabled
	}
}

// Sequencer plays segments in order: build the request, synthesize,
// play, and only then advance. A segment whose synthesis or playback fails
// is spoken by the fallback engine instead and the sequence continues.
//
// At most one run is active. Control calls are serialized; the run
// goroutine checks that it is still the current run before touching the
// cursor, so a cancelled run can never advance a newer one.
type Sequencer struct {
	synth    domain.Synthesizer
	output   domain.AudioOutput
	fallback domain.FallbackSpeaker
	log      *logger.Logger
	observer Observer
	prefetch bool

	ctl sync.Mutex // serializes Play, Pause, Resume, Stop

	mu       sync.Mutex // guards the fields below
	state    domain.PlaybackState
	segs     []domain.Segment
	settings domain.VoiceSettings
	cursor   int
	run      *run
	lastID   string
}

// run is one goroutine speaking from the cursor onward.
type run struct {
	id     string
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an idle sequencer.
func New(synth domain.Synthesizer, output domain.AudioOutput, fallback domain.FallbackSpeaker, log *logger.Logger, opts ...Option) *Sequencer {
	s := &Sequencer{
		synth:    synth,
		output:   output,
		fallback: fallback,
		log:      log,
		prefetch: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Play replaces whatever is playing with segs and starts from the first
// segment. The returned channel closes when the run ends, whether it
// finished, was paused, or was stopped. A missing API key fails with a
// ConfigurationError before anything is synthesized.
func (s *Sequencer) Play(ctx context.Context, segs []domain.Segment, settings domain.VoiceSettings) (<-chan struct{}, error) {
	if len(segs) == 0 {
		return nil, domain.ErrNothingToPlay
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.halt()

	s.mu.Lock()
	s.segs = append([]domain.Segment(nil), segs...)
	s.settings = settings
	s.cursor = 0
	done := s.startLocked(ctx)
	s.mu.Unlock()

	s.log.Debug("sequencer: playing %d segment(s)", len(segs))
	return done, nil
}

// Pause interrupts the current segment and keeps the cursor. Resume
// speaks the interrupted segment again from its start.
func (s *Sequencer) Pause() error {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	if s.state != domain.StateSpeaking {
		s.mu.Unlock()
		return domain.ErrNotSpeaking
	}
	r := s.run
	s.run = nil
	s.state = domain.StatePaused
	ev := s.eventLocked(domain.EventSequencePaused, r)
	s.mu.Unlock()

	s.interrupt(r)
	s.log.Debug("sequencer: paused at %d/%d", ev.Index, ev.Total)
	s.emit(ev)
	return nil
}

// Resume continues a paused sequence from the cursor.
func (s *Sequencer) Resume(ctx context.Context) (<-chan struct{}, error) {
	s.ctl.Lock()
	defer s.ctl.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != domain.StatePaused {
		return nil, domain.ErrNotPaused
	}
	s.log.Debug("sequencer: resuming at %d/%d", s.cursor, len(s.segs))
	return s.startLocked(ctx), nil
}

// Stop halts playback, discards the segments, and resets the cursor. The
// state is Idle as soon as Stop returns and the run goroutine has exited.
// Safe to call at any time.
func (s *Sequencer) Stop() {
	s.ctl.Lock()
	defer s.ctl.Unlock()
	s.halt()
}

// halt stops any run and resets to Idle. Must be called with ctl held.
func (s *Sequencer) halt() {
	s.mu.Lock()
	r := s.run
	active := s.state != domain.StateIdle
	ev := s.eventLocked(domain.EventSequenceStopped, r)
	s.run = nil
	s.state = domain.StateIdle
	s.segs = nil
	s.cursor = 0
	s.mu.Unlock()

	s.interrupt(r)
	if active {
		s.log.Debug("sequencer: stopped")
		s.emit(ev)
	}
}

// interrupt cancels r and silences both outputs, then waits for r's
// goroutine to exit.
func (s *Sequencer) interrupt(r *run) {
	if r == nil {
		return
	}
	r.cancel()
	s.output.Stop()
	s.fallback.Stop()
	<-r.done
}

// Status returns a snapshot of the sequencer.
func (s *Sequencer) Status() domain.PlaybackStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.PlaybackStatus{
		State:  s.state,
		Cursor: s.cursor,
		Total:  len(s.segs),
		RunID:  s.lastID,
	}
}

// Wait blocks until the current run ends or ctx is done. It returns
// immediately when nothing is running.
func (s *Sequencer) Wait(ctx context.Context) error {
	s.mu.Lock()
	r := s.run
	s.mu.Unlock()
	if r == nil {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// startLocked launches a run from the cursor. Must be called with mu held.
func (s *Sequencer) startLocked(ctx context.Context) <-chan struct{} {
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{
		id:     uuid.NewString()[:8],
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.run = r
	s.lastID = r.id
	s.state = domain.StateSpeaking
	go s.loop(runCtx, r)
	return r.done
}

func (s *Sequencer) loop(ctx context.Context, r *run) {
	defer close(r.done)
	defer r.cancel()

	for {
		s.mu.Lock()
		if s.run != r {
			s.mu.Unlock()
			return
		}
		i, total := s.cursor, len(s.segs)
		if i >= total {
			ev := s.eventLocked(domain.EventSequenceFinished, r)
			s.run = nil
			s.state = domain.StateIdle
			s.segs = nil
			s.cursor = 0
			s.mu.Unlock()
			s.log.Debug("sequencer %s: finished %d segment(s)", r.id, total)
			s.emit(ev)
			return
		}
		seg, settings := s.segs[i], s.settings
		var next *domain.Segment
		if i+1 < total {
			n := s.segs[i+1]
			next = &n
		}
		s.mu.Unlock()

		s.emit(domain.PlaybackEvent{
			Type: domain.EventSegmentStarted, RunID: r.id,
			Index: i, Total: total, Segment: seg,
		})
		if next != nil {
			s.prefetchNext(ctx, *next, settings)
		}

		source, err := s.speak(ctx, i, seg, settings)
		if ctx.Err() != nil {
			s.abandon(r)
			return
		}

		s.mu.Lock()
		if s.run != r {
			s.mu.Unlock()
			return
		}
		s.cursor = i + 1
		s.mu.Unlock()

		s.emit(domain.PlaybackEvent{
			Type: domain.EventSegmentFinished, RunID: r.id,
			Index: i, Total: total, Segment: seg, Source: source, Err: err,
		})
	}
}

// speak plays one segment remotely, or through the fallback engine when
// that fails. The returned error is the remote failure, if any.
func (s *Sequencer) speak(ctx context.Context, index int, seg domain.Segment, settings domain.VoiceSettings) (domain.SegmentSource, error) {
	req := utterance.Build(seg, settings)

	audio, err := s.synth.Synthesize(ctx, settings.APIKey, []domain.UtteranceRequest{req})
	if err == nil {
		err = s.output.Play(ctx, audio)
		if err == nil {
			return domain.SourceRemote, nil
		}
	}
	if ctx.Err() != nil {
		return domain.SourceRemote, ctx.Err()
	}

	if domain.IsSegmentFailure(err) {
		s.log.Warn("segment %d: %v, using offline voice", index+1, err)
	} else {
		s.log.Error("segment %d: unexpected error: %v, using offline voice", index+1, err)
	}
	s.fallback.Speak(ctx, seg.Text, settings.Prosody())
	return domain.SourceFallback, err
}

// abandon resets to Idle when r ended because its parent context was
// cancelled rather than through Pause or Stop.
func (s *Sequencer) abandon(r *run) {
	s.mu.Lock()
	if s.run != r {
		s.mu.Unlock()
		return
	}
	ev := s.eventLocked(domain.EventSequenceStopped, r)
	s.run = nil
	s.state = domain.StateIdle
	s.segs = nil
	s.cursor = 0
	s.mu.Unlock()
	s.log.Debug("sequencer %s: context done, stopping", r.id)
	s.emit(ev)
}

func (s *Sequencer) prefetchNext(ctx context.Context, seg domain.Segment, settings domain.VoiceSettings) {
	if !s.prefetch {
		return
	}
	p, ok := s.synth.(Prefetcher)
	if !ok {
		return
	}
	p.Prefetch(ctx, settings.APIKey, utterance.Build(seg, settings))
}

// eventLocked fills the run-level fields of an event. Must be called with
// mu held.
func (s *Sequencer) eventLocked(t domain.PlaybackEventType, r *run) domain.PlaybackEvent {
	ev := domain.PlaybackEvent{Type: t, Index: s.cursor, Total: len(s.segs)}
	if r != nil {
		ev.RunID = r.id
	}
	return ev
}

func (s *Sequencer) emit(ev domain.PlaybackEvent) {
	if s.observer != nil {
		s.observer(ev)
	}
}
