// Package engine ties the typed text, the user's settings, and the
// playback sequencer together. It depends only on interfaces and is fully
// testable with fakes.
package engine

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/emotion"
	"github.com/hammamikhairi/moodspeak/internal/logger"
	"github.com/hammamikhairi/moodspeak/internal/typing"
	"github.com/hammamikhairi/moodspeak/internal/utterance"
)

// Sequencer is the playback surface the engine drives.
type Sequencer interface {
	Play(ctx context.Context, segs []domain.Segment, settings domain.VoiceSettings) (<-chan struct{}, error)
	Pause() error
	Resume(ctx context.Context) (<-chan struct{}, error)
	Stop()
	Status() domain.PlaybackStatus
}

// Prefetcher is implemented by synthesizers that can warm a cache.
type Prefetcher interface {
	Prefetch(ctx context.Context, apiKey string, reqs ...domain.UtteranceRequest)
}

// Store is everything the engine persists.
type Store interface {
	domain.SettingsStore
	domain.HistoryStore
	domain.ShortcutStore
}

// Option configures the engine.
type Option func(*Engine)

// WithNotifier reports failures of speech started in the background, such
// as speak-as-you-type.
func WithNotifier(n domain.Notifier) Option {
	return func(e *Engine) {
		e.notifier = n
	}
}

// WithEnvAPIKey supplies a key used when the stored settings have none.
// It is never written to the store.
func WithEnvAPIKey(key string) Option {
	return func(e *Engine) {
		e.envKey = strings.TrimSpace(key)
	}
}

// Engine owns the text buffer and turns user actions into playback.
type Engine struct {
	seq      Sequencer
	synth    domain.Synthesizer
	store    Store
	tracker  *typing.Tracker
	notifier domain.Notifier
	log      *logger.Logger
	envKey   string

	mu       sync.Mutex
	lines    []string
	typedEmo domain.EmotionTag // emotion carried across typed units
	pending  []domain.Segment  // typed units waiting for the delay
	pendText []string
	timer    *time.Timer
}

// New creates an engine. synth is used for batch rendering and cache
// warming; playback goes through seq.
func New(seq Sequencer, synth domain.Synthesizer, store Store, log *logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		seq:      seq,
		synth:    synth,
		store:    store,
		tracker:  typing.NewTracker(store.Settings().SpeakAsYouType),
		log:      log,
		typedEmo: domain.EmotionNeutral,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// voiceSettings snapshots the settings for one playback.
func (e *Engine) voiceSettings() domain.VoiceSettings {
	vs := e.store.Settings().VoiceSettings()
	if vs.APIKey == "" {
		vs.APIKey = e.envKey
	}
	return vs
}

// HasAPIKey reports whether remote synthesis is possible.
func (e *Engine) HasAPIKey() bool {
	return e.voiceSettings().APIKey != ""
}

// ── text buffer ──────────────────────────────────────────────────

// Buffer returns everything typed since the last Clear.
func (e *Engine) Buffer() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.bufferLocked()
}

func (e *Engine) bufferLocked() string {
	if len(e.lines) == 0 {
		return ""
	}
	return strings.Join(e.lines, "\n") + "\n"
}

// Append adds a typed line. Units the speak-as-you-type mode considers
// complete are spoken after the configured delay; more typing within the
// delay joins the same playback. A missing API key is reported as soon as
// something would be spoken.
func (e *Engine) Append(ctx context.Context, line string) error {
	settings := e.store.Settings()

	e.mu.Lock()
	e.lines = append(e.lines, line)
	units := e.tracker.Feed(e.bufferLocked())

	var segs []domain.Segment
	for _, u := range units {
		var s []domain.Segment
		s, e.typedEmo = emotion.ParseFrom(u, e.typedEmo)
		segs = append(segs, s...)
	}
	if len(segs) == 0 {
		e.mu.Unlock()
		return nil
	}
	if err := e.voiceSettings().Validate(); err != nil {
		e.mu.Unlock()
		return err
	}

	e.pending = append(e.pending, segs...)
	e.pendText = append(e.pendText, units...)
	delay := settings.Delay()
	if delay <= 0 {
		segs, text := e.takePendingLocked()
		e.mu.Unlock()
		return e.speak(ctx, segs, text)
	}
	if e.timer == nil {
		e.timer = time.AfterFunc(delay, func() { e.flushTyped(ctx) })
	} else {
		e.timer.Reset(delay)
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) takePendingLocked() ([]domain.Segment, string) {
	segs, text := e.pending, strings.Join(e.pendText, " ")
	e.pending, e.pendText = nil, nil
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	return segs, text
}

func (e *Engine) flushTyped(ctx context.Context) {
	e.mu.Lock()
	segs, text := e.takePendingLocked()
	e.mu.Unlock()
	if len(segs) == 0 || ctx.Err() != nil {
		return
	}
	if err := e.speak(ctx, segs, text); err != nil {
		e.log.Warn("speak-as-you-type: %v", err)
		if e.notifier != nil {
			_ = e.notifier.NotifyUrgent(ctx, err.Error())
		}
	}
}

// cancelPending drops typed units that have not started speaking.
func (e *Engine) cancelPending() {
	e.mu.Lock()
	e.takePendingLocked()
	e.mu.Unlock()
}

// ── playback ─────────────────────────────────────────────────────

// speak starts a playback session and records text in the history.
func (e *Engine) speak(ctx context.Context, segs []domain.Segment, text string) error {
	if _, err := e.seq.Play(ctx, segs, e.voiceSettings()); err != nil {
		return err
	}
	if err := e.store.AddHistory(text); err != nil {
		e.log.Warn("history: %v", err)
	}
	return nil
}

// speakText parses text from neutral and speaks it.
func (e *Engine) speakText(ctx context.Context, text string) error {
	segs := emotion.Parse(text)
	if len(segs) == 0 {
		return domain.ErrEmptyText
	}
	e.cancelPending()
	return e.speak(ctx, segs, strings.TrimSpace(text))
}

// PlayAll speaks the whole buffer from the start, or resumes when paused.
func (e *Engine) PlayAll(ctx context.Context) error {
	if e.seq.Status().State == domain.StatePaused {
		_, err := e.seq.Resume(ctx)
		return err
	}
	return e.speakText(ctx, e.Buffer())
}

// Pause pauses playback.
func (e *Engine) Pause() error {
	return e.seq.Pause()
}

// Resume continues paused playback.
func (e *Engine) Resume(ctx context.Context) error {
	_, err := e.seq.Resume(ctx)
	return err
}

// Stop stops playback and drops typed units that have not started.
func (e *Engine) Stop() {
	e.cancelPending()
	e.seq.Stop()
}

// Clear stops playback and forgets the buffer and the carried emotion.
func (e *Engine) Clear() {
	e.Stop()
	e.mu.Lock()
	e.lines = nil
	e.typedEmo = domain.EmotionNeutral
	e.tracker.Reset()
	e.mu.Unlock()
}

// ── history & shortcuts ──────────────────────────────────────────

// History returns recently spoken text, newest first.
func (e *Engine) History() []string {
	return e.store.History()
}

// SpeakHistory speaks history entry index.
func (e *Engine) SpeakHistory(ctx context.Context, index int) error {
	h := e.store.History()
	if index < 0 || index >= len(h) {
		return fmt.Errorf("history entry %d: %w", index+1, domain.ErrNotFound)
	}
	return e.speakText(ctx, h[index])
}

// ForgetHistory deletes entry index, or everything when index is negative.
func (e *Engine) ForgetHistory(index int) error {
	if index < 0 {
		return e.store.ClearHistory()
	}
	if err := e.store.DeleteHistory(index); err != nil {
		return fmt.Errorf("history entry %d: %w", index+1, err)
	}
	return nil
}

// Shortcuts returns the saved phrases.
func (e *Engine) Shortcuts() []string {
	return e.store.Shortcuts()
}

// SpeakShortcut speaks phrase index.
func (e *Engine) SpeakShortcut(ctx context.Context, index int) error {
	s := e.store.Shortcuts()
	if index < 0 || index >= len(s) {
		return fmt.Errorf("shortcut %d: %w", index+1, domain.ErrNotFound)
	}
	return e.speakText(ctx, s[index])
}

// AddShortcut saves text, or the whole buffer when text is blank, and
// warms the cache for it. Returns the saved phrase.
func (e *Engine) AddShortcut(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = strings.TrimSpace(strings.ReplaceAll(e.Buffer(), "\n", " "))
	}
	if text == "" {
		return "", domain.ErrEmptyText
	}
	if err := e.store.AddShortcut(text); err != nil {
		return "", fmt.Errorf("save shortcut: %w", err)
	}
	e.prefetch(ctx, text)
	return text, nil
}

// DeleteShortcut removes phrase index.
func (e *Engine) DeleteShortcut(index int) error {
	if err := e.store.DeleteShortcut(index); err != nil {
		return fmt.Errorf("shortcut %d: %w", index+1, err)
	}
	return nil
}

// PrefetchShortcuts warms the cache for every saved phrase. It does
// nothing without an API key or a caching synthesizer.
func (e *Engine) PrefetchShortcuts(ctx context.Context) {
	e.prefetch(ctx, e.store.Shortcuts()...)
}

func (e *Engine) prefetch(ctx context.Context, texts ...string) {
	p, ok := e.synth.(Prefetcher)
	vs := e.voiceSettings()
	if !ok || vs.APIKey == "" {
		return
	}
	var reqs []domain.UtteranceRequest
	for _, t := range texts {
		reqs = append(reqs, utterance.BuildAll(emotion.Parse(t), vs)...)
	}
	e.log.Debug("prefetching %d request(s)", len(reqs))
	p.Prefetch(ctx, vs.APIKey, reqs...)
}

// ── settings ─────────────────────────────────────────────────────

// Settings returns the current settings.
func (e *Engine) Settings() domain.Settings {
	return e.store.Settings()
}

// SetVoice selects a voice by name. Custom voices live in the user's own
// account.
func (e *Engine) SetVoice(name string, custom bool) (domain.Settings, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Settings{}, fmt.Errorf("voice name: %w", domain.ErrEmptyText)
	}
	provider := domain.ProviderHumeAI
	if custom {
		provider = domain.ProviderCustom
	}
	return e.store.UpdateSettings(func(s *domain.Settings) {
		s.Voice = domain.Voice{Name: name, Provider: provider}
	})
}

// SetRate sets the speaking rate; values are clamped to the allowed range.
func (e *Engine) SetRate(rate float64) (domain.Settings, error) {
	if rate <= 0 {
		return domain.Settings{}, fmt.Errorf("rate must be positive, got %g", rate)
	}
	return e.store.UpdateSettings(func(s *domain.Settings) { s.Rate = rate })
}

// SetPitch sets the pitch used by the offline voice.
func (e *Engine) SetPitch(pitch float64) (domain.Settings, error) {
	if pitch <= 0 {
		return domain.Settings{}, fmt.Errorf("pitch must be positive, got %g", pitch)
	}
	return e.store.UpdateSettings(func(s *domain.Settings) { s.Pitch = pitch })
}

// SetMode changes when typed text is spoken.
func (e *Engine) SetMode(name string) (domain.Settings, error) {
	mode, ok := domain.ParseTypingMode(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return domain.Settings{}, fmt.Errorf("unknown mode %q (want off, words, sentences or lines)", name)
	}
	s, err := e.store.UpdateSettings(func(s *domain.Settings) { s.SpeakAsYouType = mode })
	if err != nil {
		return s, err
	}
	e.tracker.SetMode(mode)
	if mode == domain.TypingOff {
		e.cancelPending()
	}
	return s, nil
}

// SetAPIKey stores the key. An empty key falls back to the environment.
func (e *Engine) SetAPIKey(key string) error {
	_, err := e.store.UpdateSettings(func(s *domain.Settings) { s.APIKey = strings.TrimSpace(key) })
	return err
}

// ── batch render & status ────────────────────────────────────────

// Render synthesizes text in one batch request and writes the combined
// clip to w. Returns the number of bytes written.
func (e *Engine) Render(ctx context.Context, text string, w io.Writer) (int, error) {
	segs := emotion.Parse(text)
	if len(segs) == 0 {
		return 0, domain.ErrEmptyText
	}
	vs := e.voiceSettings()
	if err := vs.Validate(); err != nil {
		return 0, err
	}

	reqs := utterance.BuildAll(segs, vs)
	e.log.Info("rendering %d segment(s) in one request", len(reqs))
	audio, err := e.synth.Synthesize(ctx, vs.APIKey, reqs)
	if err != nil {
		return 0, fmt.Errorf("render: %w", err)
	}
	n, err := w.Write(audio)
	if err != nil {
		return n, fmt.Errorf("render: write audio: %w", err)
	}
	return n, nil
}

// Status is a snapshot for the UI.
type Status struct {
	Playback domain.PlaybackStatus
	Emotion  domain.EmotionTag // carried into the next typed line
	Settings domain.Settings
	HasKey   bool
	Lines    int
}

// Status returns the current snapshot.
func (e *Engine) Status() Status {
	e.mu.Lock()
	emo, lines := e.typedEmo, len(e.lines)
	e.mu.Unlock()
	return Status{
		Playback: e.seq.Status(),
		Emotion:  emo,
		Settings: e.store.Settings(),
		HasKey:   e.HasAPIKey(),
		Lines:    lines,
	}
}
