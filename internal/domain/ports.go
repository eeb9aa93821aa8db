package domain

import "context"

// Synthesizer turns utterances into one encoded audio payload. A batch of
// several utterances comes back as a single combined clip. The credential
// is passed per call; an empty apiKey fails with a ConfigurationError
// before any network traffic. Implementations can be the HTTP endpoint,
// the streaming channel, or a cache in front of either.
type Synthesizer interface {
	Synthesize(ctx context.Context, apiKey string, reqs []UtteranceRequest) ([]byte, error)
}

// AudioOutput plays an encoded clip. Play blocks until the clip has
// finished, Stop is called, or ctx is done. Stop is safe to call at any
// time, including when nothing is playing.
type AudioOutput interface {
	Play(ctx context.Context, audio []byte) error
	Stop()
}

// FallbackSpeaker is the offline engine used when remote synthesis fails.
// Speak never reports failure; it logs and returns.
type FallbackSpeaker interface {
	Speak(ctx context.Context, text string, p Prosody)
	Stop()
}

// SettingsStore owns the user's settings.
type SettingsStore interface {
	Settings() Settings
	UpdateSettings(fn func(*Settings)) (Settings, error)
}

// HistoryStore keeps recently spoken text, newest first.
type HistoryStore interface {
	AddHistory(text string) error
	History() []string
	DeleteHistory(index int) error
	ClearHistory() error
}

// ShortcutStore keeps saved phrases in insertion order.
type ShortcutStore interface {
	AddShortcut(text string) error
	Shortcuts() []string
	DeleteShortcut(index int) error
}

// Notifier delivers messages to the user.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	NotifyUrgent(ctx context.Context, message string) error
}

// IntentParser turns a line of user input into an intent.
type IntentParser interface {
	Parse(ctx context.Context, input string) (*Intent, error)
}
