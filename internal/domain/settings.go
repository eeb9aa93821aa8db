package domain

import "time"

// TypingMode controls when typed text is spoken without an explicit play.
type TypingMode string

const (
	TypingOff       TypingMode = "off"
	TypingWords     TypingMode = "words"
	TypingSentences TypingMode = "sentences"
	TypingLines     TypingMode = "lines"
)

// ParseTypingMode returns the mode for name and false when name is unknown.
func ParseTypingMode(name string) (TypingMode, bool) {
	switch m := TypingMode(name); m {
	case TypingOff, TypingWords, TypingSentences, TypingLines:
		return m, true
	}
	return TypingOff, false
}

// Rate and pitch bounds accepted by the settings screen.
const (
	MinRate  = 0.5
	MaxRate  = 2.0
	MinPitch = 0.5
	MaxPitch = 2.0
)

// Settings are the user's preferences. Persisted by a SettingsStore.
type Settings struct {
	Voice          Voice      `toml:"voice"`
	Rate           float64    `toml:"rate"`
	Pitch          float64    `toml:"pitch"`
	SpeakAsYouType TypingMode `toml:"speak_as_you_type"`
	DelayMillis    int        `toml:"delay_ms"`
	APIKey         string     `toml:"api_key"`
}

// DefaultSettings returns the settings of a fresh install.
func DefaultSettings() Settings {
	return Settings{
		Voice:          Voice{Name: DefaultVoiceName, Provider: ProviderHumeAI},
		Rate:           1.0,
		Pitch:          1.0,
		SpeakAsYouType: TypingLines,
		DelayMillis:    500,
	}
}

// Delay is the pause before speaking a unit completed while typing.
func (s Settings) Delay() time.Duration {
	return time.Duration(s.DelayMillis) * time.Millisecond
}

// VoiceSettings snapshots what the pipeline needs.
func (s Settings) VoiceSettings() VoiceSettings {
	return VoiceSettings{
		VoiceName:     s.Voice.Name,
		VoiceProvider: s.Voice.Provider,
		Rate:          s.Rate,
		Pitch:         s.Pitch,
		APIKey:        s.APIKey,
	}
}

// Normalize clamps numeric fields and fills blanks with defaults.
func (s *Settings) Normalize() {
	def := DefaultSettings()
	if s.Voice.Name == "" {
		s.Voice = def.Voice
	}
	if s.Voice.Provider == "" {
		s.Voice.Provider = ProviderHumeAI
	}
	s.Rate = clamp(s.Rate, MinRate, MaxRate, def.Rate)
	s.Pitch = clamp(s.Pitch, MinPitch, MaxPitch, def.Pitch)
	if _, ok := ParseTypingMode(string(s.SpeakAsYouType)); !ok {
		s.SpeakAsYouType = def.SpeakAsYouType
	}
	if s.DelayMillis < 0 {
		s.DelayMillis = 0
	}
}

// clamp bounds v to [lo, hi]; zero means unset and yields def.
func clamp(v, lo, hi, def float64) float64 {
	switch {
	case v == 0:
		return def
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
