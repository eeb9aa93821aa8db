package domain

import "fmt"

// VoiceProvider tells the endpoint where a voice lives.
type VoiceProvider string

const (
	// ProviderHumeAI is the vendor-hosted voice catalog.
	ProviderHumeAI VoiceProvider = "HUME_AI"
	// ProviderCustom is a voice created in the user's own account.
	ProviderCustom VoiceProvider = "CUSTOM_VOICE"
)

// DefaultVoiceName is used when the user has not picked a voice.
const DefaultVoiceName = "Ava Song"

// Voice identifies a synthesis voice.
type Voice struct {
	ID       string        `toml:"id"`
	Name     string        `toml:"name"`
	Provider VoiceProvider `toml:"provider"`
}

func (v Voice) String() string {
	if v.Provider == ProviderCustom {
		return v.Name + " (custom)"
	}
	return v.Name
}

// VoiceSettings is the read-only snapshot handed to the pipeline at the
// start of each playback.
type VoiceSettings struct {
	VoiceName     string
	VoiceProvider VoiceProvider
	Rate          float64
	Pitch         float64
	APIKey        string
}

// Prosody is what the offline fallback engine understands.
type Prosody struct {
	Rate  float64
	Pitch float64
}

// Prosody returns the rate and pitch part of the snapshot.
func (s VoiceSettings) Prosody() Prosody {
	return Prosody{Rate: s.Rate, Pitch: s.Pitch}
}

// Validate returns a ConfigurationError when the snapshot cannot be used
// for remote synthesis.
func (s VoiceSettings) Validate() error {
	if s.APIKey == "" {
		return &ConfigurationError{Setting: "api_key", Err: ErrMissingAPIKey}
	}
	return nil
}

// UtteranceRequest is one unit of text with its style, ready to submit.
// An empty VoiceName means the endpoint picks its default voice; an empty
// VoiceProvider is omitted from the wire.
type UtteranceRequest struct {
	Text            string
	VoiceName       string
	VoiceProvider   VoiceProvider
	Description     string
	Speed           float64
	TrailingSilence *float64
}

func (r UtteranceRequest) String() string {
	return fmt.Sprintf("%q voice=%q speed=%.2f", r.Text, r.VoiceName, r.Speed)
}
