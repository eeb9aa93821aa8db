// Package utterance turns emotion-tagged segments into synthesis requests.
package utterance

import (
	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/emotion"
)

// Build resolves the segment's preset and combines it with the user's
// voice settings. The effective speed is the user rate times the preset
// speed. Unknown emotions use the neutral preset. Build never fails.
func Build(seg domain.Segment, settings domain.VoiceSettings) domain.UtteranceRequest {
	preset := emotion.Preset(seg.Emotion)

	rate := settings.Rate
	if rate <= 0 {
		rate = 1.0
	}

	req := domain.UtteranceRequest{
		Text:        seg.Text,
		VoiceName:   settings.VoiceName,
		Description: preset.Description,
		Speed:       rate * preset.Speed,
	}
	if preset.TrailingSilence != nil {
		ts := *preset.TrailingSilence
		req.TrailingSilence = &ts
	}

	// Custom voices live in the user's account, so they must not be
	// labelled as catalog voices.
	if settings.VoiceProvider != domain.ProviderCustom {
		req.VoiceProvider = domain.ProviderHumeAI
	}
	return req
}

// BuildAll builds one request per segment, in order.
func BuildAll(segs []domain.Segment, settings domain.VoiceSettings) []domain.UtteranceRequest {
	out := make([]domain.UtteranceRequest, 0, len(segs))
	for _, s := range segs {
		out = append(out, Build(s, settings))
	}
	return out
}
