// Package emotion holds the emotion preset table and the parser that splits
// marked-up text into emotion-tagged segments.
package emotion

import (
	"sort"
	"strings"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

func silence(seconds float64) *float64 { return &seconds }

// presets is the one canonical table. Every tag the parser can produce has
// an entry here; TestEveryParsedTagHasPreset keeps it that way.
var presets = map[domain.EmotionTag]domain.EmotionPreset{
	domain.EmotionNeutral: {
		Description: "neutral, clear, conversational, medium pace, natural emphasis",
		Speed:       1.0,
	},
	domain.EmotionHappy: {
		Description: "happy, bright, upbeat, smiling tone, lively rhythm, warm and friendly",
		Speed:       1.1,
	},
	domain.EmotionHappy2: {
		Description: "very happy, beaming, energetic, laughter in the voice, expressive intonation",
		Speed:       1.15,
	},
	domain.EmotionHappy3: {
		Description:     "ecstatic, overjoyed, bursting with excitement, big expressive swings in pitch",
		Speed:           1.2,
		TrailingSilence: silence(0.2),
	},
	domain.EmotionSad: {
		Description: "sad, soft, low energy, slow pace, gentle downward intonation, subdued",
		Speed:       0.85,
	},
	domain.EmotionSad2: {
		Description:     "very sad, heavy, quiet, slow, sighing between phrases",
		Speed:           0.8,
		TrailingSilence: silence(0.4),
	},
	domain.EmotionSad3: {
		Description:     "grief-stricken, fragile, near tears, long pauses, barely above a whisper",
		Speed:           0.75,
		TrailingSilence: silence(0.6),
	},
	domain.EmotionAngry: {
		Description: "angry, sharp, intense, clipped consonants, firm emphasis, fast pace",
		Speed:       1.15,
	},
	domain.EmotionAngry2: {
		Description: "very angry, loud, forceful, biting consonants, hard stresses",
		Speed:       1.2,
	},
	domain.EmotionAngry3: {
		Description:     "furious, shouting, explosive emphasis, barely contained rage",
		Speed:           1.25,
		TrailingSilence: silence(0.3),
	},
	domain.EmotionDoubt: {
		Description: "uncertain, hesitant, thoughtful, light pauses, rising intonation at phrase ends",
		Speed:       0.95,
	},
	domain.EmotionEnthusiasticFormal: {
		Description: "enthusiastic but formal, confident projection, clear diction, positive emphasis",
		Speed:       1.05,
	},
	domain.EmotionFunnySarcastic: {
		Description: "dry, sarcastic timing, playful pitch inflection, slight exaggeration",
		Speed:       1.05,
	},
	domain.EmotionAnxious: {
		Description: "rapid, breathy, tense, slight tremor and rising intonation, scattered pacing",
		Speed:       1.12,
	},
	domain.EmotionDisgusted: {
		Description: "cold, retracted tone, short clipped words, low pitch, aversive quality",
		Speed:       0.9,
	},
	domain.EmotionShy: {
		Description: "soft, quiet, hesitant, breathy, minimal projection, downward intonation",
		Speed:       0.9,
	},
	domain.EmotionDontCare: {
		Description:     "low-energy, slightly dismissive but weary, soft sighs, casual conversational rhythm",
		Speed:           0.96,
		TrailingSilence: silence(0.25),
	},
	domain.EmotionAdmire: {
		Description: "warm, energetic, elevated pitch on key words, sincere and glowing",
		Speed:       1.0,
	},
	domain.EmotionDepressed: {
		Description:     "very low energy, slow tempo, flat affect, soft volume, monotone",
		Speed:           0.78,
		TrailingSilence: silence(0.5),
	},
}

// graded lists the base emotions that have _2 and _3 intensities.
var graded = map[domain.EmotionTag][2]domain.EmotionTag{
	domain.EmotionHappy: {domain.EmotionHappy2, domain.EmotionHappy3},
	domain.EmotionSad:   {domain.EmotionSad2, domain.EmotionSad3},
	domain.EmotionAngry: {domain.EmotionAngry2, domain.EmotionAngry3},
}

// Preset returns the preset for tag, falling back to neutral for unknown
// tags.
func Preset(tag domain.EmotionTag) domain.EmotionPreset {
	if p, ok := presets[tag]; ok {
		return p
	}
	return presets[domain.EmotionNeutral]
}

// Known reports whether tag has its own preset.
func Known(tag domain.EmotionTag) bool {
	_, ok := presets[tag]
	return ok
}

// Lookup resolves a user-typed tag name such as "Happy" or "happy_2".
func Lookup(name string) (domain.EmotionTag, bool) {
	tag := domain.EmotionTag(strings.ToLower(strings.TrimSpace(name)))
	return tag, Known(tag)
}

// Intensify returns the graded variant of base at level 2 or 3. Emotions
// without grades, and level 1, return base unchanged.
func Intensify(base domain.EmotionTag, level int) domain.EmotionTag {
	g, ok := graded[base]
	if !ok {
		return base
	}
	switch {
	case level == 2:
		return g[0]
	case level >= 3:
		return g[1]
	}
	return base
}

// Tags returns every known tag in sorted order.
func Tags() []domain.EmotionTag {
	out := make([]domain.EmotionTag, 0, len(presets))
	for tag := range presets {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
