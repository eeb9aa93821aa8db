package emotion

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

func TestPresetUnknownFallsBackToNeutral(t *testing.T) {
	assert.Equal(t, Preset(domain.EmotionNeutral), Preset("furious_5"))
	assert.Equal(t, Preset(domain.EmotionNeutral), Preset(""))
}

func TestPresetTrailingSilenceOnlyWhereDefined(t *testing.T) {
	assert.Nil(t, Preset(domain.EmotionHappy).TrailingSilence)
	if assert.NotNil(t, Preset(domain.EmotionSad3).TrailingSilence) {
		assert.InDelta(t, 0.6, *Preset(domain.EmotionSad3).TrailingSilence, 1e-9)
	}
}

func TestIntensify(t *testing.T) {
	assert.Equal(t, domain.EmotionHappy, Intensify(domain.EmotionHappy, 1))
	assert.Equal(t, domain.EmotionHappy2, Intensify(domain.EmotionHappy, 2))
	assert.Equal(t, domain.EmotionHappy3, Intensify(domain.EmotionHappy, 7))
	assert.Equal(t, domain.EmotionShy, Intensify(domain.EmotionShy, 3))
}

func TestLookup(t *testing.T) {
	tag, ok := Lookup(" Funny_Sarcastic ")
	assert.True(t, ok)
	assert.Equal(t, domain.EmotionFunnySarcastic, tag)

	_, ok = Lookup("elated")
	assert.False(t, ok)
}

func TestTagsSortedAndComplete(t *testing.T) {
	tags := Tags()
	assert.Len(t, tags, len(presets))
	assert.True(t, sort.SliceIsSorted(tags, func(i, j int) bool { return tags[i] < tags[j] }))
	assert.Contains(t, EmojiFor(domain.EmotionHappy), "🤩")
}
