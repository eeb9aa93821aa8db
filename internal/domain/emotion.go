package domain

// EmotionTag labels a stretch of text with a prosody preset.
type EmotionTag string

// Base emotions.
const (
	EmotionNeutral            EmotionTag = "neutral"
	EmotionHappy              EmotionTag = "happy"
	EmotionSad                EmotionTag = "sad"
	EmotionAngry              EmotionTag = "angry"
	EmotionDoubt              EmotionTag = "doubt"
	EmotionEnthusiasticFormal EmotionTag = "enthusiastic_formal"
	EmotionFunnySarcastic     EmotionTag = "funny_sarcastic"
	EmotionAnxious            EmotionTag = "anxious"
	EmotionDisgusted          EmotionTag = "disgusted"
	EmotionShy                EmotionTag = "shy"
	EmotionDontCare           EmotionTag = "dont_care"
	EmotionAdmire             EmotionTag = "admire"
	EmotionDepressed          EmotionTag = "depressed"
)

// Graded intensities. Level 1 is the base tag.
const (
	EmotionHappy2 EmotionTag = "happy_2"
	EmotionHappy3 EmotionTag = "happy_3"
	EmotionSad2   EmotionTag = "sad_2"
	EmotionSad3   EmotionTag = "sad_3"
	EmotionAngry2 EmotionTag = "angry_2"
	EmotionAngry3 EmotionTag = "angry_3"
)

// EmotionPreset is the prosody applied to one emotion.
// TrailingSilence is in seconds; nil means the endpoint default.
type EmotionPreset struct {
	Description     string
	Speed           float64
	TrailingSilence *float64
}

// Segment is a contiguous run of text spoken with one emotion.
type Segment struct {
	Emotion EmotionTag
	Text    string
}
