package speech

import "time"

// Output format of the audio device. Decoded clips are converted to it.
const (
	DefaultSampleRate   = 48000
	DefaultChannelCount = 2
	BitDepth            = 16
)

// MIME hypotheses tried, in order, when decoding a clip.
const (
	MIMEMPEG = "audio/mpeg"
	MIMEWAV  = "audio/wav"
)

// DefaultWordsPerMinute is the fallback engine's speaking rate at 1.0x.
const DefaultWordsPerMinute = 180

// pollInterval is how often the player checks whether the device has
// drained once a clip has been fully handed over. oto exposes no
// completion callback.
const pollInterval = 10 * time.Millisecond
