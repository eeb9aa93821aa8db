package domain

// IntentType classifies what the user wants to do.
type IntentType int

const (
	IntentUnknown IntentType = iota
	IntentSpeakLine           // plain text: append to the buffer
	IntentPlay                // speak the whole buffer (or resume)
	IntentPause
	IntentResume
	IntentStop
	IntentClear               // stop and empty the buffer
	IntentHistory             // list history
	IntentSpeakHistory        // replay history entry N
	IntentForgetHistory       // delete history entry N, or all
	IntentShortcuts           // list shortcuts
	IntentSaveShortcut        // save text (or the buffer) as a shortcut
	IntentSpeakShortcut       // speak shortcut N
	IntentDeleteShortcut      // delete shortcut N
	IntentSetVoice
	IntentSetRate
	IntentSetPitch
	IntentSetMode
	IntentSetKey
	IntentEmotions            // list emotion tags and emoji
	IntentStatus
	IntentHelp
	IntentQuit
)

// String returns a human-readable intent type.
func (i IntentType) String() string {
	if name, ok := intentLabels[i]; ok {
		return name
	}
	return "unknown"
}

var intentLabels = map[IntentType]string{
	IntentSpeakLine:      "speak_line",
	IntentPlay:           "play",
	IntentPause:          "pause",
	IntentResume:         "resume",
	IntentStop:           "stop",
	IntentClear:          "clear",
	IntentHistory:        "history",
	IntentSpeakHistory:   "speak_history",
	IntentForgetHistory:  "forget_history",
	IntentShortcuts:      "shortcuts",
	IntentSaveShortcut:   "save_shortcut",
	IntentSpeakShortcut:  "speak_shortcut",
	IntentDeleteShortcut: "delete_shortcut",
	IntentSetVoice:       "set_voice",
	IntentSetRate:        "set_rate",
	IntentSetPitch:       "set_pitch",
	IntentSetMode:        "set_mode",
	IntentSetKey:         "set_key",
	IntentEmotions:       "emotions",
	IntentStatus:         "status",
	IntentHelp:           "help",
	IntentQuit:           "quit",
}

// Intent represents a parsed user action.
type Intent struct {
	Type    IntentType
	Payload string // argument text, e.g. the line to speak or the index
}
