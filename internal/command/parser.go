// Package command parses input lines into intents and reports playback
// progress to the user.
package command

import (
	"context"
	"regexp"
	"strings"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// Compile-time interface check.
var _ domain.IntentParser = (*KeywordParser)(nil)

// KeywordParser matches slash commands. Anything that is not a command is
// a line of text to speak; a leading "//" escapes a literal slash.
type KeywordParser struct {
	log      *logger.Logger
	patterns []patternRule
}

type patternRule struct {
	regex  *regexp.Regexp
	intent domain.IntentType
}

// NewKeywordParser creates a slash-command parser.
func NewKeywordParser(log *logger.Logger) *KeywordParser {
	p := &KeywordParser{log: log}
	p.patterns = []patternRule{
		{regexp.MustCompile(`(?i)^/(play|p)$`), domain.IntentPlay},
		{regexp.MustCompile(`(?i)^/pause$`), domain.IntentPause},
		{regexp.MustCompile(`(?i)^/(resume|r)$`), domain.IntentResume},
		{regexp.MustCompile(`(?i)^/(stop|s)$`), domain.IntentStop},
		{regexp.MustCompile(`(?i)^/clear$`), domain.IntentClear},
		{regexp.MustCompile(`(?i)^/(history|h)$`), domain.IntentHistory},
		{regexp.MustCompile(`(?i)^/say\s+(\d+)$`), domain.IntentSpeakHistory},
		{regexp.MustCompile(`(?i)^/forget\s+(\d+|all)$`), domain.IntentForgetHistory},
		{regexp.MustCompile(`(?i)^/shortcuts$`), domain.IntentShortcuts},
		{regexp.MustCompile(`(?i)^/save(?:\s+(.+))?$`), domain.IntentSaveShortcut},
		{regexp.MustCompile(`(?i)^/short\s+(\d+)$`), domain.IntentSpeakShortcut},
		{regexp.MustCompile(`(?i)^/unsave\s+(\d+)$`), domain.IntentDeleteShortcut},
		{regexp.MustCompile(`(?i)^/voice\s+(.+)$`), domain.IntentSetVoice},
		{regexp.MustCompile(`(?i)^/rate\s+(\S+)$`), domain.IntentSetRate},
		{regexp.MustCompile(`(?i)^/pitch\s+(\S+)$`), domain.IntentSetPitch},
		{regexp.MustCompile(`(?i)^/mode\s+(\S+)$`), domain.IntentSetMode},
		{regexp.MustCompile(`^/key\s+(\S+)$`), domain.IntentSetKey},
		{regexp.MustCompile(`(?i)^/(emotions|emoji)$`), domain.IntentEmotions},
		{regexp.MustCompile(`(?i)^/status$`), domain.IntentStatus},
		{regexp.MustCompile(`(?i)^/(help|\?)$`), domain.IntentHelp},
		{regexp.MustCompile(`(?i)^/(quit|exit|q)$`), domain.IntentQuit},
	}
	return p
}

// Parse converts a line of input into an intent. Unrecognised commands
// come back as IntentUnknown with the input as payload.
func (p *KeywordParser) Parse(ctx context.Context, input string) (*domain.Intent, error) {
	line := strings.TrimRight(input, "\r\n")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return &domain.Intent{Type: domain.IntentUnknown}, nil
	}

	if strings.HasPrefix(trimmed, "//") {
		return &domain.Intent{Type: domain.IntentSpeakLine, Payload: trimmed[1:]}, nil
	}
	if !strings.HasPrefix(trimmed, "/") {
		return &domain.Intent{Type: domain.IntentSpeakLine, Payload: line}, nil
	}

	for _, rule := range p.patterns {
		m := rule.regex.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		// Key values are credentials; keep them out of the log.
		if rule.intent != domain.IntentSetKey {
			p.log.Debug("matched command %s: %q", rule.intent, trimmed)
		}
		intent := &domain.Intent{Type: rule.intent}
		// Single-word commands capture their own alias; only commands with
		// an argument carry a payload.
		if len(m) > 1 && hasArgument(rule.intent) {
			intent.Payload = strings.TrimSpace(m[1])
		}
		return intent, nil
	}

	p.log.Debug("unknown command: %q", trimmed)
	return &domain.Intent{Type: domain.IntentUnknown, Payload: trimmed}, nil
}

func hasArgument(t domain.IntentType) bool {
	switch t {
	case domain.IntentSpeakHistory, domain.IntentForgetHistory,
		domain.IntentSaveShortcut, domain.IntentSpeakShortcut, domain.IntentDeleteShortcut,
		domain.IntentSetVoice, domain.IntentSetRate, domain.IntentSetPitch,
		domain.IntentSetMode, domain.IntentSetKey:
		return true
	}
	return false
}

// HelpText lists the commands.
const HelpText = `Type text and press enter to add it. Mark emotions with emoji (I did it 😊)
or brackets ([sad] I miss you).

  /play, /p            speak everything typed (resumes when paused)
  /pause               pause, keeping your place
  /resume, /r          continue after a pause
  /stop, /s            stop and rewind
  /clear               stop and forget the typed text
  /history             list recently spoken text
  /say N               speak history entry N
  /forget N|all        delete history entry N, or all of it
  /shortcuts           list saved phrases
  /save [text]         save text (or everything typed) as a phrase
  /short N             speak phrase N
  /unsave N            delete phrase N
  /voice NAME [custom] choose a voice; add "custom" for your own voices
  /rate X, /pitch X    speaking rate and pitch, 0.5 to 2.0
  /mode off|words|sentences|lines
                       speak while typing
  /key KEY             set the Hume API key
  /emotions            list emotion tags and emoji
  /status              show playback and settings
  /quit                exit
  //text               speak text that starts with a slash`
