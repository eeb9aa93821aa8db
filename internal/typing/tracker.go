// Package typing finds the units a user has finished typing so they can
// be spoken without an explicit play.
package typing

import (
	"strings"
	"sync"
	"unicode"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

// Tracker remembers how much of a growing buffer has already been handed
// out. Safe for concurrent use.
type Tracker struct {
	mu       sync.Mutex
	mode     domain.TypingMode
	consumed int // byte offset into the buffer
}

// NewTracker creates a tracker in mode.
func NewTracker(mode domain.TypingMode) *Tracker {
	return &Tracker{mode: mode}
}

// Mode returns the current mode.
func (t *Tracker) Mode() domain.TypingMode {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.mode
}

// SetMode switches mode. Text typed before the switch is never spoken.
func (t *Tracker) SetMode(mode domain.TypingMode) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.mode = mode
}

// Reset forgets everything consumed, for use after the buffer is cleared.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.consumed = 0
}

// Feed returns the units completed in buffer since the previous call, in
// order and trimmed. A buffer shorter than what was consumed is treated
// as a new buffer.
func (t *Tracker) Feed(buffer string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(buffer) < t.consumed {
		t.consumed = 0
	}
	rest := buffer[t.consumed:]

	var (
		units []string
		n     int
	)
	switch t.mode {
	case domain.TypingLines:
		units, n = split(rest, lineEnd)
	case domain.TypingSentences:
		units, n = split(rest, sentenceEnd)
	case domain.TypingWords:
		units, n = split(rest, wordEnd)
	default:
		n = len(rest)
	}
	t.consumed += n
	return units
}

// endFunc reports whether a unit ends at rune index i of rs. The
// terminating rune belongs to the unit.
type endFunc func(rs []rune, i int) bool

func lineEnd(rs []rune, i int) bool {
	return rs[i] == '\n'
}

// sentenceEnd ends at terminal punctuation followed by whitespace, and at
// every line break.
func sentenceEnd(rs []rune, i int) bool {
	switch rs[i] {
	case '\n':
		return true
	case '.', '!', '?', '…':
		return i+1 < len(rs) && unicode.IsSpace(rs[i+1])
	}
	return false
}

func wordEnd(rs []rune, i int) bool {
	return unicode.IsSpace(rs[i])
}

// split cuts s into complete units and returns them with the number of
// bytes they covered. Blank units are dropped.
func split(s string, end endFunc) ([]string, int) {
	rs := []rune(s)
	var (
		units    []string
		start    int
		consumed int
	)
	for i := range rs {
		if !end(rs, i) {
			continue
		}
		if u := strings.TrimSpace(string(rs[start : i+1])); u != "" {
			units = append(units, u)
		}
		start = i + 1
		consumed = len(string(rs[:start]))
	}
	return units, consumed
}
