// Package storage keeps the user's settings, history, and shortcuts.
package storage

import (
	"slices"
	"strings"
	"sync"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// MaxHistory is how many spoken texts are remembered.
const MaxHistory = 10

// DefaultShortcuts seed a fresh install.
var DefaultShortcuts = []string{
	"Hello, how are you?",
	"Thank you very much",
	"I need help",
	"Good morning",
}

// Compile-time interface checks.
var (
	_ domain.SettingsStore = (*MemoryStore)(nil)
	_ domain.HistoryStore  = (*MemoryStore)(nil)
	_ domain.ShortcutStore = (*MemoryStore)(nil)
)

// State is everything the stores hold. It is also the persisted file
// layout.
type State struct {
	Settings  domain.Settings `toml:"settings"`
	History   []string        `toml:"history"`
	Shortcuts []string        `toml:"shortcuts"`
}

// DefaultState is the state of a fresh install.
func DefaultState() State {
	return State{
		Settings:  domain.DefaultSettings(),
		History:   []string{},
		Shortcuts: slices.Clone(DefaultShortcuts),
	}
}

// MemoryStore is an in-memory store. Safe for concurrent access.
type MemoryStore struct {
	mu    sync.RWMutex
	state State
	log   *logger.Logger

	// writeMu orders mutations so onChange sees snapshots in the order
	// they were made. Readers only take mu.
	writeMu sync.Mutex

	// onChange runs after every successful mutation with a copy of the
	// new state, outside mu.
	onChange func(State) error
}

// NewMemoryStore creates a store seeded with defaults.
func NewMemoryStore(log *logger.Logger) *MemoryStore {
	return newMemoryStore(DefaultState(), log)
}

func newMemoryStore(st State, log *logger.Logger) *MemoryStore {
	st.Settings.Normalize()
	if st.History == nil {
		st.History = []string{}
	}
	if st.Shortcuts == nil {
		st.Shortcuts = []string{}
	}
	if len(st.History) > MaxHistory {
		st.History = st.History[:MaxHistory]
	}
	return &MemoryStore{state: st, log: log}
}

// Snapshot returns a copy of the whole state.
func (s *MemoryStore) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *MemoryStore) snapshotLocked() State {
	return State{
		Settings:  s.state.Settings,
		History:   slices.Clone(s.state.History),
		Shortcuts: slices.Clone(s.state.Shortcuts),
	}
}

// mutate applies fn under the write lock and, when fn reports a change,
// notifies onChange.
func (s *MemoryStore) mutate(fn func(st *State) (bool, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	changed, err := fn(&s.state)
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshotLocked()
	hook := s.onChange
	s.mu.Unlock()

	if hook != nil {
		return hook(snap)
	}
	return nil
}

// ── settings ─────────────────────────────────────────────────────

// Settings returns the current settings.
func (s *MemoryStore) Settings() domain.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Settings
}

// UpdateSettings applies fn, normalizes the result, and returns it.
func (s *MemoryStore) UpdateSettings(fn func(*domain.Settings)) (domain.Settings, error) {
	var out domain.Settings
	err := s.mutate(func(st *State) (bool, error) {
		next := st.Settings
		fn(&next)
		next.Normalize()
		changed := next != st.Settings
		st.Settings = next
		out = next
		return changed, nil
	})
	if err == nil {
		s.log.Debug("settings updated: voice=%s rate=%.2f pitch=%.2f mode=%s",
			out.Voice, out.Rate, out.Pitch, out.SpeakAsYouType)
	}
	return out, err
}

// ── history ──────────────────────────────────────────────────────

// AddHistory puts text at the front of the history. Blank text and text
// already present are ignored. The oldest entries fall off past
// MaxHistory.
func (s *MemoryStore) AddHistory(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	return s.mutate(func(st *State) (bool, error) {
		if slices.Contains(st.History, text) {
			return false, nil
		}
		st.History = append([]string{text}, st.History...)
		if len(st.History) > MaxHistory {
			st.History = st.History[:MaxHistory]
		}
		s.log.Debug("history: added %q (%d entries)", text, len(st.History))
		return true, nil
	})
}

// History returns the history, newest first.
func (s *MemoryStore) History() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.History)
}

// DeleteHistory removes the entry at index.
func (s *MemoryStore) DeleteHistory(index int) error {
	return s.mutate(func(st *State) (bool, error) {
		if index < 0 || index >= len(st.History) {
			return false, domain.ErrNotFound
		}
		st.History = slices.Delete(st.History, index, index+1)
		return true, nil
	})
}

// ClearHistory forgets every entry.
func (s *MemoryStore) ClearHistory() error {
	return s.mutate(func(st *State) (bool, error) {
		if len(st.History) == 0 {
			return false, nil
		}
		st.History = []string{}
		return true, nil
	})
}

// ── shortcuts ────────────────────────────────────────────────────

// AddShortcut appends text. Blank text fails with ErrEmptyText; a
// duplicate fails with ErrAlreadyExists.
func (s *MemoryStore) AddShortcut(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.ErrEmptyText
	}
	return s.mutate(func(st *State) (bool, error) {
		if slices.Contains(st.Shortcuts, text) {
			return false, domain.ErrAlreadyExists
		}
		st.Shortcuts = append(st.Shortcuts, text)
		s.log.Debug("shortcuts: added %q", text)
		return true, nil
	})
}

// Shortcuts returns the shortcuts in insertion order.
func (s *MemoryStore) Shortcuts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Shortcuts)
}

// DeleteShortcut removes the shortcut at index.
func (s *MemoryStore) DeleteShortcut(index int) error {
	return s.mutate(func(st *State) (bool, error) {
		if index < 0 || index >= len(st.Shortcuts) {
			return false, domain.ErrNotFound
		}
		st.Shortcuts = slices.Delete(st.Shortcuts, index, index+1)
		return true, nil
	})
}
