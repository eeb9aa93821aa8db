package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

func TestFileStoreMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	store, err := OpenFileStore(path, quiet)
	require.NoError(t, err)

	assert.Equal(t, domain.DefaultSettings(), store.Settings())
	assert.Equal(t, DefaultShortcuts, store.Shortcuts())
	assert.Empty(t, store.History())

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written until a change")
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state.toml")
	store, err := OpenFileStore(path, quiet)
	require.NoError(t, err)

	require.NoError(t, store.AddHistory("first"))
	require.NoError(t, store.AddHistory("second"))
	require.NoError(t, store.AddShortcut("On my way"))
	_, err = store.UpdateSettings(func(s *domain.Settings) {
		s.Voice = domain.Voice{Name: "Mine", Provider: domain.ProviderCustom}
		s.Rate = 1.25
		s.SpeakAsYouType = domain.TypingWords
		s.APIKey = "secret"
	})
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	reopened, err := OpenFileStore(path, quiet)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, reopened.History())
	assert.Contains(t, reopened.Shortcuts(), "On my way")

	s := reopened.Settings()
	assert.Equal(t, "Mine", s.Voice.Name)
	assert.Equal(t, domain.ProviderCustom, s.Voice.Provider)
	assert.InDelta(t, 1.25, s.Rate, 1e-9)
	assert.Equal(t, domain.TypingWords, s.SpeakAsYouType)
	assert.Equal(t, "secret", s.APIKey)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestFileStoreRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("settings = [[[ nope"), 0o600))

	_, err := OpenFileStore(path, quiet)
	assert.Error(t, err)
}

func TestFileStoreNoWriteWithoutChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.toml")
	store, err := OpenFileStore(path, quiet)
	require.NoError(t, err)

	require.NoError(t, store.AddHistory(""))
	require.NoError(t, store.ClearHistory())
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
