package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "moodspeak.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadMissingDefaultFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadMissingExplicitFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
[hume]
transport = "websocket"
format = "wav"
timeout_seconds = 5
api_key_variable = "MY_HUME_KEY"

[audio]
sample_rate = 24000
channels = 1

[log]
level = "verbose"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, TransportWebSocket, cfg.Hume.Transport)
	assert.Equal(t, "wav", cfg.Hume.Format)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, 24000, cfg.Audio.SampleRate)
	assert.Equal(t, "verbose", cfg.Log.Level)

	// Untouched values keep their defaults.
	assert.Equal(t, "https://api.hume.ai", cfg.Hume.BaseURL)
	assert.Equal(t, 180, cfg.Fallback.WordsPerMinute)

	t.Setenv("MY_HUME_KEY", "  from-env  ")
	assert.Equal(t, "from-env", cfg.APIKey())
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"transport", "[hume]\ntransport = \"carrier pigeon\""},
		{"format", "[hume]\nformat = \"ogg\""},
		{"timeout", "[hume]\ntimeout_seconds = 0"},
		{"channels", "[audio]\nchannels = 6"},
		{"fallback", "[fallback]\nengine = \"festival\""},
		{"syntax", "[hume\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
