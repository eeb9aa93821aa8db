// Package config loads the project configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultConfigFilename is read from the working directory when no path
// is given.
const DefaultConfigFilename = "moodspeak.toml"

// Transports accepted in [hume].transport.
const (
	TransportHTTP      = "http"
	TransportWebSocket = "websocket"
)

// Config mirrors moodspeak.toml.
type Config struct {
	Hume     HumeSettings     `toml:"hume"`
	Audio    AudioSettings    `toml:"audio"`
	Fallback FallbackSettings `toml:"fallback"`
	Storage  StorageSettings  `toml:"storage"`
	Log      LogSettings      `toml:"log"`
}

type HumeSettings struct {
	BaseURL        string `toml:"base_url"`
	StreamURL      string `toml:"stream_url"`
	Transport      string `toml:"transport"`
	Format         string `toml:"format"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	// APIKeyVariable names the environment variable holding the key. The
	// key itself never lives in this file.
	APIKeyVariable string `toml:"api_key_variable"`
}

type AudioSettings struct {
	SampleRate int    `toml:"sample_rate"`
	Channels   int    `toml:"channels"`
	CacheDir   string `toml:"cache_dir"`
	DiskCache  bool   `toml:"disk_cache"`
}

type FallbackSettings struct {
	// Engine is "auto" (say on macOS, espeak elsewhere) or "none".
	Engine         string `toml:"engine"`
	WordsPerMinute int    `toml:"words_per_minute"`
}

type StorageSettings struct {
	StateFile string `toml:"state_file"`
}

type LogSettings struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Hume: HumeSettings{
			BaseURL:        "https://api.hume.ai",
			StreamURL:      "wss://api.hume.ai/v0/tts/stream/input",
			Transport:      TransportHTTP,
			Format:         "mp3",
			TimeoutSeconds: 30,
			APIKeyVariable: "HUME_API_KEY",
		},
		Audio: AudioSettings{
			SampleRate: 48000,
			Channels:   2,
			CacheDir:   ".moodspeak-cache",
			DiskCache:  true,
		},
		Fallback: FallbackSettings{
			Engine:         "auto",
			WordsPerMinute: 180,
		},
		Storage: StorageSettings{
			StateFile: ".moodspeak/state.toml",
		},
		Log: LogSettings{
			Level: "normal",
			File:  ".moodspeak-logs/moodspeak.log",
		},
	}
}

// Load reads filePath over the defaults. An empty path means
// DefaultConfigFilename; a missing default file is not an error, a missing
// explicit one is.
func Load(filePath string) (*Config, error) {
	explicit := filePath != ""
	if !explicit {
		filePath = DefaultConfigFilename
	}

	cfg := Default()
	data, err := os.ReadFile(filePath)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", filePath, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", filePath, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", filePath, err)
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	switch c.Hume.Transport {
	case TransportHTTP, TransportWebSocket:
	default:
		return fmt.Errorf("hume.transport must be %q or %q, got %q", TransportHTTP, TransportWebSocket, c.Hume.Transport)
	}
	switch strings.ToLower(c.Hume.Format) {
	case "mp3", "wav":
	default:
		return fmt.Errorf("hume.format must be mp3 or wav, got %q", c.Hume.Format)
	}
	if c.Hume.TimeoutSeconds <= 0 {
		return fmt.Errorf("hume.timeout_seconds must be positive, got %d", c.Hume.TimeoutSeconds)
	}
	if c.Audio.SampleRate <= 0 || c.Audio.Channels < 1 || c.Audio.Channels > 2 {
		return fmt.Errorf("audio: invalid sample_rate=%d channels=%d", c.Audio.SampleRate, c.Audio.Channels)
	}
	switch c.Fallback.Engine {
	case "auto", "none":
	default:
		return fmt.Errorf("fallback.engine must be auto or none, got %q", c.Fallback.Engine)
	}
	return nil
}

// APIKey reads the key from the configured environment variable.
func (c *Config) APIKey() string {
	return strings.TrimSpace(os.Getenv(c.Hume.APIKeyVariable))
}

// Timeout is the bound on each synthesis call.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Hume.TimeoutSeconds) * time.Second
}
