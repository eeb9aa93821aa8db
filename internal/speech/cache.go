package speech

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/hammamikhairi/moodspeak/internal/domain"
	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// AudioCache is a thread-safe two-tier cache (in-memory + filesystem) for
// synthesized clips. The key hashes the audio format and every field of
// every request in the batch, so a change of voice, emotion, or rate is a
// miss.
//
// Disk behaviour is controlled by diskWrite:
//
//	diskWrite=true  -> reads from mem, then disk; writes to both.
//	diskWrite=false -> reads from mem, then disk; writes to mem only.
type AudioCache struct {
	mu        sync.RWMutex
	entries   map[string][]byte // hash -> encoded clip
	log       *logger.Logger
	format    string // container extension and part of every key
	cacheDir  string // filesystem cache directory (empty = no disk layer)
	diskWrite bool
	hits      int64
	misses    int64
}

// NewAudioCache creates an audio cache.
//
//   - format:    the synthesizer's audio container, e.g. "mp3".
//   - cacheDir:  path to the on-disk cache directory. If empty, the disk
//     layer is disabled entirely (pure in-memory).
//   - diskWrite: when true, new entries are written to cacheDir.
func NewAudioCache(format, cacheDir string, diskWrite bool, log *logger.Logger) *AudioCache {
	c := &AudioCache{
		entries:   make(map[string][]byte),
		log:       log,
		format:    format,
		cacheDir:  cacheDir,
		diskWrite: diskWrite,
	}

	if cacheDir != "" && diskWrite {
		if err := os.MkdirAll(cacheDir, 0o755); err != nil {
			log.Error("cache: failed to create cache dir %s: %v", cacheDir, err)
		}
	}
	return c
}

// Key returns the cache key for a batch.
func (c *AudioCache) Key(reqs []domain.UtteranceRequest) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\n", c.format)
	for _, r := range reqs {
		ts := "-"
		if r.TrailingSilence != nil {
			ts = fmt.Sprintf("%g", *r.TrailingSilence)
		}
		fmt.Fprintf(h, "%q|%q|%q|%q|%g|%s\n", r.Text, r.VoiceName, r.VoiceProvider, r.Description, r.Speed, ts)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns cached audio for the key, checking memory then disk.
func (c *AudioCache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	data, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.mu.Lock()
		c.hits++
		c.mu.Unlock()
		c.log.Debug("cache hit (mem): %s (%d bytes)", key[:12], len(data))
		return data, true
	}

	if c.cacheDir != "" {
		if diskData, diskOK := c.readDisk(key); diskOK {
			c.mu.Lock()
			c.entries[key] = diskData
			c.hits++
			c.mu.Unlock()
			c.log.Debug("cache hit (disk): %s (%d bytes)", key[:12], len(diskData))
			return diskData, true
		}
	}

	c.mu.Lock()
	c.misses++
	c.mu.Unlock()
	return nil, false
}

// Put stores audio under key. Always writes to memory; writes to disk only
// when diskWrite is enabled.
func (c *AudioCache) Put(key string, audio []byte) {
	c.mu.Lock()
	c.entries[key] = audio
	size := len(c.entries)
	c.mu.Unlock()

	c.log.Debug("cache store (mem): %s (%d bytes, %d entries)", key[:12], len(audio), size)

	if c.cacheDir != "" && c.diskWrite {
		c.writeDisk(key, audio)
	}
}

// Has reports whether key is cached in memory or on disk.
func (c *AudioCache) Has(key string) bool {
	c.mu.RLock()
	_, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		return true
	}
	if c.cacheDir != "" {
		return c.existsOnDisk(key)
	}
	return false
}

// Len returns the number of in-memory cached entries.
func (c *AudioCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns hit and miss counts.
func (c *AudioCache) Stats() (hits, misses int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// Clear empties the in-memory cache. The disk cache is NOT cleared.
func (c *AudioCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string][]byte)
	c.hits = 0
	c.misses = 0
	c.mu.Unlock()
	c.log.Debug("cache cleared (mem)")
}

// ── disk helpers ─────────────────────────────────────────────────

func (c *AudioCache) diskPath(key string) string {
	ext := c.format
	if ext == "" {
		ext = "bin"
	}
	return filepath.Join(c.cacheDir, key+"."+ext)
}

func (c *AudioCache) readDisk(key string) ([]byte, bool) {
	data, err := os.ReadFile(c.diskPath(key))
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}

func (c *AudioCache) writeDisk(key string, audio []byte) {
	path := c.diskPath(key)
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		c.log.Error("cache: disk write failed for %s: %v", path, err)
	} else {
		c.log.Debug("cache store (disk): %s (%d bytes)", key[:12], len(audio))
	}
}

func (c *AudioCache) existsOnDisk(key string) bool {
	_, err := os.Stat(c.diskPath(key))
	return err == nil
}
