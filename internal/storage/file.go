package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/hammamikhairi/moodspeak/internal/logger"
)

// FileStore is a MemoryStore that writes its state to a TOML file after
// every change. Writes go to a temp file that is renamed over the target,
// so a crash never leaves a half-written file.
type FileStore struct {
	*MemoryStore
	path string
}

// OpenFileStore loads path, or starts from defaults when it does not
// exist yet. The file is created on the first change.
func OpenFileStore(path string, log *logger.Logger) (*FileStore, error) {
	st := DefaultState()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		log.Debug("storage: %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	default:
		loaded := State{Settings: st.Settings}
		if err := toml.Unmarshal(data, &loaded); err != nil {
			return nil, fmt.Errorf("storage: parse %s: %w", path, err)
		}
		if loaded.Shortcuts == nil {
			loaded.Shortcuts = st.Shortcuts
		}
		st = loaded
		log.Debug("storage: loaded %s (%d history, %d shortcuts)", path, len(st.History), len(st.Shortcuts))
	}

	fsStore := &FileStore{MemoryStore: newMemoryStore(st, log), path: path}
	fsStore.onChange = fsStore.write
	return fsStore, nil
}

// Path returns the state file location.
func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) write(st State) error {
	data, err := toml.Marshal(st)
	if err != nil {
		return fmt.Errorf("storage: encode state: %w", err)
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("storage: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("storage: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("storage: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp file: %w", err)
	}
	// The file holds the API key.
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("storage: chmod temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("storage: replace %s: %w", f.path, err)
	}
	f.log.Debug("storage: wrote %s (%d bytes)", f.path, len(data))
	return nil
}
