package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/go-pkgz/lgr"

	"github.com/umputun/flipper/app/rotation"
)

// JSONFile keeps states in a single JSON file
type JSONFile struct {
	path string
}

// NewJSONFile makes file store, the directory is created if missing
func NewJSONFile(path string) (*JSONFile, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("can't make state directory %s: %w", dir, err)
		}
	}
	return &JSONFile{path: path}, nil
}

// Load reads states from the file. Missing file is not an error, empty states returned.
func (f *JSONFile) Load(_ context.Context) (rotation.States, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("[INFO] no saved task states in %s, starting fresh", f.path)
			return rotation.States{}, nil
		}
		return rotation.States{}, fmt.Errorf("can't read %s: %w", f.path, err)
	}
	states, err := decode(data)
	if err != nil {
		return rotation.States{}, fmt.Errorf("can't load %s: %w", f.path, err)
	}
	log.Printf("[DEBUG] loaded %d task states from %s", len(states), f.path)
	return states, nil
}

// Save overwrites the file with states. Writes to a temp file first and renames it,
// so a crash in the middle doesn't leave a truncated file.
func (f *JSONFile) Save(_ context.Context, states rotation.States) error {
	data, err := encode(states)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("can't create temp file for %s: %w", f.path, err)
	}
	// remove is a no-op after successful rename
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("can't write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("can't close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("can't rename %s to %s: %w", tmp.Name(), f.path, err)
	}
	return nil
}

// Close does nothing for file store
func (f *JSONFile) Close() error { return nil }

func (f *JSONFile) String() string { return "file:" + f.path }
