package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"

	"appointment-monitor/models"
)

// JSONFileStore keeps a string map in a single indented JSON file. It backs
// both the state file and the locations map.
type JSONFileStore struct {
	path string
}

// NewJSONFileStore returns a store for path. The file is created on first save.
func NewJSONFileStore(path string) *JSONFileStore {
	return &JSONFileStore{path: path}
}

// LoadState returns the persisted state, or an empty state when the file
// does not exist yet.
func (s *JSONFileStore) LoadState() (models.State, error) {
	m, err := s.load()
	if err != nil {
		return nil, err
	}
	return models.State(m), nil
}

// SaveState writes the full state, replacing the previous file.
func (s *JSONFileStore) SaveState(state models.State) error {
	return s.save(map[string]string(state))
}

// LoadNames returns the persisted id → name map, empty when absent.
func (s *JSONFileStore) LoadNames() (map[string]string, error) {
	return s.load()
}

// SaveNames writes the id → name map.
func (s *JSONFileStore) SaveNames(names map[string]string) error {
	return s.save(names)
}

// Reset removes the file. A missing file is not an error.
func (s *JSONFileStore) Reset() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("json: remove %q: %w", s.path, err)
	}
	return nil
}

func (s *JSONFileStore) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("json: read %q: %w", s.path, err)
	}

	m := map[string]string{}
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("json: decode %q: %w", s.path, err)
	}
	return m, nil
}

// save writes to a temporary file next to the target and renames it, so a
// crash never leaves a truncated file behind.
func (s *JSONFileStore) save(m map[string]string) error {
	if m == nil {
		m = map[string]string{}
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("json: encode: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("json: create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("json: create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("json: write %q: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("json: close %q: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("json: replace %q: %w", s.path, err)
	}
	return nil
}
