package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore keeps the active position in a single JSON file. The file is
// written atomically via a temp file rename so a crash mid-write never
// leaves a torn position behind.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed position store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the persisted position. A missing file is not an error.
func (s *FileStore) Load() (*ActivePosition, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read position file: %w", err)
	}

	var position ActivePosition
	if err := json.Unmarshal(data, &position); err != nil {
		return nil, fmt.Errorf("failed to parse position file: %w", err)
	}
	return &position, nil
}

// Save writes the position, creating parent directories as needed
func (s *FileStore) Save(position *ActivePosition) error {
	data, err := json.MarshalIndent(position, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize position: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write position file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace position file: %w", err)
	}
	return nil
}

// Delete removes the position file; an already-absent file is fine
func (s *FileStore) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete position file: %w", err)
	}
	return nil
}
