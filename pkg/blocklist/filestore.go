package blocklist

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// FileStore persists the registry record as a JSON file. Saves write to a
// temp file and rename it into place so readers never observe a partial
// record.
type FileStore struct {
	path string
}

// NewFileStore creates a file-backed store at the given path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the record from disk. A missing file is an empty record, not an
// error.
func (s *FileStore) Load(ctx context.Context) (Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Record{Blocked: make(map[string]string)}, nil
		}
		return Record{}, fmt.Errorf("failed to read blocklist file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, fmt.Errorf("failed to parse blocklist file: %w", err)
	}
	if rec.Blocked == nil {
		rec.Blocked = make(map[string]string)
	}
	return rec, nil
}

// Save atomically rewrites the record on disk.
func (s *FileStore) Save(ctx context.Context, rec Record) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create blocklist directory: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal blocklist: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write blocklist temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace blocklist file: %w", err)
	}
	return nil
}
