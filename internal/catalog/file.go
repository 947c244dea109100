package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileStore loads the catalog from a JSON file produced by the scraper.
type FileStore struct {
	path string
}

// NewFileStore creates a catalog store backed by a JSON file.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads and validates the catalog file.
func (s *FileStore) Load(_ context.Context) ([]Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse catalog file: %w", err)
	}

	if err := Validate(records); err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", s.path, err)
	}

	return records, nil
}

// Save writes records to the catalog file. Used by the scraper.
func (s *FileStore) Save(records []Record) error {
	if err := Validate(records); err != nil {
		return fmt.Errorf("refusing to save invalid catalog: %w", err)
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write catalog file: %w", err)
	}
	return nil
}

// Ensure FileStore implements Store.
var _ Store = (*FileStore)(nil)
