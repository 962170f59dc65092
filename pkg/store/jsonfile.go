package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const (
	collectionFileMode = 0600
	collectionDirMode  = 0700
)

// readCollection loads a whole JSON array from disk. A missing file is the
// empty collection, so first-run stores need no setup step.
func readCollection[T any](path string) ([]T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return []T{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", filepath.Base(path), err)
	}

	var records []T
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

// writeCollection rewrites the whole JSON array. Every mutation goes through
// here: small state, full rewrite, no partial writes.
func writeCollection[T any](path string, records []T) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", filepath.Base(path), err)
	}

	if err := os.MkdirAll(filepath.Dir(path), collectionDirMode); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := os.WriteFile(path, data, collectionFileMode); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
