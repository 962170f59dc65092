package store

import (
	"sync"

	"github.com/kubetide/console/pkg/models"
)

// AuditFile is the JSON-file backed audit log. Append-only from the caller's
// perspective; the only eviction is the FIFO cap.
type AuditFile struct {
	mu   sync.Mutex
	path string
}

// NewAuditFile creates an audit log persisting to path.
func NewAuditFile(path string) *AuditFile {
	return &AuditFile{path: path}
}

// Append inserts the entry and drops the oldest surplus beyond the cap.
func (s *AuditFile) Append(entry models.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := readCollection[models.AuditEntry](s.path)
	if err != nil {
		return err
	}
	entries = append(entries, entry)
	if len(entries) > MaxAuditEntries {
		entries = entries[len(entries)-MaxAuditEntries:]
	}
	return writeCollection(s.path, entries)
}

// List returns entries in insertion order, optionally filtered by exact
// action match.
func (s *AuditFile) List(action string) ([]models.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := readCollection[models.AuditEntry](s.path)
	if err != nil {
		return nil, err
	}
	if action == "" {
		return entries, nil
	}
	filtered := make([]models.AuditEntry, 0, len(entries))
	for _, e := range entries {
		if e.Action == action {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
