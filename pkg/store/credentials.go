package store

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/kubetide/console/pkg/models"
)

// CredentialsFile is the JSON-file backed credential store. Besides plain
// CRUD it owns the one-time migration path from the legacy layout where
// each cluster was a bare kubeconfig file in a well-known directory.
type CredentialsFile struct {
	mu        sync.Mutex
	path      string
	importDir string
}

// NewCredentialsFile creates a credential store persisting to path.
// importDir is the legacy kubeconfig directory scanned on first list; an
// empty importDir disables the import.
func NewCredentialsFile(path, importDir string) *CredentialsFile {
	return &CredentialsFile{path: path, importDir: importDir}
}

// List returns all credentials. When the store is empty it scans the legacy
// directory once: each file becomes a record with the file name as both name
// and display name and the content as the blob. Per-file failures are logged
// and skipped. The merged list is persisted, so the import never repeats.
func (s *CredentialsFile) List() ([]models.ClusterCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *CredentialsFile) listLocked() ([]models.ClusterCredential, error) {
	creds, err := readCollection[models.ClusterCredential](s.path)
	if err != nil {
		return nil, err
	}
	if len(creds) > 0 || s.importDir == "" {
		return creds, nil
	}

	entries, err := os.ReadDir(s.importDir)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(s.importDir, entry.Name()))
		if err != nil {
			log.Printf("[store] failed to import kubeconfig %s: %v", entry.Name(), err)
			continue
		}
		creds = append(creds, models.ClusterCredential{
			Name:              entry.Name(),
			DisplayName:       entry.Name(),
			KubeconfigContent: string(content),
		})
	}

	if len(creds) > 0 {
		if err := writeCollection(s.path, creds); err != nil {
			return nil, err
		}
		log.Printf("[store] imported %d legacy kubeconfig file(s) from %s", len(creds), s.importDir)
	}
	return creds, nil
}

// Get matches on the unique cluster name or returns ErrNotFound.
func (s *CredentialsFile) Get(name string) (*models.ClusterCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.listLocked()
	if err != nil {
		return nil, err
	}
	for i := range creds {
		if creds[i].Name == name {
			return &creds[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create persists a new credential or returns ErrConflict.
func (s *CredentialsFile) Create(cred models.ClusterCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.listLocked()
	if err != nil {
		return err
	}
	for _, c := range creds {
		if c.Name == cred.Name {
			return ErrConflict
		}
	}
	creds = append(creds, cred)
	return writeCollection(s.path, creds)
}

// Update applies a partial update; nil fields keep their stored values.
func (s *CredentialsFile) Update(name string, displayName, content *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.listLocked()
	if err != nil {
		return err
	}
	for i := range creds {
		if creds[i].Name != name {
			continue
		}
		if displayName != nil {
			creds[i].DisplayName = *displayName
		}
		if content != nil {
			creds[i].KubeconfigContent = *content
		}
		return writeCollection(s.path, creds)
	}
	return ErrNotFound
}

// Delete removes the record and best-effort deletes a like-named legacy
// file; a failed file removal is logged, not fatal.
func (s *CredentialsFile) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	creds, err := s.listLocked()
	if err != nil {
		return err
	}
	found := false
	for i := range creds {
		if creds[i].Name == name {
			creds = append(creds[:i], creds[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}
	if err := writeCollection(s.path, creds); err != nil {
		return err
	}

	if s.importDir != "" {
		legacy := filepath.Join(s.importDir, name)
		if _, err := os.Stat(legacy); err == nil {
			if err := os.Remove(legacy); err != nil {
				log.Printf("[store] failed to delete legacy kubeconfig %s: %v", legacy, err)
			}
		}
	}
	return nil
}
