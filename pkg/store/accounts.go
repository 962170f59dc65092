package store

import (
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/kubetide/console/pkg/models"
)

// Default accounts seeded on first run.
const (
	defaultAdminUser     = "admin"
	defaultAdminPassword = "admin123"
	defaultViewerUser    = "user"
	defaultViewerPass    = "user123"
)

// AccountsFile is the JSON-file backed account store. The full collection is
// read, mutated in memory and rewritten on every mutation; the mutex
// serializes writers within this process. Cross-process writers still race
// (last writer wins) — a known limitation of the flat-file layout.
type AccountsFile struct {
	mu     sync.Mutex
	path   string
	logins LoginRecorder
}

// NewAccountsFile creates an account store persisting to path. The recorder
// receives a login audit entry for every password verification; it may be
// nil, in which case verification still works but nothing is recorded.
func NewAccountsFile(path string, logins LoginRecorder) *AccountsFile {
	return &AccountsFile{path: path, logins: logins}
}

func hashPassword(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Initialize seeds the two default accounts when no records exist: a full
// admin and a read-only viewer.
func (s *AccountsFile) Initialize() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := readCollection[models.Account](s.path)
	if err != nil {
		return err
	}
	if len(accounts) > 0 {
		return nil
	}

	adminHash, err := hashPassword(defaultAdminPassword)
	if err != nil {
		return err
	}
	viewerHash, err := hashPassword(defaultViewerPass)
	if err != nil {
		return err
	}

	accounts = []models.Account{
		{
			Username:     defaultAdminUser,
			PasswordHash: adminHash,
			Permissions: models.Permissions{
				Admin:    true,
				Read:     true,
				Write:    true,
				Clusters: map[string]bool{},
			},
		},
		{
			Username:     defaultViewerUser,
			PasswordHash: viewerHash,
			Permissions: models.Permissions{
				Admin:    false,
				Read:     true,
				Write:    false,
				Clusters: map[string]bool{},
			},
		},
	}
	return writeCollection(s.path, accounts)
}

// List returns all accounts with password hashes stripped.
func (s *AccountsFile) List() ([]models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := readCollection[models.Account](s.path)
	if err != nil {
		return nil, err
	}
	out := make([]models.Account, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Sanitized())
	}
	return out, nil
}

// Get returns the full record including the hash, or ErrNotFound.
func (s *AccountsFile) Get(username string) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(username)
}

func (s *AccountsFile) getLocked(username string) (*models.Account, error) {
	accounts, err := readCollection[models.Account](s.path)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		if accounts[i].Username == username {
			return &accounts[i], nil
		}
	}
	return nil, ErrNotFound
}

// Create hashes the password and persists a new account.
func (s *AccountsFile) Create(username, password string, permissions models.Permissions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := readCollection[models.Account](s.path)
	if err != nil {
		return err
	}
	for _, a := range accounts {
		if a.Username == username {
			return ErrConflict
		}
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if permissions.Clusters == nil {
		permissions.Clusters = map[string]bool{}
	}

	accounts = append(accounts, models.Account{
		Username:     username,
		PasswordHash: hash,
		Permissions:  permissions,
	})
	return writeCollection(s.path, accounts)
}

// Update re-hashes the password if one is given and merges the permission
// patch key by key; fields absent from the patch keep their stored values.
func (s *AccountsFile) Update(username string, password *string, permissions *models.PermissionsPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := readCollection[models.Account](s.path)
	if err != nil {
		return err
	}

	for i := range accounts {
		if accounts[i].Username != username {
			continue
		}
		if password != nil {
			hash, err := hashPassword(*password)
			if err != nil {
				return err
			}
			accounts[i].PasswordHash = hash
		}
		if permissions != nil {
			applyPermissionsPatch(&accounts[i].Permissions, permissions)
		}
		return writeCollection(s.path, accounts)
	}
	return ErrNotFound
}

func applyPermissionsPatch(p *models.Permissions, patch *models.PermissionsPatch) {
	if patch.Admin != nil {
		p.Admin = *patch.Admin
	}
	if patch.Read != nil {
		p.Read = *patch.Read
	}
	if patch.Write != nil {
		p.Write = *patch.Write
	}
	if patch.Clusters != nil {
		p.Clusters = patch.Clusters
	}
}

// Delete removes the record or returns ErrNotFound.
func (s *AccountsFile) Delete(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	accounts, err := readCollection[models.Account](s.path)
	if err != nil {
		return err
	}
	for i := range accounts {
		if accounts[i].Username == username {
			accounts = append(accounts[:i], accounts[i+1:]...)
			return writeCollection(s.path, accounts)
		}
	}
	return ErrNotFound
}

// VerifyPassword compares the password against the stored bcrypt hash.
// Every call, success or failure, is pushed to the login recorder; an
// unknown username counts as a failed login.
func (s *AccountsFile) VerifyPassword(username, password string) (bool, error) {
	s.mu.Lock()
	account, err := s.getLocked(username)
	s.mu.Unlock()
	if err != nil && err != ErrNotFound {
		return false, err
	}

	ok := false
	if account != nil {
		ok = bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)) == nil
	}
	if s.logins != nil {
		if err := s.logins.LoginAttempt(username, ok); err != nil {
			return false, err
		}
	}
	return ok, nil
}
