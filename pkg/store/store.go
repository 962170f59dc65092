package store

import (
	"errors"

	"github.com/kubetide/console/pkg/models"
)

// Sentinel errors shared by every backend. Handlers recover these into
// structured {success,message} responses instead of generic failures.
var (
	// ErrNotFound means the requested username or cluster name is unknown.
	ErrNotFound = errors.New("record not found")
	// ErrConflict means a create collided with an existing username or
	// cluster name.
	ErrConflict = errors.New("record already exists")
)

// LoginRecorder receives the audit side effect of every password check.
// Both successful and failed verifications are recorded. A recording
// failure fails the verification: the log is the only record of who did
// what, so it is never silently skipped.
type LoginRecorder interface {
	LoginAttempt(username string, success bool) error
}

// AccountStore persists console accounts.
type AccountStore interface {
	// Initialize seeds the default accounts when the store is empty.
	Initialize() error
	// List returns all accounts with password hashes stripped.
	List() ([]models.Account, error)
	// Get returns the full record, including the hash.
	Get(username string) (*models.Account, error)
	// Create hashes the password and persists a new account. A missing
	// clusters map defaults to empty. Returns ErrConflict on duplicates.
	Create(username, password string, permissions models.Permissions) error
	// Update re-hashes the password if one is given and applies the
	// permission patch key by key. Returns ErrNotFound for unknown users.
	Update(username string, password *string, permissions *models.PermissionsPatch) error
	// Delete removes the record. Returns ErrNotFound for unknown users.
	Delete(username string) error
	// VerifyPassword checks the password against the stored hash and
	// records a login audit entry on every call.
	VerifyPassword(username, password string) (bool, error)
}

// CredentialStore persists cluster credentials.
type CredentialStore interface {
	// List returns all credentials. The first call on an empty store
	// imports any legacy kubeconfig files found in the configured
	// directory (idempotent: once records exist no import happens).
	List() ([]models.ClusterCredential, error)
	// Get matches on the unique cluster name.
	Get(name string) (*models.ClusterCredential, error)
	// Create persists a new credential. Returns ErrConflict on duplicates.
	Create(cred models.ClusterCredential) error
	// Update applies a partial update; nil fields are left untouched.
	Update(name string, displayName, content *string) error
	// Delete removes the record and best-effort deletes a like-named
	// legacy file from the import directory.
	Delete(name string) error
}

// AuditStore persists the capped operation log.
type AuditStore interface {
	// Append inserts an entry and evicts the oldest surplus beyond the cap.
	Append(entry models.AuditEntry) error
	// List returns entries in insertion order, optionally filtered by
	// exact action match (empty action matches everything).
	List(action string) ([]models.AuditEntry, error)
}

// MaxAuditEntries is the FIFO cap on the audit log.
const MaxAuditEntries = 1000
