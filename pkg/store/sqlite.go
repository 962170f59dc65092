package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"

	"github.com/kubetide/console/pkg/models"
)

// SQLiteStore implements AccountStore, CredentialStore and AuditStore on a
// single embedded database. It is the transactional alternative to the flat
// JSON collections for deployments where write volume makes the full-file
// rewrite a concern; the contracts are identical.
type SQLiteStore struct {
	db        *sql.DB
	importDir string
	logins    LoginRecorder
}

// NewSQLiteStore opens (and migrates) the database at dbPath. importDir
// plays the same role as in the file-backed credential store. Attach the
// login recorder with SetLoginRecorder once it exists.
func NewSQLiteStore(dbPath, importDir string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{db: db, importDir: importDir}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		username TEXT PRIMARY KEY,
		password_hash TEXT NOT NULL,
		permissions TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS clusters (
		name TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		kubeconfig_content TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME NOT NULL,
		username TEXT NOT NULL,
		action TEXT NOT NULL,
		resource TEXT,
		details TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_action ON audit_log(action);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SetLoginRecorder attaches the login recorder after construction. The
// recorder writes through this store's own audit view, so it cannot exist
// before the store does.
func (s *SQLiteStore) SetLoginRecorder(logins LoginRecorder) {
	s.logins = logins
}

// Accounts returns the AccountStore view of this database.
func (s *SQLiteStore) Accounts() AccountStore { return s }

// Credentials returns the CredentialStore view of this database.
func (s *SQLiteStore) Credentials() CredentialStore { return sqliteCredentialView{s} }

// Audit returns the AuditStore view of this database.
func (s *SQLiteStore) Audit() AuditStore { return sqliteAuditView{s} }

// The credential and audit tables share the database handle with accounts,
// but the interfaces collide on method names (List, Get), so they are
// exposed through thin views.
type sqliteCredentialView struct{ s *SQLiteStore }

func (v sqliteCredentialView) List() ([]models.ClusterCredential, error) {
	return v.s.ListCredentials()
}
func (v sqliteCredentialView) Get(name string) (*models.ClusterCredential, error) {
	return v.s.GetCredential(name)
}
func (v sqliteCredentialView) Create(cred models.ClusterCredential) error {
	return v.s.CreateCredential(cred)
}
func (v sqliteCredentialView) Update(name string, displayName, content *string) error {
	return v.s.UpdateCredential(name, displayName, content)
}
func (v sqliteCredentialView) Delete(name string) error {
	return v.s.DeleteCredential(name)
}

type sqliteAuditView struct{ s *SQLiteStore }

func (v sqliteAuditView) Append(entry models.AuditEntry) error {
	return v.s.Append(entry)
}
func (v sqliteAuditView) List(action string) ([]models.AuditEntry, error) {
	return v.s.ListAudit(action)
}

// --- AccountStore ---

// Initialize seeds the default accounts when the table is empty.
func (s *SQLiteStore) Initialize() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM accounts`).Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	seed := []struct {
		username, password string
		permissions        models.Permissions
	}{
		{defaultAdminUser, defaultAdminPassword, models.Permissions{Admin: true, Read: true, Write: true, Clusters: map[string]bool{}}},
		{defaultViewerUser, defaultViewerPass, models.Permissions{Admin: false, Read: true, Write: false, Clusters: map[string]bool{}}},
	}
	for _, acct := range seed {
		hash, err := hashPassword(acct.password)
		if err != nil {
			return err
		}
		perms, err := json.Marshal(acct.permissions)
		if err != nil {
			return err
		}
		if _, err := s.db.Exec(
			`INSERT INTO accounts (username, password_hash, permissions) VALUES (?, ?, ?)`,
			acct.username, hash, string(perms),
		); err != nil {
			return err
		}
	}
	return nil
}

// List returns all accounts with password hashes stripped.
func (s *SQLiteStore) List() ([]models.Account, error) {
	rows, err := s.db.Query(`SELECT username, permissions FROM accounts ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []models.Account{}
	for rows.Next() {
		var a models.Account
		var perms string
		if err := rows.Scan(&a.Username, &perms); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(perms), &a.Permissions); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// Get returns the full record including the hash.
func (s *SQLiteStore) Get(username string) (*models.Account, error) {
	var a models.Account
	var perms string
	err := s.db.QueryRow(
		`SELECT username, password_hash, permissions FROM accounts WHERE username = ?`,
		username,
	).Scan(&a.Username, &a.PasswordHash, &perms)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(perms), &a.Permissions); err != nil {
		return nil, err
	}
	return &a, nil
}

// Create hashes the password and inserts a new account.
func (s *SQLiteStore) Create(username, password string, permissions models.Permissions) error {
	if existing, err := s.Get(username); err != nil && err != ErrNotFound {
		return err
	} else if existing != nil {
		return ErrConflict
	}

	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	if permissions.Clusters == nil {
		permissions.Clusters = map[string]bool{}
	}
	perms, err := json.Marshal(permissions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO accounts (username, password_hash, permissions) VALUES (?, ?, ?)`,
		username, hash, string(perms),
	)
	return err
}

// Update re-hashes the password if given and applies the permission patch.
func (s *SQLiteStore) Update(username string, password *string, permissions *models.PermissionsPatch) error {
	account, err := s.Get(username)
	if err != nil {
		return err
	}

	if password != nil {
		hash, err := hashPassword(*password)
		if err != nil {
			return err
		}
		account.PasswordHash = hash
	}
	if permissions != nil {
		applyPermissionsPatch(&account.Permissions, permissions)
	}

	perms, err := json.Marshal(account.Permissions)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`UPDATE accounts SET password_hash = ?, permissions = ? WHERE username = ?`,
		account.PasswordHash, string(perms), username,
	)
	return err
}

// Delete removes the record or returns ErrNotFound.
func (s *SQLiteStore) Delete(username string) error {
	res, err := s.db.Exec(`DELETE FROM accounts WHERE username = ?`, username)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// VerifyPassword checks the password and records the login attempt.
func (s *SQLiteStore) VerifyPassword(username, password string) (bool, error) {
	account, err := s.Get(username)
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

// --- CredentialStore ---

// ListCredentials returns all credentials, importing legacy kubeconfig
// files on the first call against an empty table.
func (s *SQLiteStore) ListCredentials() ([]models.ClusterCredential, error) {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM clusters`).Scan(&count); err != nil {
		return nil, err
	}
	if count == 0 && s.importDir != "" {
		if err := s.importLegacy(); err != nil {
			return nil, err
		}
	}

	rows, err := s.db.Query(`SELECT name, display_name, kubeconfig_content FROM clusters ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	creds := []models.ClusterCredential{}
	for rows.Next() {
		var c models.ClusterCredential
		if err := rows.Scan(&c.Name, &c.DisplayName, &c.KubeconfigContent); err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

func (s *SQLiteStore) importLegacy() error {
	entries, err := os.ReadDir(s.importDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	imported := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		content, err := os.ReadFile(filepath.Join(s.importDir, entry.Name()))
		if err != nil {
			log.Printf("[store] failed to import kubeconfig %s: %v", entry.Name(), err)
			continue
		}
		if _, err := s.db.Exec(
			`INSERT OR IGNORE INTO clusters (name, display_name, kubeconfig_content) VALUES (?, ?, ?)`,
			entry.Name(), entry.Name(), string(content),
		); err != nil {
			return err
		}
		imported++
	}
	if imported > 0 {
		log.Printf("[store] imported %d legacy kubeconfig file(s) from %s", imported, s.importDir)
	}
	return nil
}

// GetCredential matches on the unique cluster name.
func (s *SQLiteStore) GetCredential(name string) (*models.ClusterCredential, error) {
	var c models.ClusterCredential
	err := s.db.QueryRow(
		`SELECT name, display_name, kubeconfig_content FROM clusters WHERE name = ?`,
		name,
	).Scan(&c.Name, &c.DisplayName, &c.KubeconfigContent)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateCredential inserts a new credential or returns ErrConflict.
func (s *SQLiteStore) CreateCredential(cred models.ClusterCredential) error {
	if existing, err := s.GetCredential(cred.Name); err != nil && err != ErrNotFound {
		return err
	} else if existing != nil {
		return ErrConflict
	}
	_, err := s.db.Exec(
		`INSERT INTO clusters (name, display_name, kubeconfig_content) VALUES (?, ?, ?)`,
		cred.Name, cred.DisplayName, cred.KubeconfigContent,
	)
	return err
}

// UpdateCredential applies a partial update.
func (s *SQLiteStore) UpdateCredential(name string, displayName, content *string) error {
	cred, err := s.GetCredential(name)
	if err != nil {
		return err
	}
	if displayName != nil {
		cred.DisplayName = *displayName
	}
	if content != nil {
		cred.KubeconfigContent = *content
	}
	_, err = s.db.Exec(
		`UPDATE clusters SET display_name = ?, kubeconfig_content = ? WHERE name = ?`,
		cred.DisplayName, cred.KubeconfigContent, name,
	)
	return err
}

// DeleteCredential removes the record and best-effort deletes the legacy file.
func (s *SQLiteStore) DeleteCredential(name string) error {
	res, err := s.db.Exec(`DELETE FROM clusters WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
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

// --- AuditStore ---

// Append inserts an entry and trims the log to the cap.
func (s *SQLiteStore) Append(entry models.AuditEntry) error {
	if _, err := s.db.Exec(
		`INSERT INTO audit_log (timestamp, username, action, resource, details) VALUES (?, ?, ?, ?, ?)`,
		entry.Timestamp.Format(time.RFC3339Nano), entry.Username, entry.Action, entry.Resource, entry.Details,
	); err != nil {
		return err
	}
	_, err := s.db.Exec(
		`DELETE FROM audit_log WHERE id NOT IN (SELECT id FROM audit_log ORDER BY id DESC LIMIT ?)`,
		MaxAuditEntries,
	)
	return err
}

// ListAudit returns entries in insertion order, optionally filtered.
func (s *SQLiteStore) ListAudit(action string) ([]models.AuditEntry, error) {
	query := `SELECT timestamp, username, action, resource, details FROM audit_log`
	args := []any{}
	if action != "" {
		query += ` WHERE action = ?`
		args = append(args, action)
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var e models.AuditEntry
		var ts string
		if err := rows.Scan(&ts, &e.Username, &e.Action, &e.Resource, &e.Details); err != nil {
			return nil, err
		}
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			e.Timestamp = parsed
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
