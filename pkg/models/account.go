package models

// Permission names accepted by the evaluator
const (
	PermissionAdmin = "admin"
	PermissionRead  = "read"
	PermissionWrite = "write"
)

// Permissions describes what an account is allowed to do. Clusters maps
// cluster name -> membership; an admin account does not need to enumerate
// clusters because the admin flag overrides per-cluster checks.
type Permissions struct {
	Admin    bool            `json:"admin"`
	Read     bool            `json:"read"`
	Write    bool            `json:"write"`
	Clusters map[string]bool `json:"clusters"`
}

// Has reports whether the named global permission flag is set.
func (p Permissions) Has(permission string) bool {
	switch permission {
	case PermissionAdmin:
		return p.Admin
	case PermissionRead:
		return p.Read
	case PermissionWrite:
		return p.Write
	}
	return false
}

// HasCluster reports whether the account is a member of the named cluster.
func (p Permissions) HasCluster(cluster string) bool {
	_, ok := p.Clusters[cluster]
	return ok
}

// Account is one console user. PasswordHash is a bcrypt digest and is
// stripped before the record is returned to clients.
type Account struct {
	Username     string      `json:"username"`
	PasswordHash string      `json:"password_hash,omitempty"`
	Permissions  Permissions `json:"permissions"`
}

// Sanitized returns a copy of the account with the password hash removed.
func (a Account) Sanitized() Account {
	a.PasswordHash = ""
	return a
}

// PermissionsPatch is a partial permission update applied key by key:
// nil fields are left untouched, and a non-nil Clusters map replaces the
// stored map as a whole (shallow merge, matching the update contract).
type PermissionsPatch struct {
	Admin    *bool           `json:"admin,omitempty"`
	Read     *bool           `json:"read,omitempty"`
	Write    *bool           `json:"write,omitempty"`
	Clusters map[string]bool `json:"clusters,omitempty"`
}
