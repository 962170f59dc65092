package auth

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kubetide/console/pkg/models"
	"github.com/kubetide/console/pkg/store"
)

func account(admin, read, write bool, clusters ...string) models.Account {
	m := map[string]bool{}
	for _, c := range clusters {
		m[c] = true
	}
	return models.Account{
		Username: "test",
		Permissions: models.Permissions{
			Admin:    admin,
			Read:     read,
			Write:    write,
			Clusters: m,
		},
	}
}

func TestAllowed(t *testing.T) {
	tests := []struct {
		name       string
		account    models.Account
		permission string
		cluster    string
		want       bool
	}{
		{"admin passes any permission", account(true, false, false), "write", "", true},
		{"admin passes any cluster without membership", account(true, false, false), "read", "prod", true},
		{"reader can read", account(false, true, false), "read", "", true},
		{"reader cannot write", account(false, true, false), "write", "", false},
		{"writer can write", account(false, false, true), "write", "", true},
		{"member can read member cluster", account(false, true, false, "prod"), "read", "prod", true},
		{"member cannot read other cluster", account(false, true, false, "prod"), "read", "staging", false},
		{"no clusters denies scoped check", account(false, true, false), "read", "prod", false},
		{"unknown permission name denied", account(false, true, true), "deploy", "", false},
		{"admin flag is queryable as a permission", account(true, false, false), "admin", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.account, tt.permission, tt.cluster))
		})
	}
}

func TestEvaluator_UnknownUserIsDenied(t *testing.T) {
	accounts := store.NewAccountsFile(filepath.Join(t.TempDir(), "accounts.json"), nil)
	e := NewEvaluator(accounts)

	assert.False(t, e.Evaluate("ghost", "read", ""))
	assert.False(t, e.Evaluate("", "read", ""))
}

func TestEvaluator_AgainstStore(t *testing.T) {
	accounts := store.NewAccountsFile(filepath.Join(t.TempDir(), "accounts.json"), nil)
	require.NoError(t, accounts.Initialize())
	require.NoError(t, accounts.Create("scoped", "pw", models.Permissions{
		Read:     true,
		Clusters: map[string]bool{"prod": true},
	}))

	e := NewEvaluator(accounts)

	assert.True(t, e.Evaluate("admin", "write", "anything"))
	assert.True(t, e.Evaluate("user", "read", ""))
	assert.False(t, e.Evaluate("user", "write", ""))
	assert.True(t, e.Evaluate("scoped", "read", "prod"))
	assert.False(t, e.Evaluate("scoped", "read", "staging"))
}

// The cluster listing is intentionally more permissive than scoped checks:
// an empty cluster list means "show everything" there, while Allowed treats
// it as "member of nothing".
func TestSeesAllClusters_DiffersFromAllowed(t *testing.T) {
	unscoped := account(false, true, false)

	assert.True(t, SeesAllClusters(unscoped))
	assert.False(t, Allowed(unscoped, "read", "prod"))

	scoped := account(false, true, false, "prod")
	assert.False(t, SeesAllClusters(scoped))
	assert.True(t, Allowed(scoped, "read", "prod"))

	assert.True(t, SeesAllClusters(account(true, false, false)))
}
