// Package auth decides what a console account may do.
package auth

import (
	"github.com/kubetide/console/pkg/models"
	"github.com/kubetide/console/pkg/store"
)

// Evaluator answers permission checks against the account store.
type Evaluator struct {
	accounts store.AccountStore
}

// NewEvaluator creates an evaluator backed by the given account store.
func NewEvaluator(accounts store.AccountStore) *Evaluator {
	return &Evaluator{accounts: accounts}
}

// Evaluate reports whether the named user holds the permission, optionally
// scoped to one cluster. Unknown users are denied.
func (e *Evaluator) Evaluate(username, permission, cluster string) bool {
	account, err := e.accounts.Get(username)
	if err != nil || account == nil {
		return false
	}
	return Allowed(*account, permission, cluster)
}

// Allowed is the pure permission decision. The ordering is load-bearing:
// the admin flag short-circuits before the per-permission and per-cluster
// checks, so an admin account never needs to enumerate clusters.
func Allowed(account models.Account, permission, cluster string) bool {
	if account.Permissions.Admin {
		return true
	}
	if !account.Permissions.Has(permission) {
		return false
	}
	if cluster != "" && !account.Permissions.HasCluster(cluster) {
		return false
	}
	return true
}

// SeesAllClusters reports whether the cluster listing shows the account
// every cluster. Unlike Allowed, a non-admin with an empty cluster list
// sees everything here while still failing scoped permission checks. The
// two call sites intentionally differ; do not unify them.
func SeesAllClusters(account models.Account) bool {
	return account.Permissions.Admin || len(account.Permissions.Clusters) == 0
}
