package models

import "time"

// Audit actions recorded by the console. Account and cluster mutations use
// free-form action names such as add_cluster or update_user.
const (
	AuditLoginSuccess   = "login_success"
	AuditLoginFailed    = "login_failed"
	AuditLogout         = "logout"
	AuditRemoveLoad     = "remove_load"
	AuditRestoreTraffic = "restore_traffic"
)

// AuditEntry is one immutable record of a security-relevant or mutating
// action. Resource identifies the affected object as <kind>/<name>
// (namespaced objects use <kind>/<namespace>/<name>).
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Username  string    `json:"username"`
	Action    string    `json:"action"`
	Resource  string    `json:"resource,omitempty"`
	Details   string    `json:"details,omitempty"`
}
