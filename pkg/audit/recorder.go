// Package audit provides the convenience wrappers every mutating call path
// uses to record who did what.
package audit

import (
	"time"

	"github.com/kubetide/console/pkg/metrics"
	"github.com/kubetide/console/pkg/models"
	"github.com/kubetide/console/pkg/store"
)

// Recorder writes entries through the audit store and keeps the Prometheus
// counters in step. Writes are synchronous: a failed write fails the
// operation that triggered it.
type Recorder struct {
	store   store.AuditStore
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewRecorder wraps the given store. metrics may be nil.
func NewRecorder(s store.AuditStore, m *metrics.Metrics) *Recorder {
	return &Recorder{store: s, metrics: m, now: time.Now}
}

func (r *Recorder) append(username, action, resource, details string) error {
	err := r.store.Append(models.AuditEntry{
		Timestamp: r.now(),
		Username:  username,
		Action:    action,
		Resource:  resource,
		Details:   details,
	})
	if err == nil && r.metrics != nil {
		r.metrics.AuditEntries.WithLabelValues(action).Inc()
	}
	return err
}

// LoginAttempt records a login_success or login_failed entry. Implements
// store.LoginRecorder.
func (r *Recorder) LoginAttempt(username string, success bool) error {
	action := models.AuditLoginFailed
	result := "failure"
	if success {
		action = models.AuditLoginSuccess
		result = "success"
	}
	if r.metrics != nil {
		r.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
	return r.append(username, action, "", "")
}

// Logout records a logout entry.
func (r *Recorder) Logout(username string) error {
	return r.append(username, models.AuditLogout, "", "")
}

// Operation records an administrative or traffic-control mutation. Resource
// follows the <kind>/<name> convention (namespaced objects use
// <kind>/<namespace>/<name>).
func (r *Recorder) Operation(username, action, resource, details string) error {
	return r.append(username, action, resource, details)
}

// List returns entries in insertion order, optionally filtered by action.
func (r *Recorder) List(action string) ([]models.AuditEntry, error) {
	return r.store.List(action)
}
