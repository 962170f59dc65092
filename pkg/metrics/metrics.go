// Package metrics holds the console's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics bundles the console collectors on a private registry so tests can
// construct isolated instances.
type Metrics struct {
	Registry *prometheus.Registry

	LoginAttempts   *prometheus.CounterVec
	AuditEntries    *prometheus.CounterVec
	ResolvedClients *prometheus.CounterVec
}

// New creates a registry with the console collectors plus the standard Go
// and process collectors.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		LoginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_login_attempts_total",
			Help: "Password verifications by result.",
		}, []string{"result"}),
		AuditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_audit_entries_total",
			Help: "Audit log entries recorded, by action.",
		}, []string{"action"}),
		ResolvedClients: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "console_cluster_clients_resolved_total",
			Help: "Cluster clients built from stored credentials, by cluster.",
		}, []string{"cluster"}),
	}

	m.Registry.MustRegister(
		m.LoginAttempts,
		m.AuditEntries,
		m.ResolvedClients,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}
