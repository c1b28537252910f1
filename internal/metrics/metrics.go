// Package metrics exposes security counters for the optional /metrics
// endpoint: no patient data, only operation counts.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/frahmantamala/clinical-records/internal/audit"
)

type Metrics struct {
	registry *prometheus.Registry

	auditEntries      *prometheus.CounterVec
	permissionDenials prometheus.Counter
	loginAttempts     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		auditEntries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinical_audit_entries_total",
			Help: "Audit trail entries appended, by action kind.",
		}, []string{"action"}),
		permissionDenials: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "clinical_permission_denials_total",
			Help: "Authorization denials.",
		}),
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "clinical_login_attempts_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(m.auditEntries, m.permissionDenials, m.loginAttempts)
	return m
}

// Observe is wired as an audit append hook, so the counters track the
// trail itself rather than a parallel bookkeeping path.
func (m *Metrics) Observe(entry audit.Entry) {
	m.auditEntries.WithLabelValues(string(entry.Action)).Inc()

	switch entry.Action {
	case audit.ActionPermissionDenied:
		m.permissionDenials.Inc()
	case audit.ActionLogin:
		m.loginAttempts.WithLabelValues("success").Inc()
	case audit.ActionLoginFailure:
		m.loginAttempts.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
