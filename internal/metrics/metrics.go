// Package metrics holds the prometheus collectors for the session client.
// Collectors live on a private registry so that several clients (and tests)
// can coexist in one process.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Refresh outcomes
const (
	OutcomeSuccess   = "success"
	OutcomeFailed    = "failed"
	OutcomeTimeout   = "timeout"
	OutcomeLimited   = "limited"
	OutcomeThrottled = "throttled"
)

// Status check results
const (
	StatusOK           = "ok"
	StatusUnauthorized = "unauthorized"
	StatusError        = "error"
)

// Logout reasons
const (
	LogoutUser          = "user"
	LogoutExpired       = "expired"
	LogoutRenewalFailed = "renewal_failed"
)

type Metrics struct {
	Registry        *prometheus.Registry
	RefreshAttempts *prometheus.CounterVec
	StatusChecks    *prometheus.CounterVec
	Logouts         *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RefreshAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "budget_client",
			Name:      "refresh_requests_total",
			Help:      "Token refresh requests by outcome.",
		}, []string{"outcome"}),
		StatusChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "budget_client",
			Name:      "status_checks_total",
			Help:      "Remote auth status checks by result.",
		}, []string{"result"}),
		Logouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "budget_client",
			Name:      "logouts_total",
			Help:      "Logouts by reason.",
		}, []string{"reason"}),
	}
	m.Registry.MustRegister(m.RefreshAttempts, m.StatusChecks, m.Logouts)
	return m
}

// ObserveRefresh is nil-safe so callers can run without metrics.
func (m *Metrics) ObserveRefresh(outcome string) {
	if m == nil {
		return
	}
	m.RefreshAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveStatus(result string) {
	if m == nil {
		return
	}
	m.StatusChecks.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveLogout(reason string) {
	if m == nil {
		return
	}
	m.Logouts.WithLabelValues(reason).Inc()
}
