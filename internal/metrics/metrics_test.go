package metrics_test

import (
	"testing"

	"github.com/jrsteele09/budget-tracker-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Observe(t *testing.T) {
	m := metrics.New()

	m.ObserveRefresh(metrics.OutcomeSuccess)
	m.ObserveRefresh(metrics.OutcomeSuccess)
	m.ObserveRefresh(metrics.OutcomeTimeout)
	m.ObserveStatus("unauthorized")
	m.ObserveLogout("expired")

	require.Equal(t, 2.0, testutil.ToFloat64(m.RefreshAttempts.WithLabelValues(metrics.OutcomeSuccess)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshAttempts.WithLabelValues(metrics.OutcomeTimeout)))
	require.Equal(t, 1.0, testutil.ToFloat64(m.StatusChecks.WithLabelValues("unauthorized")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.Logouts.WithLabelValues("expired")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *metrics.Metrics
	require.NotPanics(t, func() {
		m.ObserveRefresh(metrics.OutcomeFailed)
		m.ObserveStatus("ok")
		m.ObserveLogout("manual")
	})
}
