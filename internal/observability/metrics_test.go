package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Isolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("test", reg)

	m.AggregationRuns.WithLabelValues("success").Inc()
	m.EnrichmentOutcomes.WithLabelValues("partial").Add(2)
	m.SessionsActive.Add(3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.AggregationRuns.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.EnrichmentOutcomes.WithLabelValues("partial")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsActive))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["test_catalog_aggregation_runs_total"])
	assert.True(t, names["test_session_active"])
}

func TestRecordHelpers(t *testing.T) {
	before := testutil.ToFloat64(DefaultMetrics.CheckoutEvents.WithLabelValues("failed"))
	RecordCheckoutEvent("failed")
	assert.Equal(t, before+1, testutil.ToFloat64(DefaultMetrics.CheckoutEvents.WithLabelValues("failed")))

	errsBefore := testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "probe"))
	RecordDBQuery("postgres", "probe", 0.01, nil)
	assert.Equal(t, errsBefore, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "probe")))
	RecordDBQuery("postgres", "probe", 0.01, assert.AnError)
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(DefaultMetrics.DBQueryErrors.WithLabelValues("postgres", "probe")))
}
