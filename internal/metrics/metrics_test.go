package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTransition("approved", "success")
	m.ObserveTransition("approved", "success")
	m.IncrementRollbacks("transition")
	m.AddBulk("updated", 3)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.Transitions.WithLabelValues("approved", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Rollbacks.WithLabelValues("transition")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.BulkRegistrations.WithLabelValues("updated")))
}
