package telemetry

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/knhk/core/internal/pattern"
)

func TestRecordCycleCommittedIncrementsCounters(t *testing.T) {
	m := newForTest()

	m.RecordCycle("0", pattern.Sequence, 3, false, "")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.CyclesTotal.WithLabelValues("0", "committed")))
}

func TestRecordCycleViolationIncrementsBudgetViolations(t *testing.T) {
	m := newForTest()

	m.RecordCycle("2", pattern.ParallelSplit, 9, false, "PatternBudgetExceeded")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.BudgetViolations.WithLabelValues(pattern.ParallelSplit.String(), "PatternBudgetExceeded")))
}

func TestUpdatePoolStatsSetsGauges(t *testing.T) {
	m := newForTest()

	m.UpdatePoolStats(3, 5)

	assert.Equal(t, float64(3), testutil.ToFloat64(m.WarmPoolCheckedOut))
	assert.Equal(t, float64(5), testutil.ToFloat64(m.WarmPoolIdle))
}

// newForTest builds a Metrics struct against a fresh registry so repeated
// calls across tests don't collide with each other.
func newForTest() *Metrics {
	return NewWithRegisterer(prometheus.NewRegistry())
}
