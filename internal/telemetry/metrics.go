// Package telemetry exposes the engine's Prometheus metrics, grounded on
// the teacher's internal/escrow/metrics.go Metrics type: one struct of
// promauto-registered vectors plus small Record*/Update* methods hiding
// the label plumbing from callers.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/knhk/core/internal/pattern"
)

// Metrics holds every metric the pipeline, fiber, and warm path record.
type Metrics struct {
	TickSpan           *prometheus.HistogramVec
	CyclesTotal        *prometheus.CounterVec
	ParkedTotal        *prometheus.CounterVec
	BudgetViolations   *prometheus.CounterVec
	WarmPoolCheckedOut prometheus.Gauge
	WarmPoolIdle       prometheus.Gauge
	WarmPoolSpills     prometheus.Counter
	ChainAdvances      prometheus.Counter
}

// New creates and registers every metric against the default Prometheus
// registry.
func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer creates and registers every metric against reg. Tests
// pass a fresh prometheus.NewRegistry() so repeated calls don't collide
// with the process-wide default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TickSpan: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "core_tick_span",
				Help:    "Ticks elapsed per dispatched cycle, by pattern tag",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 7, float64(pattern.ChatmanConstant)},
			},
			[]string{"pattern"},
		),
		CyclesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_cycles_total",
				Help: "Total cycles dispatched, by shard and outcome",
			},
			[]string{"shard", "outcome"}, // outcome: committed, parked, violated
		),
		ParkedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_parked_total",
				Help: "Total work handed to the warm path, by reason",
			},
			[]string{"reason"},
		),
		BudgetViolations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "core_budget_violations_total",
				Help: "Total Chatman Constant / composition budget violations, by pattern",
			},
			[]string{"pattern", "error_tag"},
		),
		WarmPoolCheckedOut: factory.NewGauge(prometheus.GaugeOpts{
			Name: "core_warm_pool_checked_out",
			Help: "Warm-path workers currently servicing parked work",
		}),
		WarmPoolIdle: factory.NewGauge(prometheus.GaugeOpts{
			Name: "core_warm_pool_idle",
			Help: "Warm-path workers currently idle",
		}),
		WarmPoolSpills: factory.NewCounter(prometheus.CounterOpts{
			Name: "core_warm_pool_spills_total",
			Help: "Total parked records spilled to Cloud Tasks overflow",
		}),
		ChainAdvances: factory.NewCounter(prometheus.CounterOpts{
			Name: "core_chain_advances_total",
			Help: "Total receipt-chain head advances",
		}),
	}
}

// RecordCycle records one dispatched cycle's outcome and tick span.
func (m *Metrics) RecordCycle(shard string, tag pattern.Tag, tickSpan uint32, parked bool, errorTag string) {
	outcome := "committed"
	switch {
	case parked:
		outcome = "parked"
	case errorTag != "":
		outcome = "violated"
	}
	m.CyclesTotal.WithLabelValues(shard, outcome).Inc()
	m.TickSpan.WithLabelValues(tag.String()).Observe(float64(tickSpan))
	if errorTag != "" {
		m.BudgetViolations.WithLabelValues(tag.String(), errorTag).Inc()
	}
}

// RecordParked records one handoff to the warm path.
func (m *Metrics) RecordParked(reason string) {
	m.ParkedTotal.WithLabelValues(reason).Inc()
}

// UpdatePoolStats sets the warm pool's checked-out/idle gauges.
func (m *Metrics) UpdatePoolStats(checkedOut, idle int) {
	m.WarmPoolCheckedOut.Set(float64(checkedOut))
	m.WarmPoolIdle.Set(float64(idle))
}

// RecordSpill records one overflow spill to Cloud Tasks.
func (m *Metrics) RecordSpill() {
	m.WarmPoolSpills.Inc()
}

// RecordChainAdvance records one receipt-chain head advance.
func (m *Metrics) RecordChainAdvance() {
	m.ChainAdvances.Inc()
}
