// Package metrics exposes prometheus counters for collection runs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type RunMetrics struct {
	RunsTotal        prometheus.Counter
	RunsSkippedTotal prometheus.Counter

	DiscountsSavedTotal   *prometheus.CounterVec
	SourceErrorsTotal     *prometheus.CounterVec
	CardsSkippedTotal     *prometheus.CounterVec
	DiscountsExpiredTotal prometheus.Counter
}

func NewRunMetrics() *RunMetrics {
	return &RunMetrics{
		RunsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "collection_runs_total",
			Help: "Completed collection runs",
		}),
		RunsSkippedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "collection_runs_skipped_total",
			Help: "Triggers dropped because a run was still in progress",
		}),
		DiscountsSavedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "discounts_saved_total",
			Help: "Candidates successfully reconciled, by store",
		}, []string{"store"}),
		SourceErrorsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "source_errors_total",
			Help: "Extraction failures, by store",
		}, []string{"store"}),
		CardsSkippedTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "cards_skipped_total",
			Help: "Product cards dropped as malformed, by store",
		}, []string{"store"}),
		DiscountsExpiredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "discounts_expired_total",
			Help: "Discounts deactivated by the stale sweep",
		}),
	}
}

// All record methods are nil-safe so callers without metrics wiring (tests)
// need no conditionals.

func (m *RunMetrics) RecordRun() {
	if m == nil {
		return
	}
	m.RunsTotal.Inc()
}

func (m *RunMetrics) RecordOverlapSkip() {
	if m == nil {
		return
	}
	m.RunsSkippedTotal.Inc()
}

func (m *RunMetrics) RecordSource(store string, saved, skipped int, errored bool) {
	if m == nil {
		return
	}
	m.DiscountsSavedTotal.WithLabelValues(store).Add(float64(saved))
	m.CardsSkippedTotal.WithLabelValues(store).Add(float64(skipped))
	if errored {
		m.SourceErrorsTotal.WithLabelValues(store).Inc()
	}
}

func (m *RunMetrics) RecordExpired(count int64) {
	if m == nil {
		return
	}
	m.DiscountsExpiredTotal.Add(float64(count))
}
