// Package telemetry exposes Prometheus collectors for import activity.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Apsteward8/my-bet-tracker/internal/domain"
)

// Imports records the outcome of every reconciliation batch.
type Imports struct {
	rows     *prometheus.CounterVec
	batches  *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewImports registers the import collectors on reg.
func NewImports(reg prometheus.Registerer) *Imports {
	m := &Imports{
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bettracker",
			Subsystem: "import",
			Name:      "rows_total",
			Help:      "Rows processed by outcome.",
		}, []string{"source", "outcome"}),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bettracker",
			Subsystem: "import",
			Name:      "batches_total",
			Help:      "Import batches by result.",
		}, []string{"source", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bettracker",
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Wall time of an import batch.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"source"}),
	}
	reg.MustRegister(m.rows, m.batches, m.duration)
	return m
}

// Observe records one finished batch.
func (m *Imports) Observe(r domain.BatchReport) {
	if m == nil {
		return
	}
	src := string(r.Source)
	for outcome, n := range map[string]int{
		"inserted":       r.Inserted,
		"updated":        r.Updated,
		"unchanged":      r.Unchanged,
		"skipped":        r.Skipped,
		"error":          r.Errors,
		"unknown_status": r.UnknownStatus,
	} {
		if n > 0 {
			m.rows.WithLabelValues(src, outcome).Add(float64(n))
		}
	}
	result := "committed"
	if r.Failed {
		result = "failed"
	}
	m.batches.WithLabelValues(src, result).Inc()
	if !r.FinishedAt.IsZero() {
		m.duration.WithLabelValues(src).Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	}
}
