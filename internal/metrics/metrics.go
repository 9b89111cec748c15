package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"mosaic/internal/reconcile"
)

// Recorder exposes reconciliation run counters
type Recorder struct {
	cellsScanned prometheus.Counter
	rowsUpdated  prometheus.Counter
	cellsSkipped prometheus.Counter
	errs         prometheus.Counter
	retries      prometheus.Counter
	resolved     *prometheus.CounterVec
	runDuration  prometheus.Histogram
}

// NewRecorder creates and registers the run counters
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		cellsScanned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mosaic_reconcile_cells_scanned_total",
			Help: "Materialized cells processed by reconciliation runs",
		}),
		rowsUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mosaic_reconcile_rows_updated_total",
			Help: "Materialized rows written by reconciliation runs",
		}),
		cellsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mosaic_reconcile_cells_skipped_total",
			Help: "Cells skipped for lack of source data or under another job's lock",
		}),
		errs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mosaic_reconcile_errors_total",
			Help: "Cells that failed after the retry budget",
		}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mosaic_reconcile_retries_total",
			Help: "Lock-contention retries across sub-batches",
		}),
		resolved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mosaic_reconcile_resolved_total",
			Help: "Cells a source category resolved data for",
		}, []string{"category"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mosaic_reconcile_run_duration_seconds",
			Help:    "Wall time of reconciliation runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
	}

	reg.MustRegister(r.cellsScanned, r.rowsUpdated, r.cellsSkipped, r.errs, r.retries, r.resolved, r.runDuration)
	return r
}

// RecordReport folds one run report into the counters
func (r *Recorder) RecordReport(report *reconcile.Report) {
	if report == nil {
		return
	}
	r.cellsScanned.Add(float64(report.Scanned))
	r.rowsUpdated.Add(float64(report.Updated))
	r.cellsSkipped.Add(float64(report.Skipped))
	r.errs.Add(float64(report.Errors))
	r.retries.Add(float64(report.Retries))
	for cat, n := range report.ResolvedByCategory {
		r.resolved.WithLabelValues(cat.String()).Add(float64(n))
	}
	r.runDuration.Observe(report.Duration().Seconds())
}
