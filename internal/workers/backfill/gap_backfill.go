package backfill

import (
	"context"
	"time"

	"mosaic/internal/domain/sources"
	"mosaic/internal/metrics"
	"mosaic/internal/reconcile"
	"mosaic/internal/workers"
	"mosaic/pkg/errors"
)

// GapBackfillWorker periodically scans ml_features_materialized for cells
// missing a value per source category and reconciles them from the source
// tables.
type GapBackfillWorker struct {
	*workers.BaseWorker
	scanner  *reconcile.Scanner
	recorder *metrics.Recorder
	lookback time.Duration
	batch    int
}

// NewGapBackfillWorker creates a new gap backfill worker
func NewGapBackfillWorker(
	scanner *reconcile.Scanner,
	recorder *metrics.Recorder,
	lookback time.Duration,
	batch int,
	interval time.Duration,
	enabled bool,
) *GapBackfillWorker {
	return &GapBackfillWorker{
		BaseWorker: workers.NewBaseWorker("gap_backfill", interval, enabled),
		scanner:    scanner,
		recorder:   recorder,
		lookback:   lookback,
		batch:      batch,
	}
}

// Run executes one gap scan and repair pass over the lookback window
func (w *GapBackfillWorker) Run(ctx context.Context) error {
	until := time.Now().UTC()
	from := until.Add(-w.lookback)

	w.Log().Debugw("Gap backfill: starting pass", "from", from, "until", until)

	report, err := w.scanner.RepairAll(ctx, sources.AllCategories(), from, until, w.batch)
	if report != nil && w.recorder != nil {
		w.recorder.RecordReport(report)
	}
	if err != nil {
		w.Log().Errorw("Gap backfill pass failed", "error", err)
		return errors.Wrap(err, "repair gaps")
	}

	if report.Scanned == 0 {
		w.Log().Debug("Gap backfill: no missing cells")
		return nil
	}

	w.Log().Infow("Gap backfill pass completed",
		"scanned", report.Scanned,
		"updated", report.Updated,
		"skipped", report.Skipped,
		"errors", report.Errors,
		"duration", report.Duration().Round(time.Millisecond),
	)
	return nil
}
