package materializer

import (
	"context"
	"time"

	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/internal/metrics"
	"mosaic/internal/reconcile"
	"mosaic/internal/workers"
	"mosaic/pkg/errors"
)

// Worker keeps the current-hour row fresh for every configured symbol.
// Each iteration ensures the (symbol, bucket) rows exist and reconciles
// them across all source categories.
type Worker struct {
	*workers.BaseWorker
	features   features.Repository
	reconciler *reconcile.Reconciler
	recorder   *metrics.Recorder
	symbols    []string
}

// New creates a new materializer worker
func New(
	repo features.Repository,
	reconciler *reconcile.Reconciler,
	recorder *metrics.Recorder,
	symbols []string,
	interval time.Duration,
	enabled bool,
) *Worker {
	return &Worker{
		BaseWorker: workers.NewBaseWorker("materializer", interval, enabled),
		features:   repo,
		reconciler: reconciler,
		recorder:   recorder,
		symbols:    symbols,
	}
}

// Run executes one materialization pass for the current hour
func (w *Worker) Run(ctx context.Context) error {
	if len(w.symbols) == 0 {
		w.Log().Debug("No symbols configured, skipping iteration")
		return nil
	}

	bucket := features.BucketOf(time.Now().UTC())

	cells := make([]features.Cell, 0, len(w.symbols))
	for _, symbol := range w.symbols {
		cell := features.Cell{Symbol: sources.NormalizeSymbol(symbol), Bucket: bucket}
		if err := w.features.EnsureRow(ctx, cell); err != nil {
			w.Log().Errorw("Failed to ensure row", "symbol", cell.Symbol, "bucket", bucket, "error", err)
			return errors.Wrapf(err, "ensure row for %s", cell.Symbol)
		}
		cells = append(cells, cell)
	}

	report, err := w.reconciler.ReconcileBatch(ctx, cells, sources.AllCategories())
	if report != nil && w.recorder != nil {
		w.recorder.RecordReport(report)
	}
	if err != nil {
		w.Log().Errorw("Materialization pass failed", "bucket", bucket, "error", err)
		return errors.Wrap(err, "reconcile current hour")
	}

	w.Log().Infow("Materialization pass completed",
		"bucket", bucket,
		"symbols", len(cells),
		"updated", report.Updated,
		"skipped", report.Skipped,
	)
	return nil
}
