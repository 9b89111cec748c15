package features

import (
	"context"
	"time"

	"mosaic/internal/domain/sources"
)

// Repository is the single mutation path into ml_features_materialized
type Repository interface {
	// UpsertBatch merges a group of patches in one transaction at
	// READ COMMITTED. All-or-nothing: on failure the caller retries the
	// whole sub-batch. Populated columns are never overwritten with NULL;
	// updated_at is touched on every write.
	UpsertBatch(ctx context.Context, patches []*Patch) error

	// Get reads one materialized row
	Get(ctx context.Context, symbol string, bucket time.Time) (*Row, error)

	// EnsureRow creates an empty row for the cell if none exists
	EnsureRow(ctx context.Context, cell Cell) error
}

// GapStats summarizes one gap scan over a window
type GapStats struct {
	// Rows in the window
	Scanned int64

	// Rows whose category columns are NULL
	Missing int64

	// Missing rows whose join key exists in the source table; the
	// backfillable delta
	Backfillable int64
}

// GapRepository finds materialized rows missing a category's fields despite
// source data being available. Read-only against the materialized table.
type GapRepository interface {
	// MissingCells lists up to limit backfillable cells for the category in
	// [from, until), ordered by symbol then bucket
	MissingCells(ctx context.Context, cat sources.Category, from, until time.Time, limit int) ([]Cell, error)

	// Stats computes scan counters for the category over [from, until)
	Stats(ctx context.Context, cat sources.Category, from, until time.Time) (GapStats, error)
}
