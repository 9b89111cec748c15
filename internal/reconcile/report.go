package reconcile

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"mosaic/internal/domain/sources"
)

// Report summarizes one reconciliation run. Batch jobs log it at completion
// instead of exiting silently.
type Report struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Cells processed
	Scanned int `json:"scanned"`

	// Rows written
	Updated int `json:"updated"`

	// Cells with no resolvable source data, or skipped under another
	// job's lock
	Skipped int `json:"skipped"`

	// Cells that failed after the retry budget
	Errors int `json:"errors"`

	// Lock-contention retries across all sub-batches
	Retries int `json:"retries"`

	// Cells each category resolved data for
	ResolvedByCategory map[sources.Category]int `json:"resolved_by_category"`
}

// NewReport starts a report for one run
func NewReport(cats []sources.Category) *Report {
	byCat := make(map[sources.Category]int, len(cats))
	for _, cat := range cats {
		byCat[cat] = 0
	}
	return &Report{
		RunID:              uuid.NewString(),
		StartedAt:          time.Now().UTC(),
		ResolvedByCategory: byCat,
	}
}

// Resolved records that a category produced data for a cell
func (r *Report) Resolved(cat sources.Category) {
	r.ResolvedByCategory[cat]++
}

// Finish stamps the completion time
func (r *Report) Finish() {
	r.FinishedAt = time.Now().UTC()
}

// Duration returns the run's wall time
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// String renders the completion line batch jobs log
func (r *Report) String() string {
	return fmt.Sprintf("run %s: scanned %s, updated %s, skipped %s, errors %d, retries %d in %s",
		r.RunID,
		humanize.Comma(int64(r.Scanned)),
		humanize.Comma(int64(r.Updated)),
		humanize.Comma(int64(r.Skipped)),
		r.Errors,
		r.Retries,
		r.Duration().Round(time.Millisecond),
	)
}

// RowUpdatedEvent is published for every materialized row the run wrote
type RowUpdatedEvent struct {
	Symbol string    `json:"symbol"`
	Bucket time.Time `json:"bucket"`
}

// GapFoundEvent is published when the gap scanner hands cells to the
// reconciler
type GapFoundEvent struct {
	Category sources.Category `json:"category"`
	Cells    int              `json:"cells"`
	From     time.Time        `json:"from"`
	Until    time.Time        `json:"until"`
}
