package reconcile

import (
	"context"
	"time"

	"mosaic/internal/adapters/kafka"
	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/pkg/errors"
	"mosaic/pkg/logger"
)

// Scanner drives backfill: it finds materialized cells missing a category's
// fields despite available source data and hands them to the reconciler.
// The scan itself is read-only, so it is safe next to live reconciliation.
type Scanner struct {
	gaps       features.GapRepository
	reconciler *Reconciler
	events     EventPublisher
	log        *logger.Logger
}

// NewScanner creates a new gap scanner
func NewScanner(gaps features.GapRepository, reconciler *Reconciler, events EventPublisher) *Scanner {
	return &Scanner{
		gaps:       gaps,
		reconciler: reconciler,
		events:     events,
		log:        logger.Get().With("component", "gap_scanner"),
	}
}

// Repair scans one category over [from, until) and reconciles up to limit
// backfillable cells
func (s *Scanner) Repair(ctx context.Context, cat sources.Category, from, until time.Time, limit int) (*Report, error) {
	if !cat.Valid() {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "category %q", cat)
	}

	cells, err := s.gaps.MissingCells(ctx, cat, from, until, limit)
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s gaps", cat)
	}

	if len(cells) == 0 {
		s.log.Debugf("No %s gaps in [%s, %s)", cat, from.Format(time.RFC3339), until.Format(time.RFC3339))
		report := NewReport([]sources.Category{cat})
		report.Finish()
		return report, nil
	}

	s.log.Infof("Found %d backfillable %s cells", len(cells), cat)
	s.publishGapFound(ctx, cat, len(cells), from, until)

	return s.reconciler.ReconcileBatch(ctx, cells, []sources.Category{cat})
}

// RepairAll runs Repair for every category, continuing past per-category
// failures, and returns the merged report
func (s *Scanner) RepairAll(ctx context.Context, cats []sources.Category, from, until time.Time, limit int) (*Report, error) {
	if len(cats) == 0 {
		cats = sources.AllCategories()
	}

	merged := NewReport(cats)
	var errs errors.MultiError

	for _, cat := range cats {
		report, err := s.Repair(ctx, cat, from, until, limit)
		if err != nil {
			if isFatal(err) {
				merged.Finish()
				return merged, err
			}
			errs.Add(err)
		}
		if report != nil {
			merged.merge(report)
		}
	}

	merged.Finish()
	return merged, errs.ToError()
}

// Stats computes per-category gap counters over [from, until) without
// touching anything
func (s *Scanner) Stats(ctx context.Context, cats []sources.Category, from, until time.Time) (map[sources.Category]features.GapStats, error) {
	if len(cats) == 0 {
		cats = sources.AllCategories()
	}

	out := make(map[sources.Category]features.GapStats, len(cats))
	for _, cat := range cats {
		stats, err := s.gaps.Stats(ctx, cat, from, until)
		if err != nil {
			return nil, errors.Wrapf(err, "stats for %s", cat)
		}
		out[cat] = stats
	}
	return out, nil
}

func (s *Scanner) publishGapFound(ctx context.Context, cat sources.Category, cells int, from, until time.Time) {
	if s.events == nil {
		return
	}
	event := GapFoundEvent{Category: cat, Cells: cells, From: from, Until: until}
	if err := s.events.Publish(ctx, kafka.TopicGapFound, cat.String(), event); err != nil {
		s.log.Warnf("Failed to publish gap_found for %s: %v", cat, err)
	}
}

// merge folds another run's counters into this report
func (r *Report) merge(other *Report) {
	r.Scanned += other.Scanned
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Errors += other.Errors
	r.Retries += other.Retries
	for cat, n := range other.ResolvedByCategory {
		r.ResolvedByCategory[cat] += n
	}
}
