package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/pkg/errors"
)

// Compile-time check
var _ features.GapRepository = (*GapRepository)(nil)

// GapRepository finds materialized rows whose category columns are NULL even
// though a matching source row exists. Strictly read-only; repairs go back
// through the reconciler.
type GapRepository struct {
	db *sqlx.DB
}

// NewGapRepository creates a new gap repository
func NewGapRepository(db *sqlx.DB) *GapRepository {
	return &GapRepository{db: db}
}

// probeColumn is the column whose NULL-ness marks the category as missing.
// One representative per group is enough: groups are written atomically.
func probeColumn(cat sources.Category) (string, error) {
	switch cat {
	case sources.CategoryOHLC:
		return "close_price", nil
	case sources.CategoryTechnical:
		return "rsi_14", nil
	case sources.CategoryMacro:
		return "vix", nil
	case sources.CategoryOnchain:
		return "active_addresses_24h", nil
	case sources.CategorySentiment:
		return "sentiment_score_24h", nil
	}
	return "", errors.Wrapf(errors.ErrInvalidInput, "unknown category %q", cat)
}

// sourceExists is the EXISTS predicate that proves the source feed has data
// for the row's join key. Day-range predicates on the source timestamp keep
// its index usable.
//
// Sentiment has no MySQL-side source table (articles live in ClickHouse), so
// its missing rows are all considered backfillable; the reconciler finding no
// articles is a cheap no-op.
func sourceExists(cat sources.Category) string {
	const dayRange = "%[1]s.`timestamp` >= DATE(m.`timestamp`) AND %[1]s.`timestamp` < DATE(m.`timestamp`) + INTERVAL 1 DAY"

	switch cat {
	case sources.CategoryOHLC:
		return "EXISTS (SELECT 1 FROM ohlc_data o WHERE o.symbol = m.symbol AND " + fmt.Sprintf(dayRange, "o") + ")"
	case sources.CategoryTechnical:
		return "EXISTS (SELECT 1 FROM technical_indicators t WHERE t.symbol = m.symbol AND " + fmt.Sprintf(dayRange, "t") + ")"
	case sources.CategoryMacro:
		return "EXISTS (SELECT 1 FROM macro_indicators mi WHERE mi.indicator_date = DATE(m.`timestamp`))"
	case sources.CategoryOnchain:
		return "EXISTS (SELECT 1 FROM crypto_onchain_data oc WHERE oc.coin_symbol = m.symbol AND " + fmt.Sprintf(dayRange, "oc") + ")"
	case sources.CategorySentiment:
		return "TRUE"
	}
	return "FALSE"
}

// MissingCells lists up to limit backfillable cells for the category in
// [from, until), ordered by symbol then bucket
func (r *GapRepository) MissingCells(ctx context.Context, cat sources.Category, from, until time.Time, limit int) ([]features.Cell, error) {
	probe, err := probeColumn(cat)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT m.symbol, m.`+"`timestamp`"+`
		FROM ml_features_materialized m
		WHERE m.`+"`timestamp`"+` >= ? AND m.`+"`timestamp`"+` < ?
		  AND m.%s IS NULL
		  AND %s
		ORDER BY m.symbol, m.`+"`timestamp`"+`
		LIMIT ?`, probe, sourceExists(cat))

	var cells []features.Cell
	if err := r.db.SelectContext(ctx, &cells, query, from.UTC(), until.UTC(), limit); err != nil {
		return nil, translate(err, materializedTable)
	}

	return cells, nil
}

// Stats computes scan counters for the category over [from, until)
func (r *GapRepository) Stats(ctx context.Context, cat sources.Category, from, until time.Time) (features.GapStats, error) {
	probe, err := probeColumn(cat)
	if err != nil {
		return features.GapStats{}, err
	}

	query := fmt.Sprintf(`
		SELECT
			COUNT(*) AS scanned,
			COALESCE(SUM(m.%[1]s IS NULL), 0) AS missing,
			COALESCE(SUM(m.%[1]s IS NULL AND %[2]s), 0) AS backfillable
		FROM ml_features_materialized m
		WHERE m.`+"`timestamp`"+` >= ? AND m.`+"`timestamp`"+` < ?`, probe, sourceExists(cat))

	var stats struct {
		Scanned      int64 `db:"scanned"`
		Missing      int64 `db:"missing"`
		Backfillable int64 `db:"backfillable"`
	}
	if err := r.db.GetContext(ctx, &stats, query, from.UTC(), until.UTC()); err != nil {
		return features.GapStats{}, translate(err, materializedTable)
	}

	return features.GapStats{
		Scanned:      stats.Scanned,
		Missing:      stats.Missing,
		Backfillable: stats.Backfillable,
	}, nil
}
