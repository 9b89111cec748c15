package sources

import (
	"context"
	"time"
)

// Readers return candidates for a bucket; absence of data is (nil, nil) or an
// empty slice, never an error. The resolver decides which candidate wins.

// OHLCReader reads candles from ohlc_data
type OHLCReader interface {
	// CandlesForDay returns all candles for the symbol on the bucket's
	// calendar day (UTC), newest first
	CandlesForDay(ctx context.Context, symbol string, day time.Time) ([]OHLCRecord, error)

	// History returns up to limit candles at or before until, newest first.
	// Used by the technical-indicator backfill.
	History(ctx context.Context, symbol string, until time.Time, limit int) ([]OHLCRecord, error)
}

// TechnicalReader reads rows from technical_indicators
type TechnicalReader interface {
	IndicatorsForDay(ctx context.Context, symbol string, day time.Time) ([]TechnicalRecord, error)
}

// MacroReader reads and pivots macro_indicators rows for a calendar date
type MacroReader interface {
	// PivotForDate returns the indicator pivot for the date, or nil when no
	// indicator has a row for it
	PivotForDate(ctx context.Context, date time.Time) (*MacroRecord, error)
}

// OnchainReader reads rows from crypto_onchain_data
type OnchainReader interface {
	MetricsForDay(ctx context.Context, symbol string, day time.Time) ([]OnchainRecord, error)
}

// SentimentReader reads scored articles from the sentiment stream
type SentimentReader interface {
	// ArticlesInWindow returns article scores published in (from, until],
	// order unspecified
	ArticlesInWindow(ctx context.Context, symbol string, from, until time.Time) ([]ArticleScore, error)
}
