package mysql

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"mosaic/internal/domain/sources"
)

// Compile-time checks
var (
	_ sources.OHLCReader      = (*SourceReader)(nil)
	_ sources.TechnicalReader = (*SourceReader)(nil)
	_ sources.OnchainReader   = (*SourceReader)(nil)
)

// SourceReader reads candidate rows from the per-source warehouse tables.
// Symbols are normalized before every query; the tables store canonical
// uppercase tickers, so plain equality is collation-safe.
type SourceReader struct {
	db *sqlx.DB
}

// NewSourceReader creates a new source reader
func NewSourceReader(db *sqlx.DB) *SourceReader {
	return &SourceReader{db: db}
}

// dayBounds returns the UTC calendar-day window containing ts.
// Range predicates keep the timestamp index usable, unlike DATE(timestamp).
func dayBounds(ts time.Time) (time.Time, time.Time) {
	y, m, d := ts.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return start, start.Add(24 * time.Hour)
}

// CandlesForDay returns all candles for the symbol on the day, newest first
func (r *SourceReader) CandlesForDay(ctx context.Context, symbol string, day time.Time) ([]sources.OHLCRecord, error) {
	start, end := dayBounds(day)

	var candles []sources.OHLCRecord
	query := `
		SELECT symbol, ` + "`timestamp`" + `, open_price, high_price, low_price, close_price, volume, data_source
		FROM ohlc_data
		WHERE symbol = ? AND ` + "`timestamp`" + ` >= ? AND ` + "`timestamp`" + ` < ?
		ORDER BY ` + "`timestamp`" + ` DESC`

	err := r.db.SelectContext(ctx, &candles, query, sources.NormalizeSymbol(symbol), start, end)
	if err != nil {
		return nil, translate(err, "ohlc_data")
	}

	return candles, nil
}

// History returns up to limit candles at or before until, newest first
func (r *SourceReader) History(ctx context.Context, symbol string, until time.Time, limit int) ([]sources.OHLCRecord, error) {
	var candles []sources.OHLCRecord
	query := `
		SELECT symbol, ` + "`timestamp`" + `, open_price, high_price, low_price, close_price, volume, data_source
		FROM ohlc_data
		WHERE symbol = ? AND ` + "`timestamp`" + ` <= ?
		ORDER BY ` + "`timestamp`" + ` DESC
		LIMIT ?`

	err := r.db.SelectContext(ctx, &candles, query, sources.NormalizeSymbol(symbol), until, limit)
	if err != nil {
		return nil, translate(err, "ohlc_data")
	}

	return candles, nil
}

// IndicatorsForDay returns all indicator rows for the symbol on the day,
// newest first
func (r *SourceReader) IndicatorsForDay(ctx context.Context, symbol string, day time.Time) ([]sources.TechnicalRecord, error) {
	start, end := dayBounds(day)

	var rows []sources.TechnicalRecord
	query := `
		SELECT symbol, ` + "`timestamp`" + `, rsi_14, sma_20, sma_50, ema_12, ema_26,
		       macd, macd_signal, macd_histogram, bb_upper, bb_middle, bb_lower
		FROM technical_indicators
		WHERE symbol = ? AND ` + "`timestamp`" + ` >= ? AND ` + "`timestamp`" + ` < ?
		ORDER BY ` + "`timestamp`" + ` DESC`

	err := r.db.SelectContext(ctx, &rows, query, sources.NormalizeSymbol(symbol), start, end)
	if err != nil {
		return nil, translate(err, "technical_indicators")
	}

	return rows, nil
}

// MetricsForDay returns all onchain rows for the symbol on the day,
// newest first
func (r *SourceReader) MetricsForDay(ctx context.Context, symbol string, day time.Time) ([]sources.OnchainRecord, error) {
	start, end := dayBounds(day)

	var rows []sources.OnchainRecord
	query := `
		SELECT coin_symbol, ` + "`timestamp`" + `, active_addresses_24h, transaction_count_24h,
		       exchange_net_flow_24h, price_volatility_7d
		FROM crypto_onchain_data
		WHERE coin_symbol = ? AND ` + "`timestamp`" + ` >= ? AND ` + "`timestamp`" + ` < ?
		ORDER BY ` + "`timestamp`" + ` DESC`

	err := r.db.SelectContext(ctx, &rows, query, sources.NormalizeSymbol(symbol), start, end)
	if err != nil {
		return nil, translate(err, "crypto_onchain_data")
	}

	return rows, nil
}
