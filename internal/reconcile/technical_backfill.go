package reconcile

import (
	"context"
	"time"

	"github.com/markcheno/go-talib"

	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
)

// minHistoryCandles is what SMA50 plus the MACD signal warm-up needs before
// computed indicators are trustworthy
const minHistoryCandles = 60

const historyFetchLimit = 120

// computeTechnical derives the indicator set from trailing OHLC history when
// the technical_indicators source has no row for the bucket. Returns nil
// (not an error) when history is too short.
func (r *Reconciler) computeTechnical(ctx context.Context, symbol string, bucket time.Time) (*features.TechnicalPatch, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}

	until := features.BucketOf(bucket).Add(time.Hour - time.Second)
	candles, err := r.deps.OHLC.History(ctx, symbol, until, historyFetchLimit)
	if err != nil {
		return nil, err
	}
	if len(candles) < minHistoryCandles {
		r.log.Debugf("Not enough OHLC history to compute indicators for %s@%s (%d candles)",
			symbol, bucket.Format(time.RFC3339), len(candles))
		return nil, nil
	}

	closes := closesChronological(candles)

	rsi := talib.Rsi(closes, 14)
	sma20 := talib.Sma(closes, 20)
	sma50 := talib.Sma(closes, 50)
	ema12 := talib.Ema(closes, 12)
	ema26 := talib.Ema(closes, 26)
	macd, macdSignal, macdHist := talib.Macd(closes, 12, 26, 9)
	bbUpper, bbMiddle, bbLower := talib.BBands(closes, 20, 2.0, 2.0, talib.SMA)

	return &features.TechnicalPatch{
		RSI14:         last(rsi),
		SMA20:         last(sma20),
		SMA50:         last(sma50),
		EMA12:         last(ema12),
		EMA26:         last(ema26),
		MACD:          last(macd),
		MACDSignal:    last(macdSignal),
		MACDHistogram: last(macdHist),
		BBUpper:       last(bbUpper),
		BBMiddle:      last(bbMiddle),
		BBLower:       last(bbLower),
	}, nil
}

// closesChronological extracts close prices oldest-first; readers return
// candles newest-first and ta-lib wants the opposite
func closesChronological(candles []sources.OHLCRecord) []float64 {
	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[len(candles)-1-i] = c.Close.InexactFloat64()
	}
	return closes
}

// last returns the most recent indicator value, or nil for an empty series.
// The minHistoryCandles gate already keeps warm-up zeros out of the tail.
func last(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	v := values[len(values)-1]
	return &v
}
