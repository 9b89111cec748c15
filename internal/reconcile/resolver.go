package reconcile

import (
	"time"

	"mosaic/internal/domain/sources"
)

// Sentiment decay bands: more recent articles weigh more. The aggregate is
// sum(weight*score) / count, so a lone stale article still drags the average
// down instead of passing through at full strength.
const (
	sentimentWeight1h  = 1.0
	sentimentWeight6h  = 0.8
	sentimentWeight24h = 0.6
	sentimentWeightOld = 0.3
)

// SentimentLookback is how far back the reconciler fetches articles. Wider
// than the 24h feature window so the >24h decay band has data to act on.
const SentimentLookback = 48 * time.Hour

// ResolveOHLC picks the candle for an hour bucket. A candle inside the bucket
// hour wins; otherwise the latest candle at or before the bucket's end is a
// day-level fallback. Candles after the bucket hour never resolve: the
// materialized row must not see the future.
func ResolveOHLC(candidates []sources.OHLCRecord, bucket time.Time) *sources.OHLCRecord {
	bucket = bucket.UTC().Truncate(time.Hour)
	end := bucket.Add(time.Hour)

	var best *sources.OHLCRecord
	for i := range candidates {
		c := &candidates[i]
		ts := c.Timestamp.UTC()
		if !ts.Before(end) {
			continue
		}
		if best == nil || ts.After(best.Timestamp.UTC()) {
			best = c
		}
	}
	return best
}

// ResolveTechnical picks the indicator row for an hour bucket, with the same
// same-hour-or-latest-prior rule as OHLC
func ResolveTechnical(candidates []sources.TechnicalRecord, bucket time.Time) *sources.TechnicalRecord {
	bucket = bucket.UTC().Truncate(time.Hour)
	end := bucket.Add(time.Hour)

	var best *sources.TechnicalRecord
	for i := range candidates {
		c := &candidates[i]
		ts := c.Timestamp.UTC()
		if !ts.Before(end) {
			continue
		}
		if best == nil || ts.After(best.Timestamp.UTC()) {
			best = c
		}
	}
	return best
}

// ResolveOnchain dedups the day's onchain rows by taking the max-timestamp
// one. Onchain metrics are daily aggregates, so any row of the calendar day
// is eligible for every hour of that day.
func ResolveOnchain(candidates []sources.OnchainRecord) *sources.OnchainRecord {
	var best *sources.OnchainRecord
	for i := range candidates {
		c := &candidates[i]
		if best == nil || c.Timestamp.After(best.Timestamp) {
			best = c
		}
	}
	return best
}

// ResolveMacro validates that the pivot is for the bucket's calendar date.
// Macro indicators have no intraday granularity; a different date means no
// data for this bucket.
func ResolveMacro(record *sources.MacroRecord, bucket time.Time) *sources.MacroRecord {
	if record == nil {
		return nil
	}
	by, bm, bd := bucket.UTC().Date()
	ry, rm, rd := record.Date.UTC().Date()
	if by != ry || bm != rm || bd != rd {
		return nil
	}
	return record
}

// ResolveSentiment aggregates article scores into a decay-weighted average
// relative to the bucket. Returns nil when no articles exist in the window.
func ResolveSentiment(articles []sources.ArticleScore, bucket time.Time) *sources.SentimentSnapshot {
	if len(articles) == 0 {
		return nil
	}

	bucket = bucket.UTC().Truncate(time.Hour)

	var weighted float64
	count := 0
	for _, a := range articles {
		age := bucket.Sub(a.PublishedAt.UTC())
		if age < 0 {
			// Published after the bucket; not visible to it
			continue
		}
		weighted += sentimentWeight(age) * a.Score
		count++
	}

	if count == 0 {
		return nil
	}

	return &sources.SentimentSnapshot{
		WeightedScore: weighted / float64(count),
		ArticleCount:  count,
	}
}

func sentimentWeight(age time.Duration) float64 {
	switch {
	case age <= time.Hour:
		return sentimentWeight1h
	case age <= 6*time.Hour:
		return sentimentWeight6h
	case age <= 24*time.Hour:
		return sentimentWeight24h
	default:
		return sentimentWeightOld
	}
}
