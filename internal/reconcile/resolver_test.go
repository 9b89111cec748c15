package reconcile

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosaic/internal/domain/sources"
)

var testBucket = time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)

func candle(ts time.Time, close float64) sources.OHLCRecord {
	return sources.OHLCRecord{
		Symbol:    "BTCUSDT",
		Timestamp: ts,
		Close:     decimal.NewFromFloat(close),
	}
}

func TestResolveOHLC_PrefersSameHour(t *testing.T) {
	candidates := []sources.OHLCRecord{
		candle(testBucket.Add(-3*time.Hour), 100),
		candle(testBucket.Add(30*time.Minute), 105),
		candle(testBucket.Add(-1*time.Hour), 102),
	}

	got := ResolveOHLC(candidates, testBucket)
	require.NotNil(t, got)
	assert.Equal(t, testBucket.Add(30*time.Minute), got.Timestamp)
}

func TestResolveOHLC_FallsBackToLatestPrior(t *testing.T) {
	candidates := []sources.OHLCRecord{
		candle(testBucket.Add(-5*time.Hour), 100),
		candle(testBucket.Add(-2*time.Hour), 101),
	}

	got := ResolveOHLC(candidates, testBucket)
	require.NotNil(t, got)
	assert.Equal(t, testBucket.Add(-2*time.Hour), got.Timestamp)
}

func TestResolveOHLC_NeverSeesTheFuture(t *testing.T) {
	candidates := []sources.OHLCRecord{
		candle(testBucket.Add(2*time.Hour), 110),
		candle(testBucket.Add(time.Hour), 108),
	}

	assert.Nil(t, ResolveOHLC(candidates, testBucket))
}

func TestResolveOHLC_Empty(t *testing.T) {
	assert.Nil(t, ResolveOHLC(nil, testBucket))
}

func TestResolveTechnical_SameRuleAsOHLC(t *testing.T) {
	rsi := 55.0
	candidates := []sources.TechnicalRecord{
		{Timestamp: testBucket.Add(-4 * time.Hour)},
		{Timestamp: testBucket.Add(15 * time.Minute), RSI14: &rsi},
		{Timestamp: testBucket.Add(time.Hour)},
	}

	got := ResolveTechnical(candidates, testBucket)
	require.NotNil(t, got)
	require.NotNil(t, got.RSI14)
	assert.Equal(t, 55.0, *got.RSI14)
}

func TestResolveOnchain_MaxTimestampWins(t *testing.T) {
	candidates := []sources.OnchainRecord{
		{Timestamp: testBucket.Add(-10 * time.Hour), ActiveAddresses24h: 900},
		{Timestamp: testBucket.Add(5 * time.Hour), ActiveAddresses24h: 1100},
		{Timestamp: testBucket, ActiveAddresses24h: 1000},
	}

	got := ResolveOnchain(candidates)
	require.NotNil(t, got)
	assert.Equal(t, 1100.0, got.ActiveAddresses24h)
}

func TestResolveMacro_RejectsOtherDates(t *testing.T) {
	vix := 18.5
	record := &sources.MacroRecord{
		Date: time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
		VIX:  &vix,
	}

	assert.Nil(t, ResolveMacro(record, testBucket))

	record.Date = time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	got := ResolveMacro(record, testBucket)
	require.NotNil(t, got)
	assert.Equal(t, 18.5, *got.VIX)
}

func TestResolveMacro_Nil(t *testing.T) {
	assert.Nil(t, ResolveMacro(nil, testBucket))
}

func TestResolveSentiment_DecayWeights(t *testing.T) {
	// Three perfect scores at 0.5h, 4h and 20h before the bucket:
	// (1.0*1.0 + 0.8*1.0 + 0.6*1.0) / 3 = 0.8
	articles := []sources.ArticleScore{
		{PublishedAt: testBucket.Add(-30 * time.Minute), Score: 1.0},
		{PublishedAt: testBucket.Add(-4 * time.Hour), Score: 1.0},
		{PublishedAt: testBucket.Add(-20 * time.Hour), Score: 1.0},
	}

	got := ResolveSentiment(articles, testBucket)
	require.NotNil(t, got)
	assert.InDelta(t, 0.8, got.WeightedScore, 1e-9)
	assert.Equal(t, 3, got.ArticleCount)
}

func TestResolveSentiment_StaleArticleDragsAverage(t *testing.T) {
	articles := []sources.ArticleScore{
		{PublishedAt: testBucket.Add(-36 * time.Hour), Score: 1.0},
	}

	got := ResolveSentiment(articles, testBucket)
	require.NotNil(t, got)
	assert.InDelta(t, 0.3, got.WeightedScore, 1e-9)
	assert.Equal(t, 1, got.ArticleCount)
}

func TestResolveSentiment_SkipsFutureArticles(t *testing.T) {
	articles := []sources.ArticleScore{
		{PublishedAt: testBucket.Add(time.Hour), Score: 1.0},
	}

	assert.Nil(t, ResolveSentiment(articles, testBucket))
	assert.Nil(t, ResolveSentiment(nil, testBucket))
}

func TestSentimentWeight_BandEdges(t *testing.T) {
	assert.Equal(t, 1.0, sentimentWeight(time.Hour))
	assert.Equal(t, 0.8, sentimentWeight(time.Hour+time.Second))
	assert.Equal(t, 0.8, sentimentWeight(6*time.Hour))
	assert.Equal(t, 0.6, sentimentWeight(6*time.Hour+time.Second))
	assert.Equal(t, 0.6, sentimentWeight(24*time.Hour))
	assert.Equal(t, 0.3, sentimentWeight(24*time.Hour+time.Second))
}
