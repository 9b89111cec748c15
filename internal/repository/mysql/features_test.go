package mysql

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosaic/internal/domain/features"
)

var testBucket = time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC)

func float(v float64) *float64 { return &v }

func TestBuildUpsert_PriceOnly(t *testing.T) {
	patch := &features.Patch{
		Symbol: "btcusdt",
		Bucket: testBucket.Add(25 * time.Minute),
		Price: &features.PricePatch{
			Open: 50000, High: 50500, Low: 49900, Close: 50200, Volume: 1234,
		},
	}

	query, args := buildUpsert(patch)

	assert.Contains(t, query, "INSERT INTO ml_features_materialized")
	assert.Contains(t, query, "open_price")
	assert.Contains(t, query, "close_price")
	assert.NotContains(t, query, "rsi_14")
	assert.NotContains(t, query, "vix")
	assert.NotContains(t, query, "sentiment_score_24h")

	// symbol, bucket, then the five price columns
	require.Len(t, args, 7)
	assert.Equal(t, "BTCUSDT", args[0])
	assert.Equal(t, testBucket, args[1])
	assert.Equal(t, 50200.0, args[5])
}

func TestBuildUpsert_NeverClobbersWithNull(t *testing.T) {
	patch := &features.Patch{
		Symbol: "BTCUSDT",
		Bucket: testBucket,
		Technical: &features.TechnicalPatch{
			RSI14: float(55),
			// Every other indicator nil
		},
	}

	query, _ := buildUpsert(patch)

	// Each column merges through COALESCE so an incoming NULL keeps the
	// stored value
	assert.Contains(t, query, "rsi_14 = COALESCE(VALUES(rsi_14), rsi_14)")
	assert.Contains(t, query, "sma_20 = COALESCE(VALUES(sma_20), sma_20)")
	assert.NotContains(t, query, "rsi_14 = VALUES(rsi_14),")
}

func TestBuildUpsert_TouchesUpdatedAt(t *testing.T) {
	patch := &features.Patch{
		Symbol: "BTCUSDT",
		Bucket: testBucket,
		Macro:  &features.MacroPatch{VIX: float(18.5)},
	}

	query, _ := buildUpsert(patch)
	assert.Contains(t, query, "updated_at = UTC_TIMESTAMP()")
}

func TestBuildUpsert_AllGroups(t *testing.T) {
	patch := &features.Patch{
		Symbol:    "ETHUSDT",
		Bucket:    testBucket,
		Price:     &features.PricePatch{Close: 3000},
		Technical: &features.TechnicalPatch{RSI14: float(60)},
		Macro:     &features.MacroPatch{VIX: float(18)},
		Onchain:   &features.OnchainPatch{ActiveAddresses24h: 900},
		Sentiment: &features.SentimentPatch{Score: 0.4, ArticleCount: 12},
	}

	query, args := buildUpsert(patch)

	for _, col := range []string{
		"close_price", "rsi_14", "vix", "active_addresses_24h", "sentiment_score_24h",
	} {
		assert.Contains(t, query, col)
	}

	// 2 key args + 5 price + 11 technical + 6 macro + 4 onchain + 2 sentiment
	assert.Len(t, args, 30)

	// Placeholder count matches the argument count
	assert.Equal(t, len(args), strings.Count(query, "?"))
}

func TestBuildUpsert_NormalizesKey(t *testing.T) {
	patch := &features.Patch{
		Symbol: "  solusdt ",
		Bucket: testBucket.Add(59 * time.Minute),
		Price:  &features.PricePatch{Close: 100},
	}

	_, args := buildUpsert(patch)
	assert.Equal(t, "SOLUSDT", args[0])
	assert.Equal(t, testBucket, args[1])
}
