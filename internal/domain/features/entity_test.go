package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBucketOf(t *testing.T) {
	moscow := time.FixedZone("MSK", 3*3600)

	cases := []struct {
		in   time.Time
		want time.Time
	}{
		{
			time.Date(2026, 2, 10, 14, 35, 12, 999, time.UTC),
			time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC),
		},
		{
			// 17:30 MSK is 14:30 UTC
			time.Date(2026, 2, 10, 17, 30, 0, 0, moscow),
			time.Date(2026, 2, 10, 14, 0, 0, 0, time.UTC),
		},
	}

	for _, c := range cases {
		got := BucketOf(c.in)
		assert.True(t, got.Equal(c.want), "BucketOf(%s) = %s, want %s", c.in, got, c.want)
		assert.Equal(t, time.UTC, got.Location())
	}
}

func TestPatch_Empty(t *testing.T) {
	patch := &Patch{Symbol: "BTCUSDT"}
	assert.True(t, patch.Empty())

	patch.Sentiment = &SentimentPatch{Score: 0.5, ArticleCount: 3}
	assert.False(t, patch.Empty())
}
