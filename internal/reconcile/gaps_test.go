package reconcile

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/pkg/errors"
)

// fakeGapRepo serves canned cells per category
type fakeGapRepo struct {
	cells map[sources.Category][]features.Cell
	stats map[sources.Category]features.GapStats
	err   error
}

func (f *fakeGapRepo) MissingCells(ctx context.Context, cat sources.Category, from, until time.Time, limit int) ([]features.Cell, error) {
	if f.err != nil {
		return nil, f.err
	}
	cells := f.cells[cat]
	if len(cells) > limit {
		cells = cells[:limit]
	}
	return cells, nil
}

func (f *fakeGapRepo) Stats(ctx context.Context, cat sources.Category, from, until time.Time) (features.GapStats, error) {
	if f.err != nil {
		return features.GapStats{}, f.err
	}
	return f.stats[cat], nil
}

func newTestScanner(gaps features.GapRepository, repo *fakeFeatureRepo, src *fakeSources) *Scanner {
	return NewScanner(gaps, New(testDeps(src, repo), fastConfig()), nil)
}

func TestScanner_RepairReconcilesMissingCells(t *testing.T) {
	vix := 17.0
	src := &fakeSources{
		pivot: &sources.MacroRecord{Date: testBucket, VIX: &vix},
	}
	repo := &fakeFeatureRepo{}
	gaps := &fakeGapRepo{
		cells: map[sources.Category][]features.Cell{
			sources.CategoryMacro: {
				{Symbol: "BTCUSDT", Bucket: testBucket},
				{Symbol: "ETHUSDT", Bucket: testBucket},
			},
		},
	}

	scanner := newTestScanner(gaps, repo, src)
	from := testBucket.Add(-24 * time.Hour)

	report, err := scanner.Repair(context.Background(), sources.CategoryMacro, from, testBucket, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Updated)
	assert.Len(t, repo.batches, 2)
}

func TestScanner_RepairHonorsLimit(t *testing.T) {
	vix := 17.0
	src := &fakeSources{
		pivot: &sources.MacroRecord{Date: testBucket, VIX: &vix},
	}
	repo := &fakeFeatureRepo{}
	gaps := &fakeGapRepo{
		cells: map[sources.Category][]features.Cell{
			sources.CategoryMacro: {
				{Symbol: "BTCUSDT", Bucket: testBucket},
				{Symbol: "ETHUSDT", Bucket: testBucket},
				{Symbol: "SOLUSDT", Bucket: testBucket},
			},
		},
	}

	scanner := newTestScanner(gaps, repo, src)
	from := testBucket.Add(-24 * time.Hour)

	report, err := scanner.Repair(context.Background(), sources.CategoryMacro, from, testBucket, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
}

func TestScanner_RepairNoGaps(t *testing.T) {
	scanner := newTestScanner(&fakeGapRepo{}, &fakeFeatureRepo{}, &fakeSources{})
	from := testBucket.Add(-24 * time.Hour)

	report, err := scanner.Repair(context.Background(), sources.CategoryOHLC, from, testBucket, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, report.Scanned)
	assert.Equal(t, 0, report.Updated)
}

func TestScanner_RepairRejectsUnknownCategory(t *testing.T) {
	scanner := newTestScanner(&fakeGapRepo{}, &fakeFeatureRepo{}, &fakeSources{})
	from := testBucket.Add(-24 * time.Hour)

	_, err := scanner.Repair(context.Background(), sources.Category("bogus"), from, testBucket, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))
}

func TestScanner_RepairAllMergesReports(t *testing.T) {
	vix := 17.0
	src := &fakeSources{
		pivot: &sources.MacroRecord{Date: testBucket, VIX: &vix},
		onchain: []sources.OnchainRecord{
			{Timestamp: testBucket, ActiveAddresses24h: 1000},
		},
	}
	repo := &fakeFeatureRepo{}
	gaps := &fakeGapRepo{
		cells: map[sources.Category][]features.Cell{
			sources.CategoryMacro:   {{Symbol: "BTCUSDT", Bucket: testBucket}},
			sources.CategoryOnchain: {{Symbol: "ETHUSDT", Bucket: testBucket}},
		},
	}

	scanner := newTestScanner(gaps, repo, src)
	from := testBucket.Add(-24 * time.Hour)

	report, err := scanner.RepairAll(context.Background(), nil, from, testBucket, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Updated)
	assert.Equal(t, 1, report.ResolvedByCategory[sources.CategoryMacro])
	assert.Equal(t, 1, report.ResolvedByCategory[sources.CategoryOnchain])
}

func TestScanner_RepairAllAbortsOnFatal(t *testing.T) {
	repo := &fakeFeatureRepo{}
	gaps := &fakeGapRepo{err: errors.Wrap(errors.ErrUnavailable, "server has gone away")}

	scanner := newTestScanner(gaps, repo, &fakeSources{})
	from := testBucket.Add(-24 * time.Hour)

	_, err := scanner.RepairAll(context.Background(), nil, from, testBucket, 100)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnavailable))
	assert.Equal(t, 0, repo.attempts)
}

func TestScanner_Stats(t *testing.T) {
	gaps := &fakeGapRepo{
		stats: map[sources.Category]features.GapStats{
			sources.CategoryOHLC:  {Scanned: 100, Missing: 10, Backfillable: 7},
			sources.CategoryMacro: {Scanned: 100, Missing: 4, Backfillable: 4},
		},
	}

	scanner := newTestScanner(gaps, &fakeFeatureRepo{}, &fakeSources{})
	from := testBucket.Add(-24 * time.Hour)

	stats, err := scanner.Stats(context.Background(), []sources.Category{sources.CategoryOHLC, sources.CategoryMacro}, from, testBucket)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats[sources.CategoryOHLC].Backfillable)
	assert.Equal(t, int64(4), stats[sources.CategoryMacro].Missing)
}
