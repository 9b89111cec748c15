package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/pkg/logger"
)

const gapScrapeTimeout = 30 * time.Second

// GapCollector reports gap counts per source category straight from the
// warehouse on every scrape.
type GapCollector struct {
	gaps     features.GapRepository
	lookback time.Duration
	log      *logger.Logger

	missing      *prometheus.Desc
	backfillable *prometheus.Desc
}

// NewGapCollector creates a collector over the given gap repository
func NewGapCollector(gaps features.GapRepository, lookback time.Duration) *GapCollector {
	return &GapCollector{
		gaps:     gaps,
		lookback: lookback,
		log:      logger.Get().With("component", "gap_collector"),
		missing: prometheus.NewDesc(
			"mosaic_feature_gap_cells",
			"Materialized cells missing a value for the category within the lookback window",
			[]string{"category"}, nil,
		),
		backfillable: prometheus.NewDesc(
			"mosaic_feature_gap_backfillable_cells",
			"Missing cells whose source table holds same-day data",
			[]string{"category"}, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *GapCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.missing
	ch <- c.backfillable
}

// Collect implements prometheus.Collector
func (c *GapCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), gapScrapeTimeout)
	defer cancel()

	until := time.Now().UTC()
	from := until.Add(-c.lookback)

	for _, cat := range sources.AllCategories() {
		stats, err := c.gaps.Stats(ctx, cat, from, until)
		if err != nil {
			c.log.Warnw("Gap stats scrape failed", "category", cat, "error", err)
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.missing, prometheus.GaugeValue, float64(stats.Missing), cat.String())
		ch <- prometheus.MustNewConstMetric(c.backfillable, prometheus.GaugeValue, float64(stats.Backfillable), cat.String())
	}
}
