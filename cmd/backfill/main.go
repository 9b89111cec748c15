package main

// One-shot backfill over the materialized feature table.
//
// Usage:
//   go run ./cmd/backfill --symbols BTCUSDT,ETHUSDT --start 2026-01-01 --end 2026-02-01
//   go run ./cmd/backfill --categories macro,onchain --report-only

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"mosaic/internal/adapters/clickhouse"
	"mosaic/internal/adapters/config"
	"mosaic/internal/adapters/mysql"
	"mosaic/internal/adapters/redis"
	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/internal/reconcile"
	chrepo "mosaic/internal/repository/clickhouse"
	mysqlrepo "mosaic/internal/repository/mysql"
	"mosaic/pkg/logger"
)

func main() {
	symbolsFlag := flag.String("symbols", "", "Comma-separated symbols; empty repairs every symbol with gaps")
	startFlag := flag.String("start", "", "Start date (YYYY-MM-DD); defaults to now minus RECONCILE_LOOKBACK")
	endFlag := flag.String("end", "", "End date (YYYY-MM-DD, exclusive); defaults to now")
	categoriesFlag := flag.String("categories", "", "Comma-separated categories (ohlc,technical,macro,onchain,sentiment); empty means all")
	reportOnly := flag.Bool("report-only", false, "Print gap statistics without writing anything")
	batchSize := flag.Int("batch", 0, "Gap cells repaired per category; defaults to RECONCILE_BATCH_SIZE")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fatal("load config: %v", err)
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fatal("init logger: %v", err)
	}
	defer logger.Sync()

	from, until, err := parseWindow(*startFlag, *endFlag, cfg.Reconcile.Lookback)
	if err != nil {
		fatal("%v", err)
	}
	cats, err := parseCategories(*categoriesFlag)
	if err != nil {
		fatal("%v", err)
	}
	if *batchSize <= 0 {
		*batchSize = cfg.Reconcile.BatchSize
	}

	warehouse, err := mysql.NewClient(cfg.MySQL)
	if err != nil {
		fatal("connect to MySQL: %v", err)
	}
	defer warehouse.Close()

	gapRepo := mysqlrepo.NewGapRepository(warehouse.DB())
	sourceReader := mysqlrepo.NewSourceReader(warehouse.DB())

	deps := reconcile.Deps{
		OHLC:      sourceReader,
		Technical: sourceReader,
		Macro:     mysqlrepo.NewMacroReader(warehouse.DB()),
		Onchain:   sourceReader,
		Features:  mysqlrepo.NewFeatureRepository(warehouse.DB()),
	}
	if cfg.ClickHouse.Enabled() {
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			fatal("connect to ClickHouse: %v", err)
		}
		defer chClient.Close()
		deps.Sentiment = chrepo.NewSentimentRepository(chClient.Conn())
	}
	if cfg.Redis.Enabled() {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			fatal("connect to Redis: %v", err)
		}
		defer redisClient.Close()
		deps.Locker = redisClient
	}

	reconciler := reconcile.New(deps, reconcile.Config{
		MaxRetries:       cfg.Reconcile.MaxRetries,
		RetryBaseDelay:   cfg.Reconcile.RetryBaseDelay,
		QueryRateLimit:   cfg.Reconcile.QueryRateLimit,
		ComputeTechnical: cfg.Reconcile.ComputeTechnical,
		SymbolLockTTL:    cfg.Reconcile.SymbolLockTTL,
	})
	scanner := reconcile.NewScanner(gapRepo, reconciler, nil)

	ctx := context.Background()

	if *reportOnly {
		printGapReport(ctx, scanner, cats, from, until)
		return
	}

	symbols := splitList(*symbolsFlag)
	var report *reconcile.Report
	if len(symbols) > 0 {
		report, err = repairSymbols(ctx, reconciler, symbols, cats, from, until)
	} else {
		report, err = scanner.RepairAll(ctx, cats, from, until, *batchSize)
	}

	if report != nil {
		fmt.Println(report.String())
	}
	if err != nil {
		fatal("backfill: %v", err)
	}
}

// repairSymbols rebuilds every hourly cell in the window for the given
// symbols, regardless of whether a gap scan would flag them
func repairSymbols(
	ctx context.Context,
	reconciler *reconcile.Reconciler,
	symbols []string,
	cats []sources.Category,
	from, until time.Time,
) (*reconcile.Report, error) {
	var cells []features.Cell
	for _, symbol := range symbols {
		normalized := sources.NormalizeSymbol(symbol)
		for bucket := features.BucketOf(from); bucket.Before(until); bucket = bucket.Add(time.Hour) {
			cells = append(cells, features.Cell{Symbol: normalized, Bucket: bucket})
		}
	}
	return reconciler.ReconcileBatch(ctx, cells, cats)
}

func printGapReport(ctx context.Context, scanner *reconcile.Scanner, cats []sources.Category, from, until time.Time) {
	stats, err := scanner.Stats(ctx, cats, from, until)
	if err != nil {
		fatal("gap stats: %v", err)
	}

	fmt.Printf("Gap report for [%s, %s)\n", from.Format("2006-01-02"), until.Format("2006-01-02"))
	for _, cat := range sources.AllCategories() {
		s, ok := stats[cat]
		if !ok {
			continue
		}
		fmt.Printf("  %-10s scanned=%d missing=%d backfillable=%d\n", cat, s.Scanned, s.Missing, s.Backfillable)
	}
}

func parseWindow(start, end string, lookback time.Duration) (time.Time, time.Time, error) {
	until := time.Now().UTC()
	from := until.Add(-lookback)

	if start != "" {
		t, err := time.Parse("2006-01-02", start)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q (use YYYY-MM-DD): %w", start, err)
		}
		from = t.UTC()
	}
	if end != "" {
		t, err := time.Parse("2006-01-02", end)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q (use YYYY-MM-DD): %w", end, err)
		}
		until = t.UTC()
	}
	if !from.Before(until) {
		return time.Time{}, time.Time{}, fmt.Errorf("start %s is not before end %s", from.Format("2006-01-02"), until.Format("2006-01-02"))
	}
	return from, until, nil
}

func parseCategories(list string) ([]sources.Category, error) {
	parts := splitList(list)
	if len(parts) == 0 {
		return sources.AllCategories(), nil
	}

	cats := make([]sources.Category, 0, len(parts))
	for _, p := range parts {
		cat := sources.Category(strings.ToLower(p))
		if !cat.Valid() {
			return nil, fmt.Errorf("unknown category %q", p)
		}
		cats = append(cats, cat)
	}
	return cats, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func fatal(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
