package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"mosaic/internal/adapters/clickhouse"
	"mosaic/internal/adapters/config"
	"mosaic/internal/adapters/errors/noop"
	"mosaic/internal/adapters/errors/sentry"
	"mosaic/internal/adapters/kafka"
	"mosaic/internal/adapters/mysql"
	"mosaic/internal/adapters/redis"
	"mosaic/internal/metrics"
	"mosaic/internal/reconcile"
	chrepo "mosaic/internal/repository/clickhouse"
	mysqlrepo "mosaic/internal/repository/mysql"
	"mosaic/internal/workers"
	"mosaic/internal/workers/backfill"
	"mosaic/internal/workers/materializer"
	"mosaic/pkg/errors"
	"mosaic/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get()
	log.Infof("Starting %s in %s mode", cfg.App.Name, cfg.App.Env)

	errorTracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(errorTracker)

	// MySQL is the warehouse; nothing works without it
	warehouse, err := mysql.NewClient(cfg.MySQL)
	if err != nil {
		log.Fatalf("Failed to connect to MySQL: %v", err)
	}
	defer warehouse.Close()

	featureRepo := mysqlrepo.NewFeatureRepository(warehouse.DB())
	gapRepo := mysqlrepo.NewGapRepository(warehouse.DB())
	sourceReader := mysqlrepo.NewSourceReader(warehouse.DB())
	macroReader := mysqlrepo.NewMacroReader(warehouse.DB())

	deps := reconcile.Deps{
		OHLC:      sourceReader,
		Technical: sourceReader,
		Macro:     macroReader,
		Onchain:   sourceReader,
		Features:  featureRepo,
	}

	// Optional subsystems follow config
	if cfg.ClickHouse.Enabled() {
		chClient, err := clickhouse.NewClient(cfg.ClickHouse)
		if err != nil {
			log.Fatalf("Failed to connect to ClickHouse: %v", err)
		}
		defer chClient.Close()
		deps.Sentiment = chrepo.NewSentimentRepository(chClient.Conn())
		log.Info("Sentiment source enabled (ClickHouse)")
	} else {
		log.Info("ClickHouse not configured, sentiment columns stay untouched")
	}

	if cfg.Redis.Enabled() {
		redisClient, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		deps.Locker = redisClient
		log.Info("Symbol locking enabled (Redis)")
	}

	var producer *kafka.Producer
	if cfg.Kafka.Enabled() {
		producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers})
		defer producer.Close()
		deps.Events = producer
		log.Info("Event publishing enabled (Kafka)")
	}

	reconciler := reconcile.New(deps, reconcile.Config{
		MaxRetries:       cfg.Reconcile.MaxRetries,
		RetryBaseDelay:   cfg.Reconcile.RetryBaseDelay,
		QueryRateLimit:   cfg.Reconcile.QueryRateLimit,
		ComputeTechnical: cfg.Reconcile.ComputeTechnical,
		SymbolLockTTL:    cfg.Reconcile.SymbolLockTTL,
	})
	scanner := reconcile.NewScanner(gapRepo, reconciler, deps.Events)

	recorder, metricsServer := initMetrics(cfg, gapRepo, log)

	scheduler := workers.NewScheduler()
	scheduler.RegisterWorker(backfill.NewGapBackfillWorker(
		scanner,
		recorder,
		cfg.Reconcile.Lookback,
		cfg.Reconcile.BatchSize,
		cfg.Workers.GapBackfillInterval,
		cfg.Workers.GapBackfillEnabled,
	))
	scheduler.RegisterWorker(materializer.New(
		featureRepo,
		reconciler,
		recorder,
		cfg.Reconcile.Symbols,
		cfg.Workers.MaterializerInterval,
		cfg.Workers.MaterializerEnabled,
	))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		log.Fatalf("Failed to start scheduler: %v", err)
	}

	log.Info("System initialized successfully")

	waitForShutdown(ctx, cancel, scheduler, metricsServer, errorTracker, log)
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Info("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

// initMetrics registers collectors and starts the scrape endpoint
func initMetrics(cfg *config.Config, gaps *mysqlrepo.GapRepository, log *logger.Logger) (*metrics.Recorder, *http.Server) {
	if !cfg.Metrics.Enabled {
		log.Info("Metrics disabled")
		return nil, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)
	registry.MustRegister(metrics.NewGapCollector(gaps, cfg.Reconcile.Lookback))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
	go func() {
		log.Infof("Metrics listening on %s", cfg.Metrics.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("Metrics server error: %v", err)
		}
	}()

	return recorder, server
}

// waitForShutdown waits for shutdown signal and performs graceful shutdown
func waitForShutdown(
	ctx context.Context,
	cancel context.CancelFunc,
	scheduler *workers.Scheduler,
	metricsServer *http.Server,
	errorTracker errors.Tracker,
	log *logger.Logger,
) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down...")

	cancel()

	if err := scheduler.Stop(); err != nil {
		log.Warnf("Scheduler stop: %v", err)
	}

	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			log.Warnf("Metrics server shutdown: %v", err)
		}
	}

	if errorTracker != nil {
		if err := errorTracker.Flush(ctx); err != nil {
			log.Warnf("Failed to flush error tracker: %v", err)
		}
	}

	log.Info("Shutdown complete")
}
