package reconcile

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"

	"mosaic/internal/adapters/kafka"
	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/pkg/errors"
	"mosaic/pkg/logger"
)

// Locker coordinates overlapping batch jobs; per-symbol locks keep two jobs
// from repairing the same symbol at once
type Locker interface {
	AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, name, owner string) error
}

// EventPublisher publishes reconciliation events
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event interface{}) error
}

// Config tunes the reconciler
type Config struct {
	// Bounded retry for deadlock / lock-wait-timeout on a sub-batch
	MaxRetries     int
	RetryBaseDelay time.Duration

	// Warehouse queries per second (0 = unlimited)
	QueryRateLimit float64

	// Compute technical indicators from OHLC history when the source table
	// has no row
	ComputeTechnical bool

	// How long a batch job may hold a per-symbol lock
	SymbolLockTTL time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
	if c.RetryBaseDelay == 0 {
		c.RetryBaseDelay = 100 * time.Millisecond
	}
	if c.SymbolLockTTL == 0 {
		c.SymbolLockTTL = 5 * time.Minute
	}
	return c
}

// Deps carries the reconciler's collaborators. Sentiment, Locker and Events
// are optional; a nil value disables that concern.
type Deps struct {
	OHLC      sources.OHLCReader
	Technical sources.TechnicalReader
	Macro     sources.MacroReader
	Onchain   sources.OnchainReader
	Sentiment sources.SentimentReader

	Features features.Repository

	Locker Locker
	Events EventPublisher
}

// Reconciler merges resolved source values into the materialized table.
// It is the single mutation path; everything else reads.
type Reconciler struct {
	deps    Deps
	cfg     Config
	limiter *rate.Limiter
	log     *logger.Logger
}

// New creates a new reconciler
func New(deps Deps, cfg Config) *Reconciler {
	cfg = cfg.withDefaults()

	var limiter *rate.Limiter
	if cfg.QueryRateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.QueryRateLimit), 1)
	}

	return &Reconciler{
		deps:    deps,
		cfg:     cfg,
		limiter: limiter,
		log:     logger.Get().With("component", "reconciler"),
	}
}

// ReconcileBatch repairs the given cells for the given categories and
// returns the run report. Cells are processed in (symbol, bucket) order and
// written per-symbol so concurrent jobs take row locks in the same order.
//
// Lock-contention failures retry the failed per-symbol sub-batch only, with
// bounded exponential backoff, and are surfaced in the report; schema and
// connectivity errors abort the whole run.
func (r *Reconciler) ReconcileBatch(ctx context.Context, cells []features.Cell, cats []sources.Category) (*Report, error) {
	report := NewReport(cats)
	if len(cells) == 0 {
		report.Finish()
		return report, nil
	}
	if len(cats) == 0 {
		cats = sources.AllCategories()
	}

	ordered := make([]features.Cell, len(cells))
	copy(ordered, cells)
	for i := range ordered {
		ordered[i].Symbol = sources.NormalizeSymbol(ordered[i].Symbol)
		ordered[i].Bucket = features.BucketOf(ordered[i].Bucket)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Symbol != ordered[j].Symbol {
			return ordered[i].Symbol < ordered[j].Symbol
		}
		return ordered[i].Bucket.Before(ordered[j].Bucket)
	})

	var batchErrs errors.MultiError

	for start := 0; start < len(ordered); {
		end := start
		for end < len(ordered) && ordered[end].Symbol == ordered[start].Symbol {
			end++
		}
		group := ordered[start:end]
		start = end

		if err := r.reconcileSymbolGroup(ctx, group, cats, report); err != nil {
			if isFatal(err) {
				report.Finish()
				return report, err
			}
			report.Errors += len(group)
			batchErrs.Add(err)
		}
	}

	report.Finish()
	r.publishRunCompleted(ctx, report)

	return report, batchErrs.ToError()
}

// reconcileSymbolGroup builds patches for one symbol's cells and writes them
// as a single retried sub-batch
func (r *Reconciler) reconcileSymbolGroup(ctx context.Context, group []features.Cell, cats []sources.Category, report *Report) error {
	symbol := group[0].Symbol

	if r.deps.Locker != nil {
		acquired, err := r.deps.Locker.AcquireLock(ctx, "symbol:"+symbol, report.RunID, r.cfg.SymbolLockTTL)
		if err != nil {
			return errors.Wrapf(err, "acquire lock for %s", symbol)
		}
		if !acquired {
			r.log.Infof("Symbol %s locked by another job, skipping %d cells", symbol, len(group))
			report.Skipped += len(group)
			return nil
		}
		defer func() {
			if err := r.deps.Locker.ReleaseLock(ctx, "symbol:"+symbol, report.RunID); err != nil {
				r.log.Warnf("Failed to release lock for %s: %v", symbol, err)
			}
		}()
	}

	patches := make([]*features.Patch, 0, len(group))
	for _, cell := range group {
		report.Scanned++

		patch, err := r.buildPatch(ctx, cell.Symbol, cell.Bucket, cats, report)
		if err != nil {
			return err
		}
		if patch.Empty() {
			report.Skipped++
			continue
		}
		patches = append(patches, patch)
	}

	if len(patches) == 0 {
		return nil
	}

	if err := r.upsertWithRetry(ctx, patches, report); err != nil {
		return errors.Wrapf(err, "upsert sub-batch for %s", symbol)
	}

	report.Updated += len(patches)
	for _, patch := range patches {
		r.publishRowUpdated(ctx, patch)
	}
	return nil
}

// upsertWithRetry writes one sub-batch, retrying lock contention with
// bounded exponential backoff. Any other error is permanent.
func (r *Reconciler) upsertWithRetry(ctx context.Context, patches []*features.Patch, report *Report) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(
			backoff.NewExponentialBackOff(
				backoff.WithInitialInterval(r.cfg.RetryBaseDelay),
				backoff.WithMultiplier(2),
				backoff.WithRandomizationFactor(0),
			),
			uint64(r.cfg.MaxRetries),
		),
		ctx,
	)

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		err := r.deps.Features.UpsertBatch(ctx, patches)
		if err == nil {
			return nil
		}
		if errors.Is(err, errors.ErrLockContention) {
			r.log.Warnf("Lock contention on attempt %d (%d rows): %v", attempt, len(patches), err)
			report.Retries++
			return err
		}
		return backoff.Permanent(err)
	}, policy)

	if err != nil && errors.Is(err, errors.ErrLockContention) {
		return errors.Wrapf(errors.ErrRetriesExhausted, "%d attempts: %v", attempt, err)
	}
	return err
}

// buildPatch fetches and resolves each requested category for one cell
func (r *Reconciler) buildPatch(ctx context.Context, symbol string, bucket time.Time, cats []sources.Category, report *Report) (*features.Patch, error) {
	patch := &features.Patch{Symbol: symbol, Bucket: bucket}

	for _, cat := range cats {
		if err := r.wait(ctx); err != nil {
			return nil, err
		}

		switch cat {
		case sources.CategoryOHLC:
			candles, err := r.deps.OHLC.CandlesForDay(ctx, symbol, bucket)
			if err != nil {
				return nil, err
			}
			if rec := ResolveOHLC(candles, bucket); rec != nil {
				patch.Price = &features.PricePatch{
					Open:   rec.Open.InexactFloat64(),
					High:   rec.High.InexactFloat64(),
					Low:    rec.Low.InexactFloat64(),
					Close:  rec.Close.InexactFloat64(),
					Volume: rec.Volume,
				}
				report.Resolved(cat)
			}

		case sources.CategoryTechnical:
			rows, err := r.deps.Technical.IndicatorsForDay(ctx, symbol, bucket)
			if err != nil {
				return nil, err
			}
			if rec := ResolveTechnical(rows, bucket); rec != nil {
				patch.Technical = &features.TechnicalPatch{
					RSI14:         rec.RSI14,
					SMA20:         rec.SMA20,
					SMA50:         rec.SMA50,
					EMA12:         rec.EMA12,
					EMA26:         rec.EMA26,
					MACD:          rec.MACD,
					MACDSignal:    rec.MACDSignal,
					MACDHistogram: rec.MACDHistogram,
					BBUpper:       rec.BBUpper,
					BBMiddle:      rec.BBMiddle,
					BBLower:       rec.BBLower,
				}
				report.Resolved(cat)
			} else if r.cfg.ComputeTechnical {
				computed, err := r.computeTechnical(ctx, symbol, bucket)
				if err != nil {
					return nil, err
				}
				if computed != nil {
					patch.Technical = computed
					report.Resolved(cat)
				}
			}

		case sources.CategoryMacro:
			pivot, err := r.deps.Macro.PivotForDate(ctx, bucket)
			if err != nil {
				return nil, err
			}
			if rec := ResolveMacro(pivot, bucket); rec != nil {
				patch.Macro = &features.MacroPatch{
					VIX:      rec.VIX,
					SPX:      rec.SPX,
					DXY:      rec.DXY,
					TNX:      rec.TNX,
					Gold:     rec.Gold,
					FedFunds: rec.FedFunds,
				}
				report.Resolved(cat)
			}

		case sources.CategoryOnchain:
			rows, err := r.deps.Onchain.MetricsForDay(ctx, symbol, bucket)
			if err != nil {
				return nil, err
			}
			if rec := ResolveOnchain(rows); rec != nil {
				patch.Onchain = &features.OnchainPatch{
					ActiveAddresses24h: rec.ActiveAddresses24h,
					TxCount24h:         rec.TxCount24h,
					ExchangeNetFlow24h: rec.ExchangeNetFlow24h,
					Volatility7d:       rec.Volatility7d,
				}
				report.Resolved(cat)
			}

		case sources.CategorySentiment:
			if r.deps.Sentiment == nil {
				continue
			}
			articles, err := r.deps.Sentiment.ArticlesInWindow(ctx, symbol, bucket.Add(-SentimentLookback), bucket)
			if err != nil {
				return nil, err
			}
			if snap := ResolveSentiment(articles, bucket); snap != nil {
				patch.Sentiment = &features.SentimentPatch{
					Score:        snap.WeightedScore,
					ArticleCount: snap.ArticleCount,
				}
				report.Resolved(cat)
			}
		}
	}

	return patch, nil
}

func (r *Reconciler) wait(ctx context.Context) error {
	if r.limiter == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}

// isFatal separates abort-the-run errors from record-and-continue ones
func isFatal(err error) bool {
	return errors.Is(err, errors.ErrSchemaMismatch) || errors.Is(err, errors.ErrUnavailable)
}

func (r *Reconciler) publishRowUpdated(ctx context.Context, patch *features.Patch) {
	if r.deps.Events == nil {
		return
	}
	event := RowUpdatedEvent{
		Symbol: patch.Symbol,
		Bucket: patch.Bucket,
	}
	if err := r.deps.Events.Publish(ctx, kafka.TopicRowUpdated, patch.Symbol, event); err != nil {
		r.log.Warnf("Failed to publish row_updated for %s: %v", patch.Symbol, err)
	}
}

func (r *Reconciler) publishRunCompleted(ctx context.Context, report *Report) {
	if r.deps.Events == nil {
		return
	}
	if err := r.deps.Events.Publish(ctx, kafka.TopicRunCompleted, report.RunID, report); err != nil {
		r.log.Warnf("Failed to publish run_completed: %v", err)
	}
}
