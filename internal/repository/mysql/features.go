package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"mosaic/internal/domain/features"
	"mosaic/internal/domain/sources"
	"mosaic/pkg/errors"
)

const materializedTable = "ml_features_materialized"

// Compile-time check
var _ features.Repository = (*FeatureRepository)(nil)

// FeatureRepository implements features.Repository against MySQL
type FeatureRepository struct {
	db *sqlx.DB
}

// NewFeatureRepository creates a new feature repository
func NewFeatureRepository(db *sqlx.DB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

// UpsertBatch merges a group of patches inside one transaction.
// ON DUPLICATE KEY UPDATE with COALESCE(VALUES(col), col) keeps the merge
// idempotent and never lets an incoming NULL erase a populated field;
// updated_at moves on every write whether or not a value changed.
// READ COMMITTED is enough for the merge (each statement re-reads current
// values) and holds gap locks for less time than REPEATABLE READ would.
func (r *FeatureRepository) UpsertBatch(ctx context.Context, patches []*features.Patch) error {
	if len(patches) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return translate(err, materializedTable)
	}
	defer tx.Rollback()

	for _, patch := range patches {
		if patch.Empty() {
			continue
		}
		query, args := buildUpsert(patch)
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return translate(err, materializedTable)
		}
	}

	if err := tx.Commit(); err != nil {
		return translate(err, materializedTable)
	}
	return nil
}

// Get reads one materialized row
func (r *FeatureRepository) Get(ctx context.Context, symbol string, bucket time.Time) (*features.Row, error) {
	var row features.Row

	query := `
		SELECT * FROM ml_features_materialized
		WHERE symbol = ? AND ` + "`timestamp`" + ` = ?`

	err := r.db.GetContext(ctx, &row, query, sources.NormalizeSymbol(symbol), features.BucketOf(bucket))
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrNotFound, "%s@%s", symbol, bucket)
	}
	if err != nil {
		return nil, translate(err, materializedTable)
	}

	return &row, nil
}

// EnsureRow creates an empty row for the cell if none exists
func (r *FeatureRepository) EnsureRow(ctx context.Context, cell features.Cell) error {
	query := `
		INSERT INTO ml_features_materialized (symbol, ` + "`timestamp`" + `, created_at, updated_at)
		VALUES (?, ?, UTC_TIMESTAMP(), UTC_TIMESTAMP())
		ON DUPLICATE KEY UPDATE symbol = symbol`

	_, err := r.db.ExecContext(ctx, query, sources.NormalizeSymbol(cell.Symbol), features.BucketOf(cell.Bucket))
	return translate(err, materializedTable)
}

// buildUpsert assembles the merge statement for whichever patch groups are
// present. Absent groups contribute no columns at all, so their fields are
// untouched by the write.
func buildUpsert(patch *features.Patch) (string, []interface{}) {
	cols := make([]string, 0, 32)
	args := make([]interface{}, 0, 32)

	add := func(col string, v interface{}) {
		cols = append(cols, col)
		args = append(args, v)
	}

	if p := patch.Price; p != nil {
		add("open_price", p.Open)
		add("high_price", p.High)
		add("low_price", p.Low)
		add("close_price", p.Close)
		add("volume", p.Volume)
	}
	if t := patch.Technical; t != nil {
		add("rsi_14", t.RSI14)
		add("sma_20", t.SMA20)
		add("sma_50", t.SMA50)
		add("ema_12", t.EMA12)
		add("ema_26", t.EMA26)
		add("macd", t.MACD)
		add("macd_signal", t.MACDSignal)
		add("macd_histogram", t.MACDHistogram)
		add("bb_upper", t.BBUpper)
		add("bb_middle", t.BBMiddle)
		add("bb_lower", t.BBLower)
	}
	if m := patch.Macro; m != nil {
		add("vix", m.VIX)
		add("spx", m.SPX)
		add("dxy", m.DXY)
		add("tnx", m.TNX)
		add("gold", m.Gold)
		add("fed_funds", m.FedFunds)
	}
	if o := patch.Onchain; o != nil {
		add("active_addresses_24h", o.ActiveAddresses24h)
		add("transaction_count_24h", o.TxCount24h)
		add("exchange_net_flow_24h", o.ExchangeNetFlow24h)
		add("price_volatility_7d", o.Volatility7d)
	}
	if s := patch.Sentiment; s != nil {
		add("sentiment_score_24h", s.Score)
		add("sentiment_article_count_24h", float64(s.ArticleCount))
	}

	insertCols := append([]string{"symbol", "`timestamp`"}, cols...)
	placeholders := strings.TrimRight(strings.Repeat("?, ", len(insertCols)), ", ")

	updates := make([]string, 0, len(cols)+1)
	for _, col := range cols {
		updates = append(updates, fmt.Sprintf("%s = COALESCE(VALUES(%s), %s)", col, col, col))
	}
	updates = append(updates, "updated_at = UTC_TIMESTAMP()")

	query := fmt.Sprintf(`
		INSERT INTO ml_features_materialized (%s, created_at, updated_at)
		VALUES (%s, UTC_TIMESTAMP(), UTC_TIMESTAMP())
		ON DUPLICATE KEY UPDATE %s`,
		strings.Join(insertCols, ", "),
		placeholders,
		strings.Join(updates, ", "),
	)

	fullArgs := make([]interface{}, 0, len(args)+2)
	fullArgs = append(fullArgs, sources.NormalizeSymbol(patch.Symbol), features.BucketOf(patch.Bucket))
	fullArgs = append(fullArgs, args...)

	return query, fullArgs
}
