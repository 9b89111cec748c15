package clickhouse

import (
	"context"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"mosaic/internal/domain/sources"
	"mosaic/pkg/errors"
)

// Compile-time check
var _ sources.SentimentReader = (*SentimentRepository)(nil)

// SentimentRepository reads scored news articles from ClickHouse.
// The article stream is append-only and collector-owned; this side only
// ever reads.
type SentimentRepository struct {
	conn driver.Conn
}

// NewSentimentRepository creates a new sentiment repository
func NewSentimentRepository(conn driver.Conn) *SentimentRepository {
	return &SentimentRepository{conn: conn}
}

// ArticlesInWindow returns article scores for the symbol published in
// (from, until]
func (r *SentimentRepository) ArticlesInWindow(ctx context.Context, symbol string, from, until time.Time) ([]sources.ArticleScore, error) {
	var articles []sources.ArticleScore

	query := `
		SELECT published_at, sentiment_score
		FROM news_sentiment
		WHERE symbol = ? AND published_at > ? AND published_at <= ?`

	err := r.conn.Select(ctx, &articles, query, sources.NormalizeSymbol(symbol), from.UTC(), until.UTC())
	if err != nil {
		return nil, errors.Wrap(err, "news_sentiment")
	}

	return articles, nil
}
