package features

import (
	"time"
)

// Cell identifies one materialized row: a symbol and its hour bucket
type Cell struct {
	Symbol string    `db:"symbol"`
	Bucket time.Time `db:"timestamp"`
}

// BucketOf truncates a timestamp to its hour bucket in UTC
func BucketOf(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Hour)
}

// Row is one row of ml_features_materialized. Every feature column is
// nullable; a row may stay partially populated forever if a source never
// produced data for its bucket.
type Row struct {
	Symbol    string    `db:"symbol"`
	Timestamp time.Time `db:"timestamp"`

	// Price / volume
	OpenPrice  *float64 `db:"open_price"`
	HighPrice  *float64 `db:"high_price"`
	LowPrice   *float64 `db:"low_price"`
	ClosePrice *float64 `db:"close_price"`
	Volume     *float64 `db:"volume"`

	// Technical indicators
	RSI14         *float64 `db:"rsi_14"`
	SMA20         *float64 `db:"sma_20"`
	SMA50         *float64 `db:"sma_50"`
	EMA12         *float64 `db:"ema_12"`
	EMA26         *float64 `db:"ema_26"`
	MACD          *float64 `db:"macd"`
	MACDSignal    *float64 `db:"macd_signal"`
	MACDHistogram *float64 `db:"macd_histogram"`
	BBUpper       *float64 `db:"bb_upper"`
	BBMiddle      *float64 `db:"bb_middle"`
	BBLower       *float64 `db:"bb_lower"`

	// Macro indicators (daily granularity, repeated across the day's hours)
	VIX      *float64 `db:"vix"`
	SPX      *float64 `db:"spx"`
	DXY      *float64 `db:"dxy"`
	TNX      *float64 `db:"tnx"`
	Gold     *float64 `db:"gold"`
	FedFunds *float64 `db:"fed_funds"`

	// Onchain metrics
	ActiveAddresses24h *float64 `db:"active_addresses_24h"`
	TxCount24h         *float64 `db:"transaction_count_24h"`
	ExchangeNetFlow24h *float64 `db:"exchange_net_flow_24h"`
	Volatility7d       *float64 `db:"price_volatility_7d"`

	// Sentiment
	SentimentScore24h   *float64 `db:"sentiment_score_24h"`
	SentimentArticles24 *float64 `db:"sentiment_article_count_24h"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// PricePatch carries resolved OHLC values
type PricePatch struct {
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// TechnicalPatch carries resolved indicator values; nil fields are absent in
// the source row and must not clobber existing values
type TechnicalPatch struct {
	RSI14         *float64
	SMA20         *float64
	SMA50         *float64
	EMA12         *float64
	EMA26         *float64
	MACD          *float64
	MACDSignal    *float64
	MACDHistogram *float64
	BBUpper       *float64
	BBMiddle      *float64
	BBLower       *float64
}

// MacroPatch carries pivoted macro values; nil fields are indicators with no
// row for the date
type MacroPatch struct {
	VIX      *float64
	SPX      *float64
	DXY      *float64
	TNX      *float64
	Gold     *float64
	FedFunds *float64
}

// OnchainPatch carries resolved onchain metrics
type OnchainPatch struct {
	ActiveAddresses24h float64
	TxCount24h         float64
	ExchangeNetFlow24h float64
	Volatility7d       float64
}

// SentimentPatch carries the decay-weighted sentiment aggregate
type SentimentPatch struct {
	Score        float64
	ArticleCount int
}

// Patch is one reconciliation write: resolved values for whichever source
// groups produced data. A nil group means "no data found, leave those
// columns alone"; the upsert never writes NULL over a populated field.
type Patch struct {
	Symbol string
	Bucket time.Time

	Price     *PricePatch
	Technical *TechnicalPatch
	Macro     *MacroPatch
	Onchain   *OnchainPatch
	Sentiment *SentimentPatch
}

// Empty reports whether the patch carries no values at all
func (p *Patch) Empty() bool {
	return p.Price == nil && p.Technical == nil && p.Macro == nil &&
		p.Onchain == nil && p.Sentiment == nil
}
