package sources

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Category identifies one independently-collected source feed
type Category string

const (
	CategoryOHLC      Category = "ohlc"
	CategoryTechnical Category = "technical"
	CategoryMacro     Category = "macro"
	CategoryOnchain   Category = "onchain"
	CategorySentiment Category = "sentiment"
)

// Valid checks if the category is known
func (c Category) Valid() bool {
	switch c {
	case CategoryOHLC, CategoryTechnical, CategoryMacro, CategoryOnchain, CategorySentiment:
		return true
	}
	return false
}

// String returns string representation
func (c Category) String() string {
	return string(c)
}

// AllCategories lists every source category in reconciliation order
func AllCategories() []Category {
	return []Category{
		CategoryOHLC,
		CategoryTechnical,
		CategoryMacro,
		CategoryOnchain,
		CategorySentiment,
	}
}

// NormalizeSymbol maps a ticker to its canonical form: trimmed, uppercase.
// Every symbol crossing a component boundary goes through this, which is what
// lets the readers compare symbols without binary-collation tricks.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// OHLCRecord is one candle from ohlc_data.
// Prices stay decimal until they are materialized into feature columns.
type OHLCRecord struct {
	Symbol     string          `db:"symbol"`
	Timestamp  time.Time       `db:"timestamp"`
	Open       decimal.Decimal `db:"open_price"`
	High       decimal.Decimal `db:"high_price"`
	Low        decimal.Decimal `db:"low_price"`
	Close      decimal.Decimal `db:"close_price"`
	Volume     float64         `db:"volume"`
	DataSource string          `db:"data_source"`
}

// TechnicalRecord is one row from technical_indicators
type TechnicalRecord struct {
	Symbol        string    `db:"symbol"`
	Timestamp     time.Time `db:"timestamp"`
	RSI14         *float64  `db:"rsi_14"`
	SMA20         *float64  `db:"sma_20"`
	SMA50         *float64  `db:"sma_50"`
	EMA12         *float64  `db:"ema_12"`
	EMA26         *float64  `db:"ema_26"`
	MACD          *float64  `db:"macd"`
	MACDSignal    *float64  `db:"macd_signal"`
	MACDHistogram *float64  `db:"macd_histogram"`
	BBUpper       *float64  `db:"bb_upper"`
	BBMiddle      *float64  `db:"bb_middle"`
	BBLower       *float64  `db:"bb_lower"`
}

// Macro indicator names recognized by the pivot.
// macro_indicators is keyed by (indicator_name, indicator_date), not symbol.
const (
	IndicatorVIX      = "VIX"
	IndicatorSPX      = "SPX"
	IndicatorDXY      = "DXY"
	IndicatorTNX      = "TNX"
	IndicatorGold     = "GOLD"
	IndicatorFedFunds = "FEDFUNDS"
)

// MacroRecord is the pivot of all indicator rows for one calendar date.
// Fields are nil when that indicator has no row for the date.
type MacroRecord struct {
	Date     time.Time
	VIX      *float64
	SPX      *float64
	DXY      *float64
	TNX      *float64
	Gold     *float64
	FedFunds *float64
}

// Empty reports whether the pivot carries no values at all
func (m *MacroRecord) Empty() bool {
	return m.VIX == nil && m.SPX == nil && m.DXY == nil &&
		m.TNX == nil && m.Gold == nil && m.FedFunds == nil
}

// OnchainRecord is one row from crypto_onchain_data
type OnchainRecord struct {
	CoinSymbol         string    `db:"coin_symbol"`
	Timestamp          time.Time `db:"timestamp"`
	ActiveAddresses24h float64   `db:"active_addresses_24h"`
	TxCount24h         float64   `db:"transaction_count_24h"`
	ExchangeNetFlow24h float64   `db:"exchange_net_flow_24h"`
	Volatility7d       float64   `db:"price_volatility_7d"`
}

// ArticleScore is one scored news article from the sentiment stream
type ArticleScore struct {
	PublishedAt time.Time `ch:"published_at"`
	Score       float64   `ch:"sentiment_score"`
}

// SentimentSnapshot is the decay-weighted aggregate over a trailing window
type SentimentSnapshot struct {
	WeightedScore float64
	ArticleCount  int
}
