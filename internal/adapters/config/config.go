package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"mosaic/pkg/errors"
)

type Config struct {
	App           AppConfig
	MySQL         MySQLConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Reconcile     ReconcileConfig
	Workers       WorkerConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"mosaic"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

// MySQLConfig configures the warehouse connection.
// The canonical variable names are MYSQL_*; the legacy scripts disagreed on
// DB_* vs MYSQL_* and that ambiguity stops here.
type MySQLConfig struct {
	Host     string `envconfig:"MYSQL_HOST" required:"true"`
	Port     int    `envconfig:"MYSQL_PORT" default:"3306"`
	User     string `envconfig:"MYSQL_USER" required:"true"`
	Password string `envconfig:"MYSQL_PASSWORD" required:"true"`
	Database string `envconfig:"MYSQL_DATABASE" required:"true"`
	MaxConns int    `envconfig:"MYSQL_MAX_CONNS" default:"25"`
}

// DSN builds a go-sql-driver DSN. parseTime is required so DATETIME columns
// scan into time.Time; all timestamps are stored and compared in UTC.
func (c MySQLConfig) DSN() string {
	return fmt.Sprintf(
		"%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC",
		c.User, c.Password, c.Host, c.Port, c.Database,
	)
}

type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"crypto_news"`
}

// Enabled reports whether a ClickHouse endpoint is configured.
// Without one the sentiment source is simply skipped.
func (c ClickHouseConfig) Enabled() bool {
	return c.Host != ""
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether Redis is configured. Without it reconciliation
// runs without cross-job symbol locks.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS"`
}

// Enabled reports whether event publishing is configured
func (c KafkaConfig) Enabled() bool {
	return len(c.Brokers) > 0
}

// ReconcileConfig tunes the reconciliation core
type ReconcileConfig struct {
	// Symbols the materializer keeps current-hour rows for
	Symbols []string `envconfig:"RECONCILE_SYMBOLS" default:"BTCUSDT,ETHUSDT,SOLUSDT"`

	// BatchSize bounds how many gap cells one run repairs per category
	BatchSize int `envconfig:"RECONCILE_BATCH_SIZE" default:"500"`

	// Lookback bounds how far back the gap scanner searches
	Lookback time.Duration `envconfig:"RECONCILE_LOOKBACK" default:"720h"`

	// Retry policy for deadlock / lock-wait-timeout errors
	MaxRetries     int           `envconfig:"RECONCILE_MAX_RETRIES" default:"3"`
	RetryBaseDelay time.Duration `envconfig:"RECONCILE_RETRY_BASE_DELAY" default:"100ms"`

	// QueryRateLimit caps warehouse queries per second (0 = unlimited)
	QueryRateLimit float64 `envconfig:"RECONCILE_QUERY_RATE_LIMIT" default:"50"`

	// ComputeTechnical enables computing indicators from OHLC history when
	// the technical_indicators source has no row for a bucket
	ComputeTechnical bool `envconfig:"RECONCILE_COMPUTE_TECHNICAL" default:"false"`

	// SymbolLockTTL bounds how long a batch job may hold a per-symbol lock
	SymbolLockTTL time.Duration `envconfig:"RECONCILE_SYMBOL_LOCK_TTL" default:"5m"`
}

// WorkerConfig contains intervals for the background workers
type WorkerConfig struct {
	GapBackfillInterval  time.Duration `envconfig:"WORKER_GAP_BACKFILL_INTERVAL" default:"15m"`
	GapBackfillEnabled   bool          `envconfig:"WORKER_GAP_BACKFILL_ENABLED" default:"true"`
	MaterializerInterval time.Duration `envconfig:"WORKER_MATERIALIZER_INTERVAL" default:"5m"`
	MaterializerEnabled  bool          `envconfig:"WORKER_MATERIALIZER_ENABLED" default:"true"`
}

type MetricsConfig struct {
	Enabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	Addr    string `envconfig:"METRICS_ADDR" default:":9090"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
