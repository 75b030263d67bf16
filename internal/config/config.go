package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	OTLPEndpoint string

	// Log and OTel settings consumed by the observability module.
	LogLevel          string
	LogFormat         string
	OtelEnabled       bool
	OtelProtocol      string
	OtelSamplingRatio float64

	// DuesStore selects the authoritative store: the local database or the
	// marketplace backend over HTTP.
	DuesStore string
	Backend   BackendConfig

	MarketTimezone string
	SnowflakeNode  int64
	SeedDemoStands bool

	Redis RedisConfig

	// SchedulerEnabled runs the periodic morosity snapshot in-process.
	SchedulerEnabled bool
	SnapshotInterval time.Duration

	// MetricsPush forwards the dues gauges to an external Prometheus after
	// each snapshot. Empty Exporter disables it.
	MetricsPush MetricsPushConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

type BackendConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type MetricsPushConfig struct {
	Exporter string
	Endpoint string
	Token    string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	StoreDatabase = "database"
	StoreBackend  = "backend"
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "mercado"),
		AppVersion:   getenv("APP_VERSION", "0.1.0"),
		Environment:  getenv("ENVIRONMENT", "development"),
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),
		LogLevel:     strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
		LogFormat:    strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
		OtelEnabled:  getenvBool("OTEL_ENABLED", true),
		OtelProtocol: strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL",
			getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
		OtelSamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		DuesStore:         normalizeStore(getenv("DUES_STORE", StoreDatabase)),
		MarketTimezone:    getenv("MARKET_TIMEZONE", "UTC"),
		SnowflakeNode:     getenvInt64("SNOWFLAKE_NODE", 1),
		SeedDemoStands:    getenvBool("SEED_DEMO_STANDS", false),
		Backend: BackendConfig{
			BaseURL: strings.TrimSpace(getenv("BACKEND_URL", "")),
			Token:   strings.TrimSpace(getenv("BACKEND_TOKEN", "")),
			Timeout: time.Duration(getenvInt64("BACKEND_TIMEOUT_MS", 5000)) * time.Millisecond,
		},
		SchedulerEnabled: getenvBool("SCHEDULER_ENABLED", true),
		SnapshotInterval: time.Duration(getenvInt64("SNAPSHOT_INTERVAL_SECONDS", 300)) * time.Second,
		MetricsPush: MetricsPushConfig{
			Exporter: strings.ToLower(strings.TrimSpace(getenv("METRICS_PUSH_EXPORTER", ""))),
			Endpoint: strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			Token:    strings.TrimSpace(getenv("METRICS_PUSH_TOKEN", "")),
		},
		Redis: RedisConfig{
			Addr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password: getenv("REDIS_PASSWORD", ""),
			DB:       int(getenvInt64("REDIS_DB", 0)),
		},
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "mercado"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 300)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 60)),
	}

	return cfg
}

// Location resolves MarketTimezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(strings.TrimSpace(c.MarketTimezone))
	if err != nil || loc == nil {
		return time.UTC
	}
	return loc
}

func (c Config) UsesBackend() bool {
	return c.DuesStore == StoreBackend
}

func normalizeStore(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case StoreBackend, "rest", "http":
		return StoreBackend
	default:
		return StoreDatabase
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
