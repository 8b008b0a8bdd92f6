package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	Telemetry TelemetryConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBPath            string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	// SeedDemoData inserts a few clients and suppliers on startup.
	SeedDemoData bool

	RateLimit RateLimitConfig
	Scheduler SchedulerConfig
	Console   ConsoleConfig
}

// SchedulerConfig controls the background debt aging job in the API process.
type SchedulerConfig struct {
	Enabled            bool
	RunIntervalSeconds int
	JobTimeoutSeconds  int
}

// TelemetryConfig drives logging, tracing and metrics for both binaries.
type TelemetryConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelEndpoint  string
	OtelProtocol  string
	SamplingRatio float64
}

// RateLimitConfig throttles API writes per caller and guards invoice numbers
// while an invoice is being created. Both live in Redis.
type RateLimitConfig struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	WriteRate             float64
	WriteBurst            int
	InvoiceLockTTLSeconds int
}

// ConsoleConfig configures the terminal front end.
type ConsoleConfig struct {
	APIBaseURL     string
	RequestTimeout int
	LogFile        string
	CurrencyLocale string
	CurrencySymbol string
}

var Module = fx.Module("config",
	fx.Provide(Load),
	fx.Provide(NewBillingConfigHolder),
)

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getenv("APP_SERVICE", "tradeledger"),
		AppVersion:        getenv("APP_VERSION", "0.1.0"),
		Environment:       getenv("ENVIRONMENT", "development"),
		HTTPAddr:          getenv("HTTP_ADDR", ":8080"),
		DBType:            getenv("DATABASE_TYPE", "sqlite"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "tradeledger"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBPath:            getenv("DATABASE_PATH", "tradeledger.db"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 1800),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 300),
		SeedDemoData:      getenvBool("SEED_DEMO_DATA", false),
		Telemetry: TelemetryConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317")),
			OtelProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		RateLimit: RateLimitConfig{
			Enabled:               getenvBool("RATE_LIMIT_ENABLED", false),
			RedisAddr:             getenv("REDIS_ADDR", "localhost:6379"),
			RedisPassword:         getenv("REDIS_PASSWORD", ""),
			RedisDB:               getenvInt("REDIS_DB", 0),
			WriteRate:             getenvFloat("RATE_LIMIT_WRITE_RATE", 5),
			WriteBurst:            getenvInt("RATE_LIMIT_WRITE_BURST", 20),
			InvoiceLockTTLSeconds: getenvInt("INVOICE_LOCK_TTL_SECONDS", 30),
		},
		Scheduler: SchedulerConfig{
			Enabled:            getenvBool("SCHEDULER_ENABLED", true),
			RunIntervalSeconds: getenvInt("SCHEDULER_INTERVAL_SECONDS", 300),
			JobTimeoutSeconds:  getenvInt("SCHEDULER_JOB_TIMEOUT_SECONDS", 30),
		},
		Console: ConsoleConfig{
			APIBaseURL:     strings.TrimRight(strings.TrimSpace(getenv("API_BASE_URL", "http://localhost:8080")), "/"),
			RequestTimeout: getenvInt("API_TIMEOUT_SECONDS", 10),
			LogFile:        getenv("CONSOLE_LOG_FILE", "tradeledger-console.log"),
			CurrencyLocale: getenv("CURRENCY_LOCALE", "ru-RU"),
			CurrencySymbol: getenv("CURRENCY_SYMBOL", "₽"),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
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
