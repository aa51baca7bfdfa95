package config

import (
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // TIMEZONE must resolve on minimal images

	"github.com/shopspring/decimal"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Supabase
	SupabaseURL        string
	SupabaseAnonKey    string
	SupabaseServiceKey string
	UseSupabase        bool

	// SQLite (used when Supabase is not configured)
	SQLitePath string

	// DefaultAccountID serves the legacy dashboard route when the caller
	// does not name an account.
	DefaultAccountID string

	Forecast Forecast
}

// Forecast holds the projection settings injected into the forecast service.
type Forecast struct {
	BufferTarget   decimal.Decimal
	BillWindowDays int
	BurnDownDays   int
	MaxHorizonDays int
	Location       *time.Location
}

// DefaultForecast returns the stock projection settings.
func DefaultForecast() Forecast {
	return Forecast{
		BufferTarget:   decimal.RequireFromString("1000.00"),
		BillWindowDays: 30,
		BurnDownDays:   60,
		MaxHorizonDays: 3660,
		Location:       time.UTC,
	}
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	def := DefaultForecast()
	maxHorizon := getEnvInt("MAX_HORIZON_DAYS", def.MaxHorizonDays)
	if maxHorizon < 0 {
		maxHorizon = def.MaxHorizonDays
	}

	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseAnonKey:    getEnv("SUPABASE_ANON_KEY", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
		UseSupabase:        getEnv("USE_SUPABASE", "true") == "true",

		SQLitePath: getEnv("SQLITE_PATH", "data/financeos.db"),

		DefaultAccountID: getEnv("DEFAULT_ACCOUNT_ID", "default_account"),

		Forecast: Forecast{
			BufferTarget:   getEnvDecimal("BUFFER_TARGET", def.BufferTarget),
			BillWindowDays: getEnvHorizon("BILL_WINDOW_DAYS", def.BillWindowDays, maxHorizon),
			BurnDownDays:   getEnvHorizon("BURNDOWN_DAYS", def.BurnDownDays, maxHorizon),
			MaxHorizonDays: maxHorizon,
			Location:       getEnvLocation("TIMEZONE", def.Location),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

// getEnvHorizon reads a window length in days. Values outside
// [0, maxDays] fall back to the default, itself capped at maxDays.
func getEnvHorizon(key string, fallback, maxDays int) int {
	d := getEnvInt(key, fallback)
	if d < 0 || d > maxDays {
		return min(fallback, maxDays)
	}
	return d
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvLocation(key string, fallback *time.Location) *time.Location {
	if v := os.Getenv(key); v != "" {
		if loc, err := time.LoadLocation(v); err == nil {
			return loc
		}
	}
	return fallback
}
