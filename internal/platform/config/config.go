package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/SscSPs/portfolio_ledger/internal/core/domain"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Store backends.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Quote providers.
const (
	QuoteProviderStatic = "static"
	QuoteProviderAlpaca = "alpaca"
	QuoteProviderHTTP   = "http"
)

// Config holds application configuration.
type Config struct {
	Port         string `validate:"required,numeric"`
	IsProduction bool
	LogLevel     string `validate:"oneof=debug info warn error"`

	DatabaseDriver string `validate:"oneof=memory postgres sqlite"`
	DatabaseURL    string `validate:"required_if=DatabaseDriver postgres"`
	SQLitePath     string `validate:"required_if=DatabaseDriver sqlite"`
	EnableDBCheck  bool

	DefaultStartingCash decimal.Decimal

	JWTSecret                  string        `validate:"required,min=16"`
	JWTExpiryDuration          time.Duration `validate:"gt=0"`
	JWTIssuer                  string        `validate:"required"`
	RefreshTokenExpiryDuration time.Duration `validate:"gt=0"`
	GoogleClientID             string

	CORSAllowedOrigins []string
	RateLimit          string `validate:"required"`
	AuthRateLimit      string `validate:"required"`

	QuoteProvider        string        `validate:"oneof=static alpaca http"`
	QuoteStaticFile      string        `validate:"required_if=QuoteProvider static"`
	QuoteTimeout         time.Duration `validate:"gt=0"`
	QuoteBreakerFailures uint32        `validate:"gt=0"`
	QuoteBreakerReset    time.Duration `validate:"gt=0"`
	AlpacaAPIKey         string        `validate:"required_if=QuoteProvider alpaca"`
	AlpacaAPISecret      string        `validate:"required_if=QuoteProvider alpaca"`
	AlpacaBaseURL        string
	AlpacaDataURL        string

	// QuoteHTTPURL contains a "{symbol}" placeholder.
	QuoteHTTPURL           string `validate:"required_if=QuoteProvider http"`
	QuoteHTTPPricePath     string
	QuoteHTTPNamePath      string
	QuoteHTTPSymbolPath    string
	QuoteOAuthTokenURL     string
	QuoteOAuthClientID     string `validate:"required_with=QuoteOAuthTokenURL"`
	QuoteOAuthClientSecret string `validate:"required_with=QuoteOAuthTokenURL"`

	KafkaBrokers    []string
	KafkaTopic      string `validate:"required_with=KafkaBrokers"`
	PosthogAPIKey   string
	PosthogEndpoint string

	SnapshotConcurrency int `validate:"min=1,max=64"`
}

var validate = validator.New()

// LoadConfig loads configuration from environment variables and .env file if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("IS_PRODUCTION", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("DATABASE_DRIVER", DriverMemory)
	v.SetDefault("PGSQL_URL", "")
	v.SetDefault("SQLITE_PATH", "ledger.db")
	v.SetDefault("ENABLE_DB_CHECK", false)
	v.SetDefault("DEFAULT_STARTING_CASH", domain.DefaultStartingCash.StringFixed(2))
	v.SetDefault("JWT_SECRET", "a-very-secret-key-should-be-longer-and-random")
	v.SetDefault("JWT_EXPIRY_DURATION", "1h")
	v.SetDefault("JWT_ISSUER", "portfolio-ledger")
	v.SetDefault("REFRESH_TOKEN_EXPIRY_DURATION", "168h")
	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT", "100-M")
	v.SetDefault("AUTH_RATE_LIMIT", "10-M")
	v.SetDefault("QUOTE_PROVIDER", QuoteProviderStatic)
	v.SetDefault("QUOTE_STATIC_FILE", "quotes.yaml")
	v.SetDefault("QUOTE_TIMEOUT", "3s")
	v.SetDefault("QUOTE_BREAKER_FAILURES", 5)
	v.SetDefault("QUOTE_BREAKER_RESET", "30s")
	v.SetDefault("ALPACA_BASE_URL", "")
	v.SetDefault("ALPACA_DATA_URL", "")
	v.SetDefault("QUOTE_HTTP_PRICE_PATH", "$.price")
	v.SetDefault("QUOTE_HTTP_NAME_PATH", "$.name")
	v.SetDefault("QUOTE_HTTP_SYMBOL_PATH", "$.symbol")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "ledger-events")
	v.SetDefault("POSTHOG_API_KEY", "")
	v.SetDefault("POSTHOG_ENDPOINT", "https://eu.i.posthog.com")
	v.SetDefault("SNAPSHOT_CONCURRENCY", 8)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Port:                   v.GetString("PORT"),
		IsProduction:           v.GetBool("IS_PRODUCTION"),
		LogLevel:               strings.ToLower(v.GetString("LOG_LEVEL")),
		DatabaseDriver:         strings.ToLower(v.GetString("DATABASE_DRIVER")),
		DatabaseURL:            v.GetString("PGSQL_URL"),
		SQLitePath:             v.GetString("SQLITE_PATH"),
		EnableDBCheck:          v.GetBool("ENABLE_DB_CHECK"),
		JWTSecret:              v.GetString("JWT_SECRET"),
		JWTIssuer:              v.GetString("JWT_ISSUER"),
		GoogleClientID:         v.GetString("GOOGLE_CLIENT_ID"),
		CORSAllowedOrigins:     splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		RateLimit:              v.GetString("RATE_LIMIT"),
		AuthRateLimit:          v.GetString("AUTH_RATE_LIMIT"),
		QuoteProvider:          strings.ToLower(v.GetString("QUOTE_PROVIDER")),
		QuoteStaticFile:        v.GetString("QUOTE_STATIC_FILE"),
		QuoteBreakerFailures:   v.GetUint32("QUOTE_BREAKER_FAILURES"),
		AlpacaAPIKey:           v.GetString("ALPACA_API_KEY"),
		AlpacaAPISecret:        v.GetString("ALPACA_API_SECRET"),
		AlpacaBaseURL:          v.GetString("ALPACA_BASE_URL"),
		AlpacaDataURL:          v.GetString("ALPACA_DATA_URL"),
		QuoteHTTPURL:           v.GetString("QUOTE_HTTP_URL"),
		QuoteHTTPPricePath:     v.GetString("QUOTE_HTTP_PRICE_PATH"),
		QuoteHTTPNamePath:      v.GetString("QUOTE_HTTP_NAME_PATH"),
		QuoteHTTPSymbolPath:    v.GetString("QUOTE_HTTP_SYMBOL_PATH"),
		QuoteOAuthTokenURL:     v.GetString("QUOTE_OAUTH_TOKEN_URL"),
		QuoteOAuthClientID:     v.GetString("QUOTE_OAUTH_CLIENT_ID"),
		QuoteOAuthClientSecret: v.GetString("QUOTE_OAUTH_CLIENT_SECRET"),
		KafkaBrokers:           splitList(v.GetString("KAFKA_BROKERS")),
		KafkaTopic:             v.GetString("KAFKA_TOPIC"),
		PosthogAPIKey:          v.GetString("POSTHOG_API_KEY"),
		PosthogEndpoint:        v.GetString("POSTHOG_ENDPOINT"),
		SnapshotConcurrency:    v.GetInt("SNAPSHOT_CONCURRENCY"),
	}

	var err error
	if cfg.DefaultStartingCash, err = decimal.NewFromString(v.GetString("DEFAULT_STARTING_CASH")); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_STARTING_CASH: %w", err)
	}
	if cfg.DefaultStartingCash.IsNegative() {
		return nil, fmt.Errorf("DEFAULT_STARTING_CASH must not be negative, got %s", cfg.DefaultStartingCash)
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JWT_EXPIRY_DURATION", &cfg.JWTExpiryDuration},
		{"REFRESH_TOKEN_EXPIRY_DURATION", &cfg.RefreshTokenExpiryDuration},
		{"QUOTE_TIMEOUT", &cfg.QuoteTimeout},
		{"QUOTE_BREAKER_RESET", &cfg.QuoteBreakerReset},
	}
	for _, d := range durations {
		raw := v.GetString(d.key)
		if *d.dst, err = time.ParseDuration(raw); err != nil {
			return nil, fmt.Errorf("invalid value for %s (%q): %w", d.key, raw, err)
		}
	}

	if cfg.JWTSecret == "a-very-secret-key-should-be-longer-and-random" {
		log.Println("Warning: JWT_SECRET environment variable not set. Using default insecure key.")
	}
	if cfg.GoogleClientID == "" {
		log.Println("Warning: GOOGLE_CLIENT_ID not set. Google sign-in will not function.")
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
