package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config carries every environment-level setting the service needs.
// Values are read from ITINERO_* environment variables, optionally
// seeded from a .env file and overridden by a YAML file pointed at by
// ITINERO_CONFIG_FILE.
type Config struct {
	Environment string         `yaml:"environment"`
	HTTP        HTTPConfig     `yaml:"http"`
	Database    DatabaseConfig `yaml:"database"`
	Auth        AuthConfig     `yaml:"auth"`
	Paystack    PaystackConfig `yaml:"paystack"`
	Points      PointsConfig   `yaml:"points"`
	FX          FXConfig       `yaml:"fx"`
	Telemetry   Telemetry      `yaml:"telemetry"`
}

type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// Per-IP fixed-window minute budgets. Zero falls back to the
	// defaults.
	WebhookPerMinute int `yaml:"webhook_per_minute"`
	VerifyPerMinute  int `yaml:"verify_per_minute"`
}

type DatabaseConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type AuthConfig struct {
	// JWTSecret verifies caller-supplied bearer tokens (HS256, sub = user id).
	JWTSecret string `yaml:"jwt_secret"`
	// ServiceToken guards internal triggers such as the FX refresh endpoint.
	ServiceToken string `yaml:"service_token"`
}

type PaystackConfig struct {
	SecretKey string `yaml:"secret_key"`
	// WebhookSecret signs inbound webhook bodies. Falls back to SecretKey
	// when unset, matching Paystack's default behaviour.
	WebhookSecret string `yaml:"webhook_secret"`
	BaseURL       string `yaml:"base_url"`
	// CallbackBaseURL is where the payer lands after checkout.
	CallbackBaseURL string `yaml:"callback_base_url"`
}

type PointsConfig struct {
	// UnitPriceMinor is the price of one point in minor currency units.
	// Quotes lock this value in at creation time.
	UnitPriceMinor int64  `yaml:"unit_price_minor"`
	Currency       string `yaml:"currency"`
	// QuoteTTL bounds how long a pending quote may be initiated against.
	QuoteTTL time.Duration `yaml:"quote_ttl"`
}

type FXConfig struct {
	Provider     string `yaml:"provider"`
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	BaseCurrency string `yaml:"base_currency"`
}

type Telemetry struct {
	ServiceName      string  `yaml:"service_name"`
	TracingEnabled   bool    `yaml:"tracing_enabled"`
	ExporterEndpoint string  `yaml:"exporter_endpoint"`
	ExporterProtocol string  `yaml:"exporter_protocol"`
	SamplingRatio    float64 `yaml:"sampling_ratio"`
}

var ErrMissingDSN = errors.New("missing_database_dsn")

// Load assembles the configuration from the environment.
func Load() (Config, error) {
	// Best effort; a missing .env is the normal case outside local dev.
	_ = godotenv.Load()

	cfg := Config{
		Environment: getEnv("ITINERO_ENV", "development"),
		HTTP: HTTPConfig{
			Addr:             getEnv("ITINERO_HTTP_ADDR", ":8080"),
			ShutdownTimeout:  getDuration("ITINERO_HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
			WebhookPerMinute: getInt("ITINERO_HTTP_WEBHOOK_PER_MINUTE", 120),
			VerifyPerMinute:  getInt("ITINERO_HTTP_VERIFY_PER_MINUTE", 60),
		},
		Database: DatabaseConfig{
			DSN:          os.Getenv("ITINERO_DATABASE_DSN"),
			MaxOpenConns: getInt("ITINERO_DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getInt("ITINERO_DATABASE_MAX_IDLE_CONNS", 5),
		},
		Auth: AuthConfig{
			JWTSecret:    os.Getenv("ITINERO_JWT_SECRET"),
			ServiceToken: os.Getenv("ITINERO_SERVICE_TOKEN"),
		},
		Paystack: PaystackConfig{
			SecretKey:       os.Getenv("PAYSTACK_SECRET_KEY"),
			WebhookSecret:   os.Getenv("PAYSTACK_WEBHOOK_SECRET"),
			BaseURL:         getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
			CallbackBaseURL: getEnv("ITINERO_CALLBACK_BASE_URL", "http://localhost:3000"),
		},
		Points: PointsConfig{
			UnitPriceMinor: getInt64("ITINERO_POINTS_UNIT_PRICE_MINOR", 40),
			Currency:       getEnv("ITINERO_POINTS_CURRENCY", "GHS"),
			QuoteTTL:       getDuration("ITINERO_POINTS_QUOTE_TTL", 15*time.Minute),
		},
		FX: FXConfig{
			Provider:     getEnv("ITINERO_FX_PROVIDER", "exchangerate-api"),
			APIKey:       os.Getenv("EXCHANGE_RATE_API_KEY"),
			BaseURL:      getEnv("ITINERO_FX_BASE_URL", "https://v6.exchangerate-api.com"),
			BaseCurrency: getEnv("ITINERO_FX_BASE_CURRENCY", "USD"),
		},
		Telemetry: Telemetry{
			ServiceName:      getEnv("ITINERO_SERVICE_NAME", "itinero"),
			TracingEnabled:   getBool("ITINERO_TRACING_ENABLED", false),
			ExporterEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ExporterProtocol: getEnv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc"),
			SamplingRatio:    getFloat("ITINERO_TRACING_SAMPLING_RATIO", 1.0),
		},
	}

	if path := strings.TrimSpace(os.Getenv("ITINERO_CONFIG_FILE")); path != "" {
		if err := overlayFile(&cfg, path); err != nil {
			return Config{}, err
		}
	}

	if cfg.Paystack.WebhookSecret == "" {
		cfg.Paystack.WebhookSecret = cfg.Paystack.SecretKey
	}
	cfg.Points.Currency = strings.ToUpper(strings.TrimSpace(cfg.Points.Currency))
	cfg.FX.BaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.FX.BaseCurrency))

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return Config{}, ErrMissingDSN
	}
	return cfg, nil
}

// IsProduction reports whether the service runs against live traffic.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func overlayFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(raw, cfg)
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(os.Getenv(key)), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getFloat(key string, fallback float64) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(key)), 64)
	if err != nil {
		return fallback
	}
	return v
}

func getBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return fallback
	}
	return v
}
