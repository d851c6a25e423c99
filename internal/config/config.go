package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Ledger backends.
const (
	LedgerNone     = "none"
	LedgerMemory   = "memory"
	LedgerRedis    = "redis"
	LedgerBolt     = "bolt"
	LedgerPostgres = "postgres"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	HubSpot     HubSpotConfig
	Credential  CredentialConfig
	Webhook     WebhookConfig
	Ledger      LedgerConfig
	Context     ContextConfig
	Logger      LoggerConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type HubSpotConfig struct {
	BaseURL        string
	PageSize       int
	BatchSize      int
	Concurrency    int
	MaxSearchPages int
	RetryMax       int
	Timeout        time.Duration
	RateLimit      float64
	RateBurst      int
}

// CredentialConfig selects the token source: a direct APIToken or a SecretID
// in the secret store. Exactly one must be set.
type CredentialConfig struct {
	APIToken   string
	SecretID   string
	TokenField string
	AWSRegion  string
}

type WebhookConfig struct {
	ClientSecret    string
	TargetURL       string
	MaxSignatureAge time.Duration
}

type LedgerConfig struct {
	Backend          string
	TTL              time.Duration
	RedisURL         string
	RedisPassword    string
	RedisDB          int
	BoltPath         string
	PostgresURL      string
	PostgresMaxConns int
	PostgresMigrate  bool
	CleanupInterval  time.Duration
	MemorySize       int
}

type ContextConfig struct {
	InvocationTimeout time.Duration
	ShutdownTimeout   time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

// Load reads configuration from environment variables (optionally .env),
// applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "productsync"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "3100"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		HubSpot: HubSpotConfig{
			BaseURL:        getString("HUBSPOT_BASE_URL", "https://api.hubapi.com"),
			PageSize:       getInt("HUBSPOT_PAGE_SIZE", 100),
			BatchSize:      getInt("HUBSPOT_BATCH_SIZE", 100),
			Concurrency:    getInt("HUBSPOT_CONCURRENCY", 4),
			MaxSearchPages: getInt("HUBSPOT_MAX_SEARCH_PAGES", 100),
			RetryMax:       getInt("HUBSPOT_RETRY_MAX", 3),
			Timeout:        getDuration("HUBSPOT_TIMEOUT", 20*time.Second),
			RateLimit:      getFloat("HUBSPOT_RATE_LIMIT", 9),
			RateBurst:      getInt("HUBSPOT_RATE_BURST", 5),
		},
		Credential: CredentialConfig{
			APIToken:   strings.TrimSpace(os.Getenv("HUBSPOT_API_TOKEN")),
			SecretID:   strings.TrimSpace(os.Getenv("SECRET_ID")),
			TokenField: getString("SECRET_TOKEN_FIELD", "API_TOKEN"),
			AWSRegion:  os.Getenv("AWS_REGION"),
		},
		Webhook: WebhookConfig{
			ClientSecret:    os.Getenv("HUBSPOT_CLIENT_SECRET"),
			TargetURL:       os.Getenv("WEBHOOK_TARGET_URL"),
			MaxSignatureAge: getDuration("WEBHOOK_MAX_SIGNATURE_AGE", 5*time.Minute),
		},
		Ledger: LedgerConfig{
			Backend:          strings.ToLower(getString("LEDGER_BACKEND", LedgerMemory)),
			TTL:              getDuration("LEDGER_TTL", 24*time.Hour),
			RedisURL:         getString("REDIS_URL", "redis://localhost:6379"),
			RedisPassword:    os.Getenv("REDIS_PASSWORD"),
			RedisDB:          getInt("REDIS_DB", 0),
			BoltPath:         getString("BOLTDB_PATH", "./data/ledger.db"),
			PostgresURL:      os.Getenv("DATABASE_URL"),
			PostgresMaxConns: getInt("DB_MAX_CONNS", 4),
			PostgresMigrate:  getBool("MIGRATIONS_ENABLED", true),
			CleanupInterval:  getDuration("LEDGER_CLEANUP_INTERVAL", time.Hour),
			MemorySize:       getInt("LEDGER_MEMORY_SIZE", 10_000),
		},
		Context: ContextConfig{
			InvocationTimeout: getDuration("INVOCATION_TIMEOUT", 25*time.Second),
			ShutdownTimeout:   getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that have no safe default.
func (c *Config) Validate() error {
	var errs []error

	switch {
	case c.Credential.APIToken != "" && c.Credential.SecretID != "":
		errs = append(errs, errors.New("set either HUBSPOT_API_TOKEN or SECRET_ID, not both"))
	case c.Credential.APIToken == "" && c.Credential.SecretID == "":
		errs = append(errs, errors.New("one of HUBSPOT_API_TOKEN or SECRET_ID is required"))
	}

	if c.HubSpot.PageSize <= 0 || c.HubSpot.PageSize > 200 {
		errs = append(errs, fmt.Errorf("HUBSPOT_PAGE_SIZE must be between 1 and 200, got %d", c.HubSpot.PageSize))
	}
	if c.HubSpot.BatchSize <= 0 || c.HubSpot.BatchSize > 100 {
		errs = append(errs, fmt.Errorf("HUBSPOT_BATCH_SIZE must be between 1 and 100, got %d", c.HubSpot.BatchSize))
	}
	if c.HubSpot.Concurrency <= 0 {
		errs = append(errs, fmt.Errorf("HUBSPOT_CONCURRENCY must be positive, got %d", c.HubSpot.Concurrency))
	}
	if c.HubSpot.MaxSearchPages <= 0 {
		errs = append(errs, fmt.Errorf("HUBSPOT_MAX_SEARCH_PAGES must be positive, got %d", c.HubSpot.MaxSearchPages))
	}

	switch c.Ledger.Backend {
	case LedgerNone, LedgerMemory, LedgerRedis, LedgerBolt:
	case LedgerPostgres:
		if c.Ledger.PostgresURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required when LEDGER_BACKEND=postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown LEDGER_BACKEND %q", c.Ledger.Backend))
	}

	return errors.Join(errs...)
}

// UsesSecretStore reports whether the token comes from the secret store.
func (c *Config) UsesSecretStore() bool {
	return c.Credential.SecretID != ""
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
