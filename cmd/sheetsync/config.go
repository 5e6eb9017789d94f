package main

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends selectable with STORE_BACKEND
const (
	BackendSheets    = "sheets"
	BackendMemory    = "memory"
	BackendRedis     = "redis"
	BackendPostgres  = "postgres"
	BackendFirestore = "firestore"
)

// Config is the process configuration, read from the environment
type Config struct {
	StripeWebhookSecret string        `envconfig:"STRIPE_WEBHOOK_SECRET" required:"true"`
	StripeAPIKey        string        `envconfig:"STRIPE_API_KEY" required:"true"`
	SignatureTolerance  time.Duration `envconfig:"SIGNATURE_TOLERANCE" default:"5m"`

	GoogleSheetID         string `envconfig:"GOOGLE_SHEET_ID"`
	TargetSheetName       string `envconfig:"TARGET_SHEET_NAME" default:"Trucking Automation Client Tracker"`
	GoogleCredentialsFile string `envconfig:"GOOGLE_CREDENTIALS_FILE" default:"credentials.json"`

	StoreBackend       string `envconfig:"STORE_BACKEND" default:"sheets"`
	RedisAddr          string `envconfig:"REDIS_ADDR"`
	PostgresDSN        string `envconfig:"POSTGRES_DSN"`
	FirestoreProjectID string `envconfig:"FIRESTORE_PROJECT_ID"`

	// MirrorBackend optionally keeps a copy of every record in a second store
	MirrorBackend string `envconfig:"MIRROR_BACKEND"`
	MirrorAsync   bool   `envconfig:"MIRROR_ASYNC" default:"true"`

	// StoreCircuitThreshold of 0 disables the store circuit breaker
	StoreCircuitThreshold int           `envconfig:"STORE_CIRCUIT_THRESHOLD" default:"5"`
	StoreCircuitReset     time.Duration `envconfig:"STORE_CIRCUIT_RESET" default:"30s"`

	// CustomerCacheTTL of 0 disables the customer profile cache
	CustomerCacheTTL  time.Duration `envconfig:"CUSTOMER_CACHE_TTL" default:"0s"`
	CustomerCacheSize int           `envconfig:"CUSTOMER_CACHE_SIZE" default:"1000"`

	ListenAddr  string `envconfig:"LISTEN_ADDR" default:":5000"`
	MetricsAddr string `envconfig:"METRICS_ADDR"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// LoadConfig reads envFile into the environment, if it exists, then decodes
// the environment. Variables already set win over the file.
func LoadConfig(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks backend-specific requirements
func (c *Config) Validate() error {
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.MirrorBackend = strings.ToLower(strings.TrimSpace(c.MirrorBackend))

	if err := c.validateBackend("STORE_BACKEND", c.StoreBackend); err != nil {
		return err
	}
	if c.MirrorBackend != "" {
		if c.MirrorBackend == c.StoreBackend {
			return fmt.Errorf("MIRROR_BACKEND must differ from STORE_BACKEND")
		}
		if err := c.validateBackend("MIRROR_BACKEND", c.MirrorBackend); err != nil {
			return err
		}
	}

	if c.SignatureTolerance < 0 {
		return fmt.Errorf("SIGNATURE_TOLERANCE must not be negative")
	}
	if c.StoreCircuitThreshold < 0 {
		return fmt.Errorf("STORE_CIRCUIT_THRESHOLD must not be negative")
	}
	if c.StoreCircuitThreshold > 0 && c.StoreCircuitReset <= 0 {
		return fmt.Errorf("STORE_CIRCUIT_RESET must be positive")
	}
	if c.CustomerCacheTTL < 0 {
		return fmt.Errorf("CUSTOMER_CACHE_TTL must not be negative")
	}
	if c.MetricsAddr != "" && c.MetricsAddr == c.ListenAddr {
		return fmt.Errorf("METRICS_ADDR must differ from LISTEN_ADDR")
	}
	return nil
}

func (c *Config) validateBackend(name, backend string) error {
	switch backend {
	case BackendSheets:
		if c.GoogleSheetID == "" && c.TargetSheetName == "" {
			return fmt.Errorf("GOOGLE_SHEET_ID or TARGET_SHEET_NAME is required for the sheets backend")
		}
	case BackendMemory:
	case BackendRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("REDIS_ADDR is required for the redis backend")
		}
	case BackendPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the postgres backend")
		}
	case BackendFirestore:
		if c.FirestoreProjectID == "" {
			return fmt.Errorf("FIRESTORE_PROJECT_ID is required for the firestore backend")
		}
	default:
		return fmt.Errorf("unknown %s %q", name, backend)
	}
	return nil
}
