package api

import (
	"fmt"

	"github.com/mihaimyh/sheetsync/pkg/billing"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

const (
	// DefaultMaxBodyBytes caps webhook payloads at 256 KiB
	DefaultMaxBodyBytes int64 = 256 * 1024

	// DefaultSignatureHeader is the header the signature is read from
	DefaultSignatureHeader = "Stripe-Signature"
)

// Config holds configuration for the webhook handler
type Config struct {
	// Provider verifies and reconciles deliveries (required)
	Provider billing.Provider

	// SignatureHeader names the request header carrying the signature
	// (default: Stripe-Signature)
	SignatureHeader string

	// MaxBodyBytes limits the request body; larger bodies get 413 (default: 256 KiB)
	MaxBodyBytes int64

	// Logger is an optional structured logger (default: sheetsync.NoopLogger)
	Logger sheetsync.Logger
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Provider == nil {
		return fmt.Errorf("provider is required")
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max body bytes must not be negative")
	}
	return nil
}

// NewHandler creates a new webhook handler with the given configuration
func NewHandler(config Config) (*Handler, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if config.SignatureHeader == "" {
		config.SignatureHeader = DefaultSignatureHeader
	}
	if config.MaxBodyBytes == 0 {
		config.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if config.Logger == nil {
		config.Logger = &sheetsync.NoopLogger{}
	}
	return &Handler{
		config: config,
	}, nil
}
