package stripe

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/sheetsync/pkg/billing"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

const providerName = "stripe"

// Config holds Stripe provider configuration
type Config struct {
	// StripeWebhookSecret is the endpoint signing secret ("whsec_...") (required)
	StripeWebhookSecret string

	// StripeAPIKey is used for customer profile lookups.
	// Required unless CustomerLookup is provided.
	StripeAPIKey string

	// SignatureTolerance bounds how old a signed delivery may be (default: 5 minutes)
	SignatureTolerance time.Duration

	// Upserter receives normalized records (required). Usually a *sheetsync.Engine.
	Upserter billing.Upserter

	// CustomerLookup overrides the Stripe Customers API client (optional)
	CustomerLookup billing.CustomerLookup

	// StripeClient overrides the client built from StripeAPIKey (optional)
	StripeClient *stripe.Client

	// CustomerCacheTTL enables an in-memory profile cache in front of the
	// Customers API when positive (default: disabled)
	CustomerCacheTTL time.Duration

	// CustomerCacheSize bounds the profile cache (default: billing.DefaultCacheSize)
	CustomerCacheSize int

	// Now is the processing clock (default: time.Now)
	Now func() time.Time

	// Metrics is an optional metrics collector (default: billing.NoopMetrics)
	Metrics billing.Metrics

	// Logger is an optional structured logger (default: sheetsync.NoopLogger)
	Logger sheetsync.Logger
}

// Provider implements billing.Provider for Stripe
type Provider struct {
	verifier   *Verifier
	normalizer *billing.Normalizer
	upserter   billing.Upserter
	metrics    billing.Metrics
	logger     sheetsync.Logger
}

// NewProvider creates a new Stripe billing provider
func NewProvider(config Config) (*Provider, error) {
	if config.Upserter == nil {
		return nil, billing.ErrProviderNotConfigured
	}

	verifier, err := NewVerifier(config.StripeWebhookSecret, config.SignatureTolerance)
	if err != nil {
		return nil, err
	}

	metrics := config.Metrics
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	logger := config.Logger
	if logger == nil {
		logger = &sheetsync.NoopLogger{}
	}

	lookup := config.CustomerLookup
	if lookup == nil {
		client := config.StripeClient
		if client == nil {
			apiKey := strings.TrimSpace(config.StripeAPIKey)
			if apiKey == "" {
				return nil, billing.ErrProviderNotConfigured
			}
			client = stripe.NewClient(apiKey)
		}
		lookup, err = NewCustomerClient(client, metrics)
		if err != nil {
			return nil, err
		}
		if config.CustomerCacheTTL > 0 {
			lookup = billing.NewCachedCustomerLookup(lookup, config.CustomerCacheSize, config.CustomerCacheTTL)
		}
	}

	normalizer, err := billing.NewNormalizer(lookup, config.Now)
	if err != nil {
		return nil, err
	}

	return &Provider{
		verifier:   verifier,
		normalizer: normalizer,
		upserter:   config.Upserter,
		metrics:    metrics,
		logger:     logger,
	}, nil
}

// Name returns the provider name
func (p *Provider) Name() string {
	return providerName
}

// Process implements billing.Provider
func (p *Provider) Process(ctx context.Context, payload []byte, signature string) (*billing.Result, error) {
	startTime := time.Now()

	event, err := p.verifier.Verify(payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrInvalidWebhookSignature) {
			p.metrics.RecordWebhookError(providerName, "auth_failed")
			p.logger.Error("invalid signature", sheetsync.Field{Key: "error", Value: err})
		} else {
			p.metrics.RecordWebhookError(providerName, "invalid_payload")
			p.logger.Error("invalid payload", sheetsync.Field{Key: "error", Value: err})
		}
		return nil, err
	}

	eventType := string(event.Type)
	p.logger.Info("received webhook event",
		sheetsync.Field{Key: "event_type", Value: eventType},
		sheetsync.Field{Key: "event_id", Value: event.ID},
	)

	result, err := p.processEvent(ctx, event)
	p.metrics.RecordWebhookProcessingDuration(providerName, eventType, time.Since(startTime))
	if err != nil {
		p.metrics.RecordWebhookEvent(providerName, eventType, "error")
		return nil, err
	}

	p.metrics.RecordWebhookEvent(providerName, eventType, string(result.Action))
	return result, nil
}

func (p *Provider) processEvent(ctx context.Context, event *stripe.Event) (*billing.Result, error) {
	eventType := string(event.Type)

	parsed, err := ParseEvent(event)
	switch {
	case errors.Is(err, billing.ErrUnhandledEventType):
		p.logger.Info("unhandled event type", sheetsync.Field{Key: "event_type", Value: eventType})
		return &billing.Result{EventType: eventType, Action: sheetsync.ActionIgnored}, nil
	case errors.Is(err, billing.ErrMissingCustomerID):
		p.metrics.RecordWebhookError(providerName, "missing_customer")
		p.logger.Warn("no customer ID in event",
			sheetsync.Field{Key: "event_type", Value: eventType},
			sheetsync.Field{Key: "event_id", Value: event.ID},
		)
		return nil, err
	case err != nil:
		p.metrics.RecordWebhookError(providerName, "invalid_payload")
		p.logger.Error("failed to parse event",
			sheetsync.Field{Key: "event_type", Value: eventType},
			sheetsync.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	customerID := billing.Base(parsed).CustomerID
	rec, err := p.normalizer.Normalize(ctx, parsed)
	if err != nil {
		p.metrics.RecordWebhookError(providerName, "lookup_failed")
		p.logger.Error("failed to normalize event",
			sheetsync.Field{Key: "event_type", Value: eventType},
			sheetsync.Field{Key: "customer_id", Value: customerID},
			sheetsync.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	action, err := p.upserter.UpsertCustomer(ctx, rec)
	if err != nil {
		p.metrics.RecordWebhookError(providerName, "store_failed")
		p.logger.Error("failed to upsert customer",
			sheetsync.Field{Key: "event_type", Value: eventType},
			sheetsync.Field{Key: "customer_id", Value: customerID},
			sheetsync.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	p.logger.Info("processed webhook event",
		sheetsync.Field{Key: "event_type", Value: eventType},
		sheetsync.Field{Key: "customer_id", Value: customerID},
		sheetsync.Field{Key: "status", Value: rec.Status},
		sheetsync.Field{Key: "action", Value: string(action)},
	)

	return &billing.Result{
		EventType:  eventType,
		Action:     action,
		Status:     rec.Status,
		CustomerID: customerID,
	}, nil
}
