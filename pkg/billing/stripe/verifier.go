package stripe

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v83"
	"github.com/stripe/stripe-go/v83/webhook"

	"github.com/mihaimyh/sheetsync/pkg/billing"
)

// SignatureHeader is the request header carrying "t=<unix>,v1=<hex hmac>".
const SignatureHeader = "Stripe-Signature"

// Verifier checks Stripe webhook signatures: an HMAC-SHA256 over
// "<timestamp>.<payload>" keyed with the endpoint's signing secret.
type Verifier struct {
	secret    string
	tolerance time.Duration
}

// NewVerifier creates a Verifier. A zero tolerance uses webhook.DefaultTolerance;
// deliveries signed further in the past are rejected as stale.
func NewVerifier(secret string, tolerance time.Duration) (*Verifier, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret is required", billing.ErrProviderNotConfigured)
	}
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &Verifier{secret: secret, tolerance: tolerance}, nil
}

// envelope is the minimal shape a delivery must have before its signature is checked
type envelope struct {
	Type string `json:"type"`
	Data *struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

// Verify parses payload as an event envelope and checks its signature header.
// It returns billing.ErrInvalidWebhookPayload when the body is not an envelope and
// billing.ErrInvalidWebhookSignature when the header is missing, malformed, stale
// or does not match.
func (v *Verifier) Verify(payload []byte, header string) (*stripe.Event, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidWebhookPayload, err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: missing event type", billing.ErrInvalidWebhookPayload)
	}
	if env.Data == nil || len(env.Data.Object) == 0 || string(env.Data.Object) == "null" {
		return nil, fmt.Errorf("%w: missing data.object", billing.ErrInvalidWebhookPayload)
	}

	event, err := webhook.ConstructEventWithOptions(payload, header, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		if isSignatureError(err) {
			return nil, fmt.Errorf("%w: %v", billing.ErrInvalidWebhookSignature, err)
		}
		return nil, fmt.Errorf("%w: %v", billing.ErrInvalidWebhookPayload, err)
	}
	return &event, nil
}

func isSignatureError(err error) bool {
	return errors.Is(err, webhook.ErrNotSigned) ||
		errors.Is(err, webhook.ErrInvalidHeader) ||
		errors.Is(err, webhook.ErrNoValidSignature) ||
		errors.Is(err, webhook.ErrTooOld)
}
