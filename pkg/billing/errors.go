package billing

import "errors"

var (
	// ErrProviderNotConfigured is returned when a provider is not properly configured
	ErrProviderNotConfigured = errors.New("billing provider not configured")

	// ErrInvalidWebhookPayload is returned when the webhook body cannot be parsed as an event envelope
	ErrInvalidWebhookPayload = errors.New("invalid webhook payload")

	// ErrInvalidWebhookSignature is returned when webhook signature validation fails
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")

	// ErrMissingCustomerID is returned when a handled event carries no customer identifier
	ErrMissingCustomerID = errors.New("no customer ID")

	// ErrUnhandledEventType is returned for event types this module does not reconcile.
	// Callers acknowledge these instead of failing them.
	ErrUnhandledEventType = errors.New("unhandled event type")

	// ErrCustomerLookup is returned when the provider's customer profile cannot be fetched
	ErrCustomerLookup = errors.New("customer lookup failed")
)
