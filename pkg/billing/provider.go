package billing

import (
	"context"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

// Result describes a processed webhook delivery.
type Result struct {
	// EventType is the provider event type
	EventType string

	// Action is created/updated for reconciled events and ignored for unhandled types
	Action sheetsync.Action

	// Status is the status label written, empty for ignored events
	Status string

	CustomerID string
}

// Provider is the generic interface that any billing backend must implement.
type Provider interface {
	// Name returns the provider name (e.g., "stripe")
	Name() string

	// Process verifies, parses and reconciles one webhook delivery.
	// Unhandled event types return a Result with ActionIgnored and a nil error.
	Process(ctx context.Context, payload []byte, signature string) (*Result, error)
}

// Upserter writes normalized records to the record store.
// *sheetsync.Engine satisfies it.
type Upserter interface {
	UpsertCustomer(ctx context.Context, rec sheetsync.CustomerRecord) (sheetsync.Action, error)
}
