package billing

// Status labels written to the status column.
const (
	StatusActive     = "Active"
	StatusTrial      = "Trial"
	StatusPastDue    = "Past Due"
	StatusCancelled  = "Cancelled"
	StatusUnpaid     = "Unpaid"
	StatusIncomplete = "Incomplete"
	StatusExpired    = "Expired"
	StatusPaused     = "Paused"
)

// DefaultCurrency is used when an event carries no price information.
const DefaultCurrency = "USD"

// Money is an amount in the currency's minor unit (e.g. cents).
type Money struct {
	Minor    int64
	Currency string
}

// EventBase holds the fields every reconciled event carries.
type EventBase struct {
	// Type is the provider event type, e.g. "invoice.payment_failed"
	Type string

	CustomerID     string
	SubscriptionID string

	// Status is the internal status label the event maps to
	Status string

	Amount Money
}

// Event is one of CheckoutCompleted, SubscriptionChanged or InvoiceChanged.
type Event interface {
	base() EventBase
}

// CheckoutCompleted is produced by a completed checkout session.
type CheckoutCompleted struct {
	EventBase
	SessionID string
}

// SubscriptionChanged is produced by subscription create/update/delete events.
type SubscriptionChanged struct {
	EventBase

	// ProviderStatus is the raw provider status before mapping
	ProviderStatus string
}

// InvoiceChanged is produced by invoice payment outcomes.
type InvoiceChanged struct {
	EventBase
	InvoiceID string
}

func (e CheckoutCompleted) base() EventBase   { return e.EventBase }
func (e SubscriptionChanged) base() EventBase { return e.EventBase }
func (e InvoiceChanged) base() EventBase      { return e.EventBase }

// Base returns the common fields of any event.
func Base(e Event) EventBase {
	return e.base()
}
