package stripe

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/sheetsync/pkg/billing"
)

// Handled Stripe event types
const (
	EventCheckoutSessionCompleted = "checkout.session.completed"
	EventSubscriptionCreated      = "customer.subscription.created"
	EventSubscriptionUpdated      = "customer.subscription.updated"
	EventSubscriptionDeleted      = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded  = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     = "invoice.payment_failed"
)

// ParseEvent decodes a verified event into one of the billing event shapes.
// It returns billing.ErrUnhandledEventType for types that are not reconciled,
// billing.ErrMissingCustomerID when the object has no customer and
// billing.ErrInvalidWebhookPayload when the object does not decode.
func ParseEvent(event *stripe.Event) (billing.Event, error) {
	if event == nil || event.Data == nil {
		return nil, fmt.Errorf("%w: missing event data", billing.ErrInvalidWebhookPayload)
	}

	eventType := string(event.Type)
	switch eventType {
	case EventCheckoutSessionCompleted:
		return parseCheckoutSession(eventType, event.Data.Raw)
	case EventSubscriptionCreated:
		return parseSubscription(eventType, event.Data.Raw, func(*stripe.Subscription) string {
			return billing.StatusActive
		})
	case EventSubscriptionUpdated:
		return parseSubscription(eventType, event.Data.Raw, func(sub *stripe.Subscription) string {
			return MapSubscriptionStatus(string(sub.Status))
		})
	case EventSubscriptionDeleted:
		return parseSubscription(eventType, event.Data.Raw, func(*stripe.Subscription) string {
			return billing.StatusCancelled
		})
	case EventInvoicePaymentSucceeded:
		return parseInvoice(eventType, event.Data.Raw, billing.StatusActive)
	case EventInvoicePaymentFailed:
		return parseInvoice(eventType, event.Data.Raw, billing.StatusPastDue)
	default:
		return nil, fmt.Errorf("%w: %s", billing.ErrUnhandledEventType, eventType)
	}
}

func parseCheckoutSession(eventType string, raw json.RawMessage) (billing.Event, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal checkout session: %v", billing.ErrInvalidWebhookPayload, err)
	}

	customerID := customerIDOf(session.Customer)
	if customerID == "" {
		return nil, fmt.Errorf("%w: checkout session %s", billing.ErrMissingCustomerID, session.ID)
	}

	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}

	// First line item price when expanded, else the session total
	amount := billing.Money{Currency: billing.DefaultCurrency}
	if session.LineItems != nil && len(session.LineItems.Data) > 0 && session.LineItems.Data[0].Price != nil {
		amount = priceAmount(session.LineItems.Data[0].Price)
	} else if session.AmountTotal != 0 || session.Currency != "" {
		amount = billing.Money{Minor: session.AmountTotal, Currency: string(session.Currency)}
	}

	return billing.CheckoutCompleted{
		EventBase: billing.EventBase{
			Type:           eventType,
			CustomerID:     customerID,
			SubscriptionID: subscriptionID,
			Status:         billing.StatusActive,
			Amount:         amount,
		},
		SessionID: session.ID,
	}, nil
}

func parseSubscription(
	eventType string, raw json.RawMessage, status func(*stripe.Subscription) string,
) (billing.Event, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal subscription: %v", billing.ErrInvalidWebhookPayload, err)
	}

	customerID := customerIDOf(sub.Customer)
	if customerID == "" {
		return nil, fmt.Errorf("%w: subscription %s", billing.ErrMissingCustomerID, sub.ID)
	}

	amount := billing.Money{Currency: billing.DefaultCurrency}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		amount = priceAmount(sub.Items.Data[0].Price)
	}

	return billing.SubscriptionChanged{
		EventBase: billing.EventBase{
			Type:           eventType,
			CustomerID:     customerID,
			SubscriptionID: sub.ID,
			Status:         status(&sub),
			Amount:         amount,
		},
		ProviderStatus: string(sub.Status),
	}, nil
}

func parseInvoice(eventType string, raw json.RawMessage, status string) (billing.Event, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal invoice: %v", billing.ErrInvalidWebhookPayload, err)
	}

	customerID := customerIDOf(invoice.Customer)
	if customerID == "" {
		return nil, fmt.Errorf("%w: invoice %s", billing.ErrMissingCustomerID, invoice.ID)
	}

	return billing.InvoiceChanged{
		EventBase: billing.EventBase{
			Type:           eventType,
			CustomerID:     customerID,
			SubscriptionID: invoiceSubscriptionID(raw),
			Status:         status,
			Amount:         billing.Money{Minor: invoice.AmountPaid, Currency: string(invoice.Currency)},
		},
		InvoiceID: invoice.ID,
	}, nil
}

// invoiceSubscriptionID reads "subscription" from the raw invoice, where it is
// either an ID or an expanded object. Newer API versions drop it from the typed Invoice.
func invoiceSubscriptionID(raw json.RawMessage) string {
	var rawData map[string]interface{}
	if err := json.Unmarshal(raw, &rawData); err != nil {
		return ""
	}
	switch v := rawData["subscription"].(type) {
	case map[string]interface{}:
		if id, ok := v["id"].(string); ok {
			return id
		}
	case string:
		return v
	}
	return ""
}

func customerIDOf(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

func priceAmount(p *stripe.Price) billing.Money {
	currency := string(p.Currency)
	if currency == "" {
		currency = billing.DefaultCurrency
	}
	return billing.Money{Minor: p.UnitAmount, Currency: currency}
}
