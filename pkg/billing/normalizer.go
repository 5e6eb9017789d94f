package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

// Normalizer turns parsed events into customer records, enriching them with
// the company name and country from the provider's customer profile.
type Normalizer struct {
	lookup CustomerLookup
	now    func() time.Time
}

// NewNormalizer creates a Normalizer. now defaults to time.Now.
func NewNormalizer(lookup CustomerLookup, now func() time.Time) (*Normalizer, error) {
	if lookup == nil {
		return nil, fmt.Errorf("customer lookup is required")
	}
	if now == nil {
		now = time.Now
	}
	return &Normalizer{lookup: lookup, now: now}, nil
}

// Normalize builds the customer record for event.
func (n *Normalizer) Normalize(ctx context.Context, event Event) (sheetsync.CustomerRecord, error) {
	b := Base(event)
	if strings.TrimSpace(b.CustomerID) == "" {
		return sheetsync.CustomerRecord{}, ErrMissingCustomerID
	}

	profile, err := n.lookup.GetCustomer(ctx, b.CustomerID)
	if err != nil {
		return sheetsync.CustomerRecord{}, fmt.Errorf("%w: %s: %w", ErrCustomerLookup, b.CustomerID, err)
	}
	if profile == nil {
		profile = &CustomerProfile{}
	}

	company := profile.Metadata[MetadataCompanyName]
	if company == "" {
		company = DefaultCompanyName
	}

	return sheetsync.CustomerRecord{
		CustomerID:     b.CustomerID,
		CompanyName:    company,
		Email:          profile.Email,
		SubscriptionID: b.SubscriptionID,
		Status:         b.Status,
		Amount:         MajorUnits(b.Amount.Minor),
		Currency:       NormalizeCurrency(b.Amount.Currency),
		Timestamp:      n.now().UTC(),
		Country:        profile.Metadata[MetadataCountry],
	}, nil
}

// MajorUnits converts a minor-unit amount (cents) to major units.
func MajorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// NormalizeCurrency upper-cases an ISO currency code, defaulting to DefaultCurrency.
func NormalizeCurrency(code string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return DefaultCurrency
	}
	return strings.ToUpper(code)
}
