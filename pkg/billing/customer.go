package billing

import "context"

// Metadata keys read from the provider's customer profile.
const (
	MetadataCompanyName = "company_name"
	MetadataCountry     = "country"
)

// DefaultCompanyName is written when the customer profile has no company name.
const DefaultCompanyName = "Unknown Company"

// CustomerProfile is the subset of the provider's customer object used for enrichment.
type CustomerProfile struct {
	Email    string
	Metadata map[string]string
}

// CustomerLookup fetches customer profiles from the billing provider.
type CustomerLookup interface {
	GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error)
}

// CustomerLookupFunc adapts a function to CustomerLookup.
type CustomerLookupFunc func(ctx context.Context, customerID string) (*CustomerProfile, error)

// GetCustomer implements CustomerLookup
func (f CustomerLookupFunc) GetCustomer(ctx context.Context, customerID string) (*CustomerProfile, error) {
	return f(ctx, customerID)
}
