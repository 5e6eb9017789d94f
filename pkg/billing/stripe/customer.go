package stripe

import (
	"context"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/sheetsync/pkg/billing"
)

const customerEndpoint = "/v1/customers/{id}"

// CustomerClient implements billing.CustomerLookup with the Stripe Customers API.
type CustomerClient struct {
	client  *stripe.Client
	metrics billing.Metrics
}

// NewCustomerClient creates a CustomerClient around an existing Stripe client.
func NewCustomerClient(client *stripe.Client, metrics billing.Metrics) (*CustomerClient, error) {
	if client == nil {
		return nil, fmt.Errorf("%w: stripe client is required", billing.ErrProviderNotConfigured)
	}
	if metrics == nil {
		metrics = &billing.NoopMetrics{}
	}
	return &CustomerClient{client: client, metrics: metrics}, nil
}

// GetCustomer implements billing.CustomerLookup.
// Deleted customers are returned as an empty profile so enrichment falls back to defaults.
func (c *CustomerClient) GetCustomer(ctx context.Context, customerID string) (*billing.CustomerProfile, error) {
	start := time.Now()
	cust, err := c.client.V1Customers.Retrieve(ctx, customerID, nil)
	c.metrics.RecordAPICallDuration(providerName, customerEndpoint, time.Since(start))
	if err != nil {
		c.metrics.RecordAPICall(providerName, customerEndpoint, "error")
		return nil, fmt.Errorf("failed to retrieve customer %s: %w", customerID, err)
	}
	c.metrics.RecordAPICall(providerName, customerEndpoint, "success")

	if cust == nil || cust.Deleted {
		return &billing.CustomerProfile{}, nil
	}

	metadata := make(map[string]string, len(cust.Metadata))
	for k, v := range cust.Metadata {
		metadata[k] = v
	}
	return &billing.CustomerProfile{
		Email:    cust.Email,
		Metadata: metadata,
	}, nil
}
