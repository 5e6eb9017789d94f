package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"

	"github.com/mihaimyh/sheetsync/pkg/billing"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
	"github.com/mihaimyh/sheetsync/storage/memory"
)

// newTestStripeClient points a Stripe client at handler
func newTestStripeClient(t *testing.T, handler http.HandlerFunc) *stripe.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	backends := stripe.NewBackendsWithConfig(&stripe.BackendConfig{
		URL:               stripe.String(srv.URL),
		MaxNetworkRetries: stripe.Int64(0),
	})
	return stripe.NewClient(testAPIKey, stripe.WithBackends(backends))
}

func writeStripeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestCustomerClient_GetCustomer(t *testing.T) {
	var gotPath, gotAuth string
	client := newTestStripeClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		writeStripeJSON(w, http.StatusOK, map[string]interface{}{
			"id":       "cus_1",
			"object":   "customer",
			"email":    "jane@acme.example",
			"metadata": map[string]string{"company_name": "Acme Freight", "country": "US"},
		})
	})

	cc, err := NewCustomerClient(client, nil)
	require.NoError(t, err)

	profile, err := cc.GetCustomer(context.Background(), "cus_1")
	require.NoError(t, err)
	assert.Equal(t, "/v1/customers/cus_1", gotPath)
	assert.Equal(t, "Bearer "+testAPIKey, gotAuth)
	assert.Equal(t, "jane@acme.example", profile.Email)
	assert.Equal(t, "Acme Freight", profile.Metadata[billing.MetadataCompanyName])
	assert.Equal(t, "US", profile.Metadata[billing.MetadataCountry])
}

func TestCustomerClient_DeletedCustomer(t *testing.T) {
	client := newTestStripeClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeStripeJSON(w, http.StatusOK, map[string]interface{}{
			"id":      "cus_gone",
			"object":  "customer",
			"deleted": true,
		})
	})

	cc, err := NewCustomerClient(client, nil)
	require.NoError(t, err)

	profile, err := cc.GetCustomer(context.Background(), "cus_gone")
	require.NoError(t, err)
	assert.Empty(t, profile.Email)
	assert.Empty(t, profile.Metadata)
}

func TestCustomerClient_APIError(t *testing.T) {
	client := newTestStripeClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeStripeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": map[string]interface{}{
				"type":    "invalid_request_error",
				"code":    "resource_missing",
				"message": "No such customer: 'cus_missing'",
			},
		})
	})

	cc, err := NewCustomerClient(client, nil)
	require.NoError(t, err)

	_, err = cc.GetCustomer(context.Background(), "cus_missing")
	require.Error(t, err)

	var stripeErr *stripe.Error
	require.ErrorAs(t, err, &stripeErr)
	assert.Equal(t, http.StatusNotFound, stripeErr.HTTPStatusCode)
}

func TestNewCustomerClient_RequiresClient(t *testing.T) {
	_, err := NewCustomerClient(nil, nil)
	assert.ErrorIs(t, err, billing.ErrProviderNotConfigured)
}

func TestProvider_CustomerCache(t *testing.T) {
	var calls int32
	client := newTestStripeClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeStripeJSON(w, http.StatusOK, map[string]interface{}{
			"id":       "cus_1",
			"object":   "customer",
			"email":    "jane@acme.example",
			"metadata": map[string]string{"company_name": "Acme Freight"},
		})
	})

	table := memory.New()
	engine, err := sheetsync.NewEngine(table, sheetsync.Config{})
	require.NoError(t, err)

	provider, err := NewProvider(Config{
		StripeWebhookSecret: testWebhookSecret,
		StripeClient:        client,
		CustomerCacheTTL:    time.Minute,
		Upserter:            engine,
	})
	require.NoError(t, err)

	for _, status := range []string{"active", "past_due"} {
		payload := eventPayload(t, EventSubscriptionUpdated, map[string]interface{}{
			"id":       "sub_1",
			"customer": "cus_1",
			"status":   status,
		})
		_, err := provider.Process(context.Background(), payload, signPayload(payload, testWebhookSecret, time.Now()))
		require.NoError(t, err)
	}

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "Past Due", table.Rows()[0][sheetsync.ColumnStatus-1])
}
