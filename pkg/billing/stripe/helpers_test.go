package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/mihaimyh/sheetsync/pkg/billing"
)

const (
	testWebhookSecret = "whsec_test_secret"
	testAPIKey        = "sk_test_1234567890"
	testCustomerID    = "cus_test_123"
)

// signPayload builds a Stripe-Signature header for payload signed at ts
func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func eventPayload(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":     "evt_test",
		"object": "event",
		"type":   eventType,
		"data":   map[string]interface{}{"object": object},
	})
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return payload
}

// fakeLookup serves fixed customer profiles and counts calls
type fakeLookup struct {
	mu       sync.Mutex
	profiles map[string]*billing.CustomerProfile
	err      error
	calls    int
}

func (f *fakeLookup) GetCustomer(_ context.Context, customerID string) (*billing.CustomerProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[customerID], nil
}
