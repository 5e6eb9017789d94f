package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mihaimyh/sheetsync/pkg/billing"
	billingstripe "github.com/mihaimyh/sheetsync/pkg/billing/stripe"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
	"github.com/mihaimyh/sheetsync/storage/memory"
)

const testSecret = "whsec_api_test"

func sign(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func event(t *testing.T, eventType string, object map[string]interface{}) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]interface{}{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]interface{}{"object": object},
	})
	if err != nil {
		t.Fatalf("Failed to marshal event: %v", err)
	}
	return payload
}

// newTestServer wires a real Stripe provider to an in-memory table
func newTestServer(t *testing.T) (http.Handler, *memory.Storage) {
	t.Helper()

	table := memory.New()
	engine, err := sheetsync.NewEngine(table, sheetsync.Config{})
	if err != nil {
		t.Fatalf("Failed to create engine: %v", err)
	}

	lookup := billing.CustomerLookupFunc(func(_ context.Context, _ string) (*billing.CustomerProfile, error) {
		return &billing.CustomerProfile{
			Email:    "ops@haulers.example",
			Metadata: map[string]string{"company_name": "Haulers Inc", "country": "CA"},
		}, nil
	})

	provider, err := billingstripe.NewProvider(billingstripe.Config{
		StripeWebhookSecret: testSecret,
		Upserter:            engine,
		CustomerLookup:      lookup,
	})
	if err != nil {
		t.Fatalf("Failed to create provider: %v", err)
	}

	handler, err := NewHandler(Config{Provider: provider})
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}
	return NewRouter(handler), table
}

func post(router http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, WebhookPath, bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	return body
}

func TestNewHandler_Validation(t *testing.T) {
	if _, err := NewHandler(Config{}); err == nil {
		t.Error("Expected error for missing provider")
	}

	h, err := NewHandler(Config{Provider: &stubProvider{}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if h.SignatureHeader() != DefaultSignatureHeader {
		t.Errorf("Expected default signature header, got %q", h.SignatureHeader())
	}
	if h.MaxBodyBytes() != DefaultMaxBodyBytes {
		t.Errorf("Expected default body limit, got %d", h.MaxBodyBytes())
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestServer(t)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, HealthPath, nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if body := decode(t, w); body["status"] != "healthy" {
		t.Errorf("Expected healthy, got %v", body["status"])
	}
}

func TestWebhook_CreateThenUpdate(t *testing.T) {
	router, table := newTestServer(t)

	payload := event(t, "checkout.session.completed", map[string]interface{}{
		"customer":     "cus_1",
		"amount_total": 99900,
		"currency":     "usd",
	})
	w := post(router, payload, sign(payload, time.Now()))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", w.Code, w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store" {
		t.Errorf("Expected Cache-Control no-store, got %q", got)
	}
	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("Expected nosniff, got %q", got)
	}
	body := decode(t, w)
	if body["success"] != true || body["action"] != "created" || body["status"] != "Active" {
		t.Errorf("Unexpected response: %v", body)
	}

	payload = event(t, "invoice.payment_failed", map[string]interface{}{
		"customer":    "cus_1",
		"amount_paid": 0,
		"currency":    "usd",
	})
	w = post(router, payload, sign(payload, time.Now()))
	body = decode(t, w)
	if w.Code != http.StatusOK || body["action"] != "updated" || body["status"] != "Past Due" {
		t.Errorf("Unexpected response %d: %v", w.Code, body)
	}

	rows := table.Rows()
	if len(rows) != 1 {
		t.Fatalf("Expected 1 row, got %d", len(rows))
	}
	if rows[0][sheetsync.ColumnStatus-1] != "Past Due" {
		t.Errorf("Expected status Past Due, got %q", rows[0][sheetsync.ColumnStatus-1])
	}
	if rows[0][sheetsync.ColumnCountry-1] != "CA" {
		t.Errorf("Expected country CA, got %q", rows[0][sheetsync.ColumnCountry-1])
	}
}

func TestWebhook_IgnoredEvent(t *testing.T) {
	router, table := newTestServer(t)

	payload := event(t, "payment_intent.created", map[string]interface{}{"id": "pi_1"})
	w := post(router, payload, sign(payload, time.Now()))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	body := decode(t, w)
	if body["success"] != true || body["action"] != "ignored" || body["event"] != "payment_intent.created" {
		t.Errorf("Unexpected response: %v", body)
	}
	if _, ok := body["status"]; ok {
		t.Error("Ignored response must not carry a status")
	}
	if table.Len() != 0 {
		t.Errorf("Expected no rows, got %d", table.Len())
	}
}

func TestWebhook_ClientErrors(t *testing.T) {
	router, table := newTestServer(t)

	valid := event(t, "checkout.session.completed", map[string]interface{}{"customer": "cus_1"})
	noCustomer := event(t, "customer.subscription.updated", map[string]interface{}{"id": "sub_1", "status": "active"})

	tests := []struct {
		name      string
		payload   []byte
		signature string
		wantCode  int
		wantError string
	}{
		{"bad signature", valid, "t=123456789,v1=invalid_signature", http.StatusBadRequest, "Invalid signature"},
		{"missing signature", valid, "", http.StatusBadRequest, "Invalid signature"},
		{"stale signature", valid, sign(valid, time.Now().Add(-time.Hour)), http.StatusBadRequest, "Invalid signature"},
		{"not json", []byte("{"), sign([]byte("{"), time.Now()), http.StatusBadRequest, "Invalid payload"},
		{"empty body", []byte{}, "", http.StatusBadRequest, "Invalid payload"},
		{"missing customer", noCustomer, sign(noCustomer, time.Now()), http.StatusBadRequest, "No customer ID"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(router, tt.payload, tt.signature)
			if w.Code != tt.wantCode {
				t.Fatalf("Expected status %d, got %d", tt.wantCode, w.Code)
			}
			if body := decode(t, w); body["error"] != tt.wantError {
				t.Errorf("Expected error %q, got %v", tt.wantError, body["error"])
			}
		})
	}

	if table.Len() != 0 {
		t.Errorf("Rejected deliveries must not write rows, got %d", table.Len())
	}
}

func TestWebhook_PayloadTooLarge(t *testing.T) {
	router, _ := newTestServer(t)

	payload := []byte(`{"type":"checkout.session.completed","pad":"` + strings.Repeat("x", int(DefaultMaxBodyBytes)) + `"}`)
	w := post(router, payload, sign(payload, time.Now()))

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", w.Code)
	}
}

func TestRouter_OnlyTwoRoutes(t *testing.T) {
	router, _ := newTestServer(t)

	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/metrics", http.StatusNotFound},
		{http.MethodGet, "/", http.StatusNotFound},
		{http.MethodGet, WebhookPath, http.StatusMethodNotAllowed},
		{http.MethodPost, HealthPath, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
		if w.Code != tt.want {
			t.Errorf("%s %s: expected %d, got %d", tt.method, tt.path, tt.want, w.Code)
		}
	}
}

// stubProvider returns a fixed result or error
type stubProvider struct {
	result *billing.Result
	err    error
}

func (s *stubProvider) Name() string { return "stub" }

func (s *stubProvider) Process(context.Context, []byte, string) (*billing.Result, error) {
	return s.result, s.err
}

func TestProcess_ServerErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"store fault", fmt.Errorf("%w: append customer cus_1: quota exceeded", sheetsync.ErrStoreFault)},
		{"lookup failure", fmt.Errorf("%w: cus_1: timeout", billing.ErrCustomerLookup)},
		{"unexpected", errors.New("boom")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, err := NewHandler(Config{Provider: &stubProvider{err: tt.err}})
			if err != nil {
				t.Fatalf("Failed to create handler: %v", err)
			}

			code, resp := h.Process(context.Background(), []byte("{}"), "sig")
			if code != http.StatusInternalServerError {
				t.Errorf("Expected status 500, got %d", code)
			}
			errResp, ok := resp.(ErrorResponse)
			if !ok {
				t.Fatalf("Expected ErrorResponse, got %T", resp)
			}
			if errResp.Error != tt.err.Error() {
				t.Errorf("Expected error message %q, got %q", tt.err.Error(), errResp.Error)
			}
		})
	}
}
