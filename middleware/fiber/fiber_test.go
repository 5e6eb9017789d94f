package fiber

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/mihaimyh/sheetsync/pkg/api"
	"github.com/mihaimyh/sheetsync/pkg/billing"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

type recordingProvider struct {
	result    *billing.Result
	err       error
	payload   []byte
	signature string
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Process(_ context.Context, payload []byte, signature string) (*billing.Result, error) {
	p.payload = payload
	p.signature = signature
	return p.result, p.err
}

func setupApp(t *testing.T, provider billing.Provider) *fiber.App {
	t.Helper()

	h, err := api.NewHandler(api.Config{Provider: provider})
	if err != nil {
		t.Fatalf("Failed to create handler: %v", err)
	}

	// Leave headroom above the handler limit so the 413 comes from the adapter
	app := fiber.New(fiber.Config{BodyLimit: 4 * 1024 * 1024})
	Register(app, h)
	return app
}

func TestWebhook_Created(t *testing.T) {
	provider := &recordingProvider{result: &billing.Result{
		EventType:  "checkout.session.completed",
		Action:     sheetsync.ActionCreated,
		Status:     "Active",
		CustomerID: "cus_1",
	}}
	app := setupApp(t, provider)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"type":"checkout.session.completed"}`))
	req.Header.Set("Stripe-Signature", "t=3,v1=fff")

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if provider.signature != "t=3,v1=fff" {
		t.Errorf("Expected signature to be forwarded, got %q", provider.signature)
	}
	if string(provider.payload) != `{"type":"checkout.session.completed"}` {
		t.Errorf("Expected payload to be forwarded, got %q", provider.payload)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("Expected security headers")
	}

	var body api.WebhookResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if !body.Success || body.Action != "created" || body.Status != "Active" {
		t.Errorf("Unexpected response: %+v", body)
	}
}

func TestWebhook_PayloadTooLarge(t *testing.T) {
	provider := &recordingProvider{}
	app := setupApp(t, provider)

	big := bytes.Repeat([]byte("a"), int(api.DefaultMaxBodyBytes)+1)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(big)), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", resp.StatusCode)
	}
	if provider.payload != nil {
		t.Error("Provider must not see oversized payloads")
	}
}

func TestWebhook_InvalidPayload(t *testing.T) {
	app := setupApp(t, &recordingProvider{err: billing.ErrInvalidWebhookPayload})

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{")), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusBadRequest || !strings.Contains(string(data), "Invalid payload") {
		t.Errorf("Unexpected response %d: %s", resp.StatusCode, data)
	}
}

func TestHealth(t *testing.T) {
	app := setupApp(t, &recordingProvider{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), `"healthy"`) {
		t.Errorf("Unexpected health response %d: %s", resp.StatusCode, data)
	}
}

func TestCheckBody(t *testing.T) {
	if err := checkBody(nil, 10); err != api.ErrEmptyBody {
		t.Errorf("Expected ErrEmptyBody, got %v", err)
	}
	if err := checkBody([]byte("12345678901"), 10); err == nil {
		t.Error("Expected error for oversized body")
	}
	if err := checkBody([]byte("ok"), 10); err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
}
