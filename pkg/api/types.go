package api

// WebhookResponse is the body of a successful webhook delivery.
// Event is set only for ignored event types; Status only for reconciled ones.
type WebhookResponse struct {
	Success bool   `json:"success"`
	Action  string `json:"action"`
	Status  string `json:"status,omitempty"`
	Event   string `json:"event,omitempty"`
}

// ErrorResponse is the body of every rejected delivery
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status string `json:"status"`
}

// Client-facing error messages
const (
	msgInvalidPayload   = "Invalid payload"
	msgInvalidSignature = "Invalid signature"
	msgNoCustomerID     = "No customer ID"
	msgPayloadTooLarge  = "Payload too large"
)
