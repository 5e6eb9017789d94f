package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/mihaimyh/sheetsync/pkg/billing"
	"github.com/mihaimyh/sheetsync/pkg/sheetsync"
)

const healthStatus = "healthy"

// Handler serves the webhook and health endpoints
type Handler struct {
	config Config
}

// SignatureHeader returns the header name signatures are read from
func (h *Handler) SignatureHeader() string {
	return h.config.SignatureHeader
}

// MaxBodyBytes returns the request body limit
func (h *Handler) MaxBodyBytes() int64 {
	return h.config.MaxBodyBytes
}

// Process runs one delivery through the provider and returns the HTTP status
// and response body. Framework adapters call it after reading the body.
func (h *Handler) Process(ctx context.Context, body []byte, signature string) (int, interface{}) {
	result, err := h.config.Provider.Process(ctx, body, signature)
	if err != nil {
		return h.errorResponse(err)
	}

	if result.Action == sheetsync.ActionIgnored {
		return http.StatusOK, WebhookResponse{
			Success: true,
			Action:  string(sheetsync.ActionIgnored),
			Event:   result.EventType,
		}
	}
	return http.StatusOK, WebhookResponse{
		Success: true,
		Action:  string(result.Action),
		Status:  result.Status,
	}
}

// errorResponse maps processing errors to status codes.
// Client faults get a fixed message; everything else is a 500 so the provider retries.
func (h *Handler) errorResponse(err error) (int, interface{}) {
	switch {
	case errors.Is(err, billing.ErrInvalidWebhookSignature):
		return http.StatusBadRequest, ErrorResponse{Error: msgInvalidSignature}
	case errors.Is(err, billing.ErrInvalidWebhookPayload):
		return http.StatusBadRequest, ErrorResponse{Error: msgInvalidPayload}
	case errors.Is(err, billing.ErrMissingCustomerID):
		return http.StatusBadRequest, ErrorResponse{Error: msgNoCustomerID}
	default:
		h.config.Logger.Error("webhook processing failed", sheetsync.Field{Key: "error", Value: err})
		return http.StatusInternalServerError, ErrorResponse{Error: err.Error()}
	}
}

// BodyError maps a body read failure to a status code and response body
func (h *Handler) BodyError(err error) (int, interface{}) {
	if errors.Is(err, ErrPayloadTooLarge) {
		h.config.Logger.Warn("webhook payload too large", sheetsync.Field{Key: "limit", Value: h.config.MaxBodyBytes})
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: msgPayloadTooLarge}
	}
	return http.StatusBadRequest, ErrorResponse{Error: msgInvalidPayload}
}

// HealthResponse returns the liveness body
func (h *Handler) HealthResponse() (int, interface{}) {
	return http.StatusOK, HealthResponse{Status: healthStatus}
}

// Webhook handles POST /webhook
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	ApplySecurityHeaders(w.Header().Set)

	body, err := ReadBodyStrict(w, r, h.config.MaxBodyBytes)
	if err != nil {
		code, resp := h.BodyError(err)
		h.writeJSON(w, code, resp)
		return
	}

	code, resp := h.Process(r.Context(), body, r.Header.Get(h.config.SignatureHeader))
	h.writeJSON(w, code, resp)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	code, resp := h.HealthResponse()
	h.writeJSON(w, code, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, data interface{}) {
	if err := WriteJSON(w, code, data); err != nil {
		h.config.Logger.Warn("failed to write response", sheetsync.Field{Key: "error", Value: err})
	}
}
