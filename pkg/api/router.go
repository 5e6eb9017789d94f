package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes served by every adapter
const (
	HealthPath  = "/health"
	WebhookPath = "/webhook"
)

// NewRouter mounts the health and webhook routes on a chi router.
// Nothing else is served from it.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get(HealthPath, h.Health)
	r.Post(WebhookPath, h.Webhook)
	return r
}
