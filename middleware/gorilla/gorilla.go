// Package gorilla mounts the webhook and health routes on a gorilla/mux router
package gorilla

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mihaimyh/sheetsync/pkg/api"
)

// Register mounts GET /health and POST /webhook on r
func Register(r *mux.Router, h *api.Handler) {
	r.HandleFunc(api.HealthPath, h.Health).Methods(http.MethodGet)
	r.HandleFunc(api.WebhookPath, h.Webhook).Methods(http.MethodPost)
}

// NewRouter returns a gorilla/mux router serving only the two routes
func NewRouter(h *api.Handler) *mux.Router {
	r := mux.NewRouter()
	Register(r, h)
	return r
}
