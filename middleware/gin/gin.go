// Package gin mounts the webhook and health routes on a Gin engine
package gin

import (
	gongin "github.com/gin-gonic/gin"

	"github.com/mihaimyh/sheetsync/pkg/api"
)

// Register mounts GET /health and POST /webhook on r
func Register(r gongin.IRoutes, h *api.Handler) {
	r.GET(api.HealthPath, Health(h))
	r.POST(api.WebhookPath, Webhook(h))
}

// Webhook returns a Gin handler for webhook deliveries
func Webhook(h *api.Handler) gongin.HandlerFunc {
	return func(c *gongin.Context) {
		api.ApplySecurityHeaders(c.Header)

		body, err := api.ReadBodyStrict(c.Writer, c.Request, h.MaxBodyBytes())
		if err != nil {
			code, resp := h.BodyError(err)
			c.AbortWithStatusJSON(code, resp)
			return
		}

		code, resp := h.Process(c.Request.Context(), body, c.GetHeader(h.SignatureHeader()))
		c.JSON(code, resp)
	}
}

// Health returns a Gin handler for the liveness probe
func Health(h *api.Handler) gongin.HandlerFunc {
	return func(c *gongin.Context) {
		code, resp := h.HealthResponse()
		c.JSON(code, resp)
	}
}
