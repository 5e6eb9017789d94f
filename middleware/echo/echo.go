// Package echo mounts the webhook and health routes on an Echo instance
package echo

import (
	"github.com/labstack/echo/v4"

	"github.com/mihaimyh/sheetsync/pkg/api"
)

// Register mounts GET /health and POST /webhook on e
func Register(e *echo.Echo, h *api.Handler) {
	e.GET(api.HealthPath, Health(h))
	e.POST(api.WebhookPath, Webhook(h))
}

// Webhook returns an Echo handler for webhook deliveries
func Webhook(h *api.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		api.ApplySecurityHeaders(c.Response().Header().Set)

		body, err := api.ReadBodyStrict(c.Response(), c.Request(), h.MaxBodyBytes())
		if err != nil {
			code, resp := h.BodyError(err)
			return c.JSON(code, resp)
		}

		code, resp := h.Process(c.Request().Context(), body, c.Request().Header.Get(h.SignatureHeader()))
		return c.JSON(code, resp)
	}
}

// Health returns an Echo handler for the liveness probe
func Health(h *api.Handler) echo.HandlerFunc {
	return func(c echo.Context) error {
		code, resp := h.HealthResponse()
		return c.JSON(code, resp)
	}
}
