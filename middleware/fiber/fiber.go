// Package fiber mounts the webhook and health routes on a Fiber app
package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/mihaimyh/sheetsync/pkg/api"
)

// Register mounts GET /health and POST /webhook on r
func Register(r fiber.Router, h *api.Handler) {
	r.Get(api.HealthPath, Health(h))
	r.Post(api.WebhookPath, Webhook(h))
}

// Webhook returns a Fiber handler for webhook deliveries.
// Fiber buffers the body itself, so the size limit is checked after the read.
func Webhook(h *api.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		api.ApplySecurityHeaders(func(key, value string) { c.Set(key, value) })

		body := c.Body()
		if err := checkBody(body, h.MaxBodyBytes()); err != nil {
			code, resp := h.BodyError(err)
			return c.Status(code).JSON(resp)
		}

		// fasthttp reuses the body buffer once the handler returns
		payload := append([]byte(nil), body...)
		code, resp := h.Process(c.UserContext(), payload, c.Get(h.SignatureHeader()))
		return c.Status(code).JSON(resp)
	}
}

// Health returns a Fiber handler for the liveness probe
func Health(h *api.Handler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code, resp := h.HealthResponse()
		return c.Status(code).JSON(resp)
	}
}

func checkBody(body []byte, limit int64) error {
	if int64(len(body)) > limit {
		return fmt.Errorf("%w (max %d bytes)", api.ErrPayloadTooLarge, limit)
	}
	if len(body) == 0 {
		return api.ErrEmptyBody
	}
	return nil
}
