package router

import (
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
)

// RecoveryMiddleware converts panics into structured JSON responses. It
// must be registered before application routes.
func RecoveryMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if rec := recover(); rec != nil {
				message := fmt.Sprintf("%v", rec)
				log.Print(c).Error("panic recovered: " + message)
				_ = respond(c, fiber.StatusInternalServerError, message, nil)
			}
		}()
		return c.Next()
	}
}
