package index

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wazend/go-whatsapp-instance-api/pkg/router"
)

func Index(c *fiber.Ctx) error {
	return router.ResponseSuccess(c, "Go WhatsApp Instance REST is running")
}
