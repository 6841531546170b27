package router

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// HttpErrorHandler maps domain errors onto HTTP status codes so handlers
// can return them directly.
func HttpErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()

	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		code = fiberErr.Code
		message = fiberErr.Message
	case errors.Is(err, whatsapp.ErrInstanceNotFound),
		errors.Is(err, whatsapp.ErrGroupNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, whatsapp.ErrNoRecords),
		errors.Is(err, whatsapp.ErrReactionInvalid),
		errors.Is(err, whatsapp.ErrClientNotValid):
		code = fiber.StatusBadRequest
	case errors.Is(err, whatsapp.ErrNotRegistered),
		errors.Is(err, whatsapp.ErrDownloadFailed):
		code = fiber.StatusForbidden
	case errors.Is(err, whatsapp.ErrQRLimitReached):
		code = fiber.StatusRequestTimeout
	}

	return respond(c, code, message, nil)
}
