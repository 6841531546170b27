package instance

import (
	"context"

	"github.com/gofiber/fiber/v2"

	typWhatsApp "github.com/wazend/go-whatsapp-instance-api/internal/types"
	"github.com/wazend/go-whatsapp-instance-api/pkg/auth"
	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	"github.com/wazend/go-whatsapp-instance-api/pkg/router"
	"github.com/wazend/go-whatsapp-instance-api/pkg/validation"
	pkgWhatsApp "github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

func requestContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}
	return ctx
}

func currentInstance(c *fiber.Ctx) (*pkgWhatsApp.Instance, error) {
	return pkgWhatsApp.Default().Get(c.Params("key"))
}

// Init creates a new instance and starts the pairing flow. Re-initializing
// an existing key replaces its session.
func Init(c *fiber.Ctx) error {
	var req typWhatsApp.RequestInitInstance
	if err := c.BodyParser(&req); err != nil {
		log.Print(c).Warn("Failed to parse body request")
		return router.ResponseBadRequest(c, "Failed parse body request")
	}

	if req.WebhookURL != "" {
		if err := validation.ValidateURL(req.WebhookURL); err != nil {
			return router.ResponseBadRequest(c, err.Error())
		}
	}

	ins, err := pkgWhatsApp.Default().CreateInstance(requestContext(c), req.Key, pkgWhatsApp.WebhookConfig{
		URL:         req.WebhookURL,
		SendMessage: req.SendWebhookMessage,
		Disabled:    req.DisableWebhook,
	})
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	token, err := auth.GenerateInstanceToken(ins.Key)
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	log.InstanceOp(c, ins.Key, "Init").Info("Instance initialized")
	return router.ResponseCreatedWithData(c, "Success initialize instance", fiber.Map{
		"instance_key": ins.Key,
		"token":        token,
	})
}

func List(c *fiber.Ctx) error {
	return router.ResponseSuccessWithData(c, "Success get instance list", fiber.Map{
		"instances": pkgWhatsApp.Default().Keys(),
	})
}

// Restore re-creates instances for every credential file on disk.
func Restore(c *fiber.Ctx) error {
	restored, err := pkgWhatsApp.Default().Restore(requestContext(c))
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success restore instances", fiber.Map{
		"restored": restored,
	})
}

// Delete logs the account out and removes the instance.
func Delete(c *fiber.Ctx) error {
	key := c.Params("key")
	if err := pkgWhatsApp.Default().DeleteInstance(requestContext(c), key); err != nil {
		return router.HttpErrorHandler(c, err)
	}

	log.InstanceOp(c, key, "Delete").Info("Instance deleted")
	return router.ResponseSuccess(c, "Success delete instance")
}

// Token issues a fresh bearer token scoped to one instance.
func Token(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	token, err := auth.GenerateInstanceToken(ins.Key)
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	return router.ResponseSuccessWithData(c, "Success generate instance token", fiber.Map{
		"instance_key": ins.Key,
		"token":        token,
	})
}

func Info(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	data := fiber.Map{
		"instance_key":     ins.Key,
		"connection_state": string(ins.ConnectionState()),
		"webhook":          ins.WebhookData(),
	}
	if user := ins.User(); user != nil {
		data["user"] = user
	}
	return router.ResponseSuccessWithData(c, "Success get instance info", data)
}

// QR returns the current pairing code as a base64 PNG data URL.
func QR(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	qr := ins.QRCode()
	if qr == "" {
		return router.ResponseNotFound(c, "QR code is not available")
	}
	return router.ResponseSuccessWithData(c, "Success get QR code", fiber.Map{
		"qrcode": qr,
	})
}

func Logout(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	if err := ins.Logout(requestContext(c)); err != nil {
		return router.HttpErrorHandler(c, err)
	}

	log.InstanceOp(c, ins.Key, "Logout").Info("Instance logged out")
	return router.ResponseSuccess(c, "Success logout instance")
}

func Reconnect(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	if err := ins.Connect(requestContext(c)); err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccess(c, "Success reconnect instance")
}

func UpdateWebhook(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestUpdateWebhook
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if req.WebhookURL != "" {
		if err := validation.ValidateURL(req.WebhookURL); err != nil {
			return router.ResponseBadRequest(c, err.Error())
		}
	}

	ins.UpdateWebhookData(pkgWhatsApp.WebhookConfig{
		URL:         req.WebhookURL,
		SendMessage: req.SendWebhookMessage,
		Disabled:    req.DisableWebhook,
	})

	log.InstanceOp(c, ins.Key, "UpdateWebhook").Info("Webhook configuration updated")
	return router.ResponseSuccessWithData(c, "Success update webhook configuration", ins.WebhookData())
}

func Contacts(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get contacts", fiber.Map{
		"contacts": ins.Contacts(),
	})
}

func Chats(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get chats", fiber.Map{
		"chats": ins.Chats(),
	})
}

// Messages queries the durable message log, optionally narrowed to one
// conversation through the number query parameter.
func Messages(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	records, err := ins.FindMessages(requestContext(c), c.Query("number"))
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success get messages", fiber.Map{
		"messages": records,
	})
}

// OnWhatsApp checks whether a number resolves to an active account.
func OnWhatsApp(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	number := c.Query("number")
	if err := validation.ValidateRecipient(number); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	reg, err := ins.IsRegistered(requestContext(c), number)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success check number registration", reg)
}
