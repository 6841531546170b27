package internal

import (
	"github.com/gofiber/fiber/v2"

	"github.com/wazend/go-whatsapp-instance-api/pkg/auth"
	"github.com/wazend/go-whatsapp-instance-api/pkg/router"

	ctlGroup "github.com/wazend/go-whatsapp-instance-api/internal/group"
	ctlIndex "github.com/wazend/go-whatsapp-instance-api/internal/index"
	ctlInstance "github.com/wazend/go-whatsapp-instance-api/internal/instance"
	ctlMessage "github.com/wazend/go-whatsapp-instance-api/internal/message"
)

func Routes(app *fiber.App) {
	// Route for Index
	// ---------------------------------------------
	if router.BaseURL == "" {
		app.Get("/", ctlIndex.Index)
	} else {
		app.Get(router.BaseURL, ctlIndex.Index)
		app.Get(router.BaseURL+"/", ctlIndex.Index)
	}

	// Instance Lifecycle Routes (X-Admin-Secret authentication)
	// ---------------------------------------------
	adminMiddleware := auth.AdminAuth()

	app.Post(router.BaseURL+"/admin/instance/init", adminMiddleware, ctlInstance.Init)
	app.Get(router.BaseURL+"/admin/instance/list", adminMiddleware, ctlInstance.List)
	app.Post(router.BaseURL+"/admin/instance/restore", adminMiddleware, ctlInstance.Restore)
	app.Post(router.BaseURL+"/admin/instance/:key/token", adminMiddleware, ctlInstance.Token)
	app.Delete(router.BaseURL+"/admin/instance/:key", adminMiddleware, ctlInstance.Delete)

	// Per-Instance Routes (Bearer token scoped to the instance)
	// ---------------------------------------------
	instanceMiddleware := auth.InstanceAuth()
	instance := app.Group(router.BaseURL+"/instance/:key", instanceMiddleware)

	instance.Get("/", ctlInstance.Info)
	instance.Get("/qr", ctlInstance.QR)
	instance.Post("/logout", ctlInstance.Logout)
	instance.Post("/reconnect", ctlInstance.Reconnect)
	instance.Put("/webhook", ctlInstance.UpdateWebhook)

	instance.Get("/contacts", ctlInstance.Contacts)
	instance.Get("/chats", ctlInstance.Chats)
	instance.Get("/messages", ctlInstance.Messages)
	instance.Get("/misc/onwhatsapp", ctlInstance.OnWhatsApp)

	instance.Post("/message/text", ctlMessage.SendText)
	instance.Post("/message/text/many", ctlMessage.SendTextMany)
	instance.Post("/message/media", ctlMessage.SendMedia)
	instance.Post("/message/media/url", ctlMessage.SendMediaURL)
	instance.Post("/message/buttons", ctlMessage.SendButtons)
	instance.Post("/message/buttons/image", ctlMessage.SendButtonsImage)
	instance.Post("/message/location", ctlMessage.SendLocation)
	instance.Post("/message/contact", ctlMessage.SendContact)
	instance.Post("/message/list", ctlMessage.SendList)
	instance.Post("/message/react", ctlMessage.React)
	instance.Post("/message/download", ctlMessage.Download)
	instance.Delete("/message", ctlMessage.Revoke)

	instance.Get("/groups", ctlGroup.List)
	instance.Get("/groups/admin", ctlGroup.ListAdmin)
	instance.Post("/group", ctlGroup.Create)
	instance.Get("/group/:gid/info", ctlGroup.Info)
	instance.Put("/group/:gid/participants", ctlGroup.UpdateParticipants)
	instance.Put("/group/:gid/settings", ctlGroup.UpdateSettings)
	instance.Get("/group/:gid/invitecode", ctlGroup.InviteCode)
	instance.Delete("/group/:gid", ctlGroup.Leave)
}
