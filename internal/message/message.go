package message

import (
	"context"
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	typWhatsApp "github.com/wazend/go-whatsapp-instance-api/internal/types"
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

func SendText(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendText
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if req.Text == "" {
		return router.ResponseBadRequest(c, "text is required")
	}

	res, err := ins.SendText(requestContext(c), req.To, req.Text)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	log.InstanceOp(c, ins.Key, "SendText").Info("Message sent")
	return router.ResponseSuccessWithData(c, "Success send text message", res)
}

// SendTextMany fans one text out to multiple recipients, reporting which
// ones failed.
func SendTextMany(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendTextMany
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if len(req.To) == 0 {
		return router.ResponseBadRequest(c, "to is required")
	}
	if req.Text == "" {
		return router.ResponseBadRequest(c, "text is required")
	}

	result, err := ins.SendTextToMany(requestContext(c), req.To, req.Text)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send text messages", result)
}

// SendMedia accepts a multipart upload in the file field and sends it as
// image, audio, video or document based on its content type.
func SendMedia(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	to := c.FormValue("to")
	if err := validation.ValidateRecipient(to); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return router.ResponseBadRequest(c, "file is required")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(fileBytes)
	}

	res, err := ins.SendMedia(requestContext(c), to, pkgWhatsApp.Media{
		MimeType: mimeType,
		FileName: fileHeader.Filename,
		Caption:  c.FormValue("caption"),
		Bytes:    fileBytes,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	log.InstanceOp(c, ins.Key, "SendMedia").Info("Media sent")
	return router.ResponseSuccessWithData(c, "Success send media message", res)
}

// SendMediaURL fetches the attachment from a remote URL before sending.
func SendMediaURL(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendMediaURL
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if err := validation.ValidateURL(req.URL); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	res, err := ins.SendMediaURL(requestContext(c), req.To, pkgWhatsApp.MediaURL{
		URL:      req.URL,
		MimeType: req.MimeType,
		FileName: req.FileName,
		Caption:  req.Caption,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send media message", res)
}

func SendButtons(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendButtons
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if len(req.Buttons) == 0 {
		return router.ResponseBadRequest(c, "buttons are required")
	}

	buttons := make([]pkgWhatsApp.Button, 0, len(req.Buttons))
	for _, button := range req.Buttons {
		buttons = append(buttons, pkgWhatsApp.Button{ID: button.ID, Text: button.Text})
	}

	res, err := ins.SendButtons(requestContext(c), req.To, pkgWhatsApp.ButtonMessage{
		Title:   req.Title,
		Text:    req.Text,
		Footer:  req.Footer,
		Buttons: buttons,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send button message", res)
}

// SendButtonsImage sends a button template with an image header. The image
// arrives as a multipart upload, the button list as a JSON form field.
func SendButtonsImage(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendButtons
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if len(req.Buttons) == 0 {
		return router.ResponseBadRequest(c, "buttons are required")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return router.ResponseBadRequest(c, "file is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}
	defer file.Close()

	fileBytes, err := io.ReadAll(file)
	if err != nil {
		return router.ResponseInternalError(c, err.Error())
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(fileBytes)
	}

	buttons := make([]pkgWhatsApp.Button, 0, len(req.Buttons))
	for _, button := range req.Buttons {
		buttons = append(buttons, pkgWhatsApp.Button{ID: button.ID, Text: button.Text})
	}

	res, err := ins.SendButtonsImage(requestContext(c), req.To, pkgWhatsApp.ButtonImageMessage{
		Text:    req.Text,
		Footer:  req.Footer,
		Buttons: buttons,
		Image: pkgWhatsApp.Media{
			MimeType: mimeType,
			FileName: fileHeader.Filename,
			Bytes:    fileBytes,
		},
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send button image message", res)
}

func SendLocation(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendLocation
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	res, err := ins.SendLocation(requestContext(c), req.To, pkgWhatsApp.Location{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Caption:   req.Caption,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send location message", res)
}

func SendContact(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendContact
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if err := validation.ValidatePhone(req.Phone); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}

	res, err := ins.SendContact(requestContext(c), req.To, pkgWhatsApp.VCard{
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send contact message", res)
}

func SendList(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestSendList
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if len(req.Sections) == 0 {
		return router.ResponseBadRequest(c, "sections are required")
	}

	sections := make([]pkgWhatsApp.ListSection, 0, len(req.Sections))
	for _, section := range req.Sections {
		rows := make([]pkgWhatsApp.ListRow, 0, len(section.Rows))
		for _, row := range section.Rows {
			rows = append(rows, pkgWhatsApp.ListRow{
				ID:          row.ID,
				Title:       row.Title,
				Description: row.Description,
			})
		}
		sections = append(sections, pkgWhatsApp.ListSection{Title: section.Title, Rows: rows})
	}

	res, err := ins.SendList(requestContext(c), req.To, pkgWhatsApp.ListMessage{
		Title:      req.Title,
		Text:       req.Text,
		Footer:     req.Footer,
		ButtonText: req.ButtonText,
		Sections:   sections,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success send list message", res)
}

func React(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestReact
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if req.MessageID == "" {
		return router.ResponseBadRequest(c, "messageId is required")
	}

	res, err := ins.SendReaction(requestContext(c), req.To, req.MessageID, req.FromMe, req.Emoji)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success react to message", res)
}

// Revoke deletes a previously sent message for everyone.
func Revoke(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestRevoke
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if err := validation.ValidateRecipient(req.To); err != nil {
		return router.ResponseBadRequest(c, err.Error())
	}
	if req.MessageID == "" {
		return router.ResponseBadRequest(c, "messageId is required")
	}

	res, err := ins.RevokeMessage(requestContext(c), req.To, req.MessageID)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success revoke message", res)
}

// Download fetches the media attachment of a relayed message, returned
// base64-encoded.
func Download(c *fiber.Ctx) error {
	ins, err := currentInstance(c)
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}

	var req typWhatsApp.RequestDownload
	if err := c.BodyParser(&req); err != nil {
		return router.ResponseBadRequest(c, "Failed parse body request")
	}
	if len(req.Message) == 0 {
		return router.ResponseBadRequest(c, "message is required")
	}

	data, mimeType, err := ins.DownloadMessage(requestContext(c), pkgWhatsApp.Message{
		Key: pkgWhatsApp.MessageKey{
			RemoteJID: req.RemoteJID,
			FromMe:    req.FromMe,
			ID:        req.MessageID,
		},
		Content: req.Message,
	})
	if err != nil {
		return router.HttpErrorHandler(c, err)
	}
	return router.ResponseSuccessWithData(c, "Success download message media", fiber.Map{
		"mimetype": mimeType,
		"data":     data,
	})
}
