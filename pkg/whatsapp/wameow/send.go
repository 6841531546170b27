package wameow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sunshineplan/imgconv"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waCommon"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"google.golang.org/protobuf/proto"

	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

func (c *Client) send(ctx context.Context, jid string, content *waE2E.Message) (whatsapp.SendResponse, error) {
	remoteJID, err := parseJID(jid)
	if err != nil {
		return whatsapp.SendResponse{}, err
	}

	msgExtra := whatsmeow.SendRequestExtra{ID: c.wm.GenerateMessageID()}
	if _, err := c.wm.SendMessage(ctx, remoteJID, content, msgExtra); err != nil {
		return whatsapp.SendResponse{}, err
	}
	return whatsapp.SendResponse{MessageID: string(msgExtra.ID), Status: "sent"}, nil
}

func (c *Client) SendText(ctx context.Context, jid string, text string) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.send(ctx, jid, &waE2E.Message{
		Conversation: proto.String(text),
	})
}

func (c *Client) SendMedia(ctx context.Context, jid string, media whatsapp.Media) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case strings.HasPrefix(media.MimeType, "image/"):
		imageMsg, err := c.buildImageMessage(ctx, media.Bytes, media.MimeType, media.Caption)
		if err != nil {
			return whatsapp.SendResponse{}, err
		}
		return c.send(ctx, jid, &waE2E.Message{ImageMessage: imageMsg})

	case strings.HasPrefix(media.MimeType, "audio/"):
		uploaded, err := c.wm.Upload(ctx, media.Bytes, whatsmeow.MediaAudio)
		if err != nil {
			return whatsapp.SendResponse{}, errors.New("Error While Uploading Media to WhatsApp Server")
		}
		return c.send(ctx, jid, &waE2E.Message{
			AudioMessage: &waE2E.AudioMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(media.MimeType),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		})

	case strings.HasPrefix(media.MimeType, "video/"):
		uploaded, err := c.wm.Upload(ctx, media.Bytes, whatsmeow.MediaVideo)
		if err != nil {
			return whatsapp.SendResponse{}, errors.New("Error While Uploading Media to WhatsApp Server")
		}
		return c.send(ctx, jid, &waE2E.Message{
			VideoMessage: &waE2E.VideoMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(media.MimeType),
				Caption:       proto.String(media.Caption),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		})

	default:
		uploaded, err := c.wm.Upload(ctx, media.Bytes, whatsmeow.MediaDocument)
		if err != nil {
			return whatsapp.SendResponse{}, errors.New("Error While Uploading Media to WhatsApp Server")
		}
		fileName := media.FileName
		if fileName == "" {
			fileName = "document"
		}
		return c.send(ctx, jid, &waE2E.Message{
			DocumentMessage: &waE2E.DocumentMessage{
				URL:           proto.String(uploaded.URL),
				DirectPath:    proto.String(uploaded.DirectPath),
				Mimetype:      proto.String(media.MimeType),
				FileName:      proto.String(fileName),
				Caption:       proto.String(media.Caption),
				FileLength:    proto.Uint64(uploaded.FileLength),
				FileSHA256:    uploaded.FileSHA256,
				FileEncSHA256: uploaded.FileEncSHA256,
				MediaKey:      uploaded.MediaKey,
			},
		})
	}
}

// SendMediaURL fetches the attachment from its remote location, then sends
// it like an uploaded one.
func (c *Client) SendMediaURL(ctx context.Context, jid string, media whatsapp.MediaURL) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, media.URL, nil)
	if err != nil {
		return whatsapp.SendResponse{}, err
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return whatsapp.SendResponse{}, err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return whatsapp.SendResponse{}, fmt.Errorf("media url returned status %s", res.Status)
	}

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return whatsapp.SendResponse{}, err
	}

	mimeType := media.MimeType
	if mimeType == "" {
		mimeType = res.Header.Get("Content-Type")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	return c.SendMedia(ctx, jid, whatsapp.Media{
		MimeType: mimeType,
		FileName: media.FileName,
		Caption:  media.Caption,
		Bytes:    data,
	})
}

func (c *Client) SendButtons(ctx context.Context, jid string, msg whatsapp.ButtonMessage) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	template := &waE2E.TemplateMessage_HydratedFourRowTemplate{
		HydratedContentText: proto.String(msg.Text),
		HydratedFooterText:  proto.String(msg.Footer),
		HydratedButtons:     hydratedButtons(msg.Buttons),
		TemplateID:          proto.String("1"),
	}
	if msg.Title != "" {
		template.Title = &waE2E.TemplateMessage_HydratedFourRowTemplate_HydratedTitleText{
			HydratedTitleText: msg.Title,
		}
	}

	return c.send(ctx, jid, &waE2E.Message{
		TemplateMessage: &waE2E.TemplateMessage{
			HydratedTemplate: template,
		},
	})
}

func (c *Client) SendButtonsImage(ctx context.Context, jid string, msg whatsapp.ButtonImageMessage) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	imageMsg, err := c.buildImageMessage(ctx, msg.Image.Bytes, msg.Image.MimeType, "")
	if err != nil {
		return whatsapp.SendResponse{}, err
	}

	return c.send(ctx, jid, &waE2E.Message{
		TemplateMessage: &waE2E.TemplateMessage{
			HydratedTemplate: &waE2E.TemplateMessage_HydratedFourRowTemplate{
				HydratedContentText: proto.String(msg.Text),
				HydratedFooterText:  proto.String(msg.Footer),
				HydratedButtons:     hydratedButtons(msg.Buttons),
				TemplateID:          proto.String("1"),
				Title: &waE2E.TemplateMessage_HydratedFourRowTemplate_ImageMessage{
					ImageMessage: imageMsg,
				},
			},
		},
	})
}

func hydratedButtons(buttons []whatsapp.Button) []*waE2E.HydratedTemplateButton {
	out := make([]*waE2E.HydratedTemplateButton, 0, len(buttons))
	for idx, button := range buttons {
		id := button.ID
		if id == "" {
			id = fmt.Sprintf("%d", idx+1)
		}
		out = append(out, &waE2E.HydratedTemplateButton{
			Index: proto.Uint32(uint32(idx + 1)),
			HydratedButton: &waE2E.HydratedTemplateButton_QuickReplyButton{
				QuickReplyButton: &waE2E.HydratedTemplateButton_HydratedQuickReplyButton{
					DisplayText: proto.String(button.Text),
					ID:          proto.String(id),
				},
			},
		})
	}
	return out
}

func (c *Client) SendLocation(ctx context.Context, jid string, loc whatsapp.Location) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.send(ctx, jid, &waE2E.Message{
		LocationMessage: &waE2E.LocationMessage{
			DegreesLatitude:  proto.Float64(loc.Latitude),
			DegreesLongitude: proto.Float64(loc.Longitude),
			Name:             proto.String(loc.Caption),
		},
	})
}

func (c *Client) SendContact(ctx context.Context, jid string, card whatsapp.VCard) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	vcard := "BEGIN:VCARD\nVERSION:3.0\nFN:" + card.FullName +
		"\nTEL;type=CELL;waid=" + card.Phone + ":+" + card.Phone + "\nEND:VCARD"

	return c.send(ctx, jid, &waE2E.Message{
		ContactMessage: &waE2E.ContactMessage{
			DisplayName: proto.String(card.FullName),
			Vcard:       proto.String(vcard),
		},
	})
}

func (c *Client) SendList(ctx context.Context, jid string, msg whatsapp.ListMessage) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	sections := make([]*waE2E.ListMessage_Section, 0, len(msg.Sections))
	for _, section := range msg.Sections {
		rows := make([]*waE2E.ListMessage_Row, 0, len(section.Rows))
		for _, row := range section.Rows {
			rows = append(rows, &waE2E.ListMessage_Row{
				RowID:       proto.String(row.ID),
				Title:       proto.String(row.Title),
				Description: proto.String(row.Description),
			})
		}
		sections = append(sections, &waE2E.ListMessage_Section{
			Title: proto.String(section.Title),
			Rows:  rows,
		})
	}

	return c.send(ctx, jid, &waE2E.Message{
		ListMessage: &waE2E.ListMessage{
			Title:       proto.String(msg.Title),
			Description: proto.String(msg.Text),
			FooterText:  proto.String(msg.Footer),
			ButtonText:  proto.String(msg.ButtonText),
			ListType:    waE2E.ListMessage_SINGLE_SELECT.Enum(),
			Sections:    sections,
		},
	})
}

func (c *Client) SendReaction(ctx context.Context, jid string, messageID string, fromMe bool, emoji string) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	remoteJID, err := parseJID(jid)
	if err != nil {
		return whatsapp.SendResponse{}, err
	}

	content := &waE2E.Message{
		ReactionMessage: &waE2E.ReactionMessage{
			Key: &waCommon.MessageKey{
				RemoteJID: proto.String(remoteJID.String()),
				FromMe:    proto.Bool(fromMe),
				ID:        proto.String(messageID),
			},
			Text:              proto.String(emoji),
			SenderTimestampMS: proto.Int64(time.Now().UnixMilli()),
		},
	}
	if _, err := c.wm.SendMessage(ctx, remoteJID, content); err != nil {
		return whatsapp.SendResponse{}, err
	}
	return whatsapp.SendResponse{MessageID: messageID, Status: "sent"}, nil
}

func (c *Client) RevokeMessage(ctx context.Context, jid string, messageID string) (whatsapp.SendResponse, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	remoteJID, err := parseJID(jid)
	if err != nil {
		return whatsapp.SendResponse{}, err
	}

	if _, err := c.wm.SendMessage(ctx, remoteJID, c.wm.BuildRevoke(remoteJID, types.EmptyJID, types.MessageID(messageID))); err != nil {
		return whatsapp.SendResponse{}, err
	}
	return whatsapp.SendResponse{MessageID: messageID, Status: "revoked"}, nil
}

// buildImageMessage uploads the image plus a 72px thumbnail and assembles
// the message part.
func (c *Client) buildImageMessage(ctx context.Context, imageBytes []byte, mimeType string, caption string) (*waE2E.ImageMessage, error) {
	thumbDecode, err := imgconv.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return nil, errors.New("Error While Decoding Thumbnail Image Stream")
	}
	thumbEncode := new(bytes.Buffer)
	err = imgconv.Write(thumbEncode,
		imgconv.Resize(thumbDecode, &imgconv.ResizeOption{Width: 72}),
		&imgconv.FormatOption{Format: imgconv.JPEG})
	if err != nil {
		return nil, errors.New("Error While Encoding Thumbnail Image Stream")
	}

	uploaded, err := c.wm.Upload(ctx, imageBytes, whatsmeow.MediaImage)
	if err != nil {
		return nil, errors.New("Error While Uploading Media to WhatsApp Server")
	}
	thumbUploaded, err := c.wm.Upload(ctx, thumbEncode.Bytes(), whatsmeow.MediaLinkThumbnail)
	if err != nil {
		return nil, errors.New("Error While Uploading Image Thumbnail to WhatsApp Server")
	}

	return &waE2E.ImageMessage{
		URL:                 proto.String(uploaded.URL),
		DirectPath:          proto.String(uploaded.DirectPath),
		Mimetype:            proto.String(mimeType),
		Caption:             proto.String(caption),
		FileLength:          proto.Uint64(uploaded.FileLength),
		FileSHA256:          uploaded.FileSHA256,
		FileEncSHA256:       uploaded.FileEncSHA256,
		MediaKey:            uploaded.MediaKey,
		JPEGThumbnail:       thumbEncode.Bytes(),
		ThumbnailDirectPath: &thumbUploaded.DirectPath,
		ThumbnailSHA256:     thumbUploaded.FileSHA256,
		ThumbnailEncSHA256:  thumbUploaded.FileEncSHA256,
	}, nil
}
