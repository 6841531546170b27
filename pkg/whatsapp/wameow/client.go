package wameow

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"

	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// Client wraps one whatsmeow client and translates its events into the
// instance event model.
type Client struct {
	key     string
	wm      *whatsmeow.Client
	handler func(whatsapp.Event)
	cleared atomic.Bool
}

// Connect opens the socket. Unpaired devices get the QR channel pumped into
// the event handler so the instance can issue pairing codes.
func (c *Client) Connect() error {
	if c.wm.Store.ID == nil {
		qrChan, err := c.wm.GetQRChannel(context.Background())
		if err != nil {
			return err
		}
		go c.pumpQR(qrChan)
	}
	return c.wm.Connect()
}

func (c *Client) pumpQR(qrChan <-chan whatsmeow.QRChannelItem) {
	for evt := range qrChan {
		switch evt.Event {
		case "code":
			c.handler(whatsapp.ConnectionUpdate{QR: evt.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// pairing finished, the Connected event takes over
		case whatsmeow.QRChannelTimeout.Event:
			c.handler(whatsapp.ConnectionUpdate{
				State:       whatsapp.StateClose,
				CloseReason: http.StatusRequestTimeout,
			})
		default:
			log.Instance(c.key).Warnln("Unexpected QR Channel Event:", evt.Event)
		}
	}
}

func (c *Client) Disconnect() {
	c.wm.Disconnect()
}

// End removes the event handlers and closes the socket. The client is not
// usable afterwards.
func (c *Client) End(reason error) {
	if reason != nil {
		log.Instance(c.key).Warnln("Ending Session:", reason.Error())
	}
	c.wm.RemoveEventHandlers()
	c.wm.Disconnect()
}

func (c *Client) Logout(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return c.wm.Logout(ctx)
}

func (c *Client) User() *whatsapp.UserInfo {
	if c.cleared.Load() || c.wm.Store.ID == nil {
		return nil
	}
	return &whatsapp.UserInfo{
		ID:   c.wm.Store.ID.String(),
		Name: c.wm.Store.PushName,
	}
}

func (c *Client) ClearUser() {
	c.cleared.Store(true)
}

func (c *Client) IsOnWhatsApp(ctx context.Context, number string) (whatsapp.Registration, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	infos, err := c.wm.IsOnWhatsApp(ctx, []string{"+" + number})
	if err != nil {
		return whatsapp.Registration{}, err
	}
	if len(infos) == 0 {
		return whatsapp.Registration{}, nil
	}
	return whatsapp.Registration{
		Exists: infos[0].IsIn,
		JID:    infos[0].JID.String(),
	}, nil
}

// Download fetches the media attachment referenced by a cached message and
// returns the raw bytes with their mime type.
func (c *Client) Download(ctx context.Context, msg whatsapp.Message) ([]byte, string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var content waE2E.Message
	if err := json.Unmarshal(msg.Content, &content); err != nil {
		return nil, "", err
	}

	var part whatsmeow.DownloadableMessage
	var mimeType string
	switch {
	case content.ImageMessage != nil:
		part = content.ImageMessage
		mimeType = content.ImageMessage.GetMimetype()
	case content.VideoMessage != nil:
		part = content.VideoMessage
		mimeType = content.VideoMessage.GetMimetype()
	case content.AudioMessage != nil:
		part = content.AudioMessage
		mimeType = content.AudioMessage.GetMimetype()
	case content.DocumentMessage != nil:
		part = content.DocumentMessage
		mimeType = content.DocumentMessage.GetMimetype()
	case content.StickerMessage != nil:
		part = content.StickerMessage
		mimeType = content.StickerMessage.GetMimetype()
	default:
		return nil, "", whatsapp.ErrDownloadFailed
	}

	data, err := c.wm.Download(ctx, part)
	if err != nil {
		return nil, "", err
	}
	return data, mimeType, nil
}

// parseJID resolves a string JID for the wire layer.
func parseJID(jid string) (types.JID, error) {
	return types.ParseJID(jid)
}
