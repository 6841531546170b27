package wameow

import (
	"encoding/json"
	"time"

	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// Stream close codes forwarded to the instance, mirroring the HTTP-flavored
// reasons used on the wire.
const (
	closeReasonLoggedOut      = 401
	closeReasonDisconnected   = 428
	closeReasonStreamReplaced = 440
)

func (c *Client) translateEvent(rawEvt interface{}) {
	switch evt := rawEvt.(type) {
	case *events.Connected:
		c.emitCreds()
		c.handler(whatsapp.ConnectionUpdate{State: whatsapp.StateOpen})

	case *events.PairSuccess:
		c.handler(whatsapp.CredsUpdate{Creds: credstore.Credentials{
			DeviceJID:    evt.ID.String(),
			Platform:     evt.Platform,
			BusinessName: evt.BusinessName,
			PairedAt:     time.Now(),
		}})

	case *events.Disconnected:
		c.handler(whatsapp.ConnectionUpdate{
			State:       whatsapp.StateClose,
			CloseReason: closeReasonDisconnected,
		})

	case *events.LoggedOut:
		c.handler(whatsapp.ConnectionUpdate{
			State:       whatsapp.StateClose,
			CloseReason: closeReasonLoggedOut,
			LoggedOut:   true,
		})

	case *events.StreamReplaced:
		c.handler(whatsapp.ConnectionUpdate{
			State:       whatsapp.StateClose,
			CloseReason: closeReasonStreamReplaced,
		})

	case *events.ConnectFailure:
		c.handler(whatsapp.ConnectionUpdate{
			State:       whatsapp.StateClose,
			CloseReason: int(evt.Reason),
		})

	case *events.Message:
		c.handler(whatsapp.MessagesUpsert{
			Messages: []whatsapp.Message{convertMessage(evt.Info, evt.Message)},
			Notify:   true,
		})

	case *events.HistorySync:
		c.handleHistorySync(evt)

	case *events.Contact:
		name := evt.Action.GetFullName()
		if name == "" {
			name = evt.Action.GetFirstName()
		}
		c.handler(whatsapp.ContactsUpsert{Contacts: []whatsapp.Contact{{
			ID:   evt.JID.String(),
			Name: name,
		}}})

	case *events.PushName:
		c.handler(whatsapp.ContactsUpsert{Contacts: []whatsapp.Contact{{
			ID:     evt.JID.String(),
			Notify: evt.NewPushName,
		}}})

	case *events.GroupInfo:
		if evt.Name != nil {
			name := evt.Name.Name
			c.handler(whatsapp.ChatsUpdate{Patches: []whatsapp.ChatPatch{{
				ID:   evt.JID.String(),
				Name: &name,
			}}})
		}

	case *events.JoinedGroup:
		c.handler(whatsapp.ChatsUpsert{Chats: []whatsapp.Chat{{
			ID:   evt.JID.String(),
			Name: evt.Name,
		}}})

	case *events.DeleteChat:
		c.handler(whatsapp.ChatsDelete{IDs: []string{evt.JID.String()}})

	case *events.Archive:
		archived := evt.Action.GetArchived()
		c.handler(whatsapp.ChatsUpdate{Patches: []whatsapp.ChatPatch{{
			ID:       evt.JID.String(),
			Archived: &archived,
		}}})

	case *events.Pin:
		pinned := evt.Action.GetPinned()
		c.handler(whatsapp.ChatsUpdate{Patches: []whatsapp.ChatPatch{{
			ID:     evt.JID.String(),
			Pinned: &pinned,
		}}})

	case *events.QR:
		// handled through the QR channel during pairing

	case *events.KeepAliveTimeout:
		log.Instance(c.key).Warnln("Keepalive Timeout, Error Count:", evt.ErrorCount)
	}
}

// emitCreds pushes the current device binding to the instance so the
// credential file stays in sync after reconnects.
func (c *Client) emitCreds() {
	if c.wm.Store.ID == nil {
		return
	}
	c.handler(whatsapp.CredsUpdate{Creds: credstore.Credentials{
		DeviceJID: c.wm.Store.ID.String(),
		Platform:  c.wm.Store.Platform,
		PushName:  c.wm.Store.PushName,
	}})
}

func (c *Client) handleHistorySync(evt *events.HistorySync) {
	if evt.Data == nil {
		return
	}

	var chats []whatsapp.Chat
	var messages []whatsapp.Message
	for _, conv := range evt.Data.GetConversations() {
		chatJID, err := types.ParseJID(conv.GetID())
		if err != nil {
			continue
		}

		chats = append(chats, whatsapp.Chat{
			ID:          chatJID.String(),
			Name:        conv.GetDisplayName(),
			UnreadCount: int(conv.GetUnreadCount()),
			Archived:    conv.GetArchived(),
		})

		for _, historyMsg := range conv.GetMessages() {
			webMsg := historyMsg.GetMessage()
			if webMsg == nil {
				continue
			}
			parsed, err := c.wm.ParseWebMessage(chatJID, webMsg)
			if err != nil {
				continue
			}
			messages = append(messages, convertMessage(parsed.Info, parsed.Message))
		}
	}

	if len(chats) > 0 {
		c.handler(whatsapp.ChatsSet{Chats: chats})
	}
	if len(messages) > 0 {
		c.handler(whatsapp.MessagesUpsert{Messages: messages, Notify: false})
	}
}

func convertMessage(info types.MessageInfo, msg *waE2E.Message) whatsapp.Message {
	var content json.RawMessage
	if msg != nil {
		if raw, err := json.Marshal(msg); err == nil {
			content = raw
		}
	}

	return whatsapp.Message{
		Key: whatsapp.MessageKey{
			RemoteJID: info.Chat.String(),
			FromMe:    info.IsFromMe,
			ID:        info.ID,
		},
		PushName:  info.PushName,
		Type:      messageContentType(msg),
		Timestamp: info.Timestamp.Unix(),
		Content:   content,
	}
}

// messageContentType names the first populated content field, matching the
// camelCase field names consumers see in the payload.
func messageContentType(msg *waE2E.Message) string {
	switch {
	case msg == nil:
		return ""
	case msg.Conversation != nil:
		return "conversation"
	case msg.ExtendedTextMessage != nil:
		return "extendedTextMessage"
	case msg.ImageMessage != nil:
		return "imageMessage"
	case msg.VideoMessage != nil:
		return "videoMessage"
	case msg.AudioMessage != nil:
		return "audioMessage"
	case msg.DocumentMessage != nil:
		return "documentMessage"
	case msg.StickerMessage != nil:
		return "stickerMessage"
	case msg.ContactMessage != nil:
		return "contactMessage"
	case msg.LocationMessage != nil:
		return "locationMessage"
	case msg.ListMessage != nil:
		return "listMessage"
	case msg.ListResponseMessage != nil:
		return "listResponseMessage"
	case msg.ButtonsResponseMessage != nil:
		return "buttonsResponseMessage"
	case msg.TemplateButtonReplyMessage != nil:
		return "templateButtonReplyMessage"
	case msg.ReactionMessage != nil:
		return "reactionMessage"
	case msg.ProtocolMessage != nil:
		return "protocolMessage"
	case msg.SenderKeyDistributionMessage != nil:
		return "senderKeyDistributionMessage"
	default:
		return "unknown"
	}
}
