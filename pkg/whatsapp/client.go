package whatsapp

import (
	"context"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
)

// ProtocolClient is the wire-level surface an instance drives. The concrete
// implementation lives in the wameow subpackage; the interface keeps the
// instance lifecycle testable without a live socket.
type ProtocolClient interface {
	Connect() error
	Disconnect()
	// End tears the client down permanently: handlers removed, socket
	// closed, no reconnect. Used for QR exhaustion and instance deletion.
	End(reason error)
	Logout(ctx context.Context) error

	User() *UserInfo
	ClearUser()
	IsOnWhatsApp(ctx context.Context, number string) (Registration, error)

	SendText(ctx context.Context, jid string, text string) (SendResponse, error)
	SendMedia(ctx context.Context, jid string, media Media) (SendResponse, error)
	SendMediaURL(ctx context.Context, jid string, media MediaURL) (SendResponse, error)
	SendButtons(ctx context.Context, jid string, msg ButtonMessage) (SendResponse, error)
	SendButtonsImage(ctx context.Context, jid string, msg ButtonImageMessage) (SendResponse, error)
	SendLocation(ctx context.Context, jid string, loc Location) (SendResponse, error)
	SendContact(ctx context.Context, jid string, card VCard) (SendResponse, error)
	SendList(ctx context.Context, jid string, msg ListMessage) (SendResponse, error)
	SendReaction(ctx context.Context, jid string, messageID string, fromMe bool, emoji string) (SendResponse, error)
	RevokeMessage(ctx context.Context, jid string, messageID string) (SendResponse, error)

	Download(ctx context.Context, msg Message) ([]byte, string, error)

	GroupMetadata(ctx context.Context, jid string) (GroupMetadata, error)
	CreateGroup(ctx context.Context, subject string, participants []string) (GroupMetadata, error)
	UpdateGroupParticipants(ctx context.Context, jid string, participants []string, action string) error
	UpdateGroupSetting(ctx context.Context, jid string, setting string) error
	GroupInviteCode(ctx context.Context, jid string) (string, error)
	LeaveGroup(ctx context.Context, jid string) error
}

// ClientFactory dials a new protocol client bound to an instance key. The
// handler receives every event the client emits, on the client's goroutine.
type ClientFactory func(ctx context.Context, key string, creds *credstore.Credentials, handler func(Event)) (ProtocolClient, error)

// MessageStore persists the durable message log.
type MessageStore interface {
	Save(ctx context.Context, record MessageRecord) error
	Find(ctx context.Context, instance string, reference string, jid string) ([]MessageRecord, error)
}

// WebhookRelay delivers event payloads to the configured HTTP endpoints.
// Delivery is fire-and-forget, implementations must never block the caller
// on the outcome.
type WebhookRelay interface {
	Send(cfg WebhookConfig, payload map[string]any)
}

// Broadcaster fans instance events out to the message broker.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, event string, payload any)
}
