package whatsapp

import (
	"encoding/json"
	"time"
)

type ConnectionState string

const (
	StateConnecting ConnectionState = "connecting"
	StateOpen       ConnectionState = "open"
	StateClose      ConnectionState = "close"
)

// MessageKey identifies one message inside a chat.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
	ID        string `json:"id"`
}

// Message is the cached representation of one inbound or outbound message.
// Content carries the raw protocol payload so webhook consumers receive the
// full message body untouched.
type Message struct {
	Key       MessageKey      `json:"key"`
	PushName  string          `json:"pushName,omitempty"`
	Type      string          `json:"messageType,omitempty"`
	Timestamp int64           `json:"messageTimestamp,omitempty"`
	Content   json.RawMessage `json:"message,omitempty"`
}

// Chat is one conversation in the in-memory cache.
type Chat struct {
	ID          string    `json:"id"`
	Name        string    `json:"name,omitempty"`
	UnreadCount int       `json:"unreadCount,omitempty"`
	Archived    bool      `json:"archived,omitempty"`
	Pinned      bool      `json:"pinned,omitempty"`
	Messages    []Message `json:"messages,omitempty"`
}

// ChatPatch is a partial chat update, only the non-nil fields are merged
// into the cached chat.
type ChatPatch struct {
	ID          string
	Name        *string
	UnreadCount *int
	Archived    *bool
	Pinned      *bool
}

type Contact struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Notify string `json:"notify,omitempty"`
}

// UserInfo is the identity of the paired account.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// Registration reports whether an ID resolves to an active WhatsApp account.
type Registration struct {
	Exists bool   `json:"exists"`
	JID    string `json:"jid,omitempty"`
}

// WebhookConfig is the per-instance webhook surface. Disabled suppresses
// deliveries to the primary endpoint only, SendMessage opts in to the
// secondary per-instance endpoint.
type WebhookConfig struct {
	URL         string `json:"webhookUrl"`
	SendMessage bool   `json:"sendWebhookMessage"`
	Disabled    bool   `json:"disableWebhook"`
}

type GroupParticipant struct {
	JID          string `json:"id"`
	IsAdmin      bool   `json:"admin,omitempty"`
	IsSuperAdmin bool   `json:"superAdmin,omitempty"`
}

type GroupMetadata struct {
	JID          string             `json:"id"`
	OwnerJID     string             `json:"owner,omitempty"`
	Subject      string             `json:"subject"`
	Topic        string             `json:"desc,omitempty"`
	Announce     bool               `json:"announce,omitempty"`
	Locked       bool               `json:"restrict,omitempty"`
	CreatedAt    time.Time          `json:"creation,omitempty"`
	Participants []GroupParticipant `json:"participants,omitempty"`
}

// Media is an attachment uploaded from the request body.
type Media struct {
	MimeType string
	FileName string
	Caption  string
	Bytes    []byte
}

// MediaURL is an attachment fetched from a remote location before upload.
type MediaURL struct {
	URL      string
	MimeType string
	FileName string
	Caption  string
}

type Button struct {
	ID   string `json:"buttonId"`
	Text string `json:"buttonText"`
}

type ButtonMessage struct {
	Title   string
	Text    string
	Footer  string
	Buttons []Button
}

type ButtonImageMessage struct {
	Text     string
	Footer   string
	Image    Media
	Buttons  []Button
	MimeType string
}

type Location struct {
	Latitude  float64
	Longitude float64
	Caption   string
}

type VCard struct {
	FullName string
	Phone    string
}

type ListRow struct {
	ID          string `json:"rowId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type ListSection struct {
	Title string    `json:"title"`
	Rows  []ListRow `json:"rows"`
}

type ListMessage struct {
	Title      string
	Text       string
	Footer     string
	ButtonText string
	Sections   []ListSection
}

// MessageRecord is the row shape persisted by the message store.
type MessageRecord struct {
	ID        string          `json:"id,omitempty"`
	Instance  string          `json:"instance"`
	Reference string          `json:"reference"`
	JID       string          `json:"jid"`
	FromMe    bool            `json:"fromMe"`
	MessageID string          `json:"messageId"`
	PushName  string          `json:"pushName,omitempty"`
	Message   json.RawMessage `json:"message"`
	CreatedAt time.Time       `json:"createdAt,omitempty"`
}

// SendResponse is returned by every send operation.
type SendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status,omitempty"`
}

// BulkSendResult aggregates a send-to-many fanout.
type BulkSendResult struct {
	Sent   []string       `json:"sent"`
	Failed []string       `json:"failed"`
	Data   []SendResponse `json:"data"`
}
