package whatsapp

import "github.com/wazend/go-whatsapp-instance-api/pkg/credstore"

// Event is the closed set of notifications a protocol client emits towards
// its instance. The marker method keeps the set sealed so the instance event
// loop can switch exhaustively.
type Event interface {
	isEvent()
}

// ConnectionUpdate reports socket lifecycle transitions. QR is set when the
// update carries a fresh pairing code, CloseReason carries the status code
// of a close transition and LoggedOut marks a terminal close that must not
// reconnect.
type ConnectionUpdate struct {
	State       ConnectionState
	QR          string
	CloseReason int
	LoggedOut   bool
}

// ChatsSet replaces nothing, it appends the server-provided chat snapshot
// to the cache. Chats arrive with empty message lists, messages flow in
// separately through MessagesUpsert.
type ChatsSet struct {
	Chats []Chat
}

type ChatsUpsert struct {
	Chats []Chat
}

type ChatsUpdate struct {
	Patches []ChatPatch
}

type ChatsDelete struct {
	IDs []string
}

type ContactsUpsert struct {
	Contacts []Contact
}

// MessagesUpsert delivers a batch of messages. Notify marks live traffic,
// which is the only kind forwarded to webhooks; history backfill arrives
// with Notify false and is cached and persisted only.
type MessagesUpsert struct {
	Messages []Message
	Notify   bool
}

// CredsUpdate asks the instance to persist refreshed account credentials.
type CredsUpdate struct {
	Creds credstore.Credentials
}

func (ConnectionUpdate) isEvent() {}
func (ChatsSet) isEvent()         {}
func (ChatsUpsert) isEvent()      {}
func (ChatsUpdate) isEvent()      {}
func (ChatsDelete) isEvent()      {}
func (ContactsUpsert) isEvent()   {}
func (MessagesUpsert) isEvent()   {}
func (CredsUpdate) isEvent()      {}
