package whatsapp

import (
	"context"
	"encoding/base64"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/skip2/go-qrcode"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
)

// qrCodeLimit is the number of pairing codes issued before the session is
// torn down as unrecoverable.
const qrCodeLimit = 5

// skippedMessageTypes never reach webhook consumers, they are protocol
// bookkeeping rather than user traffic.
var skippedMessageTypes = map[string]bool{
	"protocolMessage":              true,
	"senderKeyDistributionMessage": true,
	"messageContextInfo":           true,
}

// Instance owns one WhatsApp session: the protocol client, the in-memory
// chat/contact/message caches and the per-instance webhook configuration.
// All cache access goes through mu; the webhook config is swapped atomically
// so the relay path never takes the cache lock.
type Instance struct {
	Key string

	mu          sync.Mutex
	state       ConnectionState
	qrCode      string
	qrCodeCount int
	terminated  bool
	chats       []Chat
	contacts    []Contact
	messages    []Message

	client ProtocolClient
	dial   ClientFactory
	creds  *credstore.FileStore
	store  MessageStore
	relay  WebhookRelay
	caster Broadcaster

	webhookCfg atomic.Pointer[WebhookConfig]
}

func NewInstance(key string, dial ClientFactory, creds *credstore.FileStore, store MessageStore, relay WebhookRelay, caster Broadcaster, cfg WebhookConfig) *Instance {
	ins := &Instance{
		Key:    key,
		state:  StateClose,
		dial:   dial,
		creds:  creds,
		store:  store,
		relay:  relay,
		caster: caster,
	}
	ins.webhookCfg.Store(&cfg)
	return ins
}

// Connect dials a protocol client with whatever credentials are on disk and
// starts the session. Reconnects reuse the existing client.
func (ins *Instance) Connect(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ins.mu.Lock()
	if ins.terminated {
		ins.mu.Unlock()
		return ErrClientNotValid
	}
	client := ins.client
	ins.mu.Unlock()

	if client == nil {
		creds, found, err := ins.creds.Load()
		if err != nil {
			return err
		}
		if !found {
			creds = nil
		}

		dialed, err := ins.dial(ctx, ins.Key, creds, ins.handleEvent)
		if err != nil {
			return err
		}

		// A concurrent Connect may have dialed first; keep the stored
		// client and tear the redundant one down.
		ins.mu.Lock()
		if ins.terminated {
			ins.mu.Unlock()
			dialed.End(nil)
			return ErrClientNotValid
		}
		if ins.client != nil {
			client = ins.client
			ins.mu.Unlock()
			dialed.End(nil)
		} else {
			ins.client = dialed
			client = dialed
			ins.mu.Unlock()
		}
	}

	ins.mu.Lock()
	ins.state = StateConnecting
	ins.mu.Unlock()

	return client.Connect()
}

// handleEvent is the single entry point for protocol client notifications.
func (ins *Instance) handleEvent(ev Event) {
	switch ev := ev.(type) {
	case ConnectionUpdate:
		ins.handleConnectionUpdate(ev)
	case ChatsSet:
		ins.upsertChats(ev.Chats)
	case ChatsUpsert:
		ins.upsertChats(ev.Chats)
	case ChatsUpdate:
		ins.patchChats(ev.Patches)
	case ChatsDelete:
		ins.deleteChats(ev.IDs)
	case ContactsUpsert:
		ins.upsertContacts(ev.Contacts)
	case MessagesUpsert:
		ins.handleMessagesUpsert(ev)
	case CredsUpdate:
		if err := ins.creds.Save(ev.Creds); err != nil {
			log.Instance(ins.Key).Errorln("Error Saving Credentials:", err.Error())
		}
	}
}

func (ins *Instance) handleConnectionUpdate(ev ConnectionUpdate) {
	if ev.QR != "" {
		ins.handleQRCode(ev.QR)
		return
	}

	if ev.State == "" || ev.State == StateConnecting {
		if ev.State == StateConnecting {
			ins.mu.Lock()
			ins.state = StateConnecting
			ins.mu.Unlock()
		}
		return
	}

	ins.mu.Lock()
	ins.state = ev.State
	if ev.State == StateOpen {
		ins.qrCode = ""
		ins.qrCodeCount = 0
	}
	terminated := ins.terminated
	client := ins.client
	ins.mu.Unlock()

	payload := map[string]any{
		"instance_key":     ins.Key,
		"connection_state": string(ev.State),
		"messageType":      "connection_update",
	}
	if ev.CloseReason != 0 {
		payload["closeReason"] = ev.CloseReason
	}
	ins.relay.Send(ins.WebhookData(), payload)

	broadcast := map[string]any{"connectionState": string(ev.State)}
	if ev.State == StateOpen && client != nil {
		if user := client.User(); user != nil {
			broadcast["user"] = user
		}
	}
	ins.caster.Publish(context.Background(), ins.Key, "connection_update", broadcast)

	if ev.State != StateClose {
		return
	}

	if ev.LoggedOut {
		log.Instance(ins.Key).Warnln("Session Logged Out, Removing Credentials")
		if err := ins.creds.Delete(); err != nil {
			log.Instance(ins.Key).Errorln("Error Removing Credentials:", err.Error())
		}
		ins.mu.Lock()
		ins.terminated = true
		ins.mu.Unlock()
		if client != nil {
			client.ClearUser()
		}
		return
	}

	if !terminated && client != nil {
		go func() {
			if err := client.Connect(); err != nil {
				log.Instance(ins.Key).Errorln("Error Reconnecting:", err.Error())
			}
		}()
	}
}

func (ins *Instance) handleQRCode(code string) {
	ins.mu.Lock()
	if ins.qrCodeCount >= qrCodeLimit {
		ins.terminated = true
		ins.state = StateClose
		client := ins.client
		ins.mu.Unlock()

		log.Instance(ins.Key).Warnln("QR Code Limit Reached, Ending Session")
		if client != nil {
			client.End(ErrQRLimitReached)
		}
		ins.caster.Publish(context.Background(), ins.Key, "connection_update", map[string]any{
			"connectionState": string(StateClose),
			"reason":          ErrQRLimitReached.Error(),
		})
		return
	}
	ins.qrCodeCount++
	ins.mu.Unlock()

	png, err := qrcode.Encode(code, qrcode.Medium, 256)
	if err != nil {
		log.Instance(ins.Key).Errorln("Error Encoding QR Code:", err.Error())
		return
	}
	dataURL := "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)

	ins.mu.Lock()
	ins.qrCode = dataURL
	ins.mu.Unlock()

	ins.caster.Publish(context.Background(), ins.Key, "qrcode_update", map[string]any{
		"qrcode": dataURL,
	})
	ins.relay.Send(ins.WebhookData(), map[string]any{
		"instance_key": ins.Key,
		"qrcode":       dataURL,
		"messageType":  "qrcode_update",
	})
}

// upsertChats appends new chats and refreshes existing entries in place.
// Incoming snapshots never carry message lists, the cached messages of a
// known chat are kept.
func (ins *Instance) upsertChats(chats []Chat) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	for _, chat := range chats {
		chat.Messages = nil
		if idx := ins.chatIndex(chat.ID); idx >= 0 {
			chat.Messages = ins.chats[idx].Messages
			ins.chats[idx] = chat
			continue
		}
		ins.chats = append(ins.chats, chat)
	}
}

func (ins *Instance) patchChats(patches []ChatPatch) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	for _, patch := range patches {
		idx := ins.chatIndex(patch.ID)
		if idx < 0 {
			continue
		}
		if patch.Name != nil {
			ins.chats[idx].Name = *patch.Name
		}
		if patch.UnreadCount != nil {
			ins.chats[idx].UnreadCount = *patch.UnreadCount
		}
		if patch.Archived != nil {
			ins.chats[idx].Archived = *patch.Archived
		}
		if patch.Pinned != nil {
			ins.chats[idx].Pinned = *patch.Pinned
		}
	}
}

func (ins *Instance) deleteChats(ids []string) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	for _, id := range ids {
		if idx := ins.chatIndex(id); idx >= 0 {
			ins.chats = append(ins.chats[:idx], ins.chats[idx+1:]...)
		}
	}
}

func (ins *Instance) upsertContacts(contacts []Contact) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	for _, contact := range contacts {
		replaced := false
		for idx := range ins.contacts {
			if ins.contacts[idx].ID == contact.ID {
				if contact.Name == "" {
					contact.Name = ins.contacts[idx].Name
				}
				if contact.Notify == "" {
					contact.Notify = ins.contacts[idx].Notify
				}
				ins.contacts[idx] = contact
				replaced = true
				break
			}
		}
		if !replaced {
			ins.contacts = append(ins.contacts, contact)
		}
	}
}

func (ins *Instance) handleMessagesUpsert(ev MessagesUpsert) {
	reference := ""
	ins.mu.Lock()
	client := ins.client
	ins.mu.Unlock()
	if client != nil {
		if user := client.User(); user != nil {
			reference = user.ID
		}
	}

	for _, msg := range ev.Messages {
		if msg.Key.RemoteJID == StatusBroadcastJID {
			continue
		}

		ins.cacheMessage(msg)

		record := MessageRecord{
			Instance:  ins.Key,
			Reference: reference,
			JID:       msg.Key.RemoteJID,
			FromMe:    msg.Key.FromMe,
			MessageID: msg.Key.ID,
			PushName:  msg.PushName,
			Message:   msg.Content,
		}
		if err := ins.store.Save(context.Background(), record); err != nil {
			log.Instance(ins.Key).Errorln("Error Saving Message Record:", err.Error())
		}
	}

	if !ev.Notify {
		return
	}

	for _, msg := range ev.Messages {
		if msg.Key.RemoteJID == StatusBroadcastJID || msg.Key.FromMe {
			continue
		}
		if len(msg.Content) == 0 || skippedMessageTypes[msg.Type] {
			continue
		}

		ins.relay.Send(ins.WebhookData(), map[string]any{
			"instance_key":     ins.Key,
			"jid":              msg.Key.RemoteJID,
			"messageType":      msg.Type,
			"key":              msg.Key,
			"pushName":         msg.PushName,
			"messageTimestamp": msg.Timestamp,
			"message":          msg.Content,
		})
	}
}

func (ins *Instance) cacheMessage(msg Message) {
	ins.mu.Lock()
	defer ins.mu.Unlock()

	ins.messages = append(ins.messages, msg)
	if idx := ins.chatIndex(msg.Key.RemoteJID); idx >= 0 {
		ins.chats[idx].Messages = append(ins.chats[idx].Messages, msg)
	}
}

// chatIndex must be called with mu held.
func (ins *Instance) chatIndex(id string) int {
	for idx := range ins.chats {
		if ins.chats[idx].ID == id {
			return idx
		}
	}
	return -1
}

func (ins *Instance) ConnectionState() ConnectionState {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.state
}

func (ins *Instance) QRCode() string {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	return ins.qrCode
}

func (ins *Instance) User() *UserInfo {
	ins.mu.Lock()
	client := ins.client
	ins.mu.Unlock()
	if client == nil {
		return nil
	}
	return client.User()
}

func (ins *Instance) Chats() []Chat {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	out := make([]Chat, len(ins.chats))
	copy(out, ins.chats)
	return out
}

func (ins *Instance) Contacts() []Contact {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	out := make([]Contact, len(ins.contacts))
	copy(out, ins.contacts)
	return out
}

func (ins *Instance) CachedMessages() []Message {
	ins.mu.Lock()
	defer ins.mu.Unlock()
	out := make([]Message, len(ins.messages))
	copy(out, ins.messages)
	return out
}

func (ins *Instance) WebhookData() WebhookConfig {
	return *ins.webhookCfg.Load()
}

// UpdateWebhookData swaps the webhook configuration. In-flight deliveries
// keep the configuration they started with.
func (ins *Instance) UpdateWebhookData(cfg WebhookConfig) {
	ins.webhookCfg.Store(&cfg)
}

// Logout signs the account out remotely, removes the credential file and
// permanently ends the session.
func (ins *Instance) Logout(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ins.mu.Lock()
	client := ins.client
	ins.terminated = true
	ins.state = StateClose
	ins.mu.Unlock()

	if client == nil {
		return ErrClientNotValid
	}

	if err := client.Logout(ctx); err != nil {
		log.Instance(ins.Key).Errorln("Error Logging Out:", err.Error())
	}
	if err := ins.creds.Delete(); err != nil {
		return err
	}
	client.ClearUser()
	return nil
}

// End tears the instance down without touching the remote session or the
// credential file.
func (ins *Instance) End(reason error) {
	ins.mu.Lock()
	client := ins.client
	ins.terminated = true
	ins.state = StateClose
	ins.mu.Unlock()

	if client != nil {
		client.End(reason)
	}
}

// FindMessages queries the durable message log. An empty number returns the
// whole log for this account.
func (ins *Instance) FindMessages(ctx context.Context, number string) ([]MessageRecord, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	reference := ""
	if user := ins.User(); user != nil {
		reference = user.ID
	}

	jid := ""
	if strings.TrimSpace(number) != "" {
		jid = CreateID(number)
	}

	records, err := ins.store.Find(ctx, ins.Key, reference, jid)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoRecords
	}
	return records, nil
}

// maskJID keeps logs free of full phone numbers.
func maskJID(jid string) string {
	at := strings.IndexByte(jid, '@')
	user := jid
	suffix := ""
	if at >= 0 {
		user = jid[:at]
		suffix = jid[at:]
	}
	if len(user) <= 4 {
		return "****" + suffix
	}
	return user[:2] + strings.Repeat("*", len(user)-4) + user[len(user)-2:] + suffix
}
