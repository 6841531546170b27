package whatsapp_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

func TestConnectDialsOnce(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	if h.emit == nil {
		t.Fatal("dial did not receive the event handler")
	}
	if got := h.ins.ConnectionState(); got != whatsapp.StateConnecting {
		t.Errorf("ConnectionState() = %q, want %q", got, whatsapp.StateConnecting)
	}
	if h.client.connectCalls != 1 {
		t.Errorf("client.Connect called %d times, want 1", h.client.connectCalls)
	}

	// A second Connect reuses the dialed client.
	if err := h.ins.Connect(context.Background()); err != nil {
		t.Fatalf("second Connect returned error: %v", err)
	}
	if h.client.connectCalls != 2 {
		t.Errorf("client.Connect called %d times after reconnect, want 2", h.client.connectCalls)
	}
}

func TestConcurrentConnectKeepsOneClient(t *testing.T) {
	creds := credstore.NewFileStore(t.TempDir(), "test-instance")

	gate := make(chan struct{})
	entered := make(chan struct{}, 2)
	var mu sync.Mutex
	var dialed []*fakeClient

	dial := func(ctx context.Context, key string, stored *credstore.Credentials, handler func(whatsapp.Event)) (whatsapp.ProtocolClient, error) {
		entered <- struct{}{}
		<-gate
		client := newFakeClient()
		mu.Lock()
		dialed = append(dialed, client)
		mu.Unlock()
		return client, nil
	}

	ins := whatsapp.NewInstance("test-instance", dial, creds, &fakeStore{}, &fakeRelay{}, &fakeCaster{}, whatsapp.WebhookConfig{})

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ins.Connect(context.Background()); err != nil {
				t.Errorf("Connect: %v", err)
			}
		}()
	}
	// Hold both callers inside dial so each observes a nil client first.
	<-entered
	<-entered
	close(gate)
	wg.Wait()

	if len(dialed) != 2 {
		t.Fatalf("dial calls = %d, want 2", len(dialed))
	}

	var kept, discarded int
	for _, client := range dialed {
		if len(client.endReasons) > 0 {
			discarded++
			if client.connectCalls != 0 {
				t.Error("discarded client was connected")
			}
		} else {
			kept++
			if client.connectCalls != 2 {
				t.Errorf("surviving client Connect calls = %d, want 2", client.connectCalls)
			}
		}
	}
	if kept != 1 || discarded != 1 {
		t.Errorf("clients kept/discarded = %d/%d, want 1/1", kept, discarded)
	}
}

func TestQRCodeEncodedAsDataURL(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.ConnectionUpdate{QR: "pairing-code-1"})

	qr := h.ins.QRCode()
	if !strings.HasPrefix(qr, "data:image/png;base64,") {
		t.Errorf("QRCode() = %q, want a png data URL", qr)
	}
	if got := h.caster.byEvent("qrcode_update"); len(got) != 1 {
		t.Errorf("broadcast qrcode_update events = %d, want 1", len(got))
	}
	if got := h.relay.byType("qrcode_update"); len(got) != 1 {
		t.Errorf("webhook qrcode_update deliveries = %d, want 1", len(got))
	}
}

func TestQRCodeLimitEndsSession(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	for i := 0; i < 5; i++ {
		h.emit(whatsapp.ConnectionUpdate{QR: "pairing-code"})
	}
	if len(h.client.endReasons) != 0 {
		t.Fatal("client ended within the five tolerated codes")
	}

	// The sixth code crosses the ceiling.
	h.emit(whatsapp.ConnectionUpdate{QR: "pairing-code"})

	if len(h.client.endReasons) != 1 {
		t.Fatalf("client End called %d times, want 1", len(h.client.endReasons))
	}
	if !errors.Is(h.client.endReasons[0], whatsapp.ErrQRLimitReached) {
		t.Errorf("End reason = %v, want ErrQRLimitReached", h.client.endReasons[0])
	}
	if got := h.ins.ConnectionState(); got != whatsapp.StateClose {
		t.Errorf("ConnectionState() = %q, want %q", got, whatsapp.StateClose)
	}

	// A terminated instance refuses further connects and sends.
	if err := h.ins.Connect(context.Background()); !errors.Is(err, whatsapp.ErrClientNotValid) {
		t.Errorf("Connect after termination = %v, want ErrClientNotValid", err)
	}
	if _, err := h.ins.SendText(context.Background(), "628123456789", "hi"); !errors.Is(err, whatsapp.ErrClientNotValid) {
		t.Errorf("SendText after termination = %v, want ErrClientNotValid", err)
	}
}

func TestOpenStateResetsQRCounter(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	for i := 0; i < 5; i++ {
		h.emit(whatsapp.ConnectionUpdate{QR: "pairing-code"})
	}
	h.emit(whatsapp.ConnectionUpdate{State: whatsapp.StateOpen})

	if got := h.ins.QRCode(); got != "" {
		t.Errorf("QRCode() after open = %q, want empty", got)
	}

	// Pairing succeeded once, so the counter starts over.
	h.emit(whatsapp.ConnectionUpdate{QR: "pairing-code"})
	if len(h.client.endReasons) != 0 {
		t.Errorf("client ended after counter reset, want none")
	}
}

func TestConnectingStateSkipsWebhook(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.ConnectionUpdate{State: whatsapp.StateConnecting})

	if got := h.relay.byType("connection_update"); len(got) != 0 {
		t.Errorf("connection_update deliveries = %d, want 0 while connecting", len(got))
	}
	if got := h.ins.ConnectionState(); got != whatsapp.StateConnecting {
		t.Errorf("ConnectionState() = %q, want %q", got, whatsapp.StateConnecting)
	}
}

func TestOpenStateNotifiesWebhookAndBroker(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{URL: "https://example.com/hook"})

	h.emit(whatsapp.ConnectionUpdate{State: whatsapp.StateOpen})

	deliveries := h.relay.byType("connection_update")
	if len(deliveries) != 1 {
		t.Fatalf("connection_update deliveries = %d, want 1", len(deliveries))
	}
	payload := deliveries[0].payload
	if payload["instance_key"] != "test-instance" {
		t.Errorf("payload instance_key = %v, want %q", payload["instance_key"], "test-instance")
	}
	if payload["connection_state"] != "open" {
		t.Errorf("payload connection_state = %v, want %q", payload["connection_state"], "open")
	}

	events := h.caster.byEvent("connection_update")
	if len(events) != 1 {
		t.Fatalf("broadcast connection_update events = %d, want 1", len(events))
	}
	broadcast, ok := events[0].payload.(map[string]any)
	if !ok {
		t.Fatalf("broadcast payload has type %T, want map", events[0].payload)
	}
	if broadcast["user"] == nil {
		t.Error("broadcast payload missing paired user on open")
	}
}

func TestCloseCarriesReason(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.ConnectionUpdate{State: whatsapp.StateClose, CloseReason: 428})

	deliveries := h.relay.byType("connection_update")
	if len(deliveries) != 1 {
		t.Fatalf("connection_update deliveries = %d, want 1", len(deliveries))
	}
	if deliveries[0].payload["closeReason"] != 428 {
		t.Errorf("payload closeReason = %v, want 428", deliveries[0].payload["closeReason"])
	}
}

func TestLoggedOutCloseRemovesCredentials(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	if err := h.creds.Save(credentialsFixture()); err != nil {
		t.Fatalf("seeding credentials: %v", err)
	}

	h.emit(whatsapp.ConnectionUpdate{State: whatsapp.StateClose, CloseReason: 401, LoggedOut: true})

	if _, found, err := h.creds.Load(); err != nil {
		t.Fatalf("Load after logout: %v", err)
	} else if found {
		t.Error("credential file survived a logged-out close")
	}
	if h.client.user != nil {
		t.Error("client user still set after logged-out close")
	}
	if err := h.ins.Connect(context.Background()); !errors.Is(err, whatsapp.ErrClientNotValid) {
		t.Errorf("Connect after logged-out close = %v, want ErrClientNotValid", err)
	}
}

func TestCredsUpdatePersisted(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.CredsUpdate{Creds: credentialsFixture()})

	creds, found, err := h.creds.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !found {
		t.Fatal("credentials not written after CredsUpdate")
	}
	if creds.DeviceJID != "628111:2@s.whatsapp.net" {
		t.Errorf("DeviceJID = %q, want %q", creds.DeviceJID, "628111:2@s.whatsapp.net")
	}
}

func TestChatCacheLifecycle(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.ChatsSet{Chats: []whatsapp.Chat{
		{ID: "628123@s.whatsapp.net", Name: "Alice"},
		{ID: "12345-678@g.us", Name: "Team"},
	}})
	h.emit(whatsapp.ChatsUpsert{Chats: []whatsapp.Chat{
		{ID: "628123@s.whatsapp.net", Name: "Alice Renamed"},
		{ID: "628999@s.whatsapp.net", Name: "Bob"},
	}})

	chats := h.ins.Chats()
	if len(chats) != 3 {
		t.Fatalf("Chats() = %d entries, want 3 (upsert must not duplicate)", len(chats))
	}
	if chats[0].Name != "Alice Renamed" {
		t.Errorf("chat name = %q, want %q", chats[0].Name, "Alice Renamed")
	}

	name := "Team Updated"
	unread := 4
	h.emit(whatsapp.ChatsUpdate{Patches: []whatsapp.ChatPatch{
		{ID: "12345-678@g.us", Name: &name, UnreadCount: &unread},
		{ID: "unknown@g.us", Name: &name},
	}})

	chats = h.ins.Chats()
	if chats[1].Name != "Team Updated" || chats[1].UnreadCount != 4 {
		t.Errorf("patched chat = %+v, want name %q unread 4", chats[1], "Team Updated")
	}
	if len(chats) != 3 {
		t.Errorf("patch for an unknown chat created an entry, Chats() = %d", len(chats))
	}

	h.emit(whatsapp.ChatsDelete{IDs: []string{"628123@s.whatsapp.net"}})
	if chats = h.ins.Chats(); len(chats) != 2 {
		t.Errorf("Chats() after delete = %d entries, want 2", len(chats))
	}
}

func TestUpsertContactsKeepsKnownFields(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.ContactsUpsert{Contacts: []whatsapp.Contact{
		{ID: "628123@s.whatsapp.net", Name: "Alice", Notify: "alice"},
	}})
	h.emit(whatsapp.ContactsUpsert{Contacts: []whatsapp.Contact{
		{ID: "628123@s.whatsapp.net", Notify: "alice-new"},
	}})

	contacts := h.ins.Contacts()
	if len(contacts) != 1 {
		t.Fatalf("Contacts() = %d entries, want 1", len(contacts))
	}
	if contacts[0].Name != "Alice" {
		t.Errorf("contact name = %q, want the earlier %q kept", contacts[0].Name, "Alice")
	}
	if contacts[0].Notify != "alice-new" {
		t.Errorf("contact notify = %q, want %q", contacts[0].Notify, "alice-new")
	}
}

func TestMessagesUpsertPersistsAndRelays(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.ChatsSet{Chats: []whatsapp.Chat{{ID: "628123@s.whatsapp.net", Name: "Alice"}}})
	h.emit(whatsapp.MessagesUpsert{
		Notify: true,
		Messages: []whatsapp.Message{
			inboundMessage("628123@s.whatsapp.net", "A1", "conversation"),
			inboundMessage("status@broadcast", "S1", "conversation"),
			outboundMessage("628123@s.whatsapp.net", "A2"),
			inboundMessage("628123@s.whatsapp.net", "A3", "protocolMessage"),
		},
	})

	// status@broadcast is dropped entirely, everything else is persisted.
	if len(h.store.records) != 3 {
		t.Fatalf("persisted records = %d, want 3", len(h.store.records))
	}
	for _, record := range h.store.records {
		if record.Reference != "628111@s.whatsapp.net" {
			t.Errorf("record reference = %q, want the paired user ID", record.Reference)
		}
		if record.Instance != "test-instance" {
			t.Errorf("record instance = %q, want %q", record.Instance, "test-instance")
		}
	}

	// Only the plain inbound message reaches the webhook.
	deliveries := h.relay.byType("conversation")
	if len(deliveries) != 1 {
		t.Fatalf("message deliveries = %d, want 1", len(deliveries))
	}
	key, ok := deliveries[0].payload["key"].(whatsapp.MessageKey)
	if !ok || key.ID != "A1" {
		t.Errorf("delivered message key = %v, want ID %q", deliveries[0].payload["key"], "A1")
	}
	if deliveries[0].payload["jid"] != "628123@s.whatsapp.net" {
		t.Errorf("delivered jid = %v, want the chat JID", deliveries[0].payload["jid"])
	}

	// The cached chat accumulates its messages.
	chats := h.ins.Chats()
	if len(chats) != 1 || len(chats[0].Messages) != 3 {
		t.Errorf("cached chat messages = %d, want 3", len(chats[0].Messages))
	}
}

func TestHistoryBackfillNeverRelayed(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.MessagesUpsert{
		Notify:   false,
		Messages: []whatsapp.Message{inboundMessage("628123@s.whatsapp.net", "H1", "conversation")},
	})

	if len(h.store.records) != 1 {
		t.Errorf("persisted records = %d, want 1", len(h.store.records))
	}
	if got := h.relay.byType("conversation"); len(got) != 0 {
		t.Errorf("message deliveries = %d, want 0 for backfill", len(got))
	}
}

func TestUpdateWebhookData(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{URL: "https://old.example.com"})

	h.ins.UpdateWebhookData(whatsapp.WebhookConfig{URL: "https://new.example.com", SendMessage: true})

	cfg := h.ins.WebhookData()
	if cfg.URL != "https://new.example.com" || !cfg.SendMessage {
		t.Errorf("WebhookData() = %+v, want the swapped config", cfg)
	}
}

func TestFindMessagesEmptyResult(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	if _, err := h.ins.FindMessages(context.Background(), ""); !errors.Is(err, whatsapp.ErrNoRecords) {
		t.Errorf("FindMessages on empty store = %v, want ErrNoRecords", err)
	}
}

func TestFindMessagesFiltersByNumber(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	h.emit(whatsapp.MessagesUpsert{Messages: []whatsapp.Message{
		inboundMessage("628123@s.whatsapp.net", "A1", "conversation"),
		inboundMessage("628999@s.whatsapp.net", "B1", "conversation"),
	}})

	records, err := h.ins.FindMessages(context.Background(), "628123")
	if err != nil {
		t.Fatalf("FindMessages: %v", err)
	}
	if len(records) != 1 || records[0].MessageID != "A1" {
		t.Errorf("FindMessages filtered = %+v, want only A1", records)
	}

	records, err = h.ins.FindMessages(context.Background(), "")
	if err != nil {
		t.Fatalf("FindMessages all: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("FindMessages all = %d records, want 2", len(records))
	}
}

func TestLogoutRemovesCredentials(t *testing.T) {
	h := newHarness(t, whatsapp.WebhookConfig{})

	if err := h.creds.Save(credentialsFixture()); err != nil {
		t.Fatalf("seeding credentials: %v", err)
	}

	if err := h.ins.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if !h.client.loggedOut {
		t.Error("client.Logout was not called")
	}
	if _, found, _ := h.creds.Load(); found {
		t.Error("credential file survived Logout")
	}
	if got := h.ins.ConnectionState(); got != whatsapp.StateClose {
		t.Errorf("ConnectionState() after Logout = %q, want %q", got, whatsapp.StateClose)
	}
}

func inboundMessage(jid string, id string, msgType string) whatsapp.Message {
	return whatsapp.Message{
		Key:       whatsapp.MessageKey{RemoteJID: jid, ID: id},
		PushName:  "Alice",
		Type:      msgType,
		Timestamp: 1700000000,
		Content:   json.RawMessage(`{"conversation":"hello"}`),
	}
}

func outboundMessage(jid string, id string) whatsapp.Message {
	return whatsapp.Message{
		Key:     whatsapp.MessageKey{RemoteJID: jid, FromMe: true, ID: id},
		Type:    "conversation",
		Content: json.RawMessage(`{"conversation":"sent"}`),
	}
}
