package whatsapp_test

import (
	"context"
	"errors"
	"sync"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// fakeClient records calls and lets tests drive the event handler that the
// instance registered through the dial function.
type fakeClient struct {
	mu sync.Mutex

	user         *whatsapp.UserInfo
	registered   map[string]bool
	connectCalls int
	endReasons   []error
	loggedOut    bool

	sentTexts     []string
	sendErr       error
	downloadData  []byte
	downloadMime  string
	downloadErr   error
	metadataCalls int
	metadata      whatsapp.GroupMetadata
	metadataErr   error
	leftGroups    []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		user:       &whatsapp.UserInfo{ID: "628111@s.whatsapp.net", Name: "tester"},
		registered: map[string]bool{},
	}
}

func (f *fakeClient) Connect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connectCalls++
	return nil
}

func (f *fakeClient) Disconnect() {}

func (f *fakeClient) End(reason error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.endReasons = append(f.endReasons, reason)
}

func (f *fakeClient) Logout(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loggedOut = true
	return nil
}

func (f *fakeClient) User() *whatsapp.UserInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.user
}

func (f *fakeClient) ClearUser() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.user = nil
}

func (f *fakeClient) IsOnWhatsApp(ctx context.Context, number string) (whatsapp.Registration, error) {
	if f.registered[number] {
		return whatsapp.Registration{Exists: true, JID: number + "@s.whatsapp.net"}, nil
	}
	return whatsapp.Registration{}, nil
}

func (f *fakeClient) SendText(ctx context.Context, jid string, text string) (whatsapp.SendResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return whatsapp.SendResponse{}, f.sendErr
	}
	f.sentTexts = append(f.sentTexts, jid)
	return whatsapp.SendResponse{MessageID: "MSG1", Status: "sent"}, nil
}

func (f *fakeClient) SendMedia(ctx context.Context, jid string, media whatsapp.Media) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendMediaURL(ctx context.Context, jid string, media whatsapp.MediaURL) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendButtons(ctx context.Context, jid string, msg whatsapp.ButtonMessage) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendButtonsImage(ctx context.Context, jid string, msg whatsapp.ButtonImageMessage) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendLocation(ctx context.Context, jid string, loc whatsapp.Location) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendContact(ctx context.Context, jid string, card whatsapp.VCard) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendList(ctx context.Context, jid string, msg whatsapp.ListMessage) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: "MSG1"}, nil
}

func (f *fakeClient) SendReaction(ctx context.Context, jid string, messageID string, fromMe bool, emoji string) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: messageID}, nil
}

func (f *fakeClient) RevokeMessage(ctx context.Context, jid string, messageID string) (whatsapp.SendResponse, error) {
	return whatsapp.SendResponse{MessageID: messageID, Status: "revoked"}, nil
}

func (f *fakeClient) Download(ctx context.Context, msg whatsapp.Message) ([]byte, string, error) {
	if f.downloadErr != nil {
		return nil, "", f.downloadErr
	}
	return f.downloadData, f.downloadMime, nil
}

func (f *fakeClient) GroupMetadata(ctx context.Context, jid string) (whatsapp.GroupMetadata, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.metadataCalls++
	if f.metadataErr != nil {
		return whatsapp.GroupMetadata{}, f.metadataErr
	}
	meta := f.metadata
	if meta.JID == "" {
		meta.JID = jid
	}
	return meta, nil
}

func (f *fakeClient) CreateGroup(ctx context.Context, subject string, participants []string) (whatsapp.GroupMetadata, error) {
	return whatsapp.GroupMetadata{JID: "12345-678@g.us", Subject: subject}, nil
}

func (f *fakeClient) UpdateGroupParticipants(ctx context.Context, jid string, participants []string, action string) error {
	return nil
}

func (f *fakeClient) UpdateGroupSetting(ctx context.Context, jid string, setting string) error {
	return nil
}

func (f *fakeClient) GroupInviteCode(ctx context.Context, jid string) (string, error) {
	return "INVITE", nil
}

func (f *fakeClient) LeaveGroup(ctx context.Context, jid string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leftGroups = append(f.leftGroups, jid)
	return nil
}

type fakeStore struct {
	mu      sync.Mutex
	records []whatsapp.MessageRecord
	saveErr error
}

func (f *fakeStore) Save(ctx context.Context, record whatsapp.MessageRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeStore) Find(ctx context.Context, instance string, reference string, jid string) ([]whatsapp.MessageRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []whatsapp.MessageRecord
	for _, record := range f.records {
		if record.Instance != instance || record.Reference != reference {
			continue
		}
		if jid != "" && record.JID != jid {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

type delivery struct {
	cfg     whatsapp.WebhookConfig
	payload map[string]any
}

type fakeRelay struct {
	mu         sync.Mutex
	deliveries []delivery
}

func (f *fakeRelay) Send(cfg whatsapp.WebhookConfig, payload map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, delivery{cfg: cfg, payload: payload})
}

func (f *fakeRelay) byType(messageType string) []delivery {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []delivery
	for _, d := range f.deliveries {
		if d.payload["messageType"] == messageType {
			out = append(out, d)
		}
	}
	return out
}

type broadcastEvent struct {
	channel string
	event   string
	payload any
}

type fakeCaster struct {
	mu     sync.Mutex
	events []broadcastEvent
}

func (f *fakeCaster) Publish(ctx context.Context, channel string, event string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, broadcastEvent{channel: channel, event: event, payload: payload})
}

func (f *fakeCaster) byEvent(event string) []broadcastEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []broadcastEvent
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

// harness bundles one instance with its fakes and the captured event
// handler so tests can feed protocol events directly.
type harness struct {
	ins     *whatsapp.Instance
	client  *fakeClient
	store   *fakeStore
	relay   *fakeRelay
	caster  *fakeCaster
	creds   *credstore.FileStore
	emit    func(whatsapp.Event)
	credDir string
}

func newHarness(t testingT, cfg whatsapp.WebhookConfig) *harness {
	t.Helper()

	client := newFakeClient()
	store := &fakeStore{}
	relay := &fakeRelay{}
	caster := &fakeCaster{}

	credDir := t.TempDir()
	creds := credstore.NewFileStore(credDir, "test-instance")

	h := &harness{
		client:  client,
		store:   store,
		relay:   relay,
		caster:  caster,
		creds:   creds,
		credDir: credDir,
	}

	dial := func(ctx context.Context, key string, stored *credstore.Credentials, handler func(whatsapp.Event)) (whatsapp.ProtocolClient, error) {
		h.emit = handler
		return client, nil
	}

	h.ins = whatsapp.NewInstance("test-instance", dial, creds, store, relay, caster, cfg)
	if err := h.ins.Connect(context.Background()); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}
	return h
}

// testingT is the subset of *testing.T the harness needs.
type testingT interface {
	Helper()
	TempDir() string
	Fatalf(format string, args ...any)
}

var errSendRefused = errors.New("send refused")

func credentialsFixture() credstore.Credentials {
	return credstore.Credentials{
		DeviceJID: "628111:2@s.whatsapp.net",
		Platform:  "smba",
		PushName:  "tester",
	}
}
