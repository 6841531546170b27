package whatsapp_test

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

type managedClients struct {
	clients map[string]*fakeClient
}

func newManager(t *testing.T) (*whatsapp.Manager, *managedClients, string) {
	t.Helper()

	credDir := t.TempDir()
	mc := &managedClients{clients: map[string]*fakeClient{}}

	dial := func(ctx context.Context, key string, creds *credstore.Credentials, handler func(whatsapp.Event)) (whatsapp.ProtocolClient, error) {
		client := newFakeClient()
		mc.clients[key] = client
		return client, nil
	}

	mgr := whatsapp.NewManager(dial, &fakeStore{}, &fakeRelay{}, &fakeCaster{}, credDir)
	return mgr, mc, credDir
}

func TestCreateInstanceGeneratesKey(t *testing.T) {
	mgr, _, _ := newManager(t)

	ins, err := mgr.CreateInstance(context.Background(), "", whatsapp.WebhookConfig{})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if ins.Key == "" {
		t.Error("CreateInstance left the key empty")
	}
	if !mgr.Has(ins.Key) {
		t.Error("created instance not registered")
	}
}

func TestCreateInstanceReplacesExisting(t *testing.T) {
	mgr, mc, _ := newManager(t)

	first, err := mgr.CreateInstance(context.Background(), "acct", whatsapp.WebhookConfig{})
	if err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	firstClient := mc.clients["acct"]

	second, err := mgr.CreateInstance(context.Background(), "acct", whatsapp.WebhookConfig{})
	if err != nil {
		t.Fatalf("re-init CreateInstance: %v", err)
	}
	if first == second {
		t.Error("re-init returned the old instance")
	}
	if len(firstClient.endReasons) != 1 {
		t.Errorf("old client End called %d times, want 1", len(firstClient.endReasons))
	}

	got, err := mgr.Get("acct")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != second {
		t.Error("registry still holds the old instance")
	}
}

func TestCreateInstanceRollsBackOnDialError(t *testing.T) {
	credDir := t.TempDir()
	dialErr := errors.New("datastore offline")
	dial := func(ctx context.Context, key string, creds *credstore.Credentials, handler func(whatsapp.Event)) (whatsapp.ProtocolClient, error) {
		return nil, dialErr
	}
	mgr := whatsapp.NewManager(dial, &fakeStore{}, &fakeRelay{}, &fakeCaster{}, credDir)

	if _, err := mgr.CreateInstance(context.Background(), "acct", whatsapp.WebhookConfig{}); !errors.Is(err, dialErr) {
		t.Fatalf("CreateInstance = %v, want the dial error", err)
	}
	if mgr.Has("acct") {
		t.Error("failed instance left in the registry")
	}
}

func TestGetUnknownInstance(t *testing.T) {
	mgr, _, _ := newManager(t)

	if _, err := mgr.Get("missing"); !errors.Is(err, whatsapp.ErrInstanceNotFound) {
		t.Errorf("Get = %v, want ErrInstanceNotFound", err)
	}
}

func TestDeleteInstanceRemovesCredentials(t *testing.T) {
	mgr, mc, credDir := newManager(t)

	if _, err := mgr.CreateInstance(context.Background(), "acct", whatsapp.WebhookConfig{}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}
	if err := credstore.NewFileStore(credDir, "acct").Save(credentialsFixture()); err != nil {
		t.Fatalf("seeding credentials: %v", err)
	}

	if err := mgr.DeleteInstance(context.Background(), "acct"); err != nil {
		t.Fatalf("DeleteInstance: %v", err)
	}
	if mgr.Has("acct") {
		t.Error("deleted instance still registered")
	}
	if !mc.clients["acct"].loggedOut {
		t.Error("client was not logged out")
	}

	keys, err := credstore.ListKeys(credDir)
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("credential files left after delete: %v", keys)
	}
}

func TestRestoreSkipsLiveInstances(t *testing.T) {
	mgr, _, credDir := newManager(t)

	for _, key := range []string{"acct-1", "acct-2"} {
		if err := credstore.NewFileStore(credDir, key).Save(credentialsFixture()); err != nil {
			t.Fatalf("seeding credentials for %s: %v", key, err)
		}
	}
	if _, err := mgr.CreateInstance(context.Background(), "acct-1", whatsapp.WebhookConfig{}); err != nil {
		t.Fatalf("CreateInstance: %v", err)
	}

	restored, err := mgr.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if len(restored) != 1 || restored[0] != "acct-2" {
		t.Errorf("Restore = %v, want only the offline key", restored)
	}

	keys := mgr.Keys()
	sort.Strings(keys)
	if len(keys) != 2 {
		t.Errorf("Keys() = %v, want both accounts live", keys)
	}
}

func TestCredentialKeys(t *testing.T) {
	mgr, _, credDir := newManager(t)

	if err := credstore.NewFileStore(credDir, "acct-1").Save(credentialsFixture()); err != nil {
		t.Fatalf("seeding credentials: %v", err)
	}

	keys, err := mgr.CredentialKeys()
	if err != nil {
		t.Fatalf("CredentialKeys: %v", err)
	}
	if len(keys) != 1 || keys[0] != "acct-1" {
		t.Errorf("CredentialKeys() = %v, want [acct-1]", keys)
	}
}
