package whatsapp

import (
	"context"

	"github.com/google/uuid"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
)

// Manager wires instances to their backing services: the client factory,
// the credential directory, the durable message store, the webhook relay
// and the broker publisher.
type Manager struct {
	registry *Registry
	dial     ClientFactory
	store    MessageStore
	relay    WebhookRelay
	caster   Broadcaster
	credDir  string
}

func NewManager(dial ClientFactory, store MessageStore, relay WebhookRelay, caster Broadcaster, credDir string) *Manager {
	return &Manager{
		registry: NewRegistry(),
		dial:     dial,
		store:    store,
		relay:    relay,
		caster:   caster,
		credDir:  credDir,
	}
}

// CreateInstance registers a new instance and starts its connection. An
// empty key gets a generated one. Re-initializing an existing key tears the
// old session down first, matching init-replaces semantics.
func (m *Manager) CreateInstance(ctx context.Context, key string, cfg WebhookConfig) (*Instance, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if key == "" {
		key = uuid.NewString()
	}

	if old, ok := m.registry.Get(key); ok {
		old.End(nil)
		m.registry.Delete(key)
	}

	creds := credstore.NewFileStore(m.credDir, key)
	ins := NewInstance(key, m.dial, creds, m.store, m.relay, m.caster, cfg)
	m.registry.Put(ins)

	if err := ins.Connect(ctx); err != nil {
		m.registry.Delete(key)
		return nil, err
	}
	return ins, nil
}

func (m *Manager) Get(key string) (*Instance, error) {
	ins, ok := m.registry.Get(key)
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return ins, nil
}

func (m *Manager) Keys() []string {
	return m.registry.Keys()
}

func (m *Manager) All() []*Instance {
	return m.registry.All()
}

// DeleteInstance logs the account out, removes its credentials and drops
// the instance from the registry. Logout failures are logged and do not
// block the removal.
func (m *Manager) DeleteInstance(ctx context.Context, key string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	ins, err := m.Get(key)
	if err != nil {
		return err
	}

	if err := ins.Logout(ctx); err != nil {
		log.Instance(key).Warnln("Error During Logout:", err.Error())
	}
	ins.End(nil)
	m.registry.Delete(key)
	return nil
}

// CredentialKeys lists the instance keys with a credential file on disk.
func (m *Manager) CredentialKeys() ([]string, error) {
	return credstore.ListKeys(m.credDir)
}

// Has reports whether an instance is registered for the key.
func (m *Manager) Has(key string) bool {
	_, ok := m.registry.Get(key)
	return ok
}

// Restore re-creates an instance for every credential file on disk. Used at
// startup so paired sessions survive process restarts.
func (m *Manager) Restore(ctx context.Context) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	keys, err := credstore.ListKeys(m.credDir)
	if err != nil {
		return nil, err
	}

	var restored []string
	for _, key := range keys {
		if _, ok := m.registry.Get(key); ok {
			continue
		}
		if _, err := m.CreateInstance(ctx, key, WebhookConfig{}); err != nil {
			log.Instance(key).Errorln("Error Restoring Instance:", err.Error())
			continue
		}
		restored = append(restored, key)
	}
	return restored, nil
}
