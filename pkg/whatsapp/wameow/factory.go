package wameow

import (
	"context"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"

	"github.com/wazend/go-whatsapp-instance-api/pkg/credstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// Factory dials whatsmeow-backed protocol clients. All instances share one
// sqlstore container, each gets its own device record.
type Factory struct {
	container *sqlstore.Container
}

func NewFactory(container *sqlstore.Container) *Factory {
	return &Factory{container: container}
}

// Dial builds a client for one instance. With stored credentials the
// matching device record is reloaded so the session resumes without a new
// QR pairing; otherwise a fresh device is created.
func (f *Factory) Dial(ctx context.Context, key string, creds *credstore.Credentials, handler func(whatsapp.Event)) (whatsapp.ProtocolClient, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var device *store.Device
	if creds != nil && creds.DeviceJID != "" {
		jid, err := types.ParseJID(creds.DeviceJID)
		if err != nil {
			return nil, err
		}
		device, err = f.container.GetDevice(ctx, jid)
		if err != nil {
			return nil, err
		}
	}
	if device == nil {
		device = f.container.NewDevice()
	}

	wm := whatsmeow.NewClient(device, nil)
	wm.EnableAutoReconnect = false
	wm.AutoTrustIdentity = true

	client := &Client{key: key, wm: wm, handler: handler}
	wm.AddEventHandler(client.translateEvent)
	return client, nil
}
