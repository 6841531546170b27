package internal

import (
	"context"
	mathrand "math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"go.mau.fi/whatsmeow/store/sqlstore"

	"github.com/wazend/go-whatsapp-instance-api/pkg/broadcast"
	"github.com/wazend/go-whatsapp-instance-api/pkg/env"
	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	"github.com/wazend/go-whatsapp-instance-api/pkg/msgstore"
	"github.com/wazend/go-whatsapp-instance-api/pkg/webhook"
	pkgWhatsApp "github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
	"github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp/wameow"
)

func jitterSleep(max time.Duration) {
	if max <= 0 {
		return
	}
	ms := mathrand.Int64N(max.Milliseconds() + 1)
	time.Sleep(time.Duration(ms) * time.Millisecond)
}

// Startup wires the datastore, the message log, the webhook relay and the
// broker publisher into the instance manager, then restores the instances
// that have credentials on disk.
func Startup() {
	log.Print(nil).Info("Running Startup Tasks")

	ctx := context.Background()

	dsn := env.MustGetEnvString("WHATSAPP_DATASTORE_URI")

	container, err := sqlstore.New(ctx, "pgx", dsn, nil)
	if err != nil {
		log.Print(nil).Fatal("Failed to initialize WhatsApp client datastore: " + err.Error())
	}
	if err := container.Upgrade(ctx); err != nil {
		log.Print(nil).Fatal("Failed to upgrade datastore schema: " + err.Error())
	}

	store, err := msgstore.New(dsn)
	if err != nil {
		log.Print(nil).Fatal("Failed to initialize message store: " + err.Error())
	}
	if err := store.Migrate(ctx); err != nil {
		log.Print(nil).Fatal("Failed to migrate message store: " + err.Error())
	}

	relay := webhook.NewRelay(
		env.GetEnvStringOrDefault("WEBHOOK_URL", ""),
		env.GetEnvStringOrDefault("WEBHOOK_SECRET", ""),
		env.GetEnvBoolOrDefault("WHATSAPP_DISABLE_WEBHOOK", false),
	)

	var caster pkgWhatsApp.Broadcaster = broadcast.Noop{}
	if amqpURL := env.GetEnvStringOrDefault("AMQP_URL", ""); amqpURL != "" {
		exchange := env.GetEnvStringOrDefault("AMQP_EXCHANGE", "whatsapp.events")
		rmq, err := broadcast.New(amqpURL, exchange)
		if err != nil {
			log.Print(nil).Fatal("Failed to connect to message broker: " + err.Error())
		}
		caster = rmq
		log.Print(nil).Info("Broadcast publisher connected, exchange=" + exchange)
	} else {
		log.Print(nil).Info("AMQP_URL not set, broadcast publishing disabled")
	}

	factory := wameow.NewFactory(container)
	credDir := env.GetEnvStringOrDefault("WHATSAPP_CREDENTIALS_DIR", "./credentials")
	manager := pkgWhatsApp.NewManager(factory.Dial, store, relay, caster, credDir)
	pkgWhatsApp.Configure(manager)

	restoreInstances(ctx, manager)
}

// restoreInstances reconnects every instance with a credential file, with
// bounded concurrency and startup jitter so a fleet does not reconnect in
// one thundering herd.
func restoreInstances(ctx context.Context, manager *pkgWhatsApp.Manager) {
	keys, err := manager.CredentialKeys()
	if err != nil {
		log.Print(nil).Error("Failed to list stored credentials: " + err.Error())
		return
	}
	if len(keys) == 0 {
		return
	}

	maxConcurrent := env.GetEnvIntOrDefault("WHATSAPP_STARTUP_RESTORE_CONCURRENCY", 10)
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	jitterMax := env.GetEnvDurationOrDefault("WHATSAPP_STARTUP_RESTORE_JITTER_MAX", 5*time.Second)

	var restored, failed int64
	sem := make(chan struct{}, maxConcurrent)
	var wg sync.WaitGroup

	for _, key := range keys {
		if manager.Has(key) {
			continue
		}

		wg.Add(1)
		sem <- struct{}{}
		go func(key string) {
			defer wg.Done()
			defer func() { <-sem }()

			jitterSleep(jitterMax)
			log.Instance(key).Info("Restoring WhatsApp Instance")

			if _, err := manager.CreateInstance(ctx, key, pkgWhatsApp.WebhookConfig{}); err != nil {
				log.Instance(key).Error("Failed to restore instance: " + err.Error())
				atomic.AddInt64(&failed, 1)
				return
			}
			atomic.AddInt64(&restored, 1)
		}(key)
	}
	wg.Wait()

	log.Print(nil).
		WithField("restored", atomic.LoadInt64(&restored)).
		WithField("failed", atomic.LoadInt64(&failed)).
		Info("Instance restore completed")
}
