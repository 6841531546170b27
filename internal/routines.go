package internal

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wazend/go-whatsapp-instance-api/pkg/log"
	pkgWhatsApp "github.com/wazend/go-whatsapp-instance-api/pkg/whatsapp"
)

// Routines registers the periodic health check that nudges closed sessions
// back into a connected state.
func Routines(cron *cron.Cron) {
	log.Print(nil).Info("Running Routine Tasks")

	if !isHealthCheckEnabled() {
		log.Print(nil).Info("Health check cron disabled; relying on connection event handlers")
		cron.Start()
		return
	}

	_, err := cron.AddFunc("0 */5 * * * *", func() {
		manager := pkgWhatsApp.Default()
		if manager == nil {
			return
		}

		for _, ins := range manager.All() {
			state := ins.ConnectionState()
			if state == pkgWhatsApp.StateOpen {
				log.Instance(ins.Key).Info("Instance healthy")
				continue
			}

			log.Instance(ins.Key).Warn("Instance unhealthy, state=" + string(state))
			if state == pkgWhatsApp.StateClose {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				if err := ins.Connect(ctx); err != nil {
					log.Instance(ins.Key).Warn("Health check reconnect failed: " + err.Error())
				}
				cancel()
			}
		}
	})
	if err != nil {
		log.Print(nil).WithField("error", err.Error()).Error("Failed to add health check cron job")
	}

	cron.Start()
}

func isHealthCheckEnabled() bool {
	envValue, ok := os.LookupEnv("WHATSAPP_ENABLE_HEALTH_CHECK_CRON")
	if !ok {
		return true
	}
	enabled, err := strconv.ParseBool(envValue)
	if err != nil {
		log.Print(nil).Warn("Invalid WHATSAPP_ENABLE_HEALTH_CHECK_CRON value; defaulting to enabled")
		return true
	}
	return enabled
}
