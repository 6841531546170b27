package log

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

var logger = logrus.New()

func init() {
	logger.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.RFC3339,
		FullTimestamp:   true,
		DisableColors:   false,
		ForceColors:     true,
	}
}

func Print(c *fiber.Ctx) *logrus.Entry {
	if c == nil {
		return logger.WithFields(logrus.Fields{})
	}

	remoteIP := c.IP()
	if v := c.Locals("remote_ip"); v != nil {
		if ip, ok := v.(string); ok && ip != "" {
			remoteIP = ip
		}
	}
	return logger.WithFields(logrus.Fields{
		"remote_ip": remoteIP,
		"method":    c.Method(),
		"uri":       c.OriginalURL(),
	})
}

func Infoln(args ...any) {
	logger.Infoln(args...)
}

func Warnln(args ...any) {
	logger.Warnln(args...)
}

func Errorln(args ...any) {
	logger.Errorln(args...)
}

// Instance returns an entry scoped to one instance key, for event handlers
// and relays running outside any HTTP request.
func Instance(key string) *logrus.Entry {
	return logger.WithField("instance", key)
}

// InstanceOp returns an entry for one instance operation handled over HTTP.
func InstanceOp(c *fiber.Ctx, key string, op string) *logrus.Entry {
	return Print(c).WithField("instance", key).WithField("op", op)
}
