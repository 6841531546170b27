package auth

import (
	"github.com/wazend/go-whatsapp-instance-api/pkg/env"
)

// AdminSecretKey guards the instance lifecycle endpoints (/admin/*).
var AdminSecretKey string

func init() {
	AdminSecretKey, _ = env.GetEnvString("ADMIN_SECRET_KEY")
}
