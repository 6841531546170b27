package auth

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/wazend/go-whatsapp-instance-api/pkg/router"
)

// AdminAuth validates the X-Admin-Secret header for lifecycle endpoints.
func AdminAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		adminSecret := c.Get("X-Admin-Secret")
		if adminSecret == "" {
			return router.ResponseUnauthorized(c, "Missing X-Admin-Secret header")
		}

		if AdminSecretKey == "" {
			return router.ResponseInternalError(c, "Admin secret key not configured")
		}

		if subtle.ConstantTimeCompare([]byte(adminSecret), []byte(AdminSecretKey)) != 1 {
			return router.ResponseUnauthorized(c, "Invalid admin secret")
		}
		return c.Next()
	}
}

// InstanceAuth validates the bearer token for per-instance endpoints and
// checks that the token is scoped to the instance named in the route. The
// admin secret is accepted as a bypass so operators can drive any instance.
func InstanceAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if adminSecret := c.Get("X-Admin-Secret"); adminSecret != "" && AdminSecretKey != "" &&
			subtle.ConstantTimeCompare([]byte(adminSecret), []byte(AdminSecretKey)) == 1 {
			return c.Next()
		}

		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return router.ResponseUnauthorized(c, "Missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return router.ResponseUnauthorized(c, "Invalid Authorization header format. Use: Bearer <token>")
		}

		claims, err := ValidateInstanceToken(parts[1])
		if err != nil {
			return router.ResponseUnauthorized(c, "Invalid or expired token")
		}

		key := c.Params("key")
		if key == "" {
			key = c.Query("key")
		}
		if key != "" && claims.InstanceKey != key {
			return router.ResponseUnauthorized(c, "Token is not valid for this instance")
		}

		c.Locals("instance_key", claims.InstanceKey)
		return c.Next()
	}
}
