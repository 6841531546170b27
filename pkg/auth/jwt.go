package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wazend/go-whatsapp-instance-api/pkg/env"
)

// JWTSecretKey signs instance tokens. Required, startup panics without it.
var JWTSecretKey string

func init() {
	JWTSecretKey = env.MustGetEnvString("JWT_SECRET_KEY")
}

// InstanceTokenClaims binds a token to one instance key.
type InstanceTokenClaims struct {
	InstanceKey string `json:"instance_key"`
	jwt.RegisteredClaims
}

// GenerateInstanceToken creates a long-lived JWT scoped to an instance.
func GenerateInstanceToken(instanceKey string) (string, error) {
	if JWTSecretKey == "" {
		return "", errors.New("JWT_SECRET_KEY not configured")
	}

	claims := InstanceTokenClaims{
		InstanceKey: instanceKey,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   instanceKey,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(JWTSecretKey))
}

// ValidateInstanceToken validates an instance JWT and returns its claims.
func ValidateInstanceToken(tokenString string) (*InstanceTokenClaims, error) {
	if JWTSecretKey == "" {
		return nil, errors.New("JWT_SECRET_KEY not configured")
	}

	token, err := jwt.ParseWithClaims(tokenString, &InstanceTokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(JWTSecretKey), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*InstanceTokenClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token claims")
}
