package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// GenerateToken issues an HS256 token for the given subject, valid 24h.
func GenerateToken(subject string, secret string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(time.Hour * 24).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}
