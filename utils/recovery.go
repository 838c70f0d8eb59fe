package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"bookflow/config"

	"github.com/golang-jwt/jwt"
)

var ErrRecoveryTokenInvalid = errors.New("recovery token invalid or expired")

func recoverySecret() []byte {
	secret := config.AppConfig.RecoveryTokenSecret
	if secret == "" {
		secret = "bookflow-dev-only"
	}
	return []byte(secret)
}

// GenerateRecoveryToken creates a signed token bound to one booking. The
// caller stores only the hash; presenting the raw token later resumes the
// flow after a provider redirect.
func GenerateRecoveryToken(bookingID string, duration time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": bookingID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(duration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(recoverySecret())
}

// HashToken computes a SHA-256 hash of the token string.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// ValidateRecoveryToken parses and validates a token and returns the
// booking id it is bound to.
func ValidateRecoveryToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return recoverySecret(), nil
	})
	if err != nil || !token.Valid {
		return "", ErrRecoveryTokenInvalid
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrRecoveryTokenInvalid
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", ErrRecoveryTokenInvalid
	}
	return sub, nil
}
