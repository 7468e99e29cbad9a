package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// MinTokenLength is the shortest token HashToken accepts.
const MinTokenLength = 12

var (
	ErrTokenTooShort = errors.New("token must be at least 12 characters")
	ErrTokenTooLong  = errors.New("token exceeds maximum length of 72 bytes")
)

// HashToken returns a bcrypt hash of token. The hash can be configured as
// API_TOKEN in place of the token itself.
func HashToken(token string, cost int) (string, error) {
	if len(token) < MinTokenLength {
		return "", ErrTokenTooShort
	}
	// bcrypt has a 72-byte limit
	if len(token) > 72 {
		return "", ErrTokenTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(token), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// IsTokenHash reports whether configured is a bcrypt hash.
func IsTokenHash(configured string) bool {
	for _, prefix := range []string{"$2a$", "$2b$", "$2y$"} {
		if strings.HasPrefix(configured, prefix) {
			return true
		}
	}
	return false
}

// CheckToken compares a presented token with the configured one, which is
// either the token itself or its bcrypt hash.
func CheckToken(presented, configured string) bool {
	if configured == "" {
		return false
	}
	if IsTokenHash(configured) {
		return bcrypt.CompareHashAndPassword([]byte(configured), []byte(presented)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// GenerateToken creates a random token and its bcrypt hash.
func GenerateToken(cost int) (token, hash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", err
	}
	token = hex.EncodeToString(raw)
	hash, err = HashToken(token, cost)
	if err != nil {
		return "", "", err
	}
	return token, hash, nil
}
