// Package auth checks the operator API key that guards the admin routes.
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"
)

// HeaderAPIKey is the header carrying the admin key. A bearer token in the
// Authorization header is accepted as well.
const HeaderAPIKey = "X-API-Key"

var (
	ErrMissingKey = errors.New("missing API key")
	ErrInvalidKey = errors.New("invalid API key")
)

// Authenticator validates admin API keys. Only the hash of the configured
// key is kept in memory.
type Authenticator struct {
	keyHash []byte
}

// NewAuthenticator returns an authenticator for key, or nil when key is
// empty. A nil authenticator rejects every key.
func NewAuthenticator(key string) *Authenticator {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	return &Authenticator{keyHash: []byte(HashAPIKey(key))}
}

// ValidateAPIKey reports whether apiKey matches the configured key.
func (a *Authenticator) ValidateAPIKey(apiKey string) error {
	if apiKey == "" {
		return ErrMissingKey
	}
	if a == nil {
		return ErrInvalidKey
	}
	// Constant-time comparison to prevent timing attacks
	if subtle.ConstantTimeCompare([]byte(HashAPIKey(apiKey)), a.keyHash) != 1 {
		return ErrInvalidKey
	}
	return nil
}

// ExtractAPIKey returns the key from X-API-Key or from a bearer
// Authorization header.
func ExtractAPIKey(r *http.Request) (string, error) {
	if key := strings.TrimSpace(r.Header.Get(HeaderAPIKey)); key != "" {
		return key, nil
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingKey
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", errors.New("unsupported authorization scheme")
	}
	return strings.TrimSpace(parts[1]), nil
}

// HashAPIKey creates a SHA-256 hash of an API key.
func HashAPIKey(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:])
}
