package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// APIKeyInfo holds the owner and permission data for a stored API key.
type APIKeyInfo struct {
	ID      string
	KeyHash string
	Name    string
	UserID  string
	Scopes  []string
}

// Repository provides lookup and registration of API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKeyInfo, error)
	Upsert(ctx context.Context, info *APIKeyInfo) error
}

// HashAPIKey returns the hex HMAC-SHA256 of key under pepper. Only hashes are
// ever stored.
func HashAPIKey(pepper []byte, key string) string {
	mac := hmac.New(sha256.New, pepper)
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}
