// Package token issues the opaque refresh and password reset tokens. The
// plain value goes to the volunteer once; only its digest is persisted.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// Opaque is a freshly issued token.
type Opaque struct {
	Value  string // base64url, handed to the client
	Digest string // hex SHA-256 of Value, stored
}

// New draws size random bytes.
func New(size int) (Opaque, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return Opaque{}, err
	}
	value := base64.RawURLEncoding.EncodeToString(b)
	return Opaque{Value: value, Digest: Hash(value)}, nil
}

// Hash is the digest a presented token is looked up by.
func Hash(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
