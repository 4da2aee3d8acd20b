package auth

import (
	"encoding/hex"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
)

// NewShareToken returns a random share token and the digest stored for it.
// Only the digest is persisted so a leaked database dump does not expose
// working subscription URLs.
func NewShareToken() (token, digest string) {
	token = uuid.NewString()
	return token, HashShareToken(token)
}

// HashShareToken derives the storage digest for a share token.
func HashShareToken(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
