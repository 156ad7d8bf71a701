package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"github.com/google/uuid"
)

// NewID mints a session identifier for the Mcp-Session-Id header. A UUIDv4
// alone is 122 bits of entropy; spec.md §4.7 requires the id be
// non-guessable and URL-safe, so we concatenate a UUID with a 16-byte
// crypto/rand salt, comfortably clearing the 128-bit floor with headroom.
func NewID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}

	return u.String() + "." + base64.RawURLEncoding.EncodeToString(salt), nil
}
