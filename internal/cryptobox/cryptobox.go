// Package cryptobox provides the authenticated at-rest cipher for the
// storage layer's `encrypted_*` columns, built on XChaCha20-Poly1305 for
// its 192-bit random nonce space.
package cryptobox

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/stacklok/nc-bridge/internal/bridgeerrors"
	"github.com/stacklok/nc-bridge/internal/logging"
)

// Box seals and opens plaintext with a single configured key.
type Box struct {
	aead interface {
		Seal(dst, nonce, plaintext, additionalData []byte) []byte
		Open(dst, nonce, ciphertext, additionalData []byte) ([]byte, error)
		NonceSize() int
	}
}

// NewBox constructs a Box from a base64-encoded 32-byte key, as configured
// via token_encryption_key. Returns a ConfigError if the key is missing
// or the wrong length.
func NewBox(base64Key string) (*Box, error) {
	if base64Key == "" {
		return nil, bridgeerrors.NewConfigError("token_encryption_key is not configured", nil)
	}
	key, err := base64.StdEncoding.DecodeString(base64Key)
	if err != nil {
		return nil, bridgeerrors.NewConfigError("token_encryption_key is not valid base64", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, bridgeerrors.NewConfigError("token_encryption_key must decode to 32 bytes", err)
	}
	return &Box{aead: aead}, nil
}

// Seal encrypts plaintext, returning nonce||ciphertext.
func (b *Box) Seal(plaintext []byte) ([]byte, error) {
	if b == nil {
		return nil, bridgeerrors.NewConfigError("token_encryption_key is not configured", nil)
	}
	nonce := make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("generating nonce: %w", err)
	}
	return b.aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a nonce||ciphertext blob produced by Seal. A wrong key
// or corrupt ciphertext is NOT an error from the caller's point of view:
// it is logged and reported as "unreadable" via the second return value
// being false.
func (b *Box) Open(blob []byte) (plaintext []byte, ok bool) {
	if b == nil {
		return nil, false
	}
	nonceSize := b.aead.NonceSize()
	if len(blob) < nonceSize {
		logging.Warn("ciphertext shorter than nonce size, treating as unreadable")
		return nil, false
	}
	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		logging.Warnw("failed to decrypt stored value, returning null per encryption contract", "error", err)
		return nil, false
	}
	return plaintext, true
}

// SealString/OpenString are convenience wrappers for the common case of
// encrypting a UTF-8 token string.
func (b *Box) SealString(plaintext string) ([]byte, error) {
	return b.Seal([]byte(plaintext))
}

func (b *Box) OpenString(blob []byte) (string, bool) {
	pt, ok := b.Open(blob)
	if !ok {
		return "", false
	}
	return string(pt), true
}
