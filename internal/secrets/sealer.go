package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrInvalidKey      = errors.New("encryption key must be 32 bytes or 64 hex characters")
	ErrMalformedSecret = errors.New("sealed secret is malformed")
)

// Sealer encrypts provider secrets with XChaCha20-Poly1305. Output is
// base64(nonce || ciphertext).
type Sealer struct {
	key []byte
}

// NewSealer accepts either the raw 32-byte key or its hex encoding.
func NewSealer(key string) (*Sealer, error) {
	raw := []byte(key)
	if len(key) == 2*chacha20poly1305.KeySize {
		decoded, err := hex.DecodeString(key)
		if err != nil {
			return nil, ErrInvalidKey
		}
		raw = decoded
	}
	if len(raw) != chacha20poly1305.KeySize {
		return nil, ErrInvalidKey
	}
	return &Sealer{key: raw}, nil
}

// Seal encrypts plaintext. aad is bound to the ciphertext and must be presented
// again to Open.
func (s *Sealer) Seal(plaintext string, aad []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(plaintext)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := aead.Seal(nonce, nonce, []byte(plaintext), aad)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (s *Sealer) Open(sealed string, aad []byte) (string, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return "", err
	}

	data, err := base64.StdEncoding.DecodeString(sealed)
	if err != nil {
		return "", ErrMalformedSecret
	}
	if len(data) < aead.NonceSize()+aead.Overhead() {
		return "", ErrMalformedSecret
	}

	nonce, ciphertext := data[:aead.NonceSize()], data[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return "", fmt.Errorf("failed to open secret: %w", err)
	}
	return string(plaintext), nil
}
