package mfa

import (
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// Encryptor seals and opens secrets at rest.
type Encryptor interface {
	Encrypt(plaintext []byte, scope Scope) ([]byte, error)
	Decrypt(ciphertext []byte, scope Scope) ([]byte, error)
}

// KeyProvider returns the 32-byte AES key for a scope.
type KeyProvider interface {
	Key(scope Scope) ([]byte, error)
}

// ErrMissingStaticKey indicates an empty static key.
var ErrMissingStaticKey = errors.New("mfa: missing static key")

// StaticKeyProvider returns the same key for every scope.
type StaticKeyProvider struct {
	key []byte
}

// NewStaticKeyProvider parses a key given as 64 hex characters or as
// standard base64 of 32 bytes.
func NewStaticKeyProvider(encoded string) (*StaticKeyProvider, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, ErrMissingStaticKey
	}

	key, err := hex.DecodeString(encoded)
	if err != nil {
		key, err = base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("mfa: encryption key is neither hex nor base64: %w", err)
		}
	}
	if len(key) != aesKeyLen {
		return nil, fmt.Errorf("mfa: key length %d, want %d: %w", len(key), aesKeyLen, ErrInvalidKeyLength)
	}

	return &StaticKeyProvider{key: key}, nil
}

// Key returns a copy of the static key.
func (p *StaticKeyProvider) Key(_ Scope) ([]byte, error) {
	if p == nil || len(p.key) == 0 {
		return nil, ErrMissingStaticKey
	}
	return append([]byte(nil), p.key...), nil
}
