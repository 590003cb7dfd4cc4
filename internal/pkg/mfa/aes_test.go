package mfa

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestEncryptor(t *testing.T) *AESGCMEncryptor {
	t.Helper()

	keys, err := NewStaticKeyProvider(testKeyHex)
	require.NoError(t, err)
	return NewAESGCMEncryptor(keys)
}

func TestAESGCMEncryptor_RoundTrip(t *testing.T) {
	t.Parallel()

	enc := newTestEncryptor(t)
	secret := []byte("12345678901234567890")

	sealed, err := enc.Encrypt(secret, SecretScope(7))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), string(secret))

	again, err := enc.Encrypt(secret, SecretScope(7))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, again)

	plain, err := enc.Decrypt(sealed, SecretScope(7))
	require.NoError(t, err)
	assert.Equal(t, secret, plain)
}

func TestAESGCMEncryptor_ScopeBound(t *testing.T) {
	t.Parallel()

	enc := newTestEncryptor(t)
	sealed, err := enc.Encrypt([]byte("secret"), SecretScope(7))
	require.NoError(t, err)

	_, err = enc.Decrypt(sealed, SecretScope(8))
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = enc.Decrypt(sealed, Scope{AccountID: 7, Purpose: "other"})
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestAESGCMEncryptor_Errors(t *testing.T) {
	t.Parallel()

	enc := newTestEncryptor(t)

	_, err := enc.Encrypt(nil, SecretScope(1))
	assert.ErrorIs(t, err, ErrPlaintextEmpty)

	_, err = enc.Decrypt([]byte{0, 1, 2}, SecretScope(1))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	sealed, err := enc.Encrypt([]byte("secret"), SecretScope(1))
	require.NoError(t, err)

	sealed[0] = 9
	_, err = enc.Decrypt(sealed, SecretScope(1))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	sealed[0] = 0
	sealed[len(sealed)-1] ^= 0xff
	_, err = enc.Decrypt(sealed, SecretScope(1))
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = NewAESGCMEncryptor(nil).Encrypt([]byte("x"), SecretScope(1))
	assert.ErrorIs(t, err, ErrEncryptorNotConfigured)
}

func TestNewStaticKeyProvider(t *testing.T) {
	t.Parallel()

	_, err := NewStaticKeyProvider("")
	assert.ErrorIs(t, err, ErrMissingStaticKey)

	_, err = NewStaticKeyProvider("abcd")
	assert.ErrorIs(t, err, ErrInvalidKeyLength)

	_, err = NewStaticKeyProvider("not a key!")
	assert.Error(t, err)

	b64 := base64.StdEncoding.EncodeToString([]byte(strings.Repeat("k", 32)))
	p, err := NewStaticKeyProvider(b64)
	require.NoError(t, err)

	key, err := p.Key(SecretScope(1))
	require.NoError(t, err)
	assert.Len(t, key, 32)

	clear(key)
	again, err := p.Key(SecretScope(1))
	require.NoError(t, err)
	assert.Equal(t, byte('k'), again[0])
}
