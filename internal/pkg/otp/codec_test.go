package otp

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	a, err := GenerateSecret()
	require.NoError(t, err)
	b, err := GenerateSecret()
	require.NoError(t, err)

	assert.Len(t, a, SecretSize)
	assert.Len(t, b, SecretSize)
	assert.NotEqual(t, a, b)
}

func TestManualEntryText_RoundTrip(t *testing.T) {
	t.Parallel()

	secret, err := GenerateSecret()
	require.NoError(t, err)

	text := ManualEntryText(secret)

	groups := strings.Split(text, " ")
	assert.Len(t, groups, 8)
	for _, g := range groups {
		assert.Len(t, g, 4)
	}
	assert.NotContains(t, text, "=")

	decoded, err := DecodeSecret(text)
	require.NoError(t, err)
	assert.Equal(t, secret, decoded)

	decoded, err = DecodeSecret(strings.ToLower(strings.ReplaceAll(text, " ", "-")))
	require.NoError(t, err)
	assert.Equal(t, secret, decoded)
}

func TestManualEntryText_UnevenLength(t *testing.T) {
	t.Parallel()

	// 16 bytes encode to 26 base32 characters.
	text := ManualEntryText([]byte("0123456789abcdef"))
	groups := strings.Split(text, " ")
	assert.Len(t, groups, 7)
	assert.Len(t, groups[6], 2)
}

func TestDecodeSecret_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
	}{
		{name: "empty", text: ""},
		{name: "only separators", text: " - - "},
		{name: "not base32", text: "0189 0189 0189 0189"},
		{name: "too short", text: ManualEntryText([]byte("short"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := DecodeSecret(tt.text)
			assert.ErrorIs(t, err, ErrInvalidSecretFormat)
		})
	}
}

func TestTOTP_ProvisioningURI(t *testing.T) {
	t.Parallel()

	engine := NewTOTP(Config{})
	secret := []byte("12345678901234567890")

	uri, err := engine.ProvisioningURI(secret, "alice smith@example.com", "Acme Corp")
	require.NoError(t, err)
	assert.NotContains(t, uri, " ")

	u, err := url.Parse(uri)
	require.NoError(t, err)
	assert.Equal(t, "otpauth", u.Scheme)
	assert.Equal(t, "totp", u.Host)
	assert.Equal(t, "/Acme Corp:alice smith@example.com", u.Path)

	q := u.Query()
	assert.Equal(t, "GEZDGNBVGY3TQOJQGEZDGNBVGY3TQOJQ", q.Get("secret"))
	assert.Equal(t, "Acme Corp", q.Get("issuer"))
	assert.Equal(t, "SHA1", q.Get("algorithm"))
	assert.Equal(t, "6", q.Get("digits"))
	assert.Equal(t, "30", q.Get("period"))
}

func TestTOTP_ProvisioningURI_Invalid(t *testing.T) {
	t.Parallel()

	engine := NewTOTP(Config{})

	_, err := engine.ProvisioningURI([]byte("12345678901234567890"), "", "Acme")
	assert.ErrorIs(t, err, ErrMissingLabel)

	_, err = engine.ProvisioningURI([]byte("12345678901234567890"), "alice", "  ")
	assert.ErrorIs(t, err, ErrMissingLabel)

	_, err = engine.ProvisioningURI([]byte("short"), "alice", "Acme")
	assert.ErrorIs(t, err, ErrInvalidSecretFormat)
}
