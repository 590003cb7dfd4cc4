package otp

import (
	"crypto/rand"
	"encoding/base32"
	"errors"
	"strings"

	"github.com/pquerna/otp/totp"
)

const (
	// SecretSize is the length in bytes of generated secrets (160 bits).
	SecretSize = 20
	// MinSecretSize is the shortest secret accepted on decode (128 bits).
	MinSecretSize = 16

	manualGroupSize = 4
)

var (
	// ErrInvalidSecretFormat indicates secret text or bytes that cannot be a TOTP key.
	ErrInvalidSecretFormat = errors.New("otp: invalid secret format")
	// ErrMissingLabel indicates an empty account or issuer label.
	ErrMissingLabel = errors.New("otp: account and issuer labels are required")
)

var b32NoPadding = base32.StdEncoding.WithPadding(base32.NoPadding)

// GenerateSecret returns SecretSize bytes from crypto/rand.
func GenerateSecret() ([]byte, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

// ValidateSecret reports ErrInvalidSecretFormat for secrets too short to use.
func ValidateSecret(secret []byte) error {
	if len(secret) < MinSecretSize {
		return ErrInvalidSecretFormat
	}
	return nil
}

// ProvisioningURI builds the otpauth:// URI for secret using this engine's
// digits, period and algorithm. Labels are percent-encoded.
func (t *TOTP) ProvisioningURI(secret []byte, accountLabel, issuerLabel string) (string, error) {
	if err := ValidateSecret(secret); err != nil {
		return "", err
	}

	accountLabel = strings.TrimSpace(accountLabel)
	issuerLabel = strings.TrimSpace(issuerLabel)
	if accountLabel == "" || issuerLabel == "" {
		return "", ErrMissingLabel
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuerLabel,
		AccountName: accountLabel,
		Period:      t.period,
		Secret:      secret,
		Digits:      t.digits,
		Algorithm:   t.algorithm,
	})
	if err != nil {
		return "", err
	}

	return key.URL(), nil
}

// ManualEntryText renders secret as unpadded base32 in space-separated
// groups of four characters.
func ManualEntryText(secret []byte) string {
	encoded := b32NoPadding.EncodeToString(secret)

	var sb strings.Builder
	sb.Grow(len(encoded) + len(encoded)/manualGroupSize)
	for i := 0; i < len(encoded); i += manualGroupSize {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(encoded[i:min(i+manualGroupSize, len(encoded))])
	}

	return sb.String()
}

// DecodeSecret parses text produced by ManualEntryText. Case, spaces and
// dashes are ignored.
func DecodeSecret(text string) ([]byte, error) {
	normalized := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '\t', '=':
			return -1
		}
		return r
	}, strings.ToUpper(text))

	if normalized == "" {
		return nil, ErrInvalidSecretFormat
	}

	secret, err := b32NoPadding.DecodeString(normalized)
	if err != nil {
		return nil, ErrInvalidSecretFormat
	}

	if err := ValidateSecret(secret); err != nil {
		return nil, err
	}

	return secret, nil
}

func encodeKey(secret []byte) string {
	return b32NoPadding.EncodeToString(secret)
}
