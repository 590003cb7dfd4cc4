package mfa

// Purpose separates ciphertexts of different kinds for the same account.
type Purpose string

// PurposeTOTPSecret scopes encryption to a TOTP shared secret.
const PurposeTOTPSecret Purpose = "totp_secret"

// Scope is bound into every ciphertext as AES-GCM additional data, so a
// ciphertext copied to another account or purpose fails to decrypt.
type Scope struct {
	AccountID int64
	Purpose   Purpose
}

// SecretScope returns the scope for accountID's TOTP secret.
func SecretScope(accountID int64) Scope {
	return Scope{AccountID: accountID, Purpose: PurposeTOTPSecret}
}
