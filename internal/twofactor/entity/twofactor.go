package entity

import "time"

// TwoFactorSecret is the per-account two-factor record. Secret holds the
// AES-GCM ciphertext and is non-nil exactly when State.HasSecret().
type TwoFactorSecret struct {
	AccountID  int64
	Secret     []byte
	State      State
	VerifiedAt *time.Time
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// NewUnconfigured is the record assumed for an account with nothing stored.
func NewUnconfigured(accountID int64) *TwoFactorSecret {
	return &TwoFactorSecret{AccountID: accountID, State: StateUnconfigured}
}

// Clone returns a deep copy.
func (t *TwoFactorSecret) Clone() *TwoFactorSecret {
	if t == nil {
		return nil
	}
	out := *t
	if t.Secret != nil {
		out.Secret = append([]byte(nil), t.Secret...)
	}
	if t.VerifiedAt != nil {
		v := *t.VerifiedAt
		out.VerifiedAt = &v
	}
	return &out
}

// BackupCode is one stored recovery code. Only the hash is persisted.
type BackupCode struct {
	ID         int64
	AccountID  int64
	CodeHash   string
	Consumed   bool
	ConsumedAt *time.Time
	CreatedAt  time.Time
}

// Status is the read-only projection returned to callers.
type Status struct {
	Enabled              bool
	State                State
	VerifiedAt           *time.Time
	BackupCodesRemaining int
	BackupCodesLow       bool
}

// VerifyMethod names the factor that satisfied a verification.
type VerifyMethod string

const (
	VerifyMethodTOTP       VerifyMethod = "totp"
	VerifyMethodBackupCode VerifyMethod = "backup_code"
)

// DisableReason tells consumers of the disabled event who turned it off.
type DisableReason string

const (
	DisableReasonUser  DisableReason = "user"
	DisableReasonAdmin DisableReason = "admin"
)
