package event

import "time"

const (
	TwoFactorEnabledDestination       string = "twofactor.enabled"
	TwoFactorDisabledDestination      string = "twofactor.disabled"
	BackupCodesRegeneratedDestination string = "twofactor.backup_codes.regenerated"
	BackupCodesLowDestination         string = "twofactor.backup_codes.low"
)

type TwoFactorEnabledMessage struct {
	AccountID  int64     `json:"account_id"`
	VerifiedAt time.Time `json:"verified_at"`
}

type TwoFactorDisabledMessage struct {
	AccountID  int64     `json:"account_id"`
	Reason     string    `json:"reason"`
	DisabledAt time.Time `json:"disabled_at"`
}

type BackupCodesRegeneratedMessage struct {
	AccountID int64 `json:"account_id"`
	Count     int   `json:"count"`
}

// BackupCodesLowMessage tells the account owner to regenerate before the set
// runs out.
type BackupCodesLowMessage struct {
	AccountID int64 `json:"account_id"`
	Remaining int   `json:"remaining"`
}
