package inbound

import (
	"net/http"
	"time"
)

type StartSetupResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioning_uri"`
	ManualEntryText string `json:"manual_entry_text"`
}

func (StartSetupResponse) StatusCode() int { return http.StatusCreated }

func (StartSetupResponse) Message() string {
	return "Scan the QR code or enter the key in your authenticator app, then confirm with a code."
}

type AbortSetupResponse struct{}

func (AbortSetupResponse) Message() string { return "Two-factor setup cancelled." }

type ConfirmEnrollmentRequest struct {
	Code string `json:"code"`
}

type ConfirmEnrollmentResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

func (ConfirmEnrollmentResponse) Message() string {
	return "Two-factor authentication enabled. Store these backup codes somewhere safe; they are shown only once."
}

type DisableRequest struct {
	Password string `json:"password"`
	Code     string `json:"code"`
}

type DisableResponse struct{}

func (DisableResponse) Message() string { return "Two-factor authentication disabled." }

type RegenerateBackupCodesRequest struct {
	Code string `json:"code"`
}

type RegenerateBackupCodesResponse struct {
	BackupCodes []string `json:"backup_codes"`
}

func (RegenerateBackupCodesResponse) Message() string {
	return "Backup codes regenerated. Previous codes no longer work."
}

type StatusResponse struct {
	Enabled              bool       `json:"enabled"`
	State                string     `json:"state"`
	VerifiedAt           *time.Time `json:"verified_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
	BackupCodesLow       bool       `json:"backup_codes_low"`
}

type VerifyRequest struct {
	Code string `json:"code"`
}

type VerifyResponse struct {
	Method               string `json:"method"`
	BackupCodesRemaining int    `json:"backup_codes_remaining"`
	BackupCodesLow       bool   `json:"backup_codes_low"`
}

type AdminResetResponse struct{}

func (AdminResetResponse) Message() string { return "Two-factor authentication reset for the account." }
