package entity

import (
	"errors"

	"github.com/shandysiswandi/twofa/internal/pkg/otp"
)

var (
	// ErrInvalidState means the operation is illegal for the current state.
	ErrInvalidState = errors.New("twofactor: invalid state")
	// ErrInvalidCode means a TOTP or backup code failed verification.
	ErrInvalidCode = errors.New("twofactor: invalid code")
	// ErrAlreadyConsumed means a backup code was reused.
	ErrAlreadyConsumed = errors.New("twofactor: backup code already consumed")
	// ErrVersionConflict means a concurrent write won the compare-and-swap.
	ErrVersionConflict = errors.New("twofactor: version conflict")
	// ErrAuthenticationFailed means the account password check failed.
	ErrAuthenticationFailed = errors.New("twofactor: authentication failed")

	ErrInvalidSecretFormat = otp.ErrInvalidSecretFormat
	ErrInvalidTimestamp    = otp.ErrInvalidTimestamp
)
