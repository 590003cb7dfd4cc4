package otp

import (
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

var (
	// ErrInvalidTimestamp indicates a time that maps to a non-positive step.
	ErrInvalidTimestamp = errors.New("otp: invalid timestamp")
	// ErrCodeMismatch indicates the candidate matches no step in the window.
	ErrCodeMismatch = errors.New("otp: code mismatch")
)

const (
	// DefaultPeriod is the TOTP step length in seconds.
	DefaultPeriod uint = 30
	// DefaultSkew is how many steps on each side of the current one are accepted.
	DefaultSkew uint = 1
)

// Config holds the TOTP parameters. Zero values fall back to the RFC 6238
// defaults: 30s period, 6 digits, HMAC-SHA1. A nil Skew means window 1; an
// explicit 0 accepts the current step only.
type Config struct {
	Period    uint
	Skew      *uint
	Digits    otp.Digits
	Algorithm otp.Algorithm
}

// TOTP derives and verifies time-based codes.
type TOTP struct {
	period    uint
	skew      uint
	digits    otp.Digits
	algorithm otp.Algorithm
}

// NewTOTP constructs a TOTP engine from cfg.
func NewTOTP(cfg Config) *TOTP {
	if cfg.Period == 0 {
		cfg.Period = DefaultPeriod
	}
	skew := DefaultSkew
	if cfg.Skew != nil {
		skew = *cfg.Skew
	}
	if cfg.Digits != otp.DigitsSix && cfg.Digits != otp.DigitsEight {
		cfg.Digits = otp.DigitsSix
	}

	return &TOTP{
		period:    cfg.Period,
		skew:      skew,
		digits:    cfg.Digits,
		algorithm: cfg.Algorithm,
	}
}

// ParseAlgorithm maps a config value to an HMAC algorithm, defaulting to SHA1.
func ParseAlgorithm(name string) otp.Algorithm {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sha256":
		return otp.AlgorithmSHA256
	case "sha512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

// Step returns floor(unix(at) / period).
func (t *TOTP) Step(at time.Time) int64 {
	sec := at.Unix()
	p := int64(t.period)
	step := sec / p
	if sec%p != 0 && sec < 0 {
		step--
	}
	return step
}

// ReplayWindow is how long an accepted step stays acceptable: the full
// window of 2*skew+1 periods.
func (t *TOTP) ReplayWindow() time.Duration {
	return time.Duration(2*t.skew+1) * time.Duration(t.period) * time.Second
}

// CurrentCode returns the code for the step containing at.
func (t *TOTP) CurrentCode(secret []byte, at time.Time) (string, error) {
	step := t.Step(at)
	if step <= 0 {
		return "", ErrInvalidTimestamp
	}
	return t.codeAt(secret, step)
}

// Match verifies code against every step in [n-skew, n+skew] and returns the
// step it matched. All candidate steps are computed and compared in constant
// time before the result is decided.
func (t *TOTP) Match(secret []byte, code string, at time.Time) (int64, error) {
	current := t.Step(at)
	if current <= 0 {
		return 0, ErrInvalidTimestamp
	}

	if !t.wellFormed(code) {
		return 0, ErrCodeMismatch
	}

	var matched int64
	candidate := []byte(code)
	for offset := -int64(t.skew); offset <= int64(t.skew); offset++ {
		step := current + offset
		if step <= 0 {
			continue
		}

		want, err := t.codeAt(secret, step)
		if err != nil {
			return 0, err
		}

		if subtle.ConstantTimeCompare([]byte(want), candidate) == 1 && matched == 0 {
			matched = step
		}
	}

	if matched == 0 {
		return 0, ErrCodeMismatch
	}

	return matched, nil
}

// Verify reports whether code is valid at time at. Only ErrInvalidTimestamp
// and secret errors are returned as errors; a wrong code is (false, nil).
func (t *TOTP) Verify(secret []byte, code string, at time.Time) (bool, error) {
	_, err := t.Match(secret, code, at)
	if errors.Is(err, ErrCodeMismatch) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (t *TOTP) codeAt(secret []byte, step int64) (string, error) {
	if len(secret) == 0 {
		return "", ErrInvalidSecretFormat
	}

	code, err := hotp.GenerateCodeCustom(encodeKey(secret), uint64(step), hotp.ValidateOpts{
		Digits:    t.digits,
		Algorithm: t.algorithm,
	})
	if err != nil {
		return "", ErrInvalidSecretFormat
	}

	return code, nil
}

func (t *TOTP) wellFormed(code string) bool {
	if len(code) != t.digits.Length() {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
