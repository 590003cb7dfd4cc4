package mfa

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"

	"github.com/shandysiswandi/twofa/internal/pkg/hash"
)

var (
	// ErrRecoveryCodeNotFound indicates the candidate matches no stored code.
	ErrRecoveryCodeNotFound = errors.New("mfa: recovery code not found")
	// ErrRecoveryCodeConsumed indicates the candidate matches a code that was already used.
	ErrRecoveryCodeConsumed = errors.New("mfa: recovery code already consumed")
)

const (
	// DefaultRecoveryCount is the set size used when none is configured.
	DefaultRecoveryCount = 8
	// LowThreshold is the remaining count at or below which a set is low.
	LowThreshold = 2

	// recoveryLength counts code characters, separators excluded.
	recoveryLength = 12
	recoveryGroup  = 4
)

// recoveryAlphabet drops 0, O, 1, I and L so codes survive being read aloud
// or copied from paper.
const recoveryAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// RecoveryRecord is the persisted form of one recovery code.
type RecoveryRecord struct {
	Hash     string
	Consumed bool
}

// RecoveryCode issues and checks single-use recovery codes. Plaintext codes
// are only ever returned by GenerateSet; everything else works on hashes.
type RecoveryCode struct {
	hasher hash.Hash
	count  int
}

// NewRecoveryCode returns a manager that hashes with hasher and issues count
// codes per set by default.
func NewRecoveryCode(hasher hash.Hash, count int) *RecoveryCode {
	if count <= 0 {
		count = DefaultRecoveryCount
	}
	return &RecoveryCode{hasher: hasher, count: count}
}

// GenerateSet creates count distinct codes formatted XXXX-XXXX-XXXX together
// with their hashed records, in the same order. A count <= 0 uses the
// manager's default.
func (rc *RecoveryCode) GenerateSet(count int) ([]string, []RecoveryRecord, error) {
	if count <= 0 {
		count = rc.count
	}

	plain := make([]string, 0, count)
	records := make([]RecoveryRecord, 0, count)
	seen := make(map[string]struct{}, count)

	for len(plain) < count {
		raw, err := randomString(recoveryLength)
		if err != nil {
			return nil, nil, err
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}

		hashed, err := rc.hasher.Hash(raw)
		if err != nil {
			return nil, nil, err
		}

		plain = append(plain, format(raw))
		records = append(records, RecoveryRecord{Hash: string(hashed)})
	}

	return plain, records, nil
}

// Validate returns the index of the unconsumed record matching candidate.
// Every record is checked so the time taken does not depend on which one
// matched.
func (rc *RecoveryCode) Validate(records []RecoveryRecord, candidate string) (int, error) {
	code := Normalize(candidate)
	if !WellFormed(code) {
		return -1, ErrRecoveryCodeNotFound
	}

	idx, consumedHit := -1, false
	for i, r := range records {
		if !rc.hasher.Verify(r.Hash, code) {
			continue
		}
		if r.Consumed {
			consumedHit = true
			continue
		}
		if idx < 0 {
			idx = i
		}
	}

	switch {
	case idx >= 0:
		return idx, nil
	case consumedHit:
		return -1, ErrRecoveryCodeConsumed
	default:
		return -1, ErrRecoveryCodeNotFound
	}
}

// Consume returns a copy of records with records[idx] marked consumed.
func (rc *RecoveryCode) Consume(records []RecoveryRecord, idx int) ([]RecoveryRecord, error) {
	if idx < 0 || idx >= len(records) {
		return nil, ErrRecoveryCodeNotFound
	}
	if records[idx].Consumed {
		return nil, ErrRecoveryCodeConsumed
	}

	out := make([]RecoveryRecord, len(records))
	copy(out, records)
	out[idx].Consumed = true

	return out, nil
}

// RemainingCount returns the number of unconsumed records.
func RemainingCount(records []RecoveryRecord) int {
	n := 0
	for _, r := range records {
		if !r.Consumed {
			n++
		}
	}
	return n
}

// IsLow reports whether at most LowThreshold codes remain.
func IsLow(records []RecoveryRecord) bool {
	return RemainingCount(records) <= LowThreshold
}

// Normalize uppercases a user-typed code and strips dashes and whitespace.
func Normalize(code string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '-', ' ', '\t':
			return -1
		}
		if r >= 'a' && r <= 'z' {
			return r - 'a' + 'A'
		}
		return r
	}, code)
}

// WellFormed reports whether a normalized code has the issued length and
// alphabet.
func WellFormed(code string) bool {
	if len(code) != recoveryLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(recoveryAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

func format(raw string) string {
	var sb strings.Builder
	sb.Grow(recoveryLength + recoveryLength/recoveryGroup - 1)
	for i := 0; i < len(raw); i += recoveryGroup {
		if i > 0 {
			sb.WriteByte('-')
		}
		sb.WriteString(raw[i : i+recoveryGroup])
	}
	return sb.String()
}

func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(recoveryAlphabet)))
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		buf[i] = recoveryAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
