package mfa

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/twofa/internal/pkg/hash"
)

var codeFormat = regexp.MustCompile(`^[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}-[23456789ABCDEFGHJKMNPQRSTUVWXYZ]{4}$`)

func newTestRecovery() *RecoveryCode {
	return NewRecoveryCode(hash.NewHMACSHA256("test-key"), 0)
}

func TestRecoveryCode_GenerateSet(t *testing.T) {
	t.Parallel()

	rc := newTestRecovery()

	plain, records, err := rc.GenerateSet(8)
	require.NoError(t, err)
	require.Len(t, plain, 8)
	require.Len(t, records, 8)

	seen := map[string]bool{}
	for i, code := range plain {
		assert.Regexp(t, codeFormat, code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true

		assert.False(t, records[i].Consumed)
		assert.NotContains(t, records[i].Hash, Normalize(code))

		idx, err := rc.Validate(records, code)
		require.NoError(t, err)
		assert.Equal(t, i, idx)
	}
	assert.Equal(t, 8, RemainingCount(records))
}

func TestRecoveryCode_GenerateSet_DefaultCount(t *testing.T) {
	t.Parallel()

	plain, _, err := NewRecoveryCode(hash.NewHMACSHA256("k"), 10).GenerateSet(0)
	require.NoError(t, err)
	assert.Len(t, plain, 10)

	plain, _, err = newTestRecovery().GenerateSet(-1)
	require.NoError(t, err)
	assert.Len(t, plain, DefaultRecoveryCount)
}

func TestRecoveryCode_ConsumeThenResubmit(t *testing.T) {
	t.Parallel()

	rc := newTestRecovery()
	plain, records, err := rc.GenerateSet(8)
	require.NoError(t, err)

	idx, err := rc.Validate(records, plain[2])
	require.NoError(t, err)
	require.Equal(t, 2, idx)

	records, err = rc.Consume(records, idx)
	require.NoError(t, err)
	assert.True(t, records[2].Consumed)

	_, err = rc.Validate(records, plain[2])
	assert.ErrorIs(t, err, ErrRecoveryCodeConsumed)
	assert.Equal(t, 7, RemainingCount(records))

	_, err = rc.Consume(records, 2)
	assert.ErrorIs(t, err, ErrRecoveryCodeConsumed)
	assert.Equal(t, 7, RemainingCount(records))
}

func TestRecoveryCode_Consume_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	rc := newTestRecovery()
	_, records, err := rc.GenerateSet(3)
	require.NoError(t, err)

	out, err := rc.Consume(records, 1)
	require.NoError(t, err)
	assert.True(t, out[1].Consumed)
	assert.False(t, records[1].Consumed)

	_, err = rc.Consume(records, 3)
	assert.ErrorIs(t, err, ErrRecoveryCodeNotFound)
	_, err = rc.Consume(records, -1)
	assert.ErrorIs(t, err, ErrRecoveryCodeNotFound)
}

func TestRecoveryCode_Validate_Normalizes(t *testing.T) {
	t.Parallel()

	rc := newTestRecovery()
	plain, records, err := rc.GenerateSet(4)
	require.NoError(t, err)

	variants := []string{
		strings.ToLower(plain[0]),
		strings.ReplaceAll(plain[0], "-", ""),
		" " + strings.ReplaceAll(plain[0], "-", " ") + " ",
	}
	for _, v := range variants {
		idx, err := rc.Validate(records, v)
		require.NoError(t, err, v)
		assert.Equal(t, 0, idx)
	}
}

func TestRecoveryCode_Validate_Unknown(t *testing.T) {
	t.Parallel()

	rc := newTestRecovery()
	_, records, err := rc.GenerateSet(8)
	require.NoError(t, err)

	for _, candidate := range []string{"", "123456", "AAAA-AAAA-AAA", "0000-0000-0000", "2222-2222-2222"} {
		_, err := rc.Validate(records, candidate)
		assert.ErrorIs(t, err, ErrRecoveryCodeNotFound, candidate)
	}

	_, err = rc.Validate(nil, "2222-2222-2222")
	assert.ErrorIs(t, err, ErrRecoveryCodeNotFound)
}

func TestRecoveryCode_OldSetRejected(t *testing.T) {
	t.Parallel()

	rc := newTestRecovery()
	oldPlain, _, err := rc.GenerateSet(8)
	require.NoError(t, err)
	_, fresh, err := rc.GenerateSet(8)
	require.NoError(t, err)

	for _, code := range oldPlain {
		_, err := rc.Validate(fresh, code)
		assert.ErrorIs(t, err, ErrRecoveryCodeNotFound)
	}
}

func TestRecoveryCode_Argon2id(t *testing.T) {
	t.Parallel()

	rc := NewRecoveryCode(hash.NewArgon2id(""), 2)
	plain, records, err := rc.GenerateSet(0)
	require.NoError(t, err)

	idx, err := rc.Validate(records, plain[1])
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
}

func TestIsLow(t *testing.T) {
	t.Parallel()

	records := []RecoveryRecord{{}, {}, {}, {Consumed: true}}
	assert.False(t, IsLow(records))

	records[0].Consumed = true
	assert.True(t, IsLow(records))
	assert.Equal(t, 2, RemainingCount(records))
}
