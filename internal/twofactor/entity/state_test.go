package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestState_Can(t *testing.T) {
	t.Parallel()

	all := []State{StateUnknown, StateUnconfigured, StatePending, StateEnabled, StateDisabled}
	allowed := map[Action][]State{
		ActionStartSetup: {StateUnconfigured, StatePending, StateDisabled},
		ActionConfirm:    {StatePending},
		ActionAbort:      {StatePending},
		ActionReclaim:    {StatePending},
		ActionDisable:    {StateEnabled},
		ActionRegenerate: {StateEnabled},
		ActionVerify:     {StateEnabled},
		ActionAdminReset: {StatePending, StateEnabled},
	}

	for action, states := range allowed {
		for _, s := range all {
			want := false
			for _, ok := range states {
				if s == ok {
					want = true
				}
			}
			assert.Equal(t, want, s.Can(action), "%s from %s", action, s)
		}
	}

	assert.False(t, StateEnabled.Can(Action(99)))
}

func TestState_StringAndEnsure(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Enabled", StateEnabled.String())
	assert.Equal(t, "Unknown", State(42).String())
	assert.Equal(t, StateUnknown, State(42).Ensure())
	assert.Equal(t, StatePending, StatePending.Ensure())

	assert.True(t, StatePending.HasSecret())
	assert.True(t, StateEnabled.HasSecret())
	assert.False(t, StateDisabled.HasSecret())
	assert.False(t, StateUnconfigured.HasSecret())
}

func TestTwoFactorSecret_Clone(t *testing.T) {
	t.Parallel()

	now := time.Unix(1_700_000_000, 0)
	orig := &TwoFactorSecret{AccountID: 1, Secret: []byte{1, 2, 3}, State: StateEnabled, VerifiedAt: &now, Version: 4}

	cp := orig.Clone()
	cp.Secret[0] = 9
	*cp.VerifiedAt = now.Add(time.Hour)

	assert.Equal(t, byte(1), orig.Secret[0])
	assert.Equal(t, now, *orig.VerifiedAt)
	assert.Nil(t, (*TwoFactorSecret)(nil).Clone())
}
