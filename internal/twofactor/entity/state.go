package entity

// State is the two-factor lifecycle state of an account.
type State int16

const (
	// StateUnknown is an unset or unrecognized stored value.
	StateUnknown State = 0

	// StateUnconfigured means the account never enrolled or aborted enrollment.
	StateUnconfigured State = 1

	// StatePending means a secret was issued but not yet confirmed with a code.
	StatePending State = 2

	// StateEnabled means the second factor is required and backup codes exist.
	StateEnabled State = 3

	// StateDisabled means the account turned two-factor off; secret and codes are gone.
	StateDisabled State = 4
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "Unconfigured"
	case StatePending:
		return "Pending"
	case StateEnabled:
		return "Enabled"
	case StateDisabled:
		return "Disabled"
	default:
		return "Unknown"
	}
}

// Ensure maps unrecognized values to StateUnknown.
func (s State) Ensure() State {
	switch s {
	case StateUnconfigured, StatePending, StateEnabled, StateDisabled:
		return s
	default:
		return StateUnknown
	}
}

// HasSecret reports whether a record in state s must carry a secret.
func (s State) HasSecret() bool {
	return s == StatePending || s == StateEnabled
}

// Action is a lifecycle operation checked against the transition table.
type Action int

const (
	ActionStartSetup Action = iota + 1
	ActionConfirm
	ActionAbort
	ActionDisable
	ActionRegenerate
	ActionVerify
	ActionAdminReset
	ActionReclaim
)

func (a Action) String() string {
	switch a {
	case ActionStartSetup:
		return "start_setup"
	case ActionConfirm:
		return "confirm_enrollment"
	case ActionAbort:
		return "abort_setup"
	case ActionDisable:
		return "disable"
	case ActionRegenerate:
		return "regenerate_backup_codes"
	case ActionVerify:
		return "verify"
	case ActionAdminReset:
		return "admin_reset"
	case ActionReclaim:
		return "reclaim_pending"
	default:
		return "unknown"
	}
}

// Can reports whether action a is legal from state s.
//
//	Unconfigured --start_setup--> Pending
//	Disabled     --start_setup--> Pending
//	Pending      --start_setup--> Pending   (secret replaced)
//	Pending      --confirm------> Enabled
//	Pending      --abort--------> Unconfigured
//	Pending      --reclaim------> Unconfigured
//	Enabled      --disable------> Disabled
//	Enabled      --regenerate---> Enabled
//	Enabled      --verify-------> Enabled
//	Pending|Enabled --admin_reset--> Disabled
func (s State) Can(a Action) bool {
	switch a {
	case ActionStartSetup:
		return s == StateUnconfigured || s == StateDisabled || s == StatePending
	case ActionConfirm, ActionAbort, ActionReclaim:
		return s == StatePending
	case ActionDisable, ActionRegenerate, ActionVerify:
		return s == StateEnabled
	case ActionAdminReset:
		return s == StatePending || s == StateEnabled
	default:
		return false
	}
}
