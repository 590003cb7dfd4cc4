package pgxcasbin

import "errors"

var (
	// ErrNilDB indicates the adapter was built without a connection.
	ErrNilDB = errors.New("pgxcasbin: nil db")
	// ErrEmptyPtype indicates a missing policy type.
	ErrEmptyPtype = errors.New("pgxcasbin: ptype is empty")
	// ErrRuleTooLong indicates a rule exceeds the six value columns.
	ErrRuleTooLong = errors.New("pgxcasbin: rule length exceeds field count")
	// ErrSelect indicates a policy read failure.
	ErrSelect = errors.New("pgxcasbin: failed to select rules")
	// ErrInsert indicates a policy insert failure.
	ErrInsert = errors.New("pgxcasbin: failed to insert rules")
	// ErrDelete indicates a policy delete failure.
	ErrDelete = errors.New("pgxcasbin: failed to delete rules")
	// ErrReplace indicates a full policy rewrite failure.
	ErrReplace = errors.New("pgxcasbin: failed to replace rules")
)
