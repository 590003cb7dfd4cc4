// Package memory is an in-process account gateway backing the usecase tests.
// It honours the same version and invariant rules as the Postgres gateway.
package memory

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

// ErrSecretStateMismatch is returned when a record would break the
// secret-iff-Pending-or-Enabled rule.
var ErrSecretStateMismatch = errors.New("memory: secret presence does not match state")

type txKey struct{}

// Store keeps two-factor records and account password hashes in maps.
type Store struct {
	mu        sync.Mutex
	states    map[int64]entity.TwoFactorSecret
	codes     map[int64][]entity.BackupCode
	passwords map[int64]string
	hasher    hash.Hash
}

// NewStore returns an empty store that checks passwords with hasher.
func NewStore(hasher hash.Hash) *Store {
	return &Store{
		states:    map[int64]entity.TwoFactorSecret{},
		codes:     map[int64][]entity.BackupCode{},
		passwords: map[int64]string{},
		hasher:    hasher,
	}
}

// SetPasswordHash registers an account's password hash, standing in for the
// account service.
func (s *Store) SetPasswordHash(accountID int64, hashed string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passwords[accountID] = hashed
}

// lock takes the store mutex unless ctx already runs inside Transaction.
func (s *Store) lock(ctx context.Context) func() {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Transaction runs fn with the store held; every write made by fn is undone
// when it returns an error.
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if owner, _ := ctx.Value(txKey{}).(*Store); owner == s {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	states := maps.Clone(s.states)
	codes := make(map[int64][]entity.BackupCode, len(s.codes))
	for k, v := range s.codes {
		codes[k] = slices.Clone(v)
	}

	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.states = states
		s.codes = codes
		return err
	}

	return nil
}

func (s *Store) LoadTwoFactorState(ctx context.Context, accountID int64) (*entity.TwoFactorSecret, error) {
	defer s.lock(ctx)()

	st, ok := s.states[accountID]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return st.Clone(), nil
}

func (s *Store) SaveTwoFactorState(ctx context.Context, state entity.TwoFactorSecret, expectedVersion int64) error {
	defer s.lock(ctx)()

	if state.State.HasSecret() != (state.Secret != nil) {
		return ErrSecretStateMismatch
	}

	if s.version(state.AccountID) != expectedVersion {
		return entity.ErrVersionConflict
	}

	next := state.Clone()
	next.Version = expectedVersion + 1
	s.states[state.AccountID] = *next
	return nil
}

func (s *Store) LoadBackupCodes(ctx context.Context, accountID int64) ([]entity.BackupCode, error) {
	defer s.lock(ctx)()

	return cloneCodes(s.codes[accountID]), nil
}

func (s *Store) SaveBackupCodes(ctx context.Context, accountID int64, codes []entity.BackupCode, expectedVersion int64) error {
	defer s.lock(ctx)()

	st, ok := s.states[accountID]
	if !ok || st.Version != expectedVersion {
		return entity.ErrVersionConflict
	}

	st.Version++
	s.states[accountID] = st

	if len(codes) == 0 {
		delete(s.codes, accountID)
		return nil
	}
	s.codes[accountID] = cloneCodes(codes)
	return nil
}

func (s *Store) VerifyAccountPassword(ctx context.Context, accountID int64, password string) (bool, error) {
	defer s.lock(ctx)()

	hashed, ok := s.passwords[accountID]
	if !ok || s.hasher == nil {
		return false, nil
	}
	return s.hasher.Verify(hashed, password), nil
}

func (s *Store) ListStalePending(ctx context.Context, before time.Time, limit int) ([]int64, error) {
	defer s.lock(ctx)()

	ids := make([]int64, 0)
	for id, st := range s.states {
		if st.State == entity.StatePending && st.UpdatedAt.Before(before) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (s *Store) version(accountID int64) int64 {
	if st, ok := s.states[accountID]; ok {
		return st.Version
	}
	return 0
}

func cloneCodes(codes []entity.BackupCode) []entity.BackupCode {
	if len(codes) == 0 {
		return nil
	}
	out := make([]entity.BackupCode, len(codes))
	for i, c := range codes {
		out[i] = c
		if c.ConsumedAt != nil {
			at := *c.ConsumedAt
			out[i].ConsumedAt = &at
		}
	}
	return out
}
