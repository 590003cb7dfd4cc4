package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

const (
	selectState = `SELECT account_id, secret, state, verified_at, version, created_at, updated_at
		FROM twofactor_secrets WHERE account_id = $1`

	insertState = `INSERT INTO twofactor_secrets
		(account_id, secret, state, verified_at, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, 1, $5, $6)
		ON CONFLICT (account_id) DO NOTHING`

	updateState = `UPDATE twofactor_secrets
		SET secret = $2, state = $3, verified_at = $4, version = version + 1, updated_at = $5
		WHERE account_id = $1 AND version = $6`

	selectStalePending = `SELECT account_id FROM twofactor_secrets
		WHERE state = $1 AND updated_at < $2
		ORDER BY account_id
		LIMIT $3`
)

func (s *DB) LoadTwoFactorState(ctx context.Context, accountID int64) (_ *entity.TwoFactorSecret, err error) {
	ctx, span := s.startSpan(ctx, "LoadTwoFactorState")
	defer func() { s.endSpan(span, err) }()

	var (
		st         entity.TwoFactorSecret
		state      int16
		verifiedAt pgtype.Timestamptz
	)
	err = s.q(ctx).QueryRow(ctx, selectState, accountID).Scan(
		&st.AccountID,
		&st.Secret,
		&state,
		&verifiedAt,
		&st.Version,
		&st.CreatedAt,
		&st.UpdatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	st.State = entity.State(state)
	if verifiedAt.Valid {
		at := verifiedAt.Time
		st.VerifiedAt = &at
	}

	return &st, nil
}

func (s *DB) SaveTwoFactorState(ctx context.Context, state entity.TwoFactorSecret, expectedVersion int64) (err error) {
	ctx, span := s.startSpan(ctx, "SaveTwoFactorState")
	defer func() { s.endSpan(span, err) }()

	verifiedAt := pgtype.Timestamptz{}
	if state.VerifiedAt != nil {
		verifiedAt = pgtype.Timestamptz{Valid: true, Time: *state.VerifiedAt}
	}

	var affected int64
	if expectedVersion == 0 {
		tag, err := s.q(ctx).Exec(ctx, insertState,
			state.AccountID, state.Secret, int16(state.State), verifiedAt, state.CreatedAt, state.UpdatedAt)
		if err != nil {
			return s.mapError(err)
		}
		affected = tag.RowsAffected()
	} else {
		tag, err := s.q(ctx).Exec(ctx, updateState,
			state.AccountID, state.Secret, int16(state.State), verifiedAt, state.UpdatedAt, expectedVersion)
		if err != nil {
			return s.mapError(err)
		}
		affected = tag.RowsAffected()
	}

	if affected == 0 {
		return entity.ErrVersionConflict
	}

	return nil
}

func (s *DB) ListStalePending(ctx context.Context, before time.Time, limit int) (_ []int64, err error) {
	ctx, span := s.startSpan(ctx, "ListStalePending")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.q(ctx).Query(ctx, selectStalePending, int16(entity.StatePending), before, limit)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err = rows.Scan(&id); err != nil {
			return nil, s.mapError(err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return ids, nil
}
