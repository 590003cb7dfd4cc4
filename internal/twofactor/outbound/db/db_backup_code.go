package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

const (
	selectBackupCodes = `SELECT id, account_id, code_hash, consumed, consumed_at, created_at
		FROM twofactor_backup_codes WHERE account_id = $1 ORDER BY id`

	bumpVersion = `UPDATE twofactor_secrets SET version = version + 1
		WHERE account_id = $1 AND version = $2`

	deleteBackupCodes = `DELETE FROM twofactor_backup_codes WHERE account_id = $1`
)

var backupCodeColumns = []string{"id", "account_id", "code_hash", "consumed", "consumed_at", "created_at"}

func (s *DB) LoadBackupCodes(ctx context.Context, accountID int64) (_ []entity.BackupCode, err error) {
	ctx, span := s.startSpan(ctx, "LoadBackupCodes")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.q(ctx).Query(ctx, selectBackupCodes, accountID)
	if err != nil {
		return nil, s.mapError(err)
	}
	defer rows.Close()

	var codes []entity.BackupCode
	for rows.Next() {
		var (
			c          entity.BackupCode
			consumedAt pgtype.Timestamptz
		)
		if err = rows.Scan(&c.ID, &c.AccountID, &c.CodeHash, &c.Consumed, &consumedAt, &c.CreatedAt); err != nil {
			return nil, s.mapError(err)
		}
		if consumedAt.Valid {
			at := consumedAt.Time
			c.ConsumedAt = &at
		}
		codes = append(codes, c)
	}
	if err = rows.Err(); err != nil {
		return nil, s.mapError(err)
	}

	return codes, nil
}

// SaveBackupCodes bumps the account version and replaces the whole set in
// one transaction. A nil set removes every code.
func (s *DB) SaveBackupCodes(ctx context.Context, accountID int64, codes []entity.BackupCode, expectedVersion int64) (err error) {
	ctx, span := s.startSpan(ctx, "SaveBackupCodes")
	defer func() { s.endSpan(span, err) }()

	return s.Transaction(ctx, func(ctx context.Context) error {
		q := s.q(ctx)

		tag, err := q.Exec(ctx, bumpVersion, accountID, expectedVersion)
		if err != nil {
			return s.mapError(err)
		}
		if tag.RowsAffected() == 0 {
			return entity.ErrVersionConflict
		}

		if _, err := q.Exec(ctx, deleteBackupCodes, accountID); err != nil {
			return s.mapError(err)
		}

		if len(codes) == 0 {
			return nil
		}

		rows := make([][]any, 0, len(codes))
		for _, c := range codes {
			consumedAt := pgtype.Timestamptz{}
			if c.ConsumedAt != nil {
				consumedAt = pgtype.Timestamptz{Valid: true, Time: *c.ConsumedAt}
			}
			rows = append(rows, []any{c.ID, accountID, c.CodeHash, c.Consumed, consumedAt, c.CreatedAt})
		}

		if _, err := q.CopyFrom(ctx, pgx.Identifier{"twofactor_backup_codes"}, backupCodeColumns, pgx.CopyFromRows(rows)); err != nil {
			return s.mapError(err)
		}

		return nil
	})
}
