package db

import (
	"context"
	"errors"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
)

const selectPasswordHash = `SELECT password_hash FROM accounts WHERE id = $1`

// VerifyAccountPassword reports whether password matches the account's
// stored hash. An unknown account is a mismatch, not an error.
func (s *DB) VerifyAccountPassword(ctx context.Context, accountID int64, password string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "VerifyAccountPassword")
	defer func() { s.endSpan(span, err) }()

	var hashed string
	err = s.mapError(s.q(ctx).QueryRow(ctx, selectPasswordHash, accountID).Scan(&hashed))
	if errors.Is(err, goerror.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return s.password.Verify(hashed, password), nil
}
