package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type AdminResetInput struct {
	AccountID int64 `validate:"required,gt=0"`
}

// AdminReset forces a Pending or Enabled account to Disabled. The caller
// needs the (twofactor, reset) permission.
func (s *Usecase) AdminReset(ctx context.Context, in AdminResetInput) error {
	ctx, span := s.startSpan(ctx, "AdminReset")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	clm, err := s.authenticatedAndAuthorized(ctx, "twofactor", "reset")
	if err != nil {
		return err
	}

	disabledAt := s.clock.Now()
	err = s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionAdminReset); err != nil {
			return err
		}

		disabledAt = s.clock.Now()
		if err := s.wipe(ctx, st); err != nil {
			return s.persistErr(ctx, in.AccountID, "reset two-factor", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "two-factor authentication reset by admin", "account_id", in.AccountID, "admin_id", clm.AccountID)

	if err := s.repoMessaging.PublishTwoFactorDisabled(ctx, TwoFactorDisabledEvent{
		AccountID:  in.AccountID,
		Reason:     entity.DisableReasonAdmin,
		DisabledAt: disabledAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish two-factor disabled", "account_id", in.AccountID, "error", err)
	}

	return nil
}
