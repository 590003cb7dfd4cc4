package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type DisableInput struct {
	AccountID int64  `validate:"required,gt=0"`
	Password  string `validate:"required,max=1024"`
	Code      string `validate:"required,secondfactor"`
}

// Disable turns two-factor off. It needs the account password and either a
// current TOTP code or an unconsumed backup code; neither alone is enough.
func (s *Usecase) Disable(ctx context.Context, in DisableInput) error {
	ctx, span := s.startSpan(ctx, "Disable")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	disabledAt := s.clock.Now()
	err := s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionDisable); err != nil {
			return err
		}

		ok, err := s.repoDB.VerifyAccountPassword(ctx, in.AccountID, in.Password)
		if err != nil {
			slog.ErrorContext(ctx, "failed to verify account password", "account_id", in.AccountID, "error", err)
			return goerror.NewServer(err)
		}
		if !ok {
			slog.WarnContext(ctx, "account password mismatch", "account_id", in.AccountID)
			return goerror.NewBusinessCause(msgInvalidPassword, goerror.CodeUnauthorized, entity.ErrAuthenticationFailed)
		}

		undo := noClaim
		if isTOTPShaped(in.Code) {
			undo, err = s.checkTOTP(ctx, st, in.Code, purposeDisable)
			if err != nil {
				return err
			}
		} else {
			codes, err := s.loadCodes(ctx, in.AccountID)
			if err != nil {
				return err
			}
			if _, err := s.matchBackupCode(ctx, in.AccountID, codes, in.Code); err != nil {
				return err
			}
		}

		disabledAt = s.clock.Now()
		if err := s.wipe(ctx, st); err != nil {
			undo(ctx)
			return s.persistErr(ctx, in.AccountID, "disable two-factor", err)
		}

		return nil
	})
	if err != nil {
		return err
	}

	slog.InfoContext(ctx, "two-factor authentication disabled", "account_id", in.AccountID)

	if err := s.repoMessaging.PublishTwoFactorDisabled(ctx, TwoFactorDisabledEvent{
		AccountID:  in.AccountID,
		Reason:     entity.DisableReasonUser,
		DisabledAt: disabledAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish two-factor disabled", "account_id", in.AccountID, "error", err)
	}

	return nil
}
