package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type ConfirmEnrollmentInput struct {
	AccountID int64  `validate:"required,gt=0"`
	Code      string `validate:"required,otpcode"`
}

type ConfirmEnrollmentOutput struct {
	BackupCodes []string
}

// ConfirmEnrollment promotes a Pending account to Enabled once code verifies
// against the pending secret. The backup codes are returned only here.
func (s *Usecase) ConfirmEnrollment(ctx context.Context, in ConfirmEnrollmentInput) (*ConfirmEnrollmentOutput, error) {
	ctx, span := s.startSpan(ctx, "ConfirmEnrollment")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var (
		plain      []string
		verifiedAt = s.clock.Now()
	)
	err := s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionConfirm); err != nil {
			return err
		}

		undo, err := s.checkTOTP(ctx, st, in.Code, purposeConfirm)
		if err != nil {
			return err
		}

		codes, records, err := s.mintBackupCodes(ctx, in.AccountID)
		if err != nil {
			undo(ctx)
			return err
		}

		verifiedAt = s.clock.Now()
		next := st.Clone()
		next.State = entity.StateEnabled
		next.VerifiedAt = &verifiedAt
		next.UpdatedAt = verifiedAt

		if err := s.repoDB.Transaction(ctx, func(ctx context.Context) error {
			if err := s.repoDB.SaveTwoFactorState(ctx, *next, st.Version); err != nil {
				return err
			}
			return s.repoDB.SaveBackupCodes(ctx, in.AccountID, records, st.Version+1)
		}); err != nil {
			undo(ctx)
			return s.persistErr(ctx, in.AccountID, "enable two-factor", err)
		}

		plain = codes
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "two-factor authentication enabled", "account_id", in.AccountID)

	if err := s.repoMessaging.PublishTwoFactorEnabled(ctx, TwoFactorEnabledEvent{
		AccountID:  in.AccountID,
		VerifiedAt: verifiedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish two-factor enabled", "account_id", in.AccountID, "error", err)
	}

	return &ConfirmEnrollmentOutput{BackupCodes: plain}, nil
}
