package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type RegenerateBackupCodesInput struct {
	AccountID int64  `validate:"required,gt=0"`
	Code      string `validate:"required,otpcode"`
}

type RegenerateBackupCodesOutput struct {
	BackupCodes []string
}

// RegenerateBackupCodes replaces the whole backup-code set. Only a TOTP code
// authorizes it, so a leaked backup code cannot mint a fresh set.
func (s *Usecase) RegenerateBackupCodes(ctx context.Context, in RegenerateBackupCodesInput) (*RegenerateBackupCodesOutput, error) {
	ctx, span := s.startSpan(ctx, "RegenerateBackupCodes")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var plain []string
	err := s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionRegenerate); err != nil {
			return err
		}

		undo, err := s.checkTOTP(ctx, st, in.Code, purposeRegenerate)
		if err != nil {
			return err
		}

		codes, records, err := s.mintBackupCodes(ctx, in.AccountID)
		if err != nil {
			undo(ctx)
			return err
		}

		if err := s.repoDB.SaveBackupCodes(ctx, in.AccountID, records, st.Version); err != nil {
			undo(ctx)
			return s.persistErr(ctx, in.AccountID, "replace backup codes", err)
		}

		plain = codes
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := s.repoMessaging.PublishBackupCodesRegenerated(ctx, BackupCodesRegeneratedEvent{
		AccountID: in.AccountID,
		Count:     len(plain),
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish backup codes regenerated", "account_id", in.AccountID, "error", err)
	}

	return &RegenerateBackupCodesOutput{BackupCodes: plain}, nil
}
