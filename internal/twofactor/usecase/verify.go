package usecase

import (
	"context"
	"log/slog"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type VerifyInput struct {
	AccountID int64  `validate:"required,gt=0"`
	Code      string `validate:"required,secondfactor"`
}

type VerifyOutput struct {
	Method               entity.VerifyMethod
	BackupCodesRemaining int
	BackupCodesLow       bool
}

// Verify checks a second factor for an Enabled account, as a login flow
// would. A TOTP step is accepted once; a backup code is consumed.
func (s *Usecase) Verify(ctx context.Context, in VerifyInput) (*VerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "Verify")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	var out *VerifyOutput
	err := s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionVerify); err != nil {
			return err
		}

		codes, err := s.loadCodes(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if isTOTPShaped(in.Code) {
			if _, err := s.checkTOTP(ctx, st, in.Code, purposeVerify); err != nil {
				return err
			}

			records := toRecords(codes)
			out = &VerifyOutput{
				Method:               entity.VerifyMethodTOTP,
				BackupCodesRemaining: mfa.RemainingCount(records),
				BackupCodesLow:       mfa.IsLow(records),
			}
			return nil
		}

		idx, err := s.matchBackupCode(ctx, in.AccountID, codes, in.Code)
		if err != nil {
			return err
		}

		records, err := s.recoveryCode.Consume(toRecords(codes), idx)
		if err != nil {
			slog.WarnContext(ctx, "backup code already consumed", "account_id", in.AccountID)
			return invalidCode(entity.ErrAlreadyConsumed)
		}

		now := s.clock.Now()
		updated := make([]entity.BackupCode, len(codes))
		copy(updated, codes)
		updated[idx].Consumed = true
		updated[idx].ConsumedAt = &now

		if err := s.repoDB.SaveBackupCodes(ctx, in.AccountID, updated, st.Version); err != nil {
			return s.persistErr(ctx, in.AccountID, "consume backup code", err)
		}

		out = &VerifyOutput{
			Method:               entity.VerifyMethodBackupCode,
			BackupCodesRemaining: mfa.RemainingCount(records),
			BackupCodesLow:       mfa.IsLow(records),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Method == entity.VerifyMethodBackupCode && out.BackupCodesLow {
		if err := s.repoMessaging.PublishBackupCodesLow(ctx, BackupCodesLowEvent{
			AccountID: in.AccountID,
			Remaining: out.BackupCodesRemaining,
		}); err != nil {
			slog.ErrorContext(ctx, "failed to publish backup codes low", "account_id", in.AccountID, "error", err)
		}
	}

	return out, nil
}
