package usecase

import (
	"context"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type AbortSetupInput struct {
	AccountID int64 `validate:"required,gt=0"`
}

// AbortSetup discards a pending secret and returns the account to Unconfigured.
func (s *Usecase) AbortSetup(ctx context.Context, in AbortSetupInput) error {
	ctx, span := s.startSpan(ctx, "AbortSetup")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	return s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionAbort); err != nil {
			return err
		}

		if err := s.repoDB.SaveTwoFactorState(ctx, s.unconfigured(st), st.Version); err != nil {
			return s.persistErr(ctx, in.AccountID, "abort two-factor setup", err)
		}

		return nil
	})
}

func (s *Usecase) unconfigured(st *entity.TwoFactorSecret) entity.TwoFactorSecret {
	next := st.Clone()
	clear(next.Secret)
	next.Secret = nil
	next.State = entity.StateUnconfigured
	next.VerifiedAt = nil
	next.UpdatedAt = s.clock.Now()
	return *next
}
