package usecase

import (
	"context"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type StatusInput struct {
	AccountID int64 `validate:"required,gt=0"`
}

// Status is a lock-free read; it never exposes the secret or any code.
func (s *Usecase) Status(ctx context.Context, in StatusInput) (*entity.Status, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	st, err := s.loadState(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	out := &entity.Status{
		Enabled:    st.State == entity.StateEnabled,
		State:      st.State,
		VerifiedAt: st.VerifiedAt,
	}
	if !out.Enabled {
		return out, nil
	}

	codes, err := s.loadCodes(ctx, in.AccountID)
	if err != nil {
		return nil, err
	}

	records := toRecords(codes)
	out.BackupCodesRemaining = mfa.RemainingCount(records)
	out.BackupCodesLow = mfa.IsLow(records)

	return out, nil
}
