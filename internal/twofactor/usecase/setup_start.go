package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

type StartSetupInput struct {
	AccountID    int64  `validate:"required,gt=0"`
	AccountLabel string `validate:"required,max=254"`
}

type StartSetupOutput struct {
	Secret          string
	ProvisioningURI string
	ManualEntryText string
}

// StartSetup issues a new secret and moves the account to Pending. Calling it
// again while Pending replaces the in-flight secret.
func (s *Usecase) StartSetup(ctx context.Context, in StartSetupInput) (*StartSetupOutput, error) {
	ctx, span := s.startSpan(ctx, "StartSetup")
	defer span.End()

	in.AccountLabel = strings.TrimSpace(in.AccountLabel)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	issuer := defaultIssuer
	if s.cfg != nil {
		if v := strings.TrimSpace(s.cfg.GetString("mfa.totp.issuer")); v != "" {
			issuer = v
		}
	}

	var out *StartSetupOutput
	err := s.withAccount(ctx, in.AccountID, func(ctx context.Context) error {
		st, err := s.loadState(ctx, in.AccountID)
		if err != nil {
			return err
		}

		if err := s.ensureCan(ctx, st, entity.ActionStartSetup); err != nil {
			return err
		}

		secret, err := otp.GenerateSecret()
		if err != nil {
			slog.ErrorContext(ctx, "failed to generate totp secret", "account_id", in.AccountID, "error", err)
			return goerror.NewServer(err)
		}
		defer clear(secret)

		uri, err := s.totp.ProvisioningURI(secret, in.AccountLabel, issuer)
		if err != nil {
			slog.ErrorContext(ctx, "failed to build provisioning uri", "account_id", in.AccountID, "error", err)
			return goerror.NewServer(err)
		}

		encrypted, err := s.encryptor.Encrypt(secret, mfa.SecretScope(in.AccountID))
		if err != nil {
			slog.ErrorContext(ctx, "failed to encrypt totp secret", "account_id", in.AccountID, "error", err)
			return goerror.NewServer(err)
		}

		now := s.clock.Now()
		next := entity.TwoFactorSecret{
			AccountID: in.AccountID,
			Secret:    encrypted,
			State:     entity.StatePending,
			Version:   st.Version,
			CreatedAt: st.CreatedAt,
			UpdatedAt: now,
		}
		if st.Version == 0 {
			next.CreatedAt = now
		}

		if err := s.repoDB.SaveTwoFactorState(ctx, next, st.Version); err != nil {
			return s.persistErr(ctx, in.AccountID, "save pending two-factor state", err)
		}

		manual := otp.ManualEntryText(secret)
		out = &StartSetupOutput{
			Secret:          strings.ReplaceAll(manual, " ", ""),
			ProvisioningURI: uri,
			ManualEntryText: manual,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return out, nil
}
