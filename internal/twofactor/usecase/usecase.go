package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/samber/lo"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel/trace"

	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/lock"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
)

// TwoFactorEnabledEvent is published after an enrollment is confirmed.
type TwoFactorEnabledEvent struct {
	AccountID  int64
	VerifiedAt time.Time
}

// TwoFactorDisabledEvent is published after a user disable or an admin reset.
type TwoFactorDisabledEvent struct {
	AccountID  int64
	Reason     entity.DisableReason
	DisabledAt time.Time
}

// BackupCodesRegeneratedEvent is published after the backup-code set is replaced.
type BackupCodesRegeneratedEvent struct {
	AccountID int64
	Count     int
}

// BackupCodesLowEvent is published when a consumption leaves few backup codes.
type BackupCodesLowEvent struct {
	AccountID int64
	Remaining int
}

type repoMessaging interface {
	PublishTwoFactorEnabled(ctx context.Context, msg TwoFactorEnabledEvent) error
	PublishTwoFactorDisabled(ctx context.Context, msg TwoFactorDisabledEvent) error
	PublishBackupCodesRegenerated(ctx context.Context, msg BackupCodesRegeneratedEvent) error
	PublishBackupCodesLow(ctx context.Context, msg BackupCodesLowEvent) error
}

// repoCache remembers accepted TOTP steps per account so a code cannot be
// replayed inside its validity window, whichever operation it is sent to.
type repoCache interface {
	ClaimStep(ctx context.Context, accountID int64, step int64, ttl time.Duration) (bool, error)
	ReleaseStep(ctx context.Context, accountID int64, step int64) error
}

// repoDB is the account gateway. Every Save bumps the account's version by
// one and fails with entity.ErrVersionConflict when expectedVersion is stale;
// version 0 means no record exists yet.
type repoDB interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error

	LoadTwoFactorState(ctx context.Context, accountID int64) (*entity.TwoFactorSecret, error)
	SaveTwoFactorState(ctx context.Context, state entity.TwoFactorSecret, expectedVersion int64) error
	LoadBackupCodes(ctx context.Context, accountID int64) ([]entity.BackupCode, error)
	SaveBackupCodes(ctx context.Context, accountID int64, codes []entity.BackupCode, expectedVersion int64) error
	VerifyAccountPassword(ctx context.Context, accountID int64, password string) (bool, error)

	ListStalePending(ctx context.Context, before time.Time, limit int) ([]int64, error)
}

type Usecase struct {
	repoDB        repoDB
	repoCache     repoCache
	repoMessaging repoMessaging
	locker        lock.Locker
	validator     validator.Validator
	cfg           config.Config
	encryptor     mfa.Encryptor
	recoveryCode  *mfa.RecoveryCode
	totp          *otp.TOTP
	uid           uid.NumberID
	clock         clock.Clocker
	ins           instrument.Instrumentation
	enforcer      *casbin.Enforcer
}

type Dependency struct {
	RepoDB        repoDB
	RepoCache     repoCache
	RepoMessaging repoMessaging
	Locker        lock.Locker
	Validator     validator.Validator
	Config        config.Config
	Encryptor     mfa.Encryptor
	RecoveryCode  *mfa.RecoveryCode
	Totp          *otp.TOTP
	UID           uid.NumberID
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Enforcer      *casbin.Enforcer
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:        dep.RepoDB,
		repoCache:     dep.RepoCache,
		repoMessaging: dep.RepoMessaging,
		locker:        dep.Locker,
		validator:     dep.Validator,
		cfg:           dep.Config,
		encryptor:     dep.Encryptor,
		recoveryCode:  dep.RecoveryCode,
		totp:          dep.Totp,
		uid:           dep.UID,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		enforcer:      dep.Enforcer,
	}
}

const (
	defaultLockTTL       = 10 * time.Second
	defaultRetryDelay    = 20 * time.Millisecond
	defaultPendingTTL    = 10 * time.Minute
	defaultReclaimBatch  = 100
	defaultIssuer        = "twofa"
	lockKeyPrefix        = "twofactor:account:"
	purposeConfirm       = "confirm"
	purposeDisable       = "disable"
	purposeRegenerate    = "regenerate"
	purposeVerify        = "verify"
	msgLockBusy          = "another two-factor operation is in progress"
	msgConcurrentChange  = "two-factor state changed concurrently, please retry"
	msgIncorrectCode     = "incorrect code"
	msgInvalidPassword   = "invalid password"
	msgAuthRequired      = "authentication required"
	msgNotAllowed        = "account not allowed"
	msgAlreadyEnabled    = "two-factor authentication is already enabled"
	msgNotEnabled        = "two-factor authentication is not enabled"
	msgNoSetupInProgress = "no two-factor setup is in progress"
	msgSetupPending      = "two-factor setup is pending confirmation"
)

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("twofactor.usecase").Start(ctx, name)
}

func (s *Usecase) duration(key string, unit time.Duration, def time.Duration) time.Duration {
	if s.cfg == nil {
		return def
	}
	if v := s.cfg.GetInt64(key); v > 0 {
		return time.Duration(v) * unit
	}
	return def
}

// withAccount serializes fn per account and retries it once when the
// gateway reports a version conflict. fn must reload state on every call.
func (s *Usecase) withAccount(ctx context.Context, accountID int64, fn func(ctx context.Context) error) error {
	ttl := s.duration("mfa.lock_ttl_seconds", time.Second, defaultLockTTL)

	release, err := s.locker.Acquire(ctx, lockKeyPrefix+strconv.FormatInt(accountID, 10), ttl)
	if errors.Is(err, lock.ErrNotAcquired) {
		slog.WarnContext(ctx, "two-factor account lock is busy", "account_id", accountID)
		return goerror.NewBusinessCause(msgLockBusy, goerror.CodeTooManyRequest, err)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire two-factor account lock", "account_id", accountID, "error", err)
		return goerror.NewServer(err)
	}
	defer func() {
		// the caller's ctx may already be cancelled; the key must still go.
		if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
			slog.WarnContext(ctx, "failed to release two-factor account lock", "account_id", accountID, "error", rerr)
		}
	}()

	delay := s.duration("mfa.retry_delay_ms", time.Millisecond, defaultRetryDelay)
	attempt := 0
	err = retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(delay)), func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if errors.Is(err, entity.ErrVersionConflict) {
			slog.WarnContext(ctx, "two-factor version conflict", "account_id", accountID, "attempt", attempt)
			return retry.RetryableError(err)
		}
		return err
	})

	if errors.Is(err, entity.ErrVersionConflict) {
		return goerror.NewBusinessCause(msgConcurrentChange, goerror.CodeConflict, err)
	}

	return err
}

// loadState returns the stored record, or an Unconfigured one at version 0.
func (s *Usecase) loadState(ctx context.Context, accountID int64) (*entity.TwoFactorSecret, error) {
	st, err := s.repoDB.LoadTwoFactorState(ctx, accountID)
	if errors.Is(err, goerror.ErrNotFound) {
		return entity.NewUnconfigured(accountID), nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo load two-factor state", "account_id", accountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if st.State.Ensure() == entity.StateUnknown {
		slog.ErrorContext(ctx, "two-factor state is unrecognized", "account_id", accountID, "state", int16(st.State))
		return nil, goerror.NewServer(fmt.Errorf("twofactor: unrecognized state %d", st.State))
	}

	return st, nil
}

func (s *Usecase) loadCodes(ctx context.Context, accountID int64) ([]entity.BackupCode, error) {
	codes, err := s.repoDB.LoadBackupCodes(ctx, accountID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo load backup codes", "account_id", accountID, "error", err)
		return nil, goerror.NewServer(err)
	}
	return codes, nil
}

func (s *Usecase) ensureCan(ctx context.Context, st *entity.TwoFactorSecret, action entity.Action) error {
	if st.State.Can(action) {
		return nil
	}

	slog.WarnContext(ctx, "two-factor transition rejected",
		"account_id", st.AccountID,
		"state", st.State.String(),
		"action", action.String(),
	)

	msg := msgNotEnabled
	switch {
	case st.State == entity.StateEnabled:
		msg = msgAlreadyEnabled
	case st.State == entity.StatePending:
		msg = msgSetupPending
	case action == entity.ActionConfirm || action == entity.ActionAbort:
		msg = msgNoSetupInProgress
	}

	return goerror.NewBusinessCause(msg, goerror.CodeConflict, entity.ErrInvalidState)
}

// persistErr keeps version conflicts retryable and turns anything else into
// a server error.
func (s *Usecase) persistErr(ctx context.Context, accountID int64, op string, err error) error {
	if errors.Is(err, entity.ErrVersionConflict) {
		return err
	}

	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		return err
	}

	slog.ErrorContext(ctx, "failed to repo "+op, "account_id", accountID, "error", err)
	return goerror.NewServer(err)
}

func (s *Usecase) decryptSecret(ctx context.Context, st *entity.TwoFactorSecret) ([]byte, error) {
	secret, err := s.encryptor.Decrypt(st.Secret, mfa.SecretScope(st.AccountID))
	if err != nil {
		slog.ErrorContext(ctx, "failed to decrypt totp secret", "account_id", st.AccountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	if err := otp.ValidateSecret(secret); err != nil {
		clear(secret)
		slog.ErrorContext(ctx, "stored totp secret is malformed", "account_id", st.AccountID, "error", err)
		return nil, goerror.NewServer(err)
	}

	return secret, nil
}

// isTOTPShaped reports whether code looks like a TOTP code rather than a
// backup code: digits only, 6 to 8 of them.
func isTOTPShaped(code string) bool {
	if len(code) < 6 || len(code) > 8 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

func invalidCode(cause error) error {
	return goerror.NewBusinessCause(msgIncorrectCode, goerror.CodeUnauthorized, cause)
}

// stepClaim undoes a replay-guard claim when the surrounding transition
// fails, so a retry with the same code is not rejected as a replay.
type stepClaim func(ctx context.Context)

func noClaim(context.Context) {}

// checkTOTP verifies code against the stored secret and claims the matched
// step for the account. purpose only labels logs. The secret is zeroed
// before returning.
func (s *Usecase) checkTOTP(ctx context.Context, st *entity.TwoFactorSecret, code, purpose string) (stepClaim, error) {
	secret, err := s.decryptSecret(ctx, st)
	if err != nil {
		return nil, err
	}
	defer clear(secret)

	step, err := s.totp.Match(secret, code, s.clock.Now())
	if errors.Is(err, otp.ErrCodeMismatch) {
		slog.WarnContext(ctx, "totp code mismatch", "account_id", st.AccountID, "purpose", purpose)
		return nil, invalidCode(entity.ErrInvalidCode)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to verify totp code", "account_id", st.AccountID, "purpose", purpose, "error", err)
		return nil, goerror.NewServer(err)
	}

	if s.repoCache == nil {
		return noClaim, nil
	}

	fresh, err := s.repoCache.ClaimStep(ctx, st.AccountID, step, s.totp.ReplayWindow())
	if err != nil {
		slog.ErrorContext(ctx, "failed to claim totp step", "account_id", st.AccountID, "purpose", purpose, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !fresh {
		slog.WarnContext(ctx, "totp code replayed", "account_id", st.AccountID, "purpose", purpose, "step", step)
		return nil, invalidCode(entity.ErrInvalidCode)
	}

	return func(ctx context.Context) {
		if err := s.repoCache.ReleaseStep(context.WithoutCancel(ctx), st.AccountID, step); err != nil {
			slog.WarnContext(ctx, "failed to release totp step", "account_id", st.AccountID, "purpose", purpose, "error", err)
		}
	}, nil
}

// matchBackupCode finds an unconsumed backup code equal to candidate.
func (s *Usecase) matchBackupCode(ctx context.Context, accountID int64, codes []entity.BackupCode, candidate string) (int, error) {
	idx, err := s.recoveryCode.Validate(toRecords(codes), candidate)
	switch {
	case errors.Is(err, mfa.ErrRecoveryCodeConsumed):
		slog.WarnContext(ctx, "backup code already consumed", "account_id", accountID)
		return -1, invalidCode(entity.ErrAlreadyConsumed)
	case errors.Is(err, mfa.ErrRecoveryCodeNotFound):
		slog.WarnContext(ctx, "backup code mismatch", "account_id", accountID)
		return -1, invalidCode(entity.ErrInvalidCode)
	case err != nil:
		slog.ErrorContext(ctx, "failed to validate backup code", "account_id", accountID, "error", err)
		return -1, goerror.NewServer(err)
	}
	return idx, nil
}

// mintBackupCodes issues a fresh set for accountID. The caller owns the
// returned plaintext and must not log it.
func (s *Usecase) mintBackupCodes(ctx context.Context, accountID int64) ([]string, []entity.BackupCode, error) {
	plain, records, err := s.recoveryCode.GenerateSet(0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate backup codes", "account_id", accountID, "error", err)
		return nil, nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	codes := make([]entity.BackupCode, 0, len(records))
	for _, r := range records {
		codes = append(codes, entity.BackupCode{
			ID:        s.uid.Generate(),
			AccountID: accountID,
			CodeHash:  r.Hash,
			CreatedAt: now,
		})
	}

	return plain, codes, nil
}

// wipe is the transition into Disabled: secret erased, codes removed.
func (s *Usecase) wipe(ctx context.Context, st *entity.TwoFactorSecret) error {
	next := st.Clone()
	next.State = entity.StateDisabled
	clear(next.Secret)
	next.Secret = nil
	next.UpdatedAt = s.clock.Now()

	return s.repoDB.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repoDB.SaveTwoFactorState(ctx, *next, st.Version); err != nil {
			return err
		}
		return s.repoDB.SaveBackupCodes(ctx, st.AccountID, nil, st.Version+1)
	})
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil || clm.AccountID <= 0 {
		return nil, goerror.NewBusiness(msgAuthRequired, goerror.CodeUnauthorized)
	}
	return clm, nil
}

func (s *Usecase) authenticatedAndAuthorized(ctx context.Context, obj, act string) (*jwt.Claims, error) {
	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if s.enforcer == nil {
		return nil, goerror.NewBusiness(msgNotAllowed, goerror.CodeForbidden)
	}

	ok, err := s.enforcer.Enforce(clm.Subject, obj, act)
	if err != nil {
		slog.ErrorContext(ctx, "failed to check authorization", "account_id", clm.AccountID, "error", err)
		return nil, goerror.NewServer(err)
	}
	if !ok {
		slog.WarnContext(ctx, "authorization denied", "account_id", clm.AccountID, "object", obj, "action", act)
		return nil, goerror.NewBusiness(msgNotAllowed, goerror.CodeForbidden)
	}

	return clm, nil
}

func toRecords(codes []entity.BackupCode) []mfa.RecoveryRecord {
	return lo.Map(codes, func(c entity.BackupCode, _ int) mfa.RecoveryRecord {
		return mfa.RecoveryRecord{Hash: c.CodeHash, Consumed: c.Consumed}
	})
}

func remaining(codes []entity.BackupCode) int {
	return mfa.RemainingCount(toRecords(codes))
}
