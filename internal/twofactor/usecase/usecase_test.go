package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/lock"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"github.com/shandysiswandi/twofa/internal/twofactor/entity"
	"github.com/shandysiswandi/twofa/internal/twofactor/outbound/memory"
)

const (
	testPassword = "correct horse battery staple"
	testLabel    = "alice@example.com"
	testConfig   = `
mfa:
  retry_delay_ms: 1
  pending_ttl_minutes: 10
  totp:
    issuer: Acme
`
	testRBAC = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj && r.act == p.act
`
)

type fakeCache struct {
	mu      sync.Mutex
	claimed map[string]bool
}

func stepKey(accountID int64, step int64) string {
	return fmt.Sprintf("%d:%d", accountID, step)
}

func (c *fakeCache) ClaimStep(_ context.Context, accountID int64, step int64, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := stepKey(accountID, step)
	if c.claimed[key] {
		return false, nil
	}
	c.claimed[key] = true
	return true, nil
}

func (c *fakeCache) ReleaseStep(_ context.Context, accountID int64, step int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.claimed, stepKey(accountID, step))
	return nil
}

type fakePublisher struct {
	mu          sync.Mutex
	enabled     []TwoFactorEnabledEvent
	disabled    []TwoFactorDisabledEvent
	regenerated []BackupCodesRegeneratedEvent
	low         []BackupCodesLowEvent
	err         error
}

func (p *fakePublisher) PublishTwoFactorEnabled(_ context.Context, msg TwoFactorEnabledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = append(p.enabled, msg)
	return p.err
}

func (p *fakePublisher) PublishTwoFactorDisabled(_ context.Context, msg TwoFactorDisabledEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = append(p.disabled, msg)
	return p.err
}

func (p *fakePublisher) PublishBackupCodesRegenerated(_ context.Context, msg BackupCodesRegeneratedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.regenerated = append(p.regenerated, msg)
	return p.err
}

func (p *fakePublisher) PublishBackupCodesLow(_ context.Context, msg BackupCodesLowEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.low = append(p.low, msg)
	return p.err
}

// flakyDB injects failures in front of the in-memory gateway.
type flakyDB struct {
	*memory.Store

	mu sync.Mutex
	// concurrentWrites makes the next N state saves lose a race to another
	// writer that bumps the version first.
	concurrentWrites int
	// failCodeSaves makes the next N backup-code saves fail outright.
	failCodeSaves int
	stateSaves    int
}

func (f *flakyDB) SaveTwoFactorState(ctx context.Context, state entity.TwoFactorSecret, expectedVersion int64) error {
	f.mu.Lock()
	f.stateSaves++
	race := f.concurrentWrites > 0
	if race {
		f.concurrentWrites--
	}
	f.mu.Unlock()

	if race {
		current, err := f.Store.LoadTwoFactorState(ctx, state.AccountID)
		if err != nil {
			return err
		}
		if err := f.Store.SaveTwoFactorState(ctx, *current, current.Version); err != nil {
			return err
		}
	}

	return f.Store.SaveTwoFactorState(ctx, state, expectedVersion)
}

func (f *flakyDB) SaveBackupCodes(ctx context.Context, accountID int64, codes []entity.BackupCode, expectedVersion int64) error {
	f.mu.Lock()
	fail := f.failCodeSaves > 0
	if fail {
		f.failCodeSaves--
	}
	f.mu.Unlock()

	if fail {
		return errors.New("connection reset by peer")
	}
	return f.Store.SaveBackupCodes(ctx, accountID, codes, expectedVersion)
}

type harness struct {
	uc     *Usecase
	db     *flakyDB
	cache  *fakeCache
	pub    *fakePublisher
	clock  *clock.Fixed
	totp   *otp.TOTP
	locker *lock.Local
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(testConfig))
	require.NoError(t, err)

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	keys, err := mfa.NewStaticKeyProvider(strings.Repeat("ab", 32))
	require.NoError(t, err)

	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)

	m, err := model.NewModelFromString(testRBAC)
	require.NoError(t, err)
	enforcer, err := casbin.NewEnforcer(m)
	require.NoError(t, err)
	_, err = enforcer.AddPolicy("admin", "twofactor", "reset")
	require.NoError(t, err)
	_, err = enforcer.AddGroupingPolicy("900", "admin")
	require.NoError(t, err)

	pwHasher := hash.NewHMACSHA256("pepper")
	store := memory.NewStore(pwHasher)
	hashed, err := pwHasher.Hash(testPassword)
	require.NoError(t, err)
	for _, id := range []int64{1, 2, 3} {
		store.SetPasswordHash(id, string(hashed))
	}

	h := &harness{
		db:     &flakyDB{Store: store},
		cache:  &fakeCache{claimed: map[string]bool{}},
		pub:    &fakePublisher{},
		clock:  clock.NewFixed(time.Unix(1_700_000_000, 0)),
		totp:   otp.NewTOTP(otp.Config{}),
		locker: lock.NewLocal(lock.WithWait(20 * time.Millisecond)),
	}

	h.uc = New(Dependency{
		RepoDB:        h.db,
		RepoCache:     h.cache,
		RepoMessaging: h.pub,
		Locker:        h.locker,
		Validator:     v,
		Config:        cfg,
		Encryptor:     mfa.NewAESGCMEncryptor(keys),
		RecoveryCode:  mfa.NewRecoveryCode(hash.NewHMACSHA256("backup"), 8),
		Totp:          h.totp,
		UID:           sf,
		Clock:         h.clock,
		Instrument:    instrument.NewNoop(),
		Enforcer:      enforcer,
	})

	return h
}

// start runs StartSetup and returns the raw secret from the response.
func (h *harness) start(t *testing.T, accountID int64) []byte {
	t.Helper()

	out, err := h.uc.StartSetup(context.Background(), StartSetupInput{AccountID: accountID, AccountLabel: testLabel})
	require.NoError(t, err)

	secret, err := otp.DecodeSecret(out.Secret)
	require.NoError(t, err)
	return secret
}

func (h *harness) code(t *testing.T, secret []byte) string {
	t.Helper()

	code, err := h.totp.CurrentCode(secret, h.clock.Now())
	require.NoError(t, err)
	return code
}

// enable takes accountID from Unconfigured to Enabled and returns the secret
// and the issued backup codes. The clock is moved one step on so later TOTP
// checks use a fresh step.
func (h *harness) enable(t *testing.T, accountID int64) ([]byte, []string) {
	t.Helper()

	secret := h.start(t, accountID)
	out, err := h.uc.ConfirmEnrollment(context.Background(), ConfirmEnrollmentInput{
		AccountID: accountID,
		Code:      h.code(t, secret),
	})
	require.NoError(t, err)

	h.clock.Advance(30 * time.Second)
	return secret, out.BackupCodes
}

func (h *harness) state(t *testing.T, accountID int64) *entity.Status {
	t.Helper()

	st, err := h.uc.Status(context.Background(), StatusInput{AccountID: accountID})
	require.NoError(t, err)
	return st
}

// wrongCode returns a well-formed code that differs from the current one.
func (h *harness) wrongCode(t *testing.T, secret []byte) string {
	t.Helper()

	good := h.code(t, secret)
	for _, c := range []string{"000000", "111111", "222222", "333333"} {
		if ok, err := h.totp.Verify(secret, c, h.clock.Now()); err == nil && !ok && c != good {
			return c
		}
	}
	t.Fatal("no wrong code found")
	return ""
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code.String(), goerror.CodeOf(err).String())
}
