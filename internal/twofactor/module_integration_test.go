package twofactor_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/twofa/internal/pkg/clock"
	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goroutine"
	"github.com/shandysiswandi/twofa/internal/pkg/hash"
	"github.com/shandysiswandi/twofa/internal/pkg/instrument"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/lock"
	"github.com/shandysiswandi/twofa/internal/pkg/messaging"
	"github.com/shandysiswandi/twofa/internal/pkg/mfa"
	"github.com/shandysiswandi/twofa/internal/pkg/migrate"
	"github.com/shandysiswandi/twofa/internal/pkg/otp"
	"github.com/shandysiswandi/twofa/internal/pkg/pgxcasbin"
	"github.com/shandysiswandi/twofa/internal/pkg/router"
	"github.com/shandysiswandi/twofa/internal/pkg/testkit"
	"github.com/shandysiswandi/twofa/internal/pkg/uid"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
	"github.com/shandysiswandi/twofa/internal/twofactor"
	"github.com/shandysiswandi/twofa/migrations"
)

const (
	e2ePassword = "Secret123!"
	e2eConfig   = `
mfa:
  reclaim_interval_seconds: 3600
  totp:
    issuer: Acme
`
	e2eModel = `
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

type successEnvelope struct {
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type errorEnvelope struct {
	Message string            `json:"message"`
	Error   map[string]string `json:"error"`
}

type e2e struct {
	url    string
	jwt    jwt.JWT
	totp   *otp.TOTP
	clock  *clock.Fixed
	client *http.Client
}

func newE2E(t *testing.T) *e2e {
	t.Helper()
	testkit.SkipShort(t)

	ctx, cancel := context.WithCancel(context.Background())

	pool := testkit.Postgres(t)
	require.NoError(t, migrate.Up(ctx, pool, migrations.FS, ""))
	rdb := testkit.Redis(t)

	password := hash.NewBcrypt(4, "pepper")
	hashed, err := password.Hash(e2ePassword)
	require.NoError(t, err)
	for _, id := range []int64{1, 900} {
		_, err := pool.Exec(ctx, `INSERT INTO accounts (id, password_hash) VALUES ($1, $2)`, id, string(hashed))
		require.NoError(t, err)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte(e2eConfig))
	require.NoError(t, err)
	v, err := validator.NewV10Validator()
	require.NoError(t, err)
	sf, err := uid.NewSnowflake(1)
	require.NoError(t, err)
	oid, err := uid.NewObjectID()
	require.NoError(t, err)
	keys, err := mfa.NewStaticKeyProvider(strings.Repeat("cd", 32))
	require.NoError(t, err)

	adapter, err := pgxcasbin.NewAdapter(ctx, pool, pgxcasbin.WithTableName("twofactor_authz_rules"))
	require.NoError(t, err)
	require.NoError(t, adapter.Seed(ctx, "p", [][]string{{"admin", "twofactor", "reset"}}))
	require.NoError(t, adapter.Seed(ctx, "g", [][]string{{"900", "admin"}}))
	m, err := model.NewModelFromString(e2eModel)
	require.NoError(t, err)
	enforcer, err := casbin.NewEnforcer(m, adapter)
	require.NoError(t, err)

	tokens, err := jwt.NewHS512(jwt.Config{
		Secret: []byte(strings.Repeat("s", 64)),
		Issuer: "twofa",
		Clock:  clock.New(),
		UUID:   uid.NewUUID(),
	})
	require.NoError(t, err)

	r := router.NewRouter(router.Config{Config: cfg, UUID: uid.NewUUID(), JWT: tokens, Instrument: instrument.NewNoop()})
	totp := otp.NewTOTP(otp.Config{})
	gm := goroutine.NewManager(4)
	now := clock.NewFixed(time.Now())

	require.NoError(t, twofactor.New(twofactor.Dependency{
		Ctx:          ctx,
		DBConn:       pool,
		CacheConn:    rdb,
		Locker:       lock.NewRedis(rdb, oid),
		Goroutine:    gm,
		Enforcer:     enforcer,
		Router:       r,
		Messaging:    messaging.NewNop(),
		Config:       cfg,
		Instrument:   instrument.NewNoop(),
		UID:          sf,
		Password:     password,
		Encryptor:    mfa.NewAESGCMEncryptor(keys),
		RecoveryCode: mfa.NewRecoveryCode(hash.NewArgon2id("pepper"), 8),
		Totp:         totp,
		Clock:        now,
		Validator:    v,
	}))

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		assert.NoError(t, gm.Wait())
	})

	return &e2e{url: srv.URL, jwt: tokens, totp: totp, clock: now, client: &http.Client{Timeout: 5 * time.Second}}
}

func (e *e2e) token(t *testing.T, accountID int64) string {
	t.Helper()

	tok, err := e.jwt.Generate(accountID, "")
	require.NoError(t, err)
	return tok
}

func (e *e2e) doJSON(t *testing.T, method, path string, payload any, token string) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		buf := &bytes.Buffer{}
		require.NoError(t, json.NewEncoder(buf).Encode(payload))
		body = buf
	}

	req, err := http.NewRequest(method, e.url+path, body)
	require.NoError(t, err)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

func decodeSuccess(t *testing.T, body []byte, out any) successEnvelope {
	t.Helper()

	var env successEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	if out != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, out))
	}
	return env
}

func decodeError(t *testing.T, body []byte) errorEnvelope {
	t.Helper()

	var env errorEnvelope
	require.NoError(t, json.Unmarshal(body, &env))
	return env
}

func (e *e2e) code(t *testing.T, secret string) string {
	t.Helper()

	raw, err := otp.DecodeSecret(secret)
	require.NoError(t, err)
	code, err := e.totp.CurrentCode(raw, e.clock.Now())
	require.NoError(t, err)
	return code
}

func TestTwoFactor_Lifecycle(t *testing.T) {
	e := newE2E(t)
	user := e.token(t, 1)

	status, body := e.doJSON(t, http.MethodPost, "/api/v1/twofactor/setup", nil, user)
	require.Equal(t, http.StatusCreated, status, string(body))
	var setup struct {
		Secret          string `json:"secret"`
		ProvisioningURI string `json:"provisioning_uri"`
	}
	decodeSuccess(t, body, &setup)
	require.NotEmpty(t, setup.Secret)
	assert.True(t, strings.HasPrefix(setup.ProvisioningURI, "otpauth://totp/Acme:1?"))

	code := e.code(t, setup.Secret)
	status, body = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/setup/confirm", map[string]string{"code": code}, user)
	require.Equal(t, http.StatusOK, status, string(body))
	var confirm struct {
		BackupCodes []string `json:"backup_codes"`
	}
	decodeSuccess(t, body, &confirm)
	require.Len(t, confirm.BackupCodes, 8)

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/setup/confirm", map[string]string{"code": code}, user)
	assert.Equal(t, http.StatusConflict, status, "already enabled")

	// a TOTP step is accepted once per account, whatever the operation
	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/verify", map[string]string{"code": code}, user)
	assert.Equal(t, http.StatusUnauthorized, status, "step spent on confirm")

	e.clock.Advance(30 * time.Second)
	code = e.code(t, setup.Secret)
	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/verify", map[string]string{"code": code}, user)
	assert.Equal(t, http.StatusOK, status)
	status, body = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/verify", map[string]string{"code": code}, user)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "incorrect code", decodeError(t, body).Message)

	status, body = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/verify", map[string]string{"code": confirm.BackupCodes[3]}, user)
	require.Equal(t, http.StatusOK, status, string(body))
	var verified struct {
		Method    string `json:"method"`
		Remaining int    `json:"backup_codes_remaining"`
	}
	decodeSuccess(t, body, &verified)
	assert.Equal(t, "backup_code", verified.Method)
	assert.Equal(t, 7, verified.Remaining)

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/verify", map[string]string{"code": confirm.BackupCodes[3]}, user)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = e.doJSON(t, http.MethodGet, "/api/v1/twofactor/status", nil, user)
	require.Equal(t, http.StatusOK, status)
	var st struct {
		Enabled   bool `json:"enabled"`
		Remaining int  `json:"backup_codes_remaining"`
	}
	decodeSuccess(t, body, &st)
	assert.True(t, st.Enabled)
	assert.Equal(t, 7, st.Remaining)

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/backup-codes/regenerate", map[string]string{"code": code}, user)
	assert.Equal(t, http.StatusUnauthorized, status, "step spent on verify")

	e.clock.Advance(30 * time.Second)
	code = e.code(t, setup.Secret)
	status, body = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/backup-codes/regenerate", map[string]string{"code": code}, user)
	require.Equal(t, http.StatusOK, status, string(body))
	var regen struct {
		BackupCodes []string `json:"backup_codes"`
	}
	decodeSuccess(t, body, &regen)
	require.Len(t, regen.BackupCodes, 8)

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/verify", map[string]string{"code": confirm.BackupCodes[0]}, user)
	assert.Equal(t, http.StatusUnauthorized, status, "old set is gone")

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/disable",
		map[string]string{"password": "wrong", "code": regen.BackupCodes[0]}, user)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, body = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/disable",
		map[string]string{"password": e2ePassword, "code": regen.BackupCodes[0]}, user)
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = e.doJSON(t, http.MethodGet, "/api/v1/twofactor/status", nil, user)
	require.Equal(t, http.StatusOK, status)
	decodeSuccess(t, body, &st)
	assert.False(t, st.Enabled)
	assert.Zero(t, st.Remaining)
}

func TestTwoFactor_AdminReset(t *testing.T) {
	e := newE2E(t)
	user := e.token(t, 1)
	admin := e.token(t, 900)

	status, _ := e.doJSON(t, http.MethodPost, "/api/v1/twofactor/accounts/1/reset", nil, admin)
	assert.Equal(t, http.StatusConflict, status, "nothing to reset")

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/setup", nil, user)
	require.Equal(t, http.StatusCreated, status)

	status, _ = e.doJSON(t, http.MethodPost, "/api/v1/twofactor/accounts/1/reset", nil, user)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := e.doJSON(t, http.MethodPost, "/api/v1/twofactor/accounts/1/reset", nil, admin)
	require.Equal(t, http.StatusOK, status, string(body))

	status, _ = e.doJSON(t, http.MethodGet, "/api/v1/twofactor/status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
}
