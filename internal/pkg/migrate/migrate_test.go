package migrate

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/twofa/internal/pkg/testkit"
	"github.com/shandysiswandi/twofa/migrations"
)

func TestUp_MissingInput(t *testing.T) {
	t.Parallel()

	err := Up(context.Background(), nil, fstest.MapFS{}, "")
	assert.ErrorIs(t, err, ErrMigrationFailed)
	assert.ErrorIs(t, err, ErrMissingInput)
}

func TestUp_Postgres(t *testing.T) {
	testkit.SkipShort(t)

	ctx := context.Background()
	pool := testkit.Postgres(t)

	require.NoError(t, Up(ctx, pool, migrations.FS, ""))
	// Re-running is a no-op.
	require.NoError(t, Up(ctx, pool, migrations.FS, ""))

	var n int
	err := pool.QueryRow(ctx, `SELECT count(*) FROM information_schema.tables
		WHERE table_name IN ('accounts', 'twofactor_secrets', 'twofactor_backup_codes', 'twofactor_authz_rules')`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	_, err = pool.Exec(ctx, `INSERT INTO twofactor_secrets
		(account_id, secret, state, version, created_at, updated_at)
		VALUES (1, NULL, 3, 1, now(), now())`)
	assert.Error(t, err, "enabled state without a secret must be rejected")
}
