package instrument

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(newHandler(buf, &Config{
		ServiceName: "twofa",
		LogLevel:    "debug",
		MaskFields:  []string{"secret", "Code", "password"},
	}, nil))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestLogging_MasksSensitiveKeys(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := newTestLogger(&buf)

	logger.Info("setup",
		"account_id", 7,
		"secret", "JBSWY3DPEHPK3PXP",
		slog.Group("req", slog.String("code", "123456"), slog.String("kind", "totp")),
		"body", `{"password":"hunter2","nested":{"code":"999999"}}`,
		"fields", map[string]string{"CODE": "1", "ok": "2"},
	)

	line := decodeLine(t, &buf)
	assert.Equal(t, "***", line["secret"])
	assert.Equal(t, float64(7), line["account_id"])
	assert.Equal(t, map[string]any{"code": "***", "kind": "totp"}, line["req"])
	assert.JSONEq(t, `{"password":"***","nested":{"code":"***"}}`, line["body"].(string))
	assert.Equal(t, map[string]any{"CODE": "***", "ok": "2"}, line["fields"])
	assert.Equal(t, "twofa", line["service"])
	assert.Contains(t, line, "ts")
	assert.Contains(t, line, "severity")
}

func TestLogging_WithAttrsMasked(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newTestLogger(&buf).With("password", "hunter2").Info("x")

	assert.Equal(t, "***", decodeLine(t, &buf)["password"])
}

func TestLogging_CorrelationID(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	ctx := SetCorrelationID(context.Background(), "cid-1")
	newTestLogger(&buf).InfoContext(ctx, "x")

	assert.Equal(t, "cid-1", decodeLine(t, &buf)["_cID"])
	assert.Equal(t, "cid-1", GetCorrelationID(ctx))
	assert.Empty(t, GetCorrelationID(context.Background()))
}

func TestParseLevel(t *testing.T) {
	t.Parallel()

	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
}
