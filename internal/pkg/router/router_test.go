package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/twofa/internal/pkg/config"
	"github.com/shandysiswandi/twofa/internal/pkg/goerror"
	"github.com/shandysiswandi/twofa/internal/pkg/jwt"
	"github.com/shandysiswandi/twofa/internal/pkg/validator"
)

type fakeJWT struct{}

func (fakeJWT) Generate(int64, string) (string, error) { return "ok", nil }

func (fakeJWT) Verify(token string) (jwt.Claims, error) {
	if token != "good" {
		return jwt.Claims{}, jwt.ErrInvalidToken
	}
	return jwt.Claims{AccountID: 7}, nil
}

type staticID string

func (s staticID) Generate() string { return string(s) }

type created struct {
	ID int64 `json:"id"`
}

func (created) StatusCode() int { return http.StatusCreated }
func (created) Message() string { return "created" }

func newTestRouter(t *testing.T) *Router {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte("app:\n  maintenance:\n    endpoints: [\"/frozen\"]\n"))
	require.NoError(t, err)

	r := NewRouter(Config{
		Config: cfg,
		UUID:   staticID("generated-cid"),
		JWT:    fakeJWT{},
		Public: map[string][]string{http.MethodGet: {"/health"}},
	})

	r.GET("/health", func(*Request) (any, error) { return map[string]string{"status": "ok"}, nil })
	r.GET("/me", func(req *Request) (any, error) {
		return map[string]int64{"account_id": jwt.GetAuth(req.Context()).AccountID}, nil
	})
	r.POST("/items/:id", func(req *Request) (any, error) {
		id, err := req.GetParamInt64("id")
		if err != nil {
			return nil, err
		}
		var body struct {
			Name string `json:"name"`
		}
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		return created{ID: id}, nil
	})
	r.DELETE("/items/:id", func(*Request) (any, error) { return nil, nil })
	r.GET("/conflict", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("already enabled", goerror.CodeConflict)
	})
	r.GET("/invalid", func(*Request) (any, error) {
		return nil, goerror.NewInvalidInput(validator.V10ValidationError{"code": "code is required"})
	})
	r.GET("/raw", func(*Request) (any, error) { return nil, errors.New("boom") })
	r.GET("/panic", func(*Request) (any, error) { panic("oops") })
	r.GET("/frozen", func(*Request) (any, error) { return "never", nil })

	return r
}

func serve(r http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRouter_Authentication(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	rec := serve(r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "generated-cid", rec.Header().Get(HeaderCorrelationID))

	rec = serve(r, http.MethodGet, "/me", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "authentication required", decode(t, rec)["message"])

	rec = serve(r, http.MethodGet, "/me", "", "bad")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = serve(r, http.MethodGet, "/me", "", "good")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]any{"account_id": float64(7)}, decode(t, rec)["data"])
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestRouter_Responses(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		status  int
		message string
	}{
		{name: "created", method: http.MethodPost, path: "/items/5", body: `{"name":"x"}`, status: http.StatusCreated, message: "created"},
		{name: "bad param", method: http.MethodPost, path: "/items/abc", body: `{}`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/items/5", body: `{"nope":1}`, status: http.StatusBadRequest},
		{name: "trailing data", method: http.MethodPost, path: "/items/5", body: `{} {}`, status: http.StatusBadRequest},
		{name: "no content", method: http.MethodDelete, path: "/items/5", status: http.StatusNoContent},
		{name: "business", method: http.MethodGet, path: "/conflict", status: http.StatusConflict, message: "already enabled"},
		{name: "validation", method: http.MethodGet, path: "/invalid", status: http.StatusUnprocessableEntity},
		{name: "raw error", method: http.MethodGet, path: "/raw", status: http.StatusInternalServerError, message: "internal server error"},
		{name: "panic", method: http.MethodGet, path: "/panic", status: http.StatusInternalServerError, message: "internal server error"},
		{name: "maintenance", method: http.MethodGet, path: "/frozen", status: http.StatusServiceUnavailable},
		{name: "not found", method: http.MethodGet, path: "/nope", status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := serve(r, tt.method, tt.path, tt.body, "good")
			assert.Equal(t, tt.status, rec.Code)
			if tt.message != "" {
				assert.Equal(t, tt.message, decode(t, rec)["message"])
			}
		})
	}
}

func TestRouter_ValidationFields(t *testing.T) {
	t.Parallel()

	rec := serve(newTestRouter(t), http.MethodGet, "/invalid", "", "good")
	assert.Equal(t, map[string]any{"code": "code is required"}, decode(t, rec)["error"])
}

func TestRouter_CorrelationIDPassthrough(t *testing.T) {
	t.Parallel()

	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderCorrelationID, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(HeaderCorrelationID))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(HeaderCorrelationID, "bad id")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "generated-cid", rec.Header().Get(HeaderCorrelationID))
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.2")
	assert.Equal(t, "203.0.113.9", clientIP(req))

	req.Header.Set("X-Real-IP", "not-an-ip")
	assert.Equal(t, "203.0.113.9", clientIP(req))
}
