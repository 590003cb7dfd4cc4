package goerror

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_StatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "server", err: NewServer(errors.New("boom")), want: http.StatusInternalServerError},
		{name: "conflict", err: NewBusiness("already enabled", CodeConflict), want: http.StatusConflict},
		{name: "unauthorized", err: NewBusiness("incorrect code", CodeUnauthorized), want: http.StatusUnauthorized},
		{name: "busy", err: NewBusiness("busy", CodeTooManyRequest), want: http.StatusTooManyRequests},
		{name: "invalid input", err: NewInvalidInput(errors.New("x")), want: http.StatusUnprocessableEntity},
		{name: "invalid format", err: NewInvalidFormat(), want: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gerr *Error
			require.ErrorAs(t, tt.err, &gerr)
			assert.Equal(t, tt.want, gerr.StatusCode())
		})
	}
}

func TestNewBusinessCause(t *testing.T) {
	t.Parallel()

	cause := errors.New("domain: invalid code")
	err := NewBusinessCause("incorrect code", CodeUnauthorized, cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, CodeUnauthorized, CodeOf(err))

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "incorrect code", gerr.Msg())
	assert.Equal(t, TypeBusiness, gerr.Type())
}

func TestNewInvalidInput_Fields(t *testing.T) {
	t.Parallel()

	err := NewInvalidInput(nil, "code", "code is required")

	var gerr *Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, map[string]string{"code": "code is required"}, gerr.Fields())

	err = NewInvalidInput(nil, "dangling")
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, CodeInvalidFormat, gerr.Code())
}

func TestCodeOf_PlainError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
}
