package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/twofa/internal/pkg/config"
)

func TestSplitRules(t *testing.T) {
	t.Parallel()

	got := splitRules([]string{
		"admin, twofactor, reset",
		" , ,",
		"900,admin",
		"",
	})

	assert.Equal(t, [][]string{
		{"admin", "twofactor", "reset"},
		{"900", "admin"},
	}, got)
}

func TestTOTPSkew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want *uint
	}{
		{name: "absent", yaml: "mfa: {}", want: nil},
		{name: "explicit zero", yaml: "mfa:\n  totp:\n    skew: 0", want: new(uint)},
		{name: "two", yaml: "mfa:\n  totp:\n    skew: 2", want: func() *uint { v := uint(2); return &v }()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg, err := config.NewViperFromBytes("yaml", []byte(tt.yaml))
			require.NoError(t, err)
			assert.Equal(t, tt.want, totpSkew(cfg))
		})
	}
}
