package hash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_Implementations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		hasher Hash
	}{
		{name: "hmac-sha256", hasher: NewHMACSHA256("secret")},
		{name: "argon2id", hasher: NewArgon2id("pepper")},
		{name: "bcrypt", hasher: NewBcrypt(4, "pepper")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			hashed, err := tt.hasher.Hash("ABCD2345EFGH")
			require.NoError(t, err)
			assert.NotEqual(t, "ABCD2345EFGH", string(hashed))

			assert.True(t, tt.hasher.Verify(string(hashed), "ABCD2345EFGH"))
			assert.False(t, tt.hasher.Verify(string(hashed), "ABCD2345EFGJ"))
			assert.False(t, tt.hasher.Verify("", "ABCD2345EFGH"))
		})
	}
}

func TestHMACSHA256_Deterministic(t *testing.T) {
	t.Parallel()

	a, err := NewHMACSHA256("k1").Hash("code")
	require.NoError(t, err)
	b, err := NewHMACSHA256("k1").Hash("code")
	require.NoError(t, err)
	c, err := NewHMACSHA256("k2").Hash("code")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestArgon2id_SaltedAndEncoded(t *testing.T) {
	t.Parallel()

	h := NewArgon2id("")

	a, err := h.Hash("code")
	require.NoError(t, err)
	b, err := h.Hash("code")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, strings.HasPrefix(string(a), "$argon2id$v=19$m=32768,t=3,p=2$"))

	assert.False(t, h.Verify("$bcrypt$v=19$m=1,t=1,p=1$AAAA$AAAA", "code"))
	assert.False(t, h.Verify("$argon2id$v=19$broken$AAAA$AAAA", "code"))
}

func TestArgon2id_PepperMatters(t *testing.T) {
	t.Parallel()

	hashed, err := NewArgon2id("one").Hash("code")
	require.NoError(t, err)

	assert.False(t, NewArgon2id("two").Verify(string(hashed), "code"))
}

func TestBcrypt_CostFallback(t *testing.T) {
	t.Parallel()

	h := NewBcrypt(99, "")
	assert.Equal(t, 10, h.cost)
}
