package idtoken

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/zklogin/core"
)

func signToken(t *testing.T, claims IdentityClaims) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("provider-key"))
	require.NoError(t, err)
	return tok
}

func validClaims() IdentityClaims {
	now := time.Unix(1_700_000_000, 0)
	return IdentityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://accounts.example.com",
			Subject:   "1234567890",
			Audience:  jwt.ClaimStrings{"client-abc"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Nonce: "nonce-value",
	}
}

func TestDecode(t *testing.T) {
	raw := signToken(t, validClaims())

	tok, err := NewJWTDecoder().Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, tok.Raw)
	assert.Equal(t, "https://accounts.example.com", tok.Claims.Issuer)
	assert.Equal(t, "1234567890", tok.Claims.Subject)
	assert.Equal(t, "client-abc", tok.Claims.Audience)
	assert.Equal(t, "nonce-value", tok.Claims.Nonce)
	assert.Equal(t, int64(1_700_003_600), tok.Claims.ExpiresAt.Unix())
}

func TestDecodeIgnoresExpiry(t *testing.T) {
	c := validClaims()
	c.ExpiresAt = jwt.NewNumericDate(time.Unix(1, 0))

	_, err := NewJWTDecoder().Decode(signToken(t, c))
	assert.NoError(t, err)
}

func TestDecodeMalformed(t *testing.T) {
	d := NewJWTDecoder()

	for _, raw := range []string{"", "abc", "a.b.c"} {
		_, err := d.Decode(raw)
		assert.ErrorIs(t, err, core.ErrMalformedToken, raw)
	}

	c := validClaims()
	c.Subject = ""
	_, err := d.Decode(signToken(t, c))
	assert.ErrorIs(t, err, core.ErrMalformedToken)

	c = validClaims()
	c.Audience = jwt.ClaimStrings{"a", "b"}
	_, err = d.Decode(signToken(t, c))
	assert.ErrorIs(t, err, core.ErrUnsupportedAudience)
	assert.ErrorIs(t, err, core.ErrMalformedToken)
}
