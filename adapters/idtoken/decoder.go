package idtoken

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/ports"
)

// JWTDecoder implements the TokenDecoder interface using JWT.
// Signatures are not verified; the prover and the chain do that.
type JWTDecoder struct {
	parser *jwt.Parser
}

// NewJWTDecoder creates a new JWT decoder
func NewJWTDecoder() ports.TokenDecoder {
	return &JWTDecoder{parser: jwt.NewParser()}
}

// Decode converts a raw id token to an IdentityToken
func (d *JWTDecoder) Decode(raw string) (*core.IdentityToken, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("empty token: %w", core.ErrMalformedToken)
	}

	claims := &IdentityClaims{}
	if _, _, err := d.parser.ParseUnverified(raw, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w: %w", core.ErrMalformedToken, err)
	}

	if claims.Issuer == "" || claims.Subject == "" {
		return nil, fmt.Errorf("token lacks iss or sub: %w", core.ErrMalformedToken)
	}
	if len(claims.Audience) != 1 {
		return nil, fmt.Errorf("%w: %w", core.ErrMalformedToken, core.ErrUnsupportedAudience)
	}

	return &core.IdentityToken{
		Raw: raw,
		Claims: core.Claims{
			Issuer:    claims.Issuer,
			Subject:   claims.Subject,
			Audience:  claims.Audience[0],
			Nonce:     claims.Nonce,
			ExpiresAt: numericTime(claims.ExpiresAt),
			IssuedAt:  numericTime(claims.IssuedAt),
		},
	}, nil
}

func numericTime(d *jwt.NumericDate) time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}
