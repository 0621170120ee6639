package idtoken

import "github.com/golang-jwt/jwt/v5"

// IdentityClaims combines standard claims with the OpenID nonce
type IdentityClaims struct {
	jwt.RegisteredClaims
	Nonce string `json:"nonce"`
}
