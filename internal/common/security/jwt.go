package security

import (
	"fmt"
	"time"

	"messagely/internal/common"

	"github.com/go-chi/jwtauth/v5"
	"github.com/golang-jwt/jwt/v5"
)

const usernameClaim = "username"

// TokenIssuer mints and verifies HS256 bearer tokens carrying a username.
type TokenIssuer struct {
	auth *jwtauth.JWTAuth
	exp  time.Duration
	now  func() time.Time
}

// NewTokenIssuer builds an issuer for secret. A zero exp produces tokens
// without an expiry claim.
func NewTokenIssuer(secret []byte, exp time.Duration) *TokenIssuer {
	return &TokenIssuer{
		auth: jwtauth.New("HS256", secret, nil),
		exp:  exp,
		now:  time.Now,
	}
}

// Auth exposes the underlying JWTAuth for jwtauth.Verifier.
func (t *TokenIssuer) Auth() *jwtauth.JWTAuth {
	return t.auth
}

func (t *TokenIssuer) Issue(username string) (string, error) {
	if username == "" {
		return "", common.Invalid("username is required")
	}
	now := t.now()
	claims := jwt.MapClaims{
		usernameClaim: username,
		"iat":         now.Unix(),
	}
	if t.exp > 0 {
		claims["exp"] = now.Add(t.exp).Unix()
	}
	_, tokenString, err := t.auth.Encode(claims)
	if err != nil {
		return "", fmt.Errorf("encode token: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature (and expiry, when present) and returns the
// username the token was issued for.
func (t *TokenIssuer) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", common.ErrUnauthenticated
	}
	token, err := jwtauth.VerifyToken(t.auth, tokenString)
	if err != nil || token == nil {
		return "", fmt.Errorf("%w: invalid token", common.ErrUnauthenticated)
	}
	return UsernameFromClaims(token.PrivateClaims())
}

// UsernameFromClaims extracts the username claim from decoded token claims.
func UsernameFromClaims(claims map[string]interface{}) (string, error) {
	username, ok := claims[usernameClaim].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("%w: username claim is missing or not a string", common.ErrUnauthenticated)
	}
	return username, nil
}
