package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"chatserver/internal/apperror"
)

// Claims is the payload carried by every bearer token: the member's email as
// the subject plus a role claim. Frames never carry anything else.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (c *Claims) Email() string {
	return c.Subject
}

// TokenProvider mints and verifies HS256 tokens. It is shared by the login
// endpoint, the HTTP middleware and the websocket access gate so every surface
// agrees on one signing key.
type TokenProvider struct {
	secret []byte
	expiry time.Duration
}

func NewTokenProvider(secret string, expiryMinutes int) *TokenProvider {
	return &TokenProvider{
		secret: []byte(secret),
		expiry: time.Duration(expiryMinutes) * time.Minute,
	}
}

func (p *TokenProvider) CreateToken(email, role string) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(p.expiry)),
		},
	})
	return token.SignedString(p.secret)
}

// Parse verifies signature and expiry and returns the claims. Any failure is
// an authentication failure; callers never retry on the server's behalf.
func (p *TokenProvider) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return p.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperror.Authentication("invalid or expired token")
	}
	return claims, nil
}
