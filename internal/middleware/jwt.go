package middleware

import (
	"context"
	"net/http"
	"strings"

	"chatserver/internal/apperror"
	"chatserver/internal/auth"
)

type contextKey string

const (
	EmailKey contextKey = "email"
	RoleKey  contextKey = "role"
)

// TokenParser is what we need from the auth package. The interface keeps
// 'middleware' decoupled from the concrete provider.
type TokenParser interface {
	Parse(tokenString string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	parser TokenParser
}

func NewAuthMiddleware(p TokenParser) *AuthMiddleware {
	return &AuthMiddleware{parser: p}
}

// Handle guards the HTTP CRUD surface. The websocket frame protocol has its
// own gate; this middleware only covers the plain REST endpoints.
func (am *AuthMiddleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""

		authHeader := r.Header.Get("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				tokenString = parts[1]
			}
		}

		// Fallback for browser clients that cannot set headers.
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}

		if tokenString == "" {
			apperror.WriteJSON(w, apperror.Authentication("missing authentication token"))
			return
		}

		claims, err := am.parser.Parse(tokenString)
		if err != nil {
			apperror.WriteJSON(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), EmailKey, claims.Email())
		ctx = context.WithValue(ctx, RoleKey, claims.Role)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// EmailFromContext returns the authenticated member's email, if any.
func EmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}
