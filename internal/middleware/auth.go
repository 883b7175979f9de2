package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/thewriterben/wildcam/internal/auth"
)

// ContextKey is a custom type for context keys.
type ContextKey string

// UserContextKey stores the validated claims in the request context.
const UserContextKey ContextKey = "user"

// AuthMiddleware enforces JWT bearer authentication. WebSocket clients may
// pass the token as a "token" query parameter since browsers cannot set
// headers on upgrade requests.
func AuthMiddleware(authenticator *auth.Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authenticator.IsEnabled() {
				next.ServeHTTP(w, r)
				return
			}

			tokenString := bearerToken(r)
			if tokenString == "" {
				http.Error(w, `{"error": "missing authorization"}`, http.StatusUnauthorized)
				return
			}

			claims, err := authenticator.ValidateToken(tokenString)
			if err != nil {
				if err == auth.ErrExpiredToken {
					http.Error(w, `{"error": "token has expired"}`, http.StatusUnauthorized)
				} else {
					http.Error(w, `{"error": "invalid token"}`, http.StatusUnauthorized)
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return parts[1]
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// UserFromContext retrieves the claims stored by AuthMiddleware, or nil.
func UserFromContext(ctx context.Context) *auth.Claims {
	claims, ok := ctx.Value(UserContextKey).(*auth.Claims)
	if !ok {
		return nil
	}
	return claims
}
