package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/example/ride-hailing/internal/models"
	"github.com/example/ride-hailing/internal/storage"
)

type contextKey string

const principalKey contextKey = "principal"

// Middleware verifies the bearer access token and loads the full user
// record into the request context. Loading from the store rather than
// trusting the claims means role changes apply on the next request.
func Middleware(tokens *TokenManager, store storage.Store, reject func(http.ResponseWriter, int, string)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				reject(w, http.StatusUnauthorized, "missing authorization header")
				return
			}
			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				reject(w, http.StatusUnauthorized, "invalid authorization header")
				return
			}
			claims, err := tokens.VerifyAccess(strings.TrimSpace(parts[1]))
			if err != nil {
				reject(w, http.StatusUnauthorized, "invalid token")
				return
			}
			u, err := store.UserByID(r.Context(), claims.UserID)
			if err != nil {
				reject(w, http.StatusUnauthorized, "unknown principal")
				return
			}
			ctx := context.WithValue(r.Context(), principalKey, u)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// PrincipalFromContext returns the authenticated user placed by Middleware.
func PrincipalFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(principalKey).(*models.User)
	return u, ok
}
