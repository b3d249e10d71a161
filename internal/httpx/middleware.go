package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fantacontratti/backend/internal/models"
)

type contextKey string

const userContextKey contextKey = "fc_user"

// TokenVerifier resolves a bearer token to its user.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*models.User, error)
}

// Auth returns middleware enforcing a valid bearer token and storing the
// authenticated user in the request context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				RespondError(w, http.StatusUnauthorized, "Autenticazione richiesta")
				return
			}

			user, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				RespondError(w, http.StatusUnauthorized, "Token non valido o scaduto")
				return
			}

			ctx := context.WithValue(r.Context(), userContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the token from the Authorization header, falling
// back to the "token" query parameter for WebSocket upgrades.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// UserFrom returns the authenticated user stored by the Auth middleware.
func UserFrom(ctx context.Context) (*models.User, bool) {
	user, ok := ctx.Value(userContextKey).(*models.User)
	return user, ok
}

// RequestLogger logs one line per request in the access-log style.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("request handled")
	})
}
