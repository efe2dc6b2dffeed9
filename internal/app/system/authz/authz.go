// internal/app/system/authz/authz.go

// Package authz loads the authenticated caller into the request context
// and exposes it to handlers. Role checks are per-entity (membership
// role in a community or space), so the context carries identity only.
package authz

import (
	"context"
	"net/http"
	"strings"

	"github.com/dalemusser/gatherhub/internal/app/system/apierr"
	"github.com/dalemusser/gatherhub/internal/app/system/authtoken"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionUser is the authenticated caller as seen by handlers.
type SessionUser struct {
	ID   primitive.ObjectID
	Name string
}

type ctxKey struct{}

// RequireUser verifies the bearer token and injects the SessionUser.
// Requests without a valid token get a 401 envelope.
func RequireUser(tokens *authtoken.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				apierr.Unauthorized(w, "")
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				apierr.Unauthorized(w, "invalid or expired token")
				return
			}
			u := &SessionUser{ID: claims.UserID, Name: claims.Name}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, u)))
		})
	}
}

// UserCtx returns the caller from the request context.
func UserCtx(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(ctxKey{}).(*SessionUser)
	return u, ok
}

// WithTestUser injects a caller directly, bypassing token verification.
// For handler tests only.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, u))
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
