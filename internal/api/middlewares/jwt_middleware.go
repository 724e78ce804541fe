package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/markdave123-py/researchhub/internal/core"
	"github.com/markdave123-py/researchhub/internal/services"
)

type ctxKey int

const claimsKey ctxKey = iota

// TokenVerifier validates a raw bearer token.
type TokenVerifier interface {
	ParseToken(ctx context.Context, raw string) (*services.Claims, error)
}

// JWTMiddleware validates the Authorization header and attaches the token
// claims to the request context.
func JWTMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				unauthorized(w, "missing or invalid token")
				return
			}

			claims, err := verifier.ParseToken(r.Context(), strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				if core.KindOf(err) != core.KindAuthentication {
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusServiceUnavailable)
					_ = json.NewEncoder(w).Encode(map[string]string{"detail": "credential check unavailable", "code": string(core.KindInternal)})
					return
				}
				unauthorized(w, core.MessageOf(err))
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail, "code": string(core.KindAuthentication)})
}

// WithClaims returns ctx carrying claims; used by tests and internal callers.
func WithClaims(ctx context.Context, claims *services.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) *services.Claims {
	c, _ := ctx.Value(claimsKey).(*services.Claims)
	return c
}

func UserIDFromContext(ctx context.Context) string {
	if c := ClaimsFromContext(ctx); c != nil {
		return c.UserID
	}
	return ""
}
