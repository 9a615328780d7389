package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-bookstore-api/token"
	"github.com/jrsteele09/go-bookstore-api/users"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyClaims stores the verified access token claims
	ContextKeyClaims ContextKey = "claims"
)

// ClaimsFromContext returns the claims RequireAuth stored on the request context.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(ContextKeyClaims).(*token.Claims)
	return claims, ok && claims != nil
}

// RequireAuth is middleware that validates a Bearer access token, including its expiry.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w, "Missing or malformed Authorization header")
				return
			}

			claims, err := s.issuer.Verify(raw, true)
			if err != nil {
				var verr *token.VerifyError
				if errors.As(err, &verr) {
					hlog.FromRequest(r).Debug().Stringer("kind", verr.Kind).Msg("access token rejected")
				}
				unauthorized(w, "Invalid token")
				return
			}

			hlog.FromRequest(r).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("subject", claims.Name)
			})
			ctx := context.WithValue(r.Context(), ContextKeyClaims, claims)
			next(w, r.WithContext(ctx))
		}
	}
}

// RequireRole is middleware that only lets through callers whose role claim is one of roles.
// Should be chained after RequireAuth to ensure claims are present
func (s *Server) RequireRole(roles ...users.RoleType) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				unauthorized(w, "Missing claims")
				return
			}
			for _, role := range roles {
				if claims.Role == string(role) {
					next(w, r)
					return
				}
			}
			writeJSONError(w, "forbidden", "Insufficient role", http.StatusForbidden)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	scheme, raw, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

func unauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("WWW-Authenticate", `Bearer realm="bookstore"`)
	writeJSONError(w, "unauthorized", description, http.StatusUnauthorized)
}
