package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/hoteldesk/backend/pkg/logger"
	"github.com/hoteldesk/backend/pkg/response"
)

type claimsKey struct{}

// RequireJWT validates the bearer token and, when roles are given, checks
// the caller's role. ADMIN passes every role check.
func RequireJWT(secret string, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				response.Unauthorized(w, "Missing or invalid authorization header")
				return
			}

			claims, err := Parse(strings.TrimPrefix(header, "Bearer "), secret)
			if err != nil {
				response.Unauthorized(w, "Invalid token")
				return
			}

			if len(roles) > 0 && claims.Role != "ADMIN" {
				allowed := false
				for _, role := range roles {
					if claims.Role == role {
						allowed = true
						break
					}
				}
				if !allowed {
					response.Forbidden(w, "Insufficient permissions")
					return
				}
			}

			ctx := context.WithValue(r.Context(), logger.UserIDKey, claims.Sub)
			ctx = context.WithValue(ctx, claimsKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFrom returns the verified claims stored by RequireJWT, or nil.
func ClaimsFrom(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}
