package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/lorrc/support-gateway/internal/auth"
	"github.com/lorrc/support-gateway/internal/core/domain"
	"github.com/lorrc/support-gateway/internal/infrastructure/logging"
)

// ActorClaimsKey is the key used to store actor claims in the request context.
const ActorClaimsKey contextKey = "actorClaims"

// JWTMiddleware validates the JWT token from the Authorization header.
func JWTMiddleware(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := claimsFromHeader(tm, w, r)
			if !ok {
				return
			}

			ctx := context.WithValue(r.Context(), ActorClaimsKey, claims)
			ctx = logging.WithActorID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalJWT attaches actor claims when a valid Authorization header is
// present but lets anonymous requests through. Used on endpoints that
// also accept a scheduler secret instead of a session.
func OptionalJWT(tm *auth.TokenManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, ok := claimsFromHeader(tm, w, r)
			if !ok {
				return
			}

			ctx := context.WithValue(r.Context(), ActorClaimsKey, claims)
			ctx = logging.WithActorID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func claimsFromHeader(tm *auth.TokenManager, w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		http.Error(w, "Authorization header is required", http.StatusUnauthorized)
		return nil, false
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		http.Error(w, "Authorization header format must be Bearer {token}", http.StatusUnauthorized)
		return nil, false
	}

	claims, err := tm.ValidateToken(parts[1])
	if err != nil {
		http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
		return nil, false
	}

	return claims, true
}

// ActorFromContext returns the authenticated actor, if any.
func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	claims, ok := ctx.Value(ActorClaimsKey).(*auth.Claims)
	if !ok || claims == nil {
		return domain.Actor{}, false
	}
	return claims.Actor(), true
}
