package auth

import (
	"context"
	"net/http"
	"strings"
)

type claimsKey struct{}

// RequireAdmin rejects requests without a valid admin bearer token and
// stashes the verified claims in the request context.
func RequireAdmin(secret string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(raw, "Bearer ") {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		claims, err := ParseAndVerifyHS256(strings.TrimPrefix(raw, "Bearer "), secret)
		if err != nil || claims.Role != RoleAdmin {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsKey{}).(*Claims)
	return claims
}
