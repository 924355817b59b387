package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/goProof/jwt"
)

type adminClaimsContextKey struct{}

// AdminFromContext returns the admin claims injected by RequireAdmin.
func AdminFromContext(ctx context.Context) (*jwt.AdminClaims, bool) {
	claims, ok := ctx.Value(adminClaimsContextKey{}).(*jwt.AdminClaims)
	return claims, ok
}

// RequireAdmin rejects requests without a valid admin bearer token.
// A nil manager rejects everything.
func RequireAdmin(manager *jwt.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				w.Header().Set("WWW-Authenticate", `Bearer realm="goproof-admin"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := manager.Parse(token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), adminClaimsContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
