package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/shelfd/shelf/internal/model"
	"github.com/shelfd/shelf/internal/service"
)

type contextKeyAuth string

// AdminKey is the context key for the authenticated admin.
const AdminKey contextKeyAuth = "auth_admin"

// Authenticate returns an HTTP middleware that guards admin-only routes.
// It extracts the JWT bearer token from the Authorization header, verifies
// it, and resolves the admin account it names. A missing or malformed header
// is rejected before the verifier is consulted; a token whose account no
// longer exists is rejected like an invalid one.
//
// On success the resolved admin is attached to the request context for
// downstream handlers. On failure a 401 JSON error response is returned.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, "Authentication required. Provide a Bearer token.")
				return
			}
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeAuthError(w, "Malformed Authorization header. Expected: Bearer <token>")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			admin, err := authSvc.Authenticate(r.Context(), token)
			if err != nil {
				writeAuthError(w, "Invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), AdminKey, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAdmin extracts the authenticated admin from the context. Returns nil if
// no admin is present (i.e., unauthenticated request).
func GetAdmin(ctx context.Context) *model.Admin {
	if a, ok := ctx.Value(AdminKey).(*model.Admin); ok {
		return a
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// Manually construct JSON to avoid an import cycle with the handler package.
	w.Write([]byte(`{"error":{"code":401,"message":"` + message + `"}}`))
}
