package auth

import (
	"net/http"
	"strings"

	"github.com/sciencelab/sciencelab-lms/internal/rbac"
)

// Middleware rejects requests without a valid Bearer token and attaches the
// subject and role to the request context.
func Middleware(svc *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				unauthorized(w, "missing bearer token")
				return
			}
			claims, err := svc.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				unauthorized(w, "invalid token")
				return
			}
			ctx := WithSubject(r.Context(), claims.UserID())
			ctx = rbac.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Optional parses a Bearer token when one is present but never rejects.
// Public endpoints use it so responses can still vary by role (e.g. answer
// keys are only serialized for faculty).
func Optional(svc *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if strings.HasPrefix(h, "Bearer ") {
				if claims, err := svc.Parse(strings.TrimPrefix(h, "Bearer ")); err == nil {
					ctx := WithSubject(r.Context(), claims.UserID())
					ctx = rbac.WithRole(ctx, claims.Role)
					r = r.WithContext(ctx)
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
