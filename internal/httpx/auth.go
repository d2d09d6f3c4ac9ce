package httpx

import (
	"context"
	"net/http"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleAdmin  Role = "admin"
)

func validRole(r Role) bool {
	switch r {
	case RoleBuyer, RoleSeller, RoleAdmin:
		return true
	}
	return false
}

// Identity is the verified (user, role) pair the auth gateway attaches to
// every request. The core trusts it and never validates credentials itself.
type Identity struct {
	UserID string
	Role   Role
}

type identityKey struct{}

// WithIdentity lifts the gateway headers into the request context. Requests
// without a usable identity pass through; role gates reject them later.
func WithIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid := r.Header.Get("X-User-Id")
		role := Role(r.Header.Get("X-User-Role"))
		if uid != "" && validRole(role) {
			ctx := context.WithValue(r.Context(), identityKey{}, Identity{UserID: uid, Role: role})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// Require gates a route on the caller's role. The check happens once here,
// at the operation's entry point; handlers never re-check roles.
func Require(roles ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}
			for _, role := range roles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}
