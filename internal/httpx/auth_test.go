package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func gated(roles ...Role) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())
		w.Header().Set("X-Seen-User", id.UserID)
		w.WriteHeader(http.StatusOK)
	})
	return WithIdentity(Require(roles...)(ok))
}

func TestRequireRejectsAnonymous(t *testing.T) {
	rec := httptest.NewRecorder()
	gated(RoleBuyer).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestRequireRejectsWrongRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-User-Role", "buyer")

	rec := httptest.NewRecorder()
	gated(RoleSeller, RoleAdmin).ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestRequirePassesMatchingRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "s1")
	req.Header.Set("X-User-Role", "seller")

	rec := httptest.NewRecorder()
	gated(RoleSeller, RoleAdmin).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("X-Seen-User"); got != "s1" {
		t.Fatalf("handler saw user %q, want s1", got)
	}
}

func TestWithIdentityIgnoresUnknownRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-User-Id", "u1")
	req.Header.Set("X-User-Role", "superuser")

	rec := httptest.NewRecorder()
	gated(RoleBuyer).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401 for unknown role", rec.Code)
	}
}
