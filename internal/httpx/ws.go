package httpx

import (
	"net/http"

	"github.com/Lavdriim-m/Distributed-EcommerceWebApp/internal/realtime"
)

// WSRoute bridges the identity middleware into the live channel: only
// authenticated clients get a session, and the session knows which user room
// the connection may join.
func WSRoute(h *realtime.WSHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFrom(r.Context())
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
			return
		}
		h.Serve(w, r, id.UserID, string(id.Role))
	}
}
