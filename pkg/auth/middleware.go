package auth

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/ghuser/hemotrack/pkg/httpx"
	"github.com/ghuser/hemotrack/pkg/logger"
)

const sessionName = "hemotrack_session"

const (
	sessionAdminIDKey = "admin_id"
	sessionRoleKey    = "admin_role"
)

// RequireAuth is a chi middleware that enforces authentication via session cookies.
// It reads the session cookie, extracts the admin identity and role, and injects
// them into the request context as an Actor.
// Returns 401 Unauthorized if the session is missing, invalid, or lacks an admin id.
//
// After this middleware, handlers can safely call auth.ActorFromCtx(r.Context()).
// Role authorization is not decided here — the inventory core's access policy
// owns that, against the explicit Actor.
func RequireAuth(store sessions.Store, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, err := store.Get(r, sessionName)
			if err != nil {
				log.WarnContext(r.Context(), "invalid session cookie", "error", err)
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			adminID, ok := session.Values[sessionAdminIDKey].(string)
			if !ok || adminID == "" {
				log.WarnContext(r.Context(), "session missing admin_id")
				httpx.JSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}

			role, _ := session.Values[sessionRoleKey].(string)

			ctx := WithActor(r.Context(), Actor{ID: adminID, Role: role})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
