package api

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/session"
)

type contextKey int

const identityKey contextKey = iota

// identity is the authenticated caller attached to the request context. A
// request with no usable bearer token carries no identity at all.
type identity struct {
	Username string
	Role     session.Role
}

// AuthMiddleware extracts and verifies the bearer token, attaching the
// caller's identity to the context. It does not reject: route-level guards
// decide what an anonymous request may do, so endpoints like the audit
// sink can accept unauthenticated pings.
func (a *API) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		claims, err := a.signer.Verify(token)
		if err != nil {
			// A bad token is treated as no session, not an error.
			next.ServeHTTP(w, r)
			return
		}
		id := identity{
			Username: claims.Subject,
			Role:     session.ParseRole(claims.Role),
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, id)))
	})
}

// RequireValidSession rejects requests without a verified identity.
func (a *API) RequireValidSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identityFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePentester admits pentester and admin sessions.
func (a *API) RequirePentester(next http.Handler) http.Handler {
	return a.requireRole(next, session.RolePentester, session.RoleAdmin)
}

// RequireAdmin admits admin sessions only.
func (a *API) RequireAdmin(next http.Handler) http.Handler {
	return a.requireRole(next, session.RoleAdmin)
}

func (a *API) requireRole(next http.Handler, allowed ...session.Role) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFromContext(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		for _, role := range allowed {
			if id.Role == role {
				next.ServeHTTP(w, r)
				return
			}
		}

		// Authorization denial: record it out of band and give the
		// caller nothing to learn from.
		a.audit.logEvent(AuditAccessDenied, r, id.Username,
			slog.String("path", r.URL.Path),
			slog.String("role", string(id.Role)))
		go a.recordLog(id.Username, "unauthorized_access_attempt",
			"denied "+r.Method+" "+r.URL.Path, engagement.LevelSecurity)

		writeError(w, http.StatusForbidden, "insufficient privileges")
	})
}

func identityFromContext(ctx context.Context) (identity, bool) {
	id, ok := ctx.Value(identityKey).(identity)
	return id, ok
}

func bearerToken(v string) string {
	v = strings.TrimSpace(v)
	parts := strings.SplitN(v, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
