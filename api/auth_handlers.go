package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/clearmind/redsheet/engagement"
)

// Login handles POST /auth/login.
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LoginRequest](w, r)
	if !ok {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	username := engagement.NormalizeUsername(req.Username)

	if blocked, retryAfter := a.rateLimiter.check(username); blocked {
		a.audit.logFailure(AuditLoginRateLimited, r, "account locked out",
			slog.String("username", username))
		w.Header().Set("Retry-After", fmt.Sprintf("%d", int(retryAfter.Seconds())+1))
		writeError(w, http.StatusTooManyRequests, "too many failed attempts, try again later")
		return
	}

	user, err := a.userByName(username)
	if err != nil || !user.Password.Verify(req.Password) {
		// One generic response for unknown account and wrong password,
		// so logins cannot be used to enumerate usernames.
		a.rateLimiter.recordFailure(username)
		a.audit.logFailure(AuditLoginFailure, r, "invalid credentials",
			slog.String("username", username))
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	now := a.now()
	token, expiresAt, err := a.signer.Sign(user.Username, user.Role, now)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	a.rateLimiter.recordSuccess(username)
	a.audit.logEvent(AuditLoginSuccess, r, user.Username)
	go a.recordLog(user.Username, "login", "", engagement.LevelInfo)

	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     token,
		Role:      user.Role,
		Username:  user.Username,
		PhotoURL:  user.PhotoURL,
		ExpiresAt: expiresAt,
	})
}

// Logout handles POST /auth/logout. Session tokens are stateless, so this
// is an audit event only; the client clears its stored token and role
// together.
func (a *API) Logout(w http.ResponseWriter, r *http.Request) {
	username := "anonymous"
	if id, ok := identityFromContext(r.Context()); ok {
		username = id.Username
		go a.recordLog(username, "logout", "", engagement.LevelInfo)
	}
	a.audit.logEvent(AuditLogout, r, username)
	w.WriteHeader(http.StatusNoContent)
}

// WhoAmI handles GET /auth/me.
func (a *API) WhoAmI(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFromContext(r.Context())
	writeJSON(w, http.StatusOK, WhoAmIResponse{
		Username: id.Username,
		Role:     id.Role,
	})
}

func (a *API) userByName(username string) (engagement.User, error) {
	data, err := a.repo.Get(engagement.KindUser, username)
	if err != nil {
		return engagement.User{}, err
	}
	var user engagement.User
	if err := json.Unmarshal(data, &user); err != nil {
		return engagement.User{}, fmt.Errorf("decoding user %s: %w", username, err)
	}
	return user, nil
}
