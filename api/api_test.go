package api_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearmind/redsheet/api"
	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/internal/util"
	"github.com/clearmind/redsheet/notify"
	"github.com/clearmind/redsheet/session"
	"github.com/clearmind/redsheet/storage/memory"
)

const testPassword = "correct horse battery staple"

func seedUser(t *testing.T, repo *memory.Repository, username string, role session.Role) {
	t.Helper()
	hash, err := util.HashPassword(testPassword)
	require.NoError(t, err)
	user := engagement.User{
		ID:        username + "-id",
		Username:  username,
		Role:      role,
		Password:  hash,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(user)
	require.NoError(t, err)
	require.NoError(t, repo.Put(engagement.KindUser, username, data))
}

func setupServer(t *testing.T) (*httptest.Server, *memory.Repository, *notify.Bus) {
	t.Helper()
	repo := memory.NewRepository()
	seedUser(t, repo, "root", session.RoleAdmin)
	seedUser(t, repo, "operator", session.RolePentester)
	seedUser(t, repo, "visitor", session.RoleGuest)

	bus := notify.NewBus()
	t.Cleanup(bus.Close)

	a := api.New(repo, []byte("test-signing-secret"), api.WithBus(bus))
	r := chi.NewRouter()
	r.Mount("/api/v1", a.Router())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, repo, bus
}

func doJSON(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var reqBody bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&reqBody).Encode(body))
	}
	req, err := http.NewRequestWithContext(t.Context(), method, url, &reqBody)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func login(t *testing.T, baseURL, username string) string {
	t.Helper()
	resp := doJSON(t, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]string{
		"username": username,
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lr := decodeBody[api.LoginResponse](t, resp)
	require.NotEmpty(t, lr.Token)
	return lr.Token
}

func TestLoginIssuesToken(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"username": "Operator", // mixed case normalizes
		"password": testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	lr := decodeBody[api.LoginResponse](t, resp)
	assert.NotEmpty(t, lr.Token)
	assert.Equal(t, "operator", lr.Username)
	assert.Equal(t, session.RolePentester, lr.Role)
	assert.True(t, lr.ExpiresAt.After(time.Now()))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	srv, _, _ := setupServer(t)

	for _, creds := range []map[string]string{
		{"username": "operator", "password": "wrong"},
		{"username": "nobody", "password": testPassword},
	} {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", creds)
		// Same status either way: bad password and unknown user are
		// indistinguishable to the caller.
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestLoginLockoutAfterRepeatedFailures(t *testing.T) {
	srv, _, _ := setupServer(t)

	for i := 0; i < 5; i++ {
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
			"username": "visitor",
			"password": "wrong",
		})
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	// Even the right password is refused while locked out.
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"username": "visitor",
		"password": testPassword,
	})
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestWhoAmI(t *testing.T) {
	srv, _, _ := setupServer(t)
	token := login(t, srv.URL, "root")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	me := decodeBody[api.WhoAmIResponse](t, resp)
	assert.Equal(t, "root", me.Username)
	assert.Equal(t, session.RoleAdmin, me.Role)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestPayloadCRUD(t *testing.T) {
	srv, _, _ := setupServer(t)
	token := login(t, srv.URL, "operator")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/payloads", token, api.PayloadRequest{
		Name:     "img onerror alert",
		Category: engagement.CategoryXSS,
		Platform: engagement.PlatformWeb,
		Severity: engagement.SeverityMedium,
		Content:  `<img src=x onerror=alert(1)>`,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[engagement.Payload](t, resp)
	require.NotEmpty(t, created.ID)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads/"+created.ID, token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decodeBody[engagement.Payload](t, resp)
	assert.Equal(t, created.Name, got.Name)

	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/payloads/"+created.ID, token, api.PayloadRequest{
		Name:     "img onerror alert",
		Category: engagement.CategoryXSS,
		Platform: engagement.PlatformWeb,
		Severity: engagement.SeverityHigh,
		Content:  `<img src=x onerror=alert(document.domain)>`,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decodeBody[engagement.Payload](t, resp)
	assert.Equal(t, engagement.SeverityHigh, updated.Severity)
	assert.Equal(t, created.CreatedAt.Unix(), updated.CreatedAt.Unix())

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/payloads/"+created.ID, token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads/"+created.ID, token, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCreatePayloadRejectsInvalid(t *testing.T) {
	srv, _, _ := setupServer(t)
	token := login(t, srv.URL, "operator")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/payloads", token, api.PayloadRequest{
		Name:     "",
		Category: engagement.CategoryXSS,
		Platform: engagement.PlatformWeb,
		Severity: engagement.SeverityLow,
		Content:  "x",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/payloads", token, map[string]string{
		"name": "x", "bogus_field": "y",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRoleGating(t *testing.T) {
	srv, _, _ := setupServer(t)
	guestToken := login(t, srv.URL, "visitor")
	pentesterToken := login(t, srv.URL, "operator")

	// Guests read but cannot write.
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads", guestToken, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/payloads", guestToken, api.PayloadRequest{
		Name: "nope", Category: engagement.CategoryOther,
		Platform: engagement.PlatformWeb, Severity: engagement.SeverityLow, Content: "x",
	})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	// Anonymous callers get 401, not 403.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Pentesters cannot reach the admin panel.
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/users", pentesterToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/logs", pentesterToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/activity", pentesterToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGarbageTokenIsAnonymous(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads", "not.a.jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestListQueryParameters(t *testing.T) {
	srv, _, _ := setupServer(t)
	token := login(t, srv.URL, "operator")

	for i := 0; i < 30; i++ {
		sev := engagement.SeverityLow
		if i%3 == 0 {
			sev = engagement.SeverityCritical
		}
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/payloads", token, api.PayloadRequest{
			Name:     fmt.Sprintf("payload %02d", i),
			Category: engagement.CategorySQLi,
			Platform: engagement.PlatformWeb,
			Severity: sev,
			Content:  "' OR 1=1 --",
		})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads?severity=critical", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody[api.ListResponse[engagement.Payload]](t, resp)
	assert.Equal(t, 10, page.FilteredCount)
	for _, p := range page.Items {
		assert.Equal(t, engagement.SeverityCritical, p.Severity)
	}

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads?page_size=10&page=2", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodeBody[api.ListResponse[engagement.Payload]](t, resp)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 3, page.TotalPages)
	assert.Len(t, page.Items, 10)
	// Default sort is name ascending, so page 2 starts at payload 10.
	assert.Equal(t, "payload 10", page.Items[0].Name)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads?sort=name&dir=desc&page_size=10", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodeBody[api.ListResponse[engagement.Payload]](t, resp)
	assert.Equal(t, "payload 29", page.Items[0].Name)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/payloads?q=payload+07", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodeBody[api.ListResponse[engagement.Payload]](t, resp)
	assert.Equal(t, 1, page.FilteredCount)
}

func TestAuditSinkAcceptsAnonymousPing(t *testing.T) {
	srv, repo, _ := setupServer(t)

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/audit", "", api.AuditPingRequest{
		Action:  "unauthorized_access_attempt",
		Details: "path=/admin",
		Level:   "security",
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	records, err := repo.List(engagement.KindLog)
	require.NoError(t, err)
	require.Len(t, records, 1)
	var entry engagement.LogEntry
	require.NoError(t, json.Unmarshal(records[0].Data, &entry))
	assert.Equal(t, "anonymous", entry.Actor)
	assert.Equal(t, "unauthorized_access_attempt", entry.Action)
	assert.Equal(t, engagement.LevelSecurity, entry.Level)
}

func TestAuditSinkSwallowsGarbage(t *testing.T) {
	srv, _, _ := setupServer(t)

	req, err := http.NewRequestWithContext(t.Context(), http.MethodPost,
		srv.URL+"/api/v1/audit", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	// The sink never tells the sender anything went wrong.
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
}

func TestActivityReflectsBusEntries(t *testing.T) {
	srv, _, bus := setupServer(t)
	token := login(t, srv.URL, "root")

	bus.Info("scan started")
	bus.Error("scan failed")

	resp := doJSON(t, http.MethodGet, srv.URL+"/api/v1/activity", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	entries := decodeBody[[]notify.Entry](t, resp)
	require.GreaterOrEqual(t, len(entries), 2)
}

func TestUserAdministration(t *testing.T) {
	srv, _, _ := setupServer(t)
	adminToken := login(t, srv.URL, "root")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/users", adminToken, api.CreateUserRequest{
		Username: "NewHire",
		Password: "a long enough password",
		Role:     session.RoleGuest,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	created := decodeBody[api.UserSummary](t, resp)
	assert.Equal(t, "newhire", created.Username)

	// Duplicate username is rejected.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/users", adminToken, api.CreateUserRequest{
		Username: "newhire",
		Password: "a long enough password",
		Role:     session.RoleGuest,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	// Short password is rejected.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/users", adminToken, api.CreateUserRequest{
		Username: "other",
		Password: "short",
		Role:     session.RoleGuest,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Promote, then verify via the listing.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/users/newhire/role", adminToken,
		api.UpdateUserRoleRequest{Role: session.RolePentester})
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/users?role=pentester", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody[api.ListResponse[api.UserSummary]](t, resp)
	usernames := make([]string, 0, len(page.Items))
	for _, u := range page.Items {
		usernames = append(usernames, u.Username)
	}
	assert.Contains(t, usernames, "newhire")

	// Self-modification is refused.
	resp = doJSON(t, http.MethodPut, srv.URL+"/api/v1/users/root/role", adminToken,
		api.UpdateUserRoleRequest{Role: session.RoleGuest})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/users/root", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = doJSON(t, http.MethodDelete, srv.URL+"/api/v1/users/newhire", adminToken, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The deleted account can no longer log in.
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/v1/auth/login", "", map[string]string{
		"username": "newhire",
		"password": "a long enough password",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogEndpoints(t *testing.T) {
	srv, _, _ := setupServer(t)
	adminToken := login(t, srv.URL, "root")
	pentesterToken := login(t, srv.URL, "operator")

	resp := doJSON(t, http.MethodPost, srv.URL+"/api/v1/logs", pentesterToken, api.LogRequest{
		Action:  "nmap_scan",
		Details: "10.10.10.0/24",
		Level:   engagement.LevelInfo,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	entry := decodeBody[engagement.LogEntry](t, resp)
	assert.Equal(t, "operator", entry.Actor)

	resp = doJSON(t, http.MethodGet, srv.URL+"/api/v1/logs?actor=operator", adminToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody[api.ListResponse[engagement.LogEntry]](t, resp)
	require.GreaterOrEqual(t, page.FilteredCount, 1)
	for _, e := range page.Items {
		assert.Equal(t, "operator", e.Actor)
	}
}

func TestSecurityHeaders(t *testing.T) {
	repo := memory.NewRepository()
	a := api.New(repo, []byte("secret"))
	r := chi.NewRouter()
	r.Use(api.SecurityHeaders)
	r.Mount("/api/v1", a.Router())
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/openapi.yaml")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
	assert.NotEmpty(t, resp.Header.Get("Content-Security-Policy"))
	assert.Empty(t, resp.Header.Get("Strict-Transport-Security"))
}
