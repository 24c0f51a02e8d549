// Package client is a typed REST client for the RedSheet API, used by the
// CLI and by integration tooling. It keeps the token/role pair in a
// session.Store so authorization state survives process restarts when a
// file-backed store is used.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/clearmind/redsheet/access"
	"github.com/clearmind/redsheet/api"
	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/listquery"
	"github.com/clearmind/redsheet/session"
)

// Client talks to a RedSheet server. All methods are safe for concurrent
// use.
type Client struct {
	baseURL string
	http    *http.Client
	store   session.Store
	pinger  *access.AuditPinger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a Client for the API rooted at baseURL (including the
// /api/v1 prefix). The store supplies the bearer token for every request.
func New(baseURL string, store session.Store, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		store:   store,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.pinger = access.NewAuditPinger(c.baseURL+"/audit", store.Token)
	return c
}

// Close releases background resources (the audit pinger's send loop).
func (c *Client) Close() {
	c.pinger.Close()
}

// Login authenticates and stores the token/role pair together on success.
func (c *Client) Login(ctx context.Context, username, password string) (api.LoginResponse, error) {
	var resp api.LoginResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", api.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return api.LoginResponse{}, err
	}
	c.store.Login(resp.Token, resp.Role)
	return resp, nil
}

// Logout clears the local token/role pair and best-effort notifies the
// server. The local state is cleared even if the server call fails.
func (c *Client) Logout(ctx context.Context) {
	_ = c.do(ctx, http.MethodPost, "/auth/logout", nil, nil)
	c.store.Logout()
}

// WhoAmI asks the server to describe the current session.
func (c *Client) WhoAmI(ctx context.Context) (api.WhoAmIResponse, error) {
	var resp api.WhoAmIResponse
	err := c.do(ctx, http.MethodGet, "/auth/me", nil, &resp)
	return resp, err
}

// AuditPing reports a client-side security event. It never blocks and
// never returns an error: delivery is fire-and-forget.
func (c *Client) AuditPing(action, details, level string) {
	c.pinger.Ping(action, details, level)
}

// do issues one JSON request. A non-2xx response is decoded into an
// *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.store.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding %s %s response: %w", method, path, err)
	}
	return nil
}

func listPath(resource string, q listquery.Query, dimensions map[string][]string) string {
	v := encodeQuery(q)
	for dim, values := range dimensions {
		for _, val := range values {
			v.Add(dim, val)
		}
	}
	if len(v) == 0 {
		return resource
	}
	return resource + "?" + v.Encode()
}

// encodeQuery maps a listquery.Query onto the API's URL parameters.
// Filters ride along in q.Filters; zero values are omitted.
func encodeQuery(q listquery.Query) url.Values {
	v := url.Values{}
	if q.Text != "" {
		v.Set("q", q.Text)
	}
	if q.Page > 1 {
		v.Set("page", fmt.Sprintf("%d", q.Page))
	}
	if q.PageSize > 0 && q.PageSize != listquery.DefaultPageSize {
		v.Set("page_size", fmt.Sprintf("%d", q.PageSize))
	}
	if q.Sort.Key != "" {
		v.Set("sort", q.Sort.Key)
		v.Set("dir", string(q.Sort.Direction))
	}
	if q.Range != nil {
		if q.Range.From != nil {
			v.Set("from", q.Range.From.Format(time.RFC3339))
		}
		if q.Range.To != nil {
			v.Set("to", q.Range.To.Format(time.RFC3339))
		}
	}
	for dim, values := range q.Filters {
		for _, val := range values {
			if val != listquery.All {
				v.Add(dim, val)
			}
		}
	}
	return v
}

// list fetches one page of a collection.
func list[T any](ctx context.Context, c *Client, resource string, q listquery.Query) (api.ListResponse[T], error) {
	var resp api.ListResponse[T]
	err := c.do(ctx, http.MethodGet, listPath(resource, q, nil), nil, &resp)
	return resp, err
}

func get[T any](ctx context.Context, c *Client, resource, id string) (T, error) {
	var out T
	err := c.do(ctx, http.MethodGet, resource+"/"+url.PathEscape(id), nil, &out)
	return out, err
}

func create[T any](ctx context.Context, c *Client, resource string, body any) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPost, resource, body, &out)
	return out, err
}

func update[T any](ctx context.Context, c *Client, resource, id string, body any) (T, error) {
	var out T
	err := c.do(ctx, http.MethodPut, resource+"/"+url.PathEscape(id), body, &out)
	return out, err
}

func (c *Client) delete(ctx context.Context, resource, id string) error {
	return c.do(ctx, http.MethodDelete, resource+"/"+url.PathEscape(id), nil, nil)
}

// --- Payloads ---

func (c *Client) Payloads(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.Payload], error) {
	return list[engagement.Payload](ctx, c, "/payloads", q)
}

func (c *Client) Payload(ctx context.Context, id string) (engagement.Payload, error) {
	return get[engagement.Payload](ctx, c, "/payloads", id)
}

func (c *Client) CreatePayload(ctx context.Context, req api.PayloadRequest) (engagement.Payload, error) {
	return create[engagement.Payload](ctx, c, "/payloads", req)
}

func (c *Client) UpdatePayload(ctx context.Context, id string, req api.PayloadRequest) (engagement.Payload, error) {
	return update[engagement.Payload](ctx, c, "/payloads", id, req)
}

func (c *Client) DeletePayload(ctx context.Context, id string) error {
	return c.delete(ctx, "/payloads", id)
}

// --- Targets ---

func (c *Client) Targets(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.Target], error) {
	return list[engagement.Target](ctx, c, "/targets", q)
}

func (c *Client) Target(ctx context.Context, id string) (engagement.Target, error) {
	return get[engagement.Target](ctx, c, "/targets", id)
}

func (c *Client) CreateTarget(ctx context.Context, req api.TargetRequest) (engagement.Target, error) {
	return create[engagement.Target](ctx, c, "/targets", req)
}

func (c *Client) UpdateTarget(ctx context.Context, id string, req api.TargetRequest) (engagement.Target, error) {
	return update[engagement.Target](ctx, c, "/targets", id, req)
}

func (c *Client) DeleteTarget(ctx context.Context, id string) error {
	return c.delete(ctx, "/targets", id)
}

// --- Boxes ---

func (c *Client) Boxes(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.Box], error) {
	return list[engagement.Box](ctx, c, "/boxes", q)
}

func (c *Client) Box(ctx context.Context, id string) (engagement.Box, error) {
	return get[engagement.Box](ctx, c, "/boxes", id)
}

func (c *Client) CreateBox(ctx context.Context, req api.BoxRequest) (engagement.Box, error) {
	return create[engagement.Box](ctx, c, "/boxes", req)
}

func (c *Client) UpdateBox(ctx context.Context, id string, req api.BoxRequest) (engagement.Box, error) {
	return update[engagement.Box](ctx, c, "/boxes", id, req)
}

func (c *Client) DeleteBox(ctx context.Context, id string) error {
	return c.delete(ctx, "/boxes", id)
}

// --- Tools ---

func (c *Client) Tools(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.Tool], error) {
	return list[engagement.Tool](ctx, c, "/tools", q)
}

func (c *Client) Tool(ctx context.Context, id string) (engagement.Tool, error) {
	return get[engagement.Tool](ctx, c, "/tools", id)
}

func (c *Client) CreateTool(ctx context.Context, req api.ToolRequest) (engagement.Tool, error) {
	return create[engagement.Tool](ctx, c, "/tools", req)
}

func (c *Client) UpdateTool(ctx context.Context, id string, req api.ToolRequest) (engagement.Tool, error) {
	return update[engagement.Tool](ctx, c, "/tools", id, req)
}

func (c *Client) DeleteTool(ctx context.Context, id string) error {
	return c.delete(ctx, "/tools", id)
}

// --- Wiki ---

func (c *Client) WikiPages(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.WikiPage], error) {
	return list[engagement.WikiPage](ctx, c, "/wiki", q)
}

func (c *Client) WikiPage(ctx context.Context, id string) (engagement.WikiPage, error) {
	return get[engagement.WikiPage](ctx, c, "/wiki", id)
}

func (c *Client) CreateWikiPage(ctx context.Context, req api.WikiPageRequest) (engagement.WikiPage, error) {
	return create[engagement.WikiPage](ctx, c, "/wiki", req)
}

func (c *Client) UpdateWikiPage(ctx context.Context, id string, req api.WikiPageRequest) (engagement.WikiPage, error) {
	return update[engagement.WikiPage](ctx, c, "/wiki", id, req)
}

func (c *Client) DeleteWikiPage(ctx context.Context, id string) error {
	return c.delete(ctx, "/wiki", id)
}

// --- News and logs ---

func (c *Client) News(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.NewsItem], error) {
	return list[engagement.NewsItem](ctx, c, "/news", q)
}

func (c *Client) Logs(ctx context.Context, q listquery.Query) (api.ListResponse[engagement.LogEntry], error) {
	return list[engagement.LogEntry](ctx, c, "/logs", q)
}

func (c *Client) RecordLog(ctx context.Context, req api.LogRequest) (engagement.LogEntry, error) {
	return create[engagement.LogEntry](ctx, c, "/logs", req)
}

// --- Users ---

func (c *Client) Users(ctx context.Context, q listquery.Query) (api.ListResponse[api.UserSummary], error) {
	return list[api.UserSummary](ctx, c, "/users", q)
}

func (c *Client) CreateUser(ctx context.Context, req api.CreateUserRequest) (api.UserSummary, error) {
	return create[api.UserSummary](ctx, c, "/users", req)
}

func (c *Client) UpdateUserRole(ctx context.Context, username string, role session.Role) error {
	return c.do(ctx, http.MethodPut, "/users/"+url.PathEscape(username)+"/role",
		api.UpdateUserRoleRequest{Role: role}, nil)
}

func (c *Client) DeleteUser(ctx context.Context, username string) error {
	return c.do(ctx, http.MethodDelete, "/users/"+url.PathEscape(username), nil, nil)
}
