package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/internal/util"
	"github.com/clearmind/redsheet/listquery"
	"github.com/clearmind/redsheet/notify"
	"github.com/clearmind/redsheet/storage"
)

const minPasswordLen = 10

// loadAll unmarshals every record of a kind. Records that no longer parse
// are skipped rather than failing the whole listing.
func loadAll[T any](a *API, kind string) ([]T, error) {
	records, err := a.repo.List(kind)
	if err != nil {
		return nil, err
	}
	items := make([]T, 0, len(records))
	for _, rec := range records {
		var v T
		if err := json.Unmarshal(rec.Data, &v); err != nil {
			slog.Warn("skipping undecodable record", "kind", kind, "id", rec.ID, "error", err)
			continue
		}
		items = append(items, v)
	}
	return items, nil
}

func getJSON[T any](a *API, kind, id string) (T, error) {
	var v T
	data, err := a.repo.Get(kind, id)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("decoding %s/%s: %w", kind, id, err)
	}
	return v, nil
}

func (a *API) putJSON(kind, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", kind, id, err)
	}
	return a.repo.Put(kind, id, data)
}

// listCollection runs the query engine over a stored collection and writes
// the page. defaultSort applies when the request names no sort key.
func listCollection[T listquery.Item](a *API, w http.ResponseWriter, r *http.Request, kind string, defaultSort listquery.Sort, dimensions ...string) {
	items, err := loadAll[T](a, kind)
	if err != nil {
		mapError(w, err)
		return
	}
	q := parseListQuery(r, dimensions...)
	if q.Sort.Key == "" {
		q.Sort = defaultSort
	}
	res := listquery.Apply(items, q)
	writeJSON(w, http.StatusOK, ListResponse[T]{
		Items:         res.Items,
		Page:          res.Page,
		TotalPages:    res.TotalPages,
		FilteredCount: res.FilteredCount,
	})
}

// recordLog persists an activity log entry and mirrors it on the bus.
// Failures are logged and dropped: activity logging never breaks the
// operation it describes.
func (a *API) recordLog(actor, action, details string, level engagement.LogLevel) {
	entry := engagement.LogEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Action:    action,
		Level:     level,
		Details:   details,
		CreatedAt: a.now(),
	}
	if level == engagement.LevelSecurity {
		a.webhook.Ping(action, details, string(level))
	}
	if err := a.putJSON(engagement.KindLog, entry.ID, entry); err != nil {
		slog.Warn("failed to persist activity log entry", "action", action, "error", err)
		return
	}
	a.bus.Log(fmt.Sprintf("%s %s", actor, action), busKind(level))
}

func busKind(level engagement.LogLevel) notify.Kind {
	switch level {
	case engagement.LevelWarning:
		return notify.KindWarning
	case engagement.LevelError, engagement.LevelSecurity:
		return notify.KindError
	default:
		return notify.KindInfo
	}
}

func actorName(r *http.Request) string {
	if id, ok := identityFromContext(r.Context()); ok {
		return id.Username
	}
	return "anonymous"
}

var nameAsc = listquery.Sort{Key: "name", Direction: listquery.Ascending}
var newestFirst = listquery.Sort{Key: listquery.TimestampKey, Direction: listquery.Descending}

// --- Payloads ---

func (a *API) ListPayloads(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.Payload](a, w, r, engagement.KindPayload, nameAsc,
		"category", "platform", "severity")
}

func (a *API) GetPayload(w http.ResponseWriter, r *http.Request) {
	p, err := getJSON[engagement.Payload](a, engagement.KindPayload, chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) CreatePayload(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[PayloadRequest](w, r)
	if !ok {
		return
	}
	now := a.now()
	p := engagement.Payload{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Category:  req.Category,
		Platform:  req.Platform,
		Severity:  req.Severity,
		Content:   req.Content,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindPayload, p.ID, p); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordCreated, "payload", p.ID, "payload created: "+p.Name)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) UpdatePayload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := getJSON[engagement.Payload](a, engagement.KindPayload, id)
	if err != nil {
		mapError(w, err)
		return
	}
	req, ok := decodeJSON[PayloadRequest](w, r)
	if !ok {
		return
	}
	existing.Name = req.Name
	existing.Category = req.Category
	existing.Platform = req.Platform
	existing.Severity = req.Severity
	existing.Content = req.Content
	existing.Notes = req.Notes
	existing.UpdatedAt = a.now()
	if err := existing.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindPayload, id, existing); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordUpdated, "payload", id, "payload updated: "+existing.Name)
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) DeletePayload(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, engagement.KindPayload, "payload")
}

// --- Targets ---

func (a *API) ListTargets(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.Target](a, w, r, engagement.KindTarget, nameAsc,
		"status", "severity")
}

func (a *API) GetTarget(w http.ResponseWriter, r *http.Request) {
	t, err := getJSON[engagement.Target](a, engagement.KindTarget, chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) CreateTarget(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[TargetRequest](w, r)
	if !ok {
		return
	}
	now := a.now()
	t := engagement.Target{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Host:      req.Host,
		Status:    req.Status,
		Severity:  req.Severity,
		Notes:     req.Notes,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindTarget, t.ID, t); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordCreated, "target", t.ID, "target created: "+t.Name)
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) UpdateTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := getJSON[engagement.Target](a, engagement.KindTarget, id)
	if err != nil {
		mapError(w, err)
		return
	}
	req, ok := decodeJSON[TargetRequest](w, r)
	if !ok {
		return
	}
	existing.Name = req.Name
	existing.Host = req.Host
	existing.Status = req.Status
	existing.Severity = req.Severity
	existing.Notes = req.Notes
	existing.UpdatedAt = a.now()
	if err := existing.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindTarget, id, existing); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordUpdated, "target", id, "target updated: "+existing.Name)
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, engagement.KindTarget, "target")
}

// --- Boxes ---

func (a *API) ListBoxes(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.Box](a, w, r, engagement.KindBox, nameAsc,
		"os", "platform", "difficulty", "status")
}

func (a *API) GetBox(w http.ResponseWriter, r *http.Request) {
	b, err := getJSON[engagement.Box](a, engagement.KindBox, chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (a *API) CreateBox(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[BoxRequest](w, r)
	if !ok {
		return
	}
	now := a.now()
	b := engagement.Box{
		ID:         uuid.NewString(),
		Name:       req.Name,
		OS:         req.OS,
		Platform:   req.Platform,
		Difficulty: req.Difficulty,
		Status:     req.Status,
		Notes:      req.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := b.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindBox, b.ID, b); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordCreated, "box", b.ID, "box created: "+b.Name)
	writeJSON(w, http.StatusCreated, b)
}

func (a *API) UpdateBox(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := getJSON[engagement.Box](a, engagement.KindBox, id)
	if err != nil {
		mapError(w, err)
		return
	}
	req, ok := decodeJSON[BoxRequest](w, r)
	if !ok {
		return
	}
	existing.Name = req.Name
	existing.OS = req.OS
	existing.Platform = req.Platform
	existing.Difficulty = req.Difficulty
	existing.Status = req.Status
	existing.Notes = req.Notes
	existing.UpdatedAt = a.now()
	if err := existing.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindBox, id, existing); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordUpdated, "box", id, "box updated: "+existing.Name)
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) DeleteBox(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, engagement.KindBox, "box")
}

// --- Tools ---

func (a *API) ListTools(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.Tool](a, w, r, engagement.KindTool, nameAsc, "category")
}

func (a *API) GetTool(w http.ResponseWriter, r *http.Request) {
	t, err := getJSON[engagement.Tool](a, engagement.KindTool, chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (a *API) CreateTool(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[ToolRequest](w, r)
	if !ok {
		return
	}
	now := a.now()
	t := engagement.Tool{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		Cheatsheet:  req.Cheatsheet,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := t.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindTool, t.ID, t); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordCreated, "tool", t.ID, "tool created: "+t.Name)
	writeJSON(w, http.StatusCreated, t)
}

func (a *API) UpdateTool(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := getJSON[engagement.Tool](a, engagement.KindTool, id)
	if err != nil {
		mapError(w, err)
		return
	}
	req, ok := decodeJSON[ToolRequest](w, r)
	if !ok {
		return
	}
	existing.Name = req.Name
	existing.Category = req.Category
	existing.Description = req.Description
	existing.Cheatsheet = req.Cheatsheet
	existing.UpdatedAt = a.now()
	if err := existing.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindTool, id, existing); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordUpdated, "tool", id, "tool updated: "+existing.Name)
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) DeleteTool(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, engagement.KindTool, "tool")
}

// --- Wiki ---

func (a *API) ListWikiPages(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.WikiPage](a, w, r, engagement.KindWiki,
		listquery.Sort{Key: "title", Direction: listquery.Ascending})
}

func (a *API) GetWikiPage(w http.ResponseWriter, r *http.Request) {
	p, err := getJSON[engagement.WikiPage](a, engagement.KindWiki, chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (a *API) CreateWikiPage(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[WikiPageRequest](w, r)
	if !ok {
		return
	}
	now := a.now()
	p := engagement.WikiPage{
		ID:        uuid.NewString(),
		Title:     req.Title,
		Body:      req.Body,
		Tags:      req.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindWiki, p.ID, p); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordCreated, "wiki", p.ID, "wiki page created: "+p.Title)
	writeJSON(w, http.StatusCreated, p)
}

func (a *API) UpdateWikiPage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	existing, err := getJSON[engagement.WikiPage](a, engagement.KindWiki, id)
	if err != nil {
		mapError(w, err)
		return
	}
	req, ok := decodeJSON[WikiPageRequest](w, r)
	if !ok {
		return
	}
	existing.Title = req.Title
	existing.Body = req.Body
	existing.Tags = req.Tags
	existing.UpdatedAt = a.now()
	if err := existing.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindWiki, id, existing); err != nil {
		mapError(w, err)
		return
	}
	a.recordMutation(r, AuditRecordUpdated, "wiki", id, "wiki page updated: "+existing.Title)
	writeJSON(w, http.StatusOK, existing)
}

func (a *API) DeleteWikiPage(w http.ResponseWriter, r *http.Request) {
	a.deleteRecord(w, r, engagement.KindWiki, "wiki page")
}

// --- News ---

func (a *API) ListNews(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.NewsItem](a, w, r, engagement.KindNews, newestFirst, "source")
}

// --- Logs ---

func (a *API) ListLogs(w http.ResponseWriter, r *http.Request) {
	listCollection[engagement.LogEntry](a, w, r, engagement.KindLog, newestFirst,
		"level", "actor", "action")
}

func (a *API) CreateLog(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[LogRequest](w, r)
	if !ok {
		return
	}
	entry := engagement.LogEntry{
		ID:        uuid.NewString(),
		Actor:     actorName(r),
		Action:    req.Action,
		Level:     req.Level,
		Details:   req.Details,
		CreatedAt: a.now(),
	}
	if err := entry.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindLog, entry.ID, entry); err != nil {
		mapError(w, err)
		return
	}
	a.bus.Log(fmt.Sprintf("%s %s", entry.Actor, entry.Action), busKind(entry.Level))
	writeJSON(w, http.StatusCreated, entry)
}

// AuditSink handles POST /audit, the endpoint behind the client's honeypot
// ping. It accepts anonymous callers, records what it can, and always
// acknowledges: the sender never learns whether the write stuck.
func (a *API) AuditSink(w http.ResponseWriter, r *http.Request) {
	var req AuditPingRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err := dec.Decode(&req); err != nil || req.Action == "" {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	level := engagement.LogLevel(req.Level)
	switch level {
	case engagement.LevelInfo, engagement.LevelWarning, engagement.LevelError, engagement.LevelSecurity:
	default:
		level = engagement.LevelSecurity
	}

	actor := actorName(r)
	a.audit.logEvent(AuditHoneypotPing, r, actor,
		slog.String("action", req.Action),
		slog.String("level", string(level)))
	a.recordLog(actor, req.Action, req.Details, level)

	w.WriteHeader(http.StatusAccepted)
}

// Activity handles GET /activity: the in-process notification trail.
func (a *API) Activity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.bus.Entries())
}

// --- Users (admin panel) ---

func (a *API) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := loadAll[engagement.User](a, engagement.KindUser)
	if err != nil {
		mapError(w, err)
		return
	}
	q := parseListQuery(r, "role")
	if q.Sort.Key == "" {
		q.Sort = listquery.Sort{Key: "username", Direction: listquery.Ascending}
	}
	res := listquery.Apply(users, q)

	summaries := make([]UserSummary, 0, len(res.Items))
	for _, u := range res.Items {
		summaries = append(summaries, UserSummary{
			ID:        u.ID,
			Username:  u.Username,
			Role:      u.Role,
			PhotoURL:  u.PhotoURL,
			CreatedAt: u.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, ListResponse[UserSummary]{
		Items:         summaries,
		Page:          res.Page,
		TotalPages:    res.TotalPages,
		FilteredCount: res.FilteredCount,
	})
}

func (a *API) CreateUser(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeJSON[CreateUserRequest](w, r)
	if !ok {
		return
	}
	if len(req.Password) < minPasswordLen {
		writeError(w, http.StatusBadRequest,
			fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		return
	}

	username := engagement.NormalizeUsername(req.Username)
	if _, err := a.repo.Get(engagement.KindUser, username); err == nil {
		writeError(w, http.StatusConflict, "username already taken")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		mapError(w, err)
		return
	}

	hash, err := util.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	user := engagement.User{
		ID:        uuid.NewString(),
		Username:  username,
		Role:      req.Role,
		Password:  hash,
		PhotoURL:  req.PhotoURL,
		CreatedAt: a.now(),
	}
	if err := user.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindUser, username, user); err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditUserCreated, r, actorName(r), slog.String("created", username))
	a.bus.Success("user created: " + username)
	go a.recordLog(actorName(r), "user_created", username, engagement.LevelInfo)
	writeJSON(w, http.StatusCreated, UserSummary{
		ID:        user.ID,
		Username:  user.Username,
		Role:      user.Role,
		PhotoURL:  user.PhotoURL,
		CreatedAt: user.CreatedAt,
	})
}

func (a *API) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	username := engagement.NormalizeUsername(chi.URLParam(r, "username"))
	if actorName(r) == username {
		writeError(w, http.StatusBadRequest, "cannot change own role")
		return
	}
	req, ok := decodeJSON[UpdateUserRoleRequest](w, r)
	if !ok {
		return
	}

	user, err := a.userByName(username)
	if err != nil {
		mapError(w, err)
		return
	}
	user.Role = req.Role
	if err := user.Validate(); err != nil {
		mapError(w, err)
		return
	}
	if err := a.putJSON(engagement.KindUser, username, user); err != nil {
		mapError(w, err)
		return
	}

	a.audit.logEvent(AuditUserRoleChanged, r, actorName(r),
		slog.String("target", username),
		slog.String("role", string(req.Role)))
	go a.recordLog(actorName(r), "user_role_changed", username+" -> "+string(req.Role), engagement.LevelWarning)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := engagement.NormalizeUsername(chi.URLParam(r, "username"))
	if actorName(r) == username {
		writeError(w, http.StatusBadRequest, "cannot delete own account")
		return
	}
	if err := a.repo.Delete(engagement.KindUser, username); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditUserDeleted, r, actorName(r), slog.String("deleted", username))
	go a.recordLog(actorName(r), "user_deleted", username, engagement.LevelWarning)
	w.WriteHeader(http.StatusNoContent)
}

// --- shared mutation plumbing ---

func (a *API) recordMutation(r *http.Request, event AuditEvent, kind, id, message string) {
	actor := actorName(r)
	a.audit.logEvent(event, r, actor,
		slog.String("kind", kind),
		slog.String("id", id))
	a.bus.Success(message)
	go a.recordLog(actor, string(event)+":"+kind, message, engagement.LevelInfo)
}

func (a *API) deleteRecord(w http.ResponseWriter, r *http.Request, kind, label string) {
	id := chi.URLParam(r, "id")
	if err := a.repo.Delete(kind, id); err != nil {
		mapError(w, err)
		return
	}
	a.audit.logEvent(AuditRecordDeleted, r, actorName(r),
		slog.String("kind", kind),
		slog.String("id", id))
	a.bus.Info(label + " deleted")
	go a.recordLog(actorName(r), "record_deleted:"+kind, id, engagement.LevelInfo)
	w.WriteHeader(http.StatusNoContent)
}
