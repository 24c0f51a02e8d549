package api

import (
	"time"

	"github.com/clearmind/redsheet/engagement"
	"github.com/clearmind/redsheet/session"
)

// ErrorResponse is returned for all error cases.
type ErrorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	Token     string       `json:"token"`
	Role      session.Role `json:"role"`
	Username  string       `json:"username"`
	PhotoURL  string       `json:"photo_url,omitempty"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// WhoAmIResponse is returned from GET /auth/me.
type WhoAmIResponse struct {
	Username string       `json:"username"`
	Role     session.Role `json:"role"`
}

// ListResponse is the envelope for every paginated collection.
type ListResponse[T any] struct {
	Items         []T `json:"items"`
	Page          int `json:"page"`
	TotalPages    int `json:"total_pages"`
	FilteredCount int `json:"filtered_count"`
}

// PayloadRequest is the JSON body for creating or updating a payload.
type PayloadRequest struct {
	Name     string                     `json:"name"`
	Category engagement.PayloadCategory `json:"category"`
	Platform engagement.Platform        `json:"platform"`
	Severity engagement.Severity        `json:"severity"`
	Content  string                     `json:"content"`
	Notes    string                     `json:"notes,omitempty"`
}

// TargetRequest is the JSON body for creating or updating a target.
type TargetRequest struct {
	Name     string                  `json:"name"`
	Host     string                  `json:"host"`
	Status   engagement.TargetStatus `json:"status"`
	Severity engagement.Severity     `json:"severity"`
	Notes    string                  `json:"notes,omitempty"`
}

// BoxRequest is the JSON body for creating or updating a box.
type BoxRequest struct {
	Name       string                   `json:"name"`
	OS         engagement.BoxOS         `json:"os"`
	Platform   engagement.BoxPlatform   `json:"platform"`
	Difficulty engagement.BoxDifficulty `json:"difficulty"`
	Status     engagement.BoxStatus     `json:"status"`
	Notes      string                   `json:"notes,omitempty"`
}

// ToolRequest is the JSON body for creating or updating a tool.
type ToolRequest struct {
	Name        string `json:"name"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Cheatsheet  string `json:"cheatsheet,omitempty"`
}

// WikiPageRequest is the JSON body for creating or updating a wiki page.
type WikiPageRequest struct {
	Title string   `json:"title"`
	Body  string   `json:"body"`
	Tags  []string `json:"tags,omitempty"`
}

// LogRequest is the JSON body for POST /logs.
type LogRequest struct {
	Action  string              `json:"action"`
	Details string              `json:"details,omitempty"`
	Level   engagement.LogLevel `json:"level"`
}

// AuditPingRequest is the JSON body for POST /audit, the honeypot sink.
type AuditPingRequest struct {
	Action  string `json:"action"`
	Details string `json:"details,omitempty"`
	Level   string `json:"level,omitempty"`
}

// CreateUserRequest is the JSON body for POST /users.
type CreateUserRequest struct {
	Username string       `json:"username"`
	Password string       `json:"password"`
	Role     session.Role `json:"role"`
	PhotoURL string       `json:"photo_url,omitempty"`
}

// UpdateUserRoleRequest is the JSON body for PUT /users/{username}/role.
type UpdateUserRoleRequest struct {
	Role session.Role `json:"role"`
}

// UserSummary describes an account without its credential material.
type UserSummary struct {
	ID        string       `json:"id"`
	Username  string       `json:"username"`
	Role      session.Role `json:"role"`
	PhotoURL  string       `json:"photo_url,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
