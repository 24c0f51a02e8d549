// Package engagement defines the records tracked during a penetration test:
// payloads, targets, lab boxes, tools, wiki pages, news items, activity
// logs, and user accounts. Every listable record implements listquery.Item
// so the same query engine serves every list screen.
package engagement

import (
	"time"

	"github.com/clearmind/redsheet/internal/util"
	"github.com/clearmind/redsheet/session"
)

// Record kinds, used as storage buckets.
const (
	KindPayload = "payload"
	KindTarget  = "target"
	KindBox     = "box"
	KindTool    = "tool"
	KindWiki    = "wiki"
	KindNews    = "news"
	KindLog     = "log"
	KindUser    = "user"
)

// PayloadCategory classifies a payload by technique.
type PayloadCategory string

const (
	CategoryXSS      PayloadCategory = "xss"
	CategorySQLi     PayloadCategory = "sqli"
	CategoryLFI      PayloadCategory = "lfi"
	CategoryRCE      PayloadCategory = "rce"
	CategoryRevShell PayloadCategory = "revshell"
	CategoryPrivesc  PayloadCategory = "privesc"
	CategoryOther    PayloadCategory = "other"
)

// Platform is the environment a payload or box targets.
type Platform string

const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
	PlatformMacOS   Platform = "macos"
	PlatformWeb     Platform = "web"
	PlatformMulti   Platform = "multi"
)

// Severity ranks findings and payloads.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Payload is a library entry: an attack string or snippet with its context.
type Payload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  PayloadCategory `json:"category"`
	Platform  Platform        `json:"platform"`
	Severity  Severity        `json:"severity"`
	Content   string          `json:"content"`
	Notes     string          `json:"notes,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (p Payload) SearchText() []string {
	return []string{p.Name, p.Content, p.Notes}
}

func (p Payload) Field(dimension string) string {
	switch dimension {
	case "category":
		return string(p.Category)
	case "platform":
		return string(p.Platform)
	case "severity":
		return string(p.Severity)
	case "name":
		return p.Name
	default:
		return ""
	}
}

func (p Payload) EventTime() time.Time { return p.CreatedAt }

// TargetStatus tracks progress against an engagement target.
type TargetStatus string

const (
	TargetPending   TargetStatus = "pending"
	TargetScanning  TargetStatus = "scanning"
	TargetExploited TargetStatus = "exploited"
	TargetOwned     TargetStatus = "owned"
	TargetAbandoned TargetStatus = "abandoned"
)

// Target is a host in scope for the current engagement.
type Target struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Host      string       `json:"host"`
	Status    TargetStatus `json:"status"`
	Severity  Severity     `json:"severity"`
	Notes     string       `json:"notes,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

func (t Target) SearchText() []string { return []string{t.Name, t.Host, t.Notes} }

func (t Target) Field(dimension string) string {
	switch dimension {
	case "status":
		return string(t.Status)
	case "severity":
		return string(t.Severity)
	case "name":
		return t.Name
	default:
		return ""
	}
}

func (t Target) EventTime() time.Time { return t.CreatedAt }

// BoxOS is the operating system of a practice box.
type BoxOS string

const (
	OSLinux   BoxOS = "linux"
	OSWindows BoxOS = "windows"
	OSOther   BoxOS = "other"
)

// BoxPlatform names the lab provider a box comes from.
type BoxPlatform string

const (
	BoxHTB     BoxPlatform = "htb"
	BoxTHM     BoxPlatform = "thm"
	BoxVulnLab BoxPlatform = "vulnlab"
	BoxCustom  BoxPlatform = "custom"
)

// BoxDifficulty rates a practice box.
type BoxDifficulty string

const (
	DifficultyEasy   BoxDifficulty = "easy"
	DifficultyMedium BoxDifficulty = "medium"
	DifficultyHard   BoxDifficulty = "hard"
	DifficultyInsane BoxDifficulty = "insane"
)

// BoxStatus tracks work on a practice box.
type BoxStatus string

const (
	BoxTodo   BoxStatus = "todo"
	BoxActive BoxStatus = "active"
	BoxRooted BoxStatus = "rooted"
)

// Box is a practice machine tracked alongside engagement work.
type Box struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	OS         BoxOS         `json:"os"`
	Platform   BoxPlatform   `json:"platform"`
	Difficulty BoxDifficulty `json:"difficulty"`
	Status     BoxStatus     `json:"status"`
	Notes      string        `json:"notes,omitempty"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

func (b Box) SearchText() []string { return []string{b.Name, b.Notes} }

func (b Box) Field(dimension string) string {
	switch dimension {
	case "os":
		return string(b.OS)
	case "platform":
		return string(b.Platform)
	case "difficulty":
		return string(b.Difficulty)
	case "status":
		return string(b.Status)
	case "name":
		return b.Name
	default:
		return ""
	}
}

func (b Box) EventTime() time.Time { return b.CreatedAt }

// Tool is a cheatsheet entry for a testing tool.
type Tool struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Cheatsheet  string    `json:"cheatsheet,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (t Tool) SearchText() []string {
	return []string{t.Name, t.Description, t.Cheatsheet}
}

func (t Tool) Field(dimension string) string {
	switch dimension {
	case "category":
		return t.Category
	case "name":
		return t.Name
	default:
		return ""
	}
}

func (t Tool) EventTime() time.Time { return t.CreatedAt }

// WikiPage is a free-form engagement note. The body is markdown source;
// rendering happens elsewhere.
type WikiPage struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (w WikiPage) SearchText() []string {
	fields := []string{w.Title, w.Body}
	return append(fields, w.Tags...)
}

func (w WikiPage) Field(dimension string) string {
	if dimension == "title" {
		return w.Title
	}
	return ""
}

func (w WikiPage) EventTime() time.Time { return w.UpdatedAt }

// NewsItem is an aggregated headline from an external feed.
type NewsItem struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	PublishedAt time.Time `json:"published_at"`
	FetchedAt   time.Time `json:"fetched_at"`
}

func (n NewsItem) SearchText() []string { return []string{n.Title, n.Source} }

func (n NewsItem) Field(dimension string) string {
	if dimension == "source" {
		return n.Source
	}
	return ""
}

func (n NewsItem) EventTime() time.Time { return n.PublishedAt }

// LogLevel classifies an activity log entry.
type LogLevel string

const (
	LevelInfo     LogLevel = "info"
	LevelWarning  LogLevel = "warning"
	LevelError    LogLevel = "error"
	LevelSecurity LogLevel = "security"
)

// LogEntry records who did what, when.
type LogEntry struct {
	ID        string    `json:"id"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Level     LogLevel  `json:"level"`
	Details   string    `json:"details,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (l LogEntry) SearchText() []string {
	return []string{l.Actor, l.Action, l.Details}
}

func (l LogEntry) Field(dimension string) string {
	switch dimension {
	case "level":
		return string(l.Level)
	case "actor":
		return l.Actor
	case "action":
		return l.Action
	default:
		return ""
	}
}

func (l LogEntry) EventTime() time.Time { return l.CreatedAt }

// User is an account in the admin panel. The password never leaves the
// hash.
type User struct {
	ID        string            `json:"id"`
	Username  string            `json:"username"`
	Role      session.Role      `json:"role"`
	Password  util.PasswordHash `json:"password"`
	PhotoURL  string            `json:"photo_url,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (u User) SearchText() []string { return []string{u.Username} }

func (u User) Field(dimension string) string {
	switch dimension {
	case "role":
		return string(u.Role)
	case "username":
		return u.Username
	default:
		return ""
	}
}

func (u User) EventTime() time.Time { return u.CreatedAt }

// NormalizeUsername canonicalizes a username for storage and lookup.
func NormalizeUsername(name string) string {
	return util.NormalizeLower(name)
}
