package engagement

import (
	"unicode"
	"unicode/utf8"

	"github.com/clearmind/redsheet/session"
)

const (
	MaxNameLength    = 200
	MaxContentLength = 64 * 1024
	MaxUsernameLen   = 64
	MinUsernameLen   = 3
)

func validateName(name, label string) error {
	if name == "" {
		return validationErrorf("%s must not be empty", label)
	}
	if len(name) > MaxNameLength {
		return validationErrorf("%s exceeds maximum length of %d", label, MaxNameLength)
	}
	if !utf8.ValidString(name) {
		return validationErrorf("%s contains invalid UTF-8", label)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return validationErrorf("%s contains control character", label)
		}
	}
	return nil
}

func validateContent(content, label string) error {
	if len(content) > MaxContentLength {
		return validationErrorf("%s exceeds maximum length of %d", label, MaxContentLength)
	}
	if !utf8.ValidString(content) {
		return validationErrorf("%s contains invalid UTF-8", label)
	}
	return nil
}

// Validate checks a payload before persistence.
func (p Payload) Validate() error {
	if err := validateName(p.Name, "payload name"); err != nil {
		return err
	}
	if err := validateContent(p.Content, "payload content"); err != nil {
		return err
	}
	switch p.Category {
	case CategoryXSS, CategorySQLi, CategoryLFI, CategoryRCE, CategoryRevShell, CategoryPrivesc, CategoryOther:
	default:
		return validationErrorf("unknown payload category %q", p.Category)
	}
	switch p.Platform {
	case PlatformLinux, PlatformWindows, PlatformMacOS, PlatformWeb, PlatformMulti:
	default:
		return validationErrorf("unknown platform %q", p.Platform)
	}
	switch p.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return validationErrorf("unknown severity %q", p.Severity)
	}
	return nil
}

// Validate checks a target before persistence.
func (t Target) Validate() error {
	if err := validateName(t.Name, "target name"); err != nil {
		return err
	}
	if err := validateName(t.Host, "target host"); err != nil {
		return err
	}
	switch t.Status {
	case TargetPending, TargetScanning, TargetExploited, TargetOwned, TargetAbandoned:
	default:
		return validationErrorf("unknown target status %q", t.Status)
	}
	switch t.Severity {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
	default:
		return validationErrorf("unknown severity %q", t.Severity)
	}
	return nil
}

// Validate checks a box before persistence.
func (b Box) Validate() error {
	if err := validateName(b.Name, "box name"); err != nil {
		return err
	}
	switch b.OS {
	case OSLinux, OSWindows, OSOther:
	default:
		return validationErrorf("unknown box os %q", b.OS)
	}
	switch b.Platform {
	case BoxHTB, BoxTHM, BoxVulnLab, BoxCustom:
	default:
		return validationErrorf("unknown box platform %q", b.Platform)
	}
	switch b.Difficulty {
	case DifficultyEasy, DifficultyMedium, DifficultyHard, DifficultyInsane:
	default:
		return validationErrorf("unknown box difficulty %q", b.Difficulty)
	}
	switch b.Status {
	case BoxTodo, BoxActive, BoxRooted:
	default:
		return validationErrorf("unknown box status %q", b.Status)
	}
	return nil
}

// Validate checks a tool before persistence.
func (t Tool) Validate() error {
	if err := validateName(t.Name, "tool name"); err != nil {
		return err
	}
	return validateContent(t.Cheatsheet, "tool cheatsheet")
}

// Validate checks a wiki page before persistence.
func (w WikiPage) Validate() error {
	if err := validateName(w.Title, "wiki title"); err != nil {
		return err
	}
	return validateContent(w.Body, "wiki body")
}

// Validate checks a log entry before persistence.
func (l LogEntry) Validate() error {
	if err := validateName(l.Action, "log action"); err != nil {
		return err
	}
	switch l.Level {
	case LevelInfo, LevelWarning, LevelError, LevelSecurity:
	default:
		return validationErrorf("unknown log level %q", l.Level)
	}
	return validateContent(l.Details, "log details")
}

// Validate checks a user account before persistence. The username must
// already be normalized.
func (u User) Validate() error {
	if len(u.Username) < MinUsernameLen {
		return validationErrorf("username must be at least %d characters", MinUsernameLen)
	}
	if len(u.Username) > MaxUsernameLen {
		return validationErrorf("username exceeds maximum length of %d", MaxUsernameLen)
	}
	if u.Username != NormalizeUsername(u.Username) {
		return validationErrorf("username is not in canonical form")
	}
	for _, r := range u.Username {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return validationErrorf("username contains whitespace or control character")
		}
	}
	switch u.Role {
	case session.RoleGuest, session.RolePentester, session.RoleAdmin:
	default:
		return validationErrorf("unknown role %q", u.Role)
	}
	return nil
}
