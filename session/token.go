// Package session provides advisory session-token decoding, the observable
// token/role store, and the validity guard used by the access gate.
//
// Token decoding here is deliberately unverified: the backend is the only
// party that checks signatures. Decoded claims drive UX decisions (which
// views to offer, which role to display) and must never be treated as
// proof of authorization.
package session

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the access level carried in a session token.
type Role string

const (
	RoleGuest     Role = "guest"
	RolePentester Role = "pentester"
	RoleAdmin     Role = "admin"
)

// ParseRole maps a claim string onto a known role. Unknown or empty values
// fall back to guest so a tampered token can never widen access.
func ParseRole(s string) Role {
	switch Role(s) {
	case RolePentester:
		return RolePentester
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleGuest
	}
}

// Claims is the decoded payload of a session token.
type Claims struct {
	Role      Role
	Subject   string
	ExpiresAt *time.Time
}

// Expired reports whether the claims carry an expiry that has passed at the
// given instant. Claims without an expiry never expire locally; the backend
// remains the authority in that case.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// DecodeToken decodes the claims segment of a compact token without
// verifying its signature. Only the middle segment is consumed; the header
// and signature are opaque. Any structural failure (wrong segment count,
// bad base64, bad JSON) yields nil; it never panics.
func DecodeToken(token string) *Claims {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil
	}
	payload, err := jwt.NewParser().DecodeSegment(parts[1])
	if err != nil {
		return nil
	}
	mc := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &mc); err != nil {
		return nil
	}

	claims := &Claims{Role: RoleGuest}

	if role, ok := mc["role"].(string); ok {
		claims.Role = ParseRole(role)
	}

	// Subject is carried as either "sub" or "id" depending on the issuer.
	if sub, ok := mc["sub"].(string); ok && sub != "" {
		claims.Subject = sub
	} else {
		claims.Subject = subjectString(mc["id"])
	}

	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		t := exp.Time
		claims.ExpiresAt = &t
	}

	return claims
}

func subjectString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
