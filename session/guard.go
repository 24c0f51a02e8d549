package session

import "time"

// Guard answers "is the current session valid" and "what role is it" as a
// pure function of the stored token and the clock. It never mutates the
// store; purging an invalid session is the access gate's job, so that the
// decision point and the side effect live at the routing boundary.
type Guard struct {
	store Store
	now   func() time.Time
}

// NewGuard creates a Guard over store. now defaults to time.Now.
func NewGuard(store Store, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{store: store, now: now}
}

// IsValid reports whether a decodable, unexpired token is present.
func (g *Guard) IsValid() bool {
	return g.Valid(g.store.Token())
}

// Valid reports whether the given token is decodable and unexpired.
func (g *Guard) Valid(token string) bool {
	claims := DecodeToken(token)
	if claims == nil {
		return false
	}
	return !claims.Expired(g.now())
}

// CurrentRole returns the role embedded in a valid session token, or
// RoleGuest otherwise. It never fails: a malformed token is simply a guest.
func (g *Guard) CurrentRole() Role {
	token := g.store.Token()
	claims := DecodeToken(token)
	if claims == nil || claims.Expired(g.now()) {
		return RoleGuest
	}
	return claims.Role
}
