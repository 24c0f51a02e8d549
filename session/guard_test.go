package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestGuardValidToken(t *testing.T) {
	store := NewMemoryStore()
	store.Login("header.eyJyb2xlIjoiYWRtaW4iLCJleHAiOjk5OTk5OTk5OTl9.sig", RoleAdmin)

	g := NewGuard(store, fixedClock(time.Unix(1700000000, 0)))
	assert.True(t, g.IsValid())
	assert.Equal(t, RoleAdmin, g.CurrentRole())
}

func TestGuardExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	// exp:1 — expired since 1970.
	store.Login(forgeToken(t, map[string]any{"role": "admin", "exp": 1}), RoleAdmin)

	g := NewGuard(store, nil)
	assert.False(t, g.IsValid())
	assert.Equal(t, RoleGuest, g.CurrentRole())
}

func TestGuardExpiryMonotonic(t *testing.T) {
	const exp = int64(1500)
	token := forgeToken(t, map[string]any{"role": "pentester", "exp": exp})
	store := NewMemoryStore()
	store.Login(token, RolePentester)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"well before expiry", time.Unix(0, 0), true},
		{"one ms before expiry", time.Unix(exp, 0).Add(-time.Millisecond), true},
		{"at expiry", time.Unix(exp, 0), false},
		{"after expiry", time.Unix(exp+1000, 0), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewGuard(store, fixedClock(tt.now))
			assert.Equal(t, tt.want, g.IsValid())
		})
	}
}

func TestGuardAbsentOrMalformed(t *testing.T) {
	store := NewMemoryStore()
	g := NewGuard(store, nil)

	assert.False(t, g.IsValid(), "no token")
	assert.Equal(t, RoleGuest, g.CurrentRole())

	store.Login("total garbage", RolePentester)
	assert.False(t, g.IsValid(), "malformed token downgrades silently")
	assert.Equal(t, RoleGuest, g.CurrentRole())
}

func TestGuardNoExpiryNeverExpiresLocally(t *testing.T) {
	store := NewMemoryStore()
	store.Login(forgeToken(t, map[string]any{"role": "pentester"}), RolePentester)

	g := NewGuard(store, fixedClock(time.Unix(1<<40, 0)))
	assert.True(t, g.IsValid())
	assert.Equal(t, RolePentester, g.CurrentRole())
}
