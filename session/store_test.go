package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreLoginLogout(t *testing.T) {
	s := NewMemoryStore()
	assert.Equal(t, "", s.Token())
	assert.Equal(t, RoleGuest, s.Role())

	s.Login("tok", RolePentester)
	assert.Equal(t, "tok", s.Token())
	assert.Equal(t, RolePentester, s.Role())

	s.Logout()
	assert.Equal(t, "", s.Token(), "token and role clear together")
	assert.Equal(t, RoleGuest, s.Role())
}

func TestMemoryStoreNotifiesSubscribers(t *testing.T) {
	s := NewMemoryStore()
	var calls int
	s.Subscribe(func() { calls++ })

	s.Login("tok", RoleAdmin)
	s.UpdateRole(RolePentester)
	s.Logout()
	assert.Equal(t, 3, calls)
}

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewFileStore(path)
	s.Login("tok", RoleAdmin)

	reopened := NewFileStore(path)
	assert.Equal(t, "tok", reopened.Token())
	assert.Equal(t, RoleAdmin, reopened.Role())
}

func TestFileStoreLogoutRemovesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s := NewFileStore(path)
	s.Login("tok", RolePentester)
	require.FileExists(t, path)

	s.Logout()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	reopened := NewFileStore(path)
	assert.Equal(t, "", reopened.Token())
	assert.Equal(t, RoleGuest, reopened.Role())
}

func TestFileStoreCorruptFileIsLoggedOut(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	s := NewFileStore(path)
	assert.Equal(t, "", s.Token())
	assert.Equal(t, RoleGuest, s.Role())
}
