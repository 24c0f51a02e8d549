package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Store holds the token/role pair shared across the application. It is the
// only cross-component mutable state: many readers, but writes happen only
// through Login, Logout, and UpdateRole. Token and role are always written
// and cleared together so a half-logged-out state cannot be observed.
type Store interface {
	// Token returns the stored token, or "" when logged out.
	Token() string
	// Role returns the last-known role, RoleGuest when logged out.
	Role() Role
	// Login stores a token/role pair and notifies subscribers.
	Login(token string, role Role)
	// Logout clears both keys together and notifies subscribers.
	Logout()
	// UpdateRole replaces the role, keeping the token, and notifies
	// subscribers.
	UpdateRole(role Role)
	// Subscribe registers fn to run synchronously after every mutation.
	Subscribe(fn func())
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu    sync.RWMutex
	token string
	role  Role
	subs  []func()
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{role: RoleGuest}
}

func (s *MemoryStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *MemoryStore) Role() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role
}

func (s *MemoryStore) Login(token string, role Role) {
	s.mu.Lock()
	s.token = token
	s.role = role
	s.mu.Unlock()
	s.notify()
}

func (s *MemoryStore) Logout() {
	s.mu.Lock()
	s.token = ""
	s.role = RoleGuest
	s.mu.Unlock()
	s.notify()
}

func (s *MemoryStore) UpdateRole(role Role) {
	s.mu.Lock()
	s.role = role
	s.mu.Unlock()
	s.notify()
}

func (s *MemoryStore) Subscribe(fn func()) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

func (s *MemoryStore) notify() {
	s.mu.RLock()
	subs := make([]func(), len(s.subs))
	copy(subs, s.subs)
	s.mu.RUnlock()
	for _, fn := range subs {
		fn()
	}
}

// FileStore is a Store persisted as a JSON file, for CLI clients that keep a
// session across runs. The file holds both keys; Logout removes it.
type FileStore struct {
	MemoryStore
	path string
}

var _ Store = (*FileStore)(nil)

type fileState struct {
	Token string `json:"token"`
	Role  Role   `json:"role"`
}

// NewFileStore loads any existing session state from path. A missing or
// unreadable file is a logged-out session, not an error.
func NewFileStore(path string) *FileStore {
	s := &FileStore{path: path}
	s.role = RoleGuest
	data, err := os.ReadFile(path)
	if err != nil {
		return s
	}
	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return s
	}
	s.token = st.Token
	s.role = ParseRole(string(st.Role))
	return s
}

func (s *FileStore) Login(token string, role Role) {
	s.MemoryStore.Login(token, role)
	s.persist()
}

func (s *FileStore) Logout() {
	s.MemoryStore.Logout()
	os.Remove(s.path)
}

func (s *FileStore) UpdateRole(role Role) {
	s.MemoryStore.UpdateRole(role)
	s.persist()
}

func (s *FileStore) persist() {
	st := fileState{Token: s.Token(), Role: s.Role()}
	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return
	}
	tmp := fmt.Sprintf("%s.tmp", s.path)
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return
	}
	os.Rename(tmp, s.path)
}
