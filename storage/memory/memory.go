// Package memory provides a thread-safe in-memory implementation of
// storage.Repository. Suitable for tests, demos, and single-process use.
package memory

import (
	"fmt"
	"sync"

	"github.com/clearmind/redsheet/storage"
)

// Repository is a thread-safe in-memory storage.Repository.
type Repository struct {
	mu   sync.RWMutex
	data map[string]map[string][]byte
}

var _ storage.Repository = (*Repository)(nil)

// NewRepository creates an empty in-memory Repository.
func NewRepository() *Repository {
	return &Repository{data: make(map[string]map[string][]byte)}
}

func (r *Repository) Put(kind, id string, data []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[kind]; !ok {
		r.data[kind] = make(map[string][]byte)
	}
	r.data[kind][id] = append([]byte(nil), data...)
	return nil
}

func (r *Repository) Get(kind, id string) ([]byte, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records, ok := r.data[kind]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", kind, id, storage.ErrNotFound)
	}
	data, ok := records[id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", kind, id, storage.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

func (r *Repository) Delete(kind, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	records, ok := r.data[kind]
	if !ok {
		return fmt.Errorf("%s/%s: %w", kind, id, storage.ErrNotFound)
	}
	if _, ok := records[id]; !ok {
		return fmt.Errorf("%s/%s: %w", kind, id, storage.ErrNotFound)
	}
	delete(records, id)
	return nil
}

func (r *Repository) List(kind string) ([]storage.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	records := make([]storage.Record, 0, len(r.data[kind]))
	for id, data := range r.data[kind] {
		records = append(records, storage.Record{
			ID:   id,
			Data: append([]byte(nil), data...),
		})
	}
	return records, nil
}
