// Package storage provides the persistence abstraction for engagement
// records. Records are opaque JSON blobs keyed by kind and id; the domain
// layer owns their shape.
package storage

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// Record pairs a record id with its serialized form.
type Record struct {
	ID   string
	Data []byte
}

// Repository defines record storage. Implementations must be safe for
// concurrent use.
type Repository interface {
	// Put creates or replaces a record.
	Put(kind, id string, data []byte) error
	// Get retrieves a record, or ErrNotFound.
	Get(kind, id string) ([]byte, error)
	// Delete removes a record, or returns ErrNotFound.
	Delete(kind, id string) error
	// List returns all records of a kind, in unspecified order.
	List(kind string) ([]Record, error)
}
