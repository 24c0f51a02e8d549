// Package postgres implements storage.Repository backed by PostgreSQL.
//
// The records table uses a composite primary key (kind, record_id) that
// mirrors the key space of the BBolt and in-memory backends; record bodies
// are stored as BYTEA.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearmind/redsheet/storage"
)

// Schema creates the records table. Run once at deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS records (
    kind      TEXT  NOT NULL,
    record_id TEXT  NOT NULL,
    data      BYTEA NOT NULL,
    PRIMARY KEY (kind, record_id)
);
`

// Store implements storage.Repository backed by PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

var _ storage.Repository = (*Store)(nil)

// NewRepository returns a Repository backed by the given pgx pool.
func NewRepository(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// NewRepositoryFromDSN connects to the database, applies the schema, and
// returns a Repository.
func NewRepositoryFromDSN(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, Schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return NewRepository(pool), nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) Put(kind, id string, data []byte) error {
	_, err := s.pool.Exec(context.Background(),
		`INSERT INTO records (kind, record_id, data) VALUES ($1, $2, $3)
		 ON CONFLICT (kind, record_id) DO UPDATE SET data = EXCLUDED.data`,
		kind, id, data)
	if err != nil {
		return fmt.Errorf("putting %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *Store) Get(kind, id string) ([]byte, error) {
	var data []byte
	err := s.pool.QueryRow(context.Background(),
		`SELECT data FROM records WHERE kind = $1 AND record_id = $2`,
		kind, id).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%s/%s: %w", kind, id, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", kind, id, err)
	}
	return data, nil
}

func (s *Store) Delete(kind, id string) error {
	tag, err := s.pool.Exec(context.Background(),
		`DELETE FROM records WHERE kind = $1 AND record_id = $2`, kind, id)
	if err != nil {
		return fmt.Errorf("deleting %s/%s: %w", kind, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s/%s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func (s *Store) List(kind string) ([]storage.Record, error) {
	rows, err := s.pool.Query(context.Background(),
		`SELECT record_id, data FROM records WHERE kind = $1`, kind)
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	defer rows.Close()

	var records []storage.Record
	for rows.Next() {
		var rec storage.Record
		if err := rows.Scan(&rec.ID, &rec.Data); err != nil {
			return nil, fmt.Errorf("scanning %s record: %w", kind, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing %s: %w", kind, err)
	}
	return records, nil
}
