//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"gaiaf/internal/genome"

	_ "modernc.org/sqlite"
)

type SQLiteOrganismStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteOrganismStore(path string) *SQLiteOrganismStore {
	return &SQLiteOrganismStore{path: path}
}

func DefaultStoreKind() string {
	return KindSQLite
}

func newSQLiteOrganismStore(path string) (OrganismStore, error) {
	return NewSQLiteOrganismStore(path), nil
}

func (s *SQLiteOrganismStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteOrganismStore) SaveOrganism(ctx context.Context, organism *genome.Organism) error {
	if organism == nil || organism.ID == "" {
		return fmt.Errorf("%w: organism with id is required", ErrInvalidArgument)
	}
	db, err := s.getDB()
	if err != nil {
		return err
	}

	payload, err := EncodeOrganism(organism)
	if err != nil {
		return err
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO organisms (id, schema_version, codec_version, payload)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			schema_version = excluded.schema_version,
			codec_version = excluded.codec_version,
			payload = excluded.payload
	`, organism.ID, CurrentSchemaVersion, CurrentCodecVersion, payload)
	return err
}

func (s *SQLiteOrganismStore) GetOrganism(ctx context.Context, id string) (*genome.Organism, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	var payload []byte
	err = db.QueryRowContext(ctx, `SELECT payload FROM organisms WHERE id = ?`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: organism %s", ErrNotFound, id)
		}
		return nil, err
	}

	organism, err := DecodeOrganism(payload)
	if err != nil {
		return nil, fmt.Errorf("decode organism %s: %w", id, err)
	}
	return organism, nil
}

func (s *SQLiteOrganismStore) DeleteOrganism(ctx context.Context, id string) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	result, err := db.ExecContext(ctx, `DELETE FROM organisms WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: organism %s", ErrNotFound, id)
	}
	return nil
}

func (s *SQLiteOrganismStore) OrganismIDs(ctx context.Context) ([]string, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id FROM organisms ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLiteOrganismStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteOrganismStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS organisms (
			id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
	`)
	return err
}
