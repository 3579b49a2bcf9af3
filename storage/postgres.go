package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
)

var _ Store = (*PostgresStore)(nil)

// PostgresStore keeps records in the client_records table. Every record
// belongs to a scope so that the global identity and each browsing session's
// cart can share one table.
type PostgresStore struct {
	db    *sqlx.DB
	scope string
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*sqlx.DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("database url is required")
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "connect postgres")
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	return db, nil
}

func NewPostgresStore(ctx context.Context, db *sqlx.DB, scope string) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if strings.TrimSpace(scope) == "" {
		return nil, fmt.Errorf("record scope is required")
	}
	s := &PostgresStore{db: db, scope: scope}
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	const q = `
CREATE TABLE IF NOT EXISTS client_records (
	scope TEXT NOT NULL,
	key TEXT NOT NULL,
	value BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (scope, key)
)`
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "ensure client_records schema")
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	const q = `SELECT value FROM client_records WHERE scope = $1 AND key = $2`
	var value []byte
	if err := s.db.GetContext(ctx, &value, q, s.scope, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "select record %s", key)
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, value []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	const q = `
INSERT INTO client_records (scope, key, value, updated_at)
VALUES ($1, $2, $3, now())
ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.db.ExecContext(ctx, q, s.scope, key, value); err != nil {
		return errors.Wrapf(err, "upsert record %s", key)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	const q = `DELETE FROM client_records WHERE scope = $1 AND key = $2`
	if _, err := s.db.ExecContext(ctx, q, s.scope, key); err != nil {
		return errors.Wrapf(err, "delete record %s", key)
	}
	return nil
}
