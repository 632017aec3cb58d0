// Package sqlstore implements storage.Storage on top of sqlx. Queries are written
// with ? placeholders and rebound for the driver, so the same code serves the
// postgres and sqlite adapters. Every statement runs through the transaction
// manager's context getter and joins a transaction when one is open.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/jmoiron/sqlx"

	"github.com/kurihiro0119/github-review-metrics/internal/storage"
)

// Store implements storage.Storage
type Store struct {
	db     *sqlx.DB
	getter *trmsqlx.CtxGetter
	schema []string
}

var _ storage.Storage = (*Store)(nil)

// New wraps an open connection. schema holds the adapter's DDL statements.
func New(db *sqlx.DB, schema []string) *Store {
	return &Store{
		db:     db,
		getter: trmsqlx.DefaultCtxGetter,
		schema: schema,
	}
}

// DB exposes the connection for the transaction manager factory.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Migrate creates the schema if it does not exist yet
func (s *Store) Migrate(ctx context.Context) error {
	const op = "sqlstore.Migrate"

	for _, stmt := range s.schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return wrap(op, err)
		}
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) rebind(query string) string {
	return s.db.Rebind(query)
}

func wrap(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
