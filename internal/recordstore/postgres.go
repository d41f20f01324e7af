package recordstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// PostgresStore keeps collections in a single store_records table of
// (collection, position, line) rows.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore connects to Postgres and ensures the records table
// exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &PostgresStore{db: db}
	if err := s.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStoreFromDB wraps an existing connection. Used by tests.
func NewPostgresStoreFromDB(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS store_records (
			collection TEXT NOT NULL,
			position   INT  NOT NULL,
			line       TEXT NOT NULL,
			PRIMARY KEY (collection, position)
		)`)
	if err != nil {
		return fmt.Errorf("ensure store_records schema: %w", err)
	}
	return nil
}

// ReadAll returns the collection's lines ordered by position.
func (s *PostgresStore) ReadAll(ctx context.Context, collection string) ([]string, error) {
	var lines []string
	err := s.db.SelectContext(ctx, &lines,
		"SELECT line FROM store_records WHERE collection = $1 ORDER BY position", collection)
	if err != nil {
		return nil, fmt.Errorf("read collection %s: %w", collection, err)
	}
	return lines, nil
}

// WriteAll replaces the collection's rows in one transaction.
func (s *PostgresStore) WriteAll(ctx context.Context, collection string, lines []string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM store_records WHERE collection = $1", collection); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}

	for i, line := range lines {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO store_records (collection, position, line) VALUES ($1, $2, $3)",
			collection, i, line); err != nil {
			return fmt.Errorf("write collection %s: %w", collection, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write collection %s: %w", collection, err)
	}
	return nil
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
