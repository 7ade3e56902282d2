// Package repository is the PostgreSQL storage of users, tenants, access
// grants and subscriptions. Every method checks the context before touching
// the database and maps "no rows" to models.ErrNotFound.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	// Registers the pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/magabrotheeeer/strata-gate/internal/models"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Storage wraps the database handle.
type Storage struct {
	DB *sql.DB
}

// New opens a connection pool and pings it.
func New(ctx context.Context, storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// NewWithDB wraps an existing handle.
func NewWithDB(db *sql.DB) *Storage {
	return &Storage{DB: db}
}

// Ready reports whether the schema is in place.
func (s *Storage) Ready(ctx context.Context) error {
	const op = "storage.Ready"
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'subscriptions'
    )`).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return fmt.Errorf("%s: required table subscriptions missing", op)
	}
	return nil
}

// Close closes the pool.
func (s *Storage) Close() error {
	return s.DB.Close()
}

func checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
		return nil
	}
}

// mapErr translates driver errors into the model taxonomy.
func mapErr(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, models.ErrAlreadyExists, pgErr.ConstraintName)
		case foreignKeyViolation:
			// The referenced tenant or user is gone.
			return fmt.Errorf("%s: %w: %s", op, models.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time.UTC()
	return &v
}
