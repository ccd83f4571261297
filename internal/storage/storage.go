// Package storage persists profiles, progress entries and the social
// tables on sqlite (default) or postgres through database/sql.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"growwly/internal/apperr"
	"growwly/internal/config"
	"growwly/internal/logger"
)

const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

type Store struct {
	db     *sql.DB
	driver string

	// Now is the clock used for created_at/updated_at and session expiry.
	Now func() time.Time
}

// Open connects using cfg, creates the schema and seeds milestone types.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		if err := ensureSQLiteDir(cfg.DSN); err != nil {
			return nil, err
		}
	case DriverPostgres:
	default:
		return nil, apperr.Validation("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	s, err := New(ctx, db, cfg.Driver)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened handle.
func New(ctx context.Context, db *sql.DB, driver string) (*Store, error) {
	if driver == DriverSQLite {
		// sqlite allows one writer; a single connection also keeps
		// in-memory databases alive for the life of the pool.
		db.SetMaxOpenConns(1)
	}
	s := &Store{db: db, driver: driver, Now: time.Now}
	if err := db.PingContext(ctx); err != nil {
		return nil, apperr.Transient(fmt.Errorf("ping %s: %w", driver, err))
	}
	if err := s.createTables(ctx); err != nil {
		return nil, fmt.Errorf("create tables: %w", err)
	}
	if err := s.seedAchievementTypes(ctx); err != nil {
		return nil, fmt.Errorf("seed achievement types: %w", err)
	}
	logger.Debug("storage ready", "driver", driver)
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func ensureSQLiteDir(dsn string) error {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		if strings.Contains(path[i:], "mode=memory") {
			return nil
		}
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *Store) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, s.rebind(query), args...)
}

func (s *Store) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.db.QueryContext(ctx, s.rebind(query), args...)
}

func (s *Store) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, s.rebind(query), args...)
}

func (s *Store) now() time.Time { return s.Now().UTC() }

func newID() string { return uuid.NewString() }

func isUniqueViolation(err error) bool {
	var lite sqlite3.Error
	if errors.As(err, &lite) {
		return lite.ExtendedCode == sqlite3.ErrConstraintUnique ||
			lite.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// affected reports apperr.ErrNotFound when a mutation touched no rows.
func affected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.NotFound(format, args...)
	}
	return nil
}
