// Package store provides the persistent entity store backed by SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/19queue/internal/domain/errs"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Initial schema
const currentSchemaVersion = 1

// Dialect selects placeholder style and connection tuning.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "pgx"
)

// Config represents store configuration.
type Config struct {
	Driver string // "sqlite" or "postgres"
	DSN    string // file path, ":memory:", or postgres URL
}

// Store provides durable storage for users, the shared queue and playlists.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

// Open connects to the configured database, applies pragmas and the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	dialect, err := parseDriver(cfg.Driver)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(string(dialect), cfg.DSN)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if dialect == DialectSQLite {
		// SQLite only supports one writer at a time; this also keeps
		// ":memory:" databases on a single connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		if err := applyPragmas(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
	}

	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	zlog.Info().Msgf("Store opened: driver=%s", dialect)
	return s, nil
}

// New wraps an existing connection without touching the schema.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

func parseDriver(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "", "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", errors.Newf("unsupported store driver: %s", name)
	}
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "failed to execute %q", pragma)
		}
	}
	return nil
}

// Migrate creates missing tables and records the schema version.
// It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to apply schema")
		}
	}

	q := s.Queries()
	_, err := q.exec(ctx,
		`INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?) ON CONFLICT (version) DO NOTHING`,
		currentSchemaVersion, toMillis(time.Now()))
	if err != nil {
		return errors.Wrap(err, "failed to record schema version")
	}
	return nil
}

// SchemaVersion returns the highest applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.Queries().queryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, errors.Wrap(err, "failed to read schema version")
	}
	return v, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Dialect returns the SQL dialect in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Queries returns accessors that run each statement on its own.
// Do not call it inside InTx: SQLite runs on a single connection.
func (s *Store) Queries() *Queries {
	return &Queries{db: s.db, dialect: s.dialect}
}

// InTx runs fn inside one transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (s *Store) InTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&Queries{db: tx, dialect: s.dialect}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "failed to commit transaction")
	}
	return nil
}

// LockKey names a transaction-scoped advisory lock.
type LockKey int64

// LockQueue guards every structural edit of queue_entries.
const LockQueue LockKey = 190001

// Lock holds key until the surrounding transaction ends. On postgres this
// serializes writers across processes; SQLite writers are already serialized
// by its single connection, so Lock is a no-op there. Call it only inside InTx.
func (q *Queries) Lock(ctx context.Context, key LockKey) error {
	if q.dialect != DialectPostgres {
		return nil
	}
	if _, err := q.exec(ctx, `SELECT pg_advisory_xact_lock(?)`, int64(key)); err != nil {
		return errors.Wrapf(err, "failed to take advisory lock %d", key)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries holds the per-table accessors.
type Queries struct {
	db      querier
	dialect Dialect
}

func (q *Queries) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return q.db.ExecContext(ctx, rebind(q.dialect, query), args...)
}

func (q *Queries) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return q.db.QueryContext(ctx, rebind(q.dialect, query), args...)
}

func (q *Queries) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return q.db.QueryRowContext(ctx, rebind(q.dialect, query), args...)
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func rebind(dialect Dialect, query string) string {
	if dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func nullMillis(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMilli(), Valid: true}
}

func fromNullMillis(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := fromMillis(n.Int64)
	return &t
}

// affected returns errs.ErrNotFound wrapped with what when no row changed.
func affected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n == 0 {
		return errors.Wrapf(errs.ErrNotFound, "%s", what)
	}
	return nil
}
