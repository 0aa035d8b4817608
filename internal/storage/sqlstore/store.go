// Package sqlstore implements storage.Source on database/sql for PostgreSQL,
// MySQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"regexp"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/sirendb/sirendb/internal/storage"
)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Store serves queries over a fixed set of tables.
type Store struct {
	db      *sql.DB
	dialect Dialect
	tables  map[string]*storage.Table
	logger  *slog.Logger
}

type Option func(*Store)

// WithLogger sets the logger used for statement tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens dsn with the driver of dialect and wraps it in a Store.
func Open(dialect, dsn string, tables []*storage.Table, opts ...Option) (*Store, error) {
	d, err := LookupDialect(dialect)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: open: %w", err)
	}
	s, err := New(db, dialect, tables, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect string, tables []*storage.Table, opts ...Option) (*Store, error) {
	d, err := LookupDialect(dialect)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db, dialect: d, tables: make(map[string]*storage.Table, len(tables)), logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	for _, t := range tables {
		if err := checkTable(t); err != nil {
			return nil, err
		}
		s.tables[t.Name] = t
	}
	return s, nil
}

func checkTable(t *storage.Table) error {
	names := []string{t.Name, t.PrimaryKey}
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	for _, r := range t.Relationships {
		names = append(names, r.Target, r.LocalColumn, r.RemoteColumn, r.OrderBy)
	}
	for _, n := range names {
		if n != "" && !identifier.MatchString(n) {
			return fmt.Errorf("sqlstore: invalid identifier %q in table %q", n, t.Name)
		}
	}
	return nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

// Dialect returns the store's dialect.
func (s *Store) Dialect() Dialect { return s.dialect }

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

// Close closes the underlying handle.
func (s *Store) Close() error { return s.db.Close() }

// Query implements storage.Source.
func (s *Store) Query(table string) (storage.Query, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("sqlstore: unknown table %q", table)
	}
	return &query{store: s, table: t}, nil
}
