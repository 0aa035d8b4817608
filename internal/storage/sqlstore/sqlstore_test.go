package sqlstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/go-cmp/cmp"
	"github.com/sirendb/sirendb/internal/storage"
	"github.com/stretchr/testify/require"
)

var (
	vendorsTable = &storage.Table{
		Name:       "vendors",
		PrimaryKey: "id",
		Columns: []storage.Column{
			{Name: "id", Type: storage.TypeInt},
			{Name: "name", Type: storage.TypeString},
		},
		Relationships: []storage.Relationship{
			{Name: "horns", Target: "horns", RemoteColumn: "vendor_id", List: true, OrderBy: "installed", Desc: true},
		},
	}
	hornsTable = &storage.Table{
		Name:       "horns",
		PrimaryKey: "id",
		Columns: []storage.Column{
			{Name: "id", Type: storage.TypeInt},
			{Name: "name", Type: storage.TypeString},
			{Name: "active", Type: storage.TypeBool},
			{Name: "decibels", Type: storage.TypeFloat, Nullable: true},
			{Name: "installed", Type: storage.TypeTime},
			{Name: "vendor_id", Type: storage.TypeInt, Nullable: true},
		},
		Relationships: []storage.Relationship{
			{Name: "vendor", Target: "vendors", LocalColumn: "vendor_id"},
		},
	}
	tables = []*storage.Table{vendorsTable, hornsTable}
)

func TestStatements(t *testing.T) {
	tests := []struct {
		dialect string
		build   func(storage.Query) storage.Query
		limit   int
		offset  int
		want    string
		args    []any
	}{
		{
			dialect: Postgres,
			build: func(q storage.Query) storage.Query {
				return q.Where(
					storage.Predicate{Column: "name", Op: storage.OpLike, Value: "Fed%"},
					storage.Predicate{Column: "active", Op: storage.OpIs, Value: true},
				).OrderBy("name", storage.Desc).OrderBy("id", storage.Asc)
			},
			limit:  5,
			offset: 10,
			want:   `SELECT id, name, active, decibels, installed, vendor_id FROM horns WHERE name LIKE $1 ESCAPE '\' AND active = $2 ORDER BY name DESC, id ASC LIMIT 5 OFFSET 10`,
			args:   []any{"Fed%", true},
		},
		{
			dialect: MySQL,
			build: func(q storage.Query) storage.Query {
				return q.Where(storage.Predicate{Column: "name", Op: storage.OpLike, Value: "a_"})
			},
			limit:  -1,
			offset: 3,
			want:   `SELECT id, name, active, decibels, installed, vendor_id FROM horns WHERE name LIKE ? ESCAPE '\\' LIMIT 18446744073709551615 OFFSET 3`,
			args:   []any{"a_"},
		},
		{
			dialect: SQLite,
			build: func(q storage.Query) storage.Query {
				return q.Where(storage.Predicate{Column: "vendor_id", Op: storage.OpEq, Value: nil})
			},
			limit: -1,
			want:  `SELECT id, name, active, decibels, installed, vendor_id FROM horns WHERE vendor_id IS NULL`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			db, _, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()
			s, err := New(db, tt.dialect, tables)
			require.NoError(t, err)

			q, err := s.Query("horns")
			require.NoError(t, err)
			stmt, args, err := tt.build(q).(*query).selectStmt(tt.limit, tt.offset)
			require.NoError(t, err)
			require.Equal(t, tt.want, stmt)
			if diff := cmp.Diff(tt.args, args); diff != "" {
				t.Fatalf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFetchNormalizesValues(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	s, err := New(db, Postgres, tables)
	require.NoError(t, err)

	mock.ExpectQuery("SELECT COUNT(*) FROM horns WHERE active = $1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT id, name, active, decibels, installed, vendor_id FROM horns WHERE active = $1 LIMIT 1").
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "active", "decibels", "installed", "vendor_id"}).
			AddRow(int64(7), []byte("Thunderbolt"), []byte("t"), []byte("120.5"), "2021-03-04 05:06:07", nil))

	q, err := s.Query("horns")
	require.NoError(t, err)
	q = q.Where(storage.Predicate{Column: "active", Op: storage.OpIs, Value: true})
	n, err := q.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, n)

	rows, err := q.Fetch(context.Background(), 1, 0)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, storage.Key{Kind: "horns", ID: int64(7)}, rows[0].Key())

	want := map[string]any{
		"id":        int64(7),
		"name":      "Thunderbolt",
		"active":    true,
		"decibels":  120.5,
		"installed": time.Date(2021, 3, 4, 5, 6, 7, 0, time.UTC),
		"vendor_id": nil,
	}
	got := make(map[string]any)
	for name := range want {
		v, err := rows[0].Attr(context.Background(), name)
		require.NoError(t, err)
		got[name] = v
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("row mismatch (-want +got):\n%s", diff)
	}

	vendor, err := rows[0].Attr(context.Background(), "vendor")
	require.NoError(t, err)
	require.Nil(t, vendor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryErrorsAreWrapped(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s, err := New(db, SQLite, tables)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	mock.ExpectQuery("SELECT COUNT").WillReturnError(boom)

	q, err := s.Query("vendors")
	require.NoError(t, err)
	_, err = q.Count(context.Background())
	require.ErrorIs(t, err, boom)
	require.ErrorContains(t, err, "sqlstore: query:")
}

func TestInvalidIdentifiers(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	bad := &storage.Table{Name: "horns; DROP TABLE x", PrimaryKey: "id"}
	_, err = New(db, SQLite, []*storage.Table{bad})
	require.Error(t, err)

	_, err = New(db, "oracle", tables)
	require.EqualError(t, err, `sqlstore: unsupported dialect "oracle"`)

	s, err := New(db, SQLite, tables)
	require.NoError(t, err)
	q, err := s.Query("horns")
	require.NoError(t, err)
	_, err = q.Where(storage.Predicate{Column: "1=1 --", Op: storage.OpEq, Value: 1}).Count(context.Background())
	require.ErrorContains(t, err, "invalid column")
}

const sqliteSchema = `
CREATE TABLE vendors (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE horns (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	active BOOLEAN NOT NULL,
	decibels REAL,
	installed DATETIME NOT NULL,
	vendor_id INTEGER REFERENCES vendors(id)
);`

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(SQLite, ":memory:", tables)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	s.DB().SetMaxOpenConns(1)

	ctx := context.Background()
	_, err = s.DB().ExecContext(ctx, sqliteSchema)
	require.NoError(t, err)
	exec := func(stmt string, args ...any) {
		_, err := s.DB().ExecContext(ctx, stmt, args...)
		require.NoError(t, err)
	}
	exec(`INSERT INTO vendors (id, name) VALUES (1, 'Federal Signal')`)
	t1 := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2022, 6, 1, 12, 30, 0, 0, time.UTC)
	exec(`INSERT INTO horns (id, name, active, decibels, installed, vendor_id) VALUES (?, ?, ?, ?, ?, ?)`, 1, "Model 2", true, 128.0, t1, 1)
	exec(`INSERT INTO horns (id, name, active, decibels, installed, vendor_id) VALUES (?, ?, ?, ?, ?, ?)`, 2, "Model 5", false, nil, t2, 1)
	exec(`INSERT INTO horns (id, name, active, decibels, installed, vendor_id) VALUES (?, ?, ?, ?, ?, ?)`, 3, "100%", true, nil, t2, nil)
	return s
}

func attr(t *testing.T, e storage.Entity, name string) any {
	t.Helper()
	v, err := e.Attr(context.Background(), name)
	require.NoError(t, err)
	return v
}

func TestSQLite(t *testing.T) {
	s := openSQLite(t)
	ctx := context.Background()

	t.Run("like with escape", func(t *testing.T) {
		q, err := s.Query("horns")
		require.NoError(t, err)
		rows, err := q.Where(storage.Predicate{Column: "name", Op: storage.OpLike, Value: `%0\%`}).Fetch(ctx, -1, 0)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, int64(3), rows[0].Key().ID)
	})

	t.Run("boolean and window", func(t *testing.T) {
		q, err := s.Query("horns")
		require.NoError(t, err)
		q = q.Where(storage.Predicate{Column: "active", Op: storage.OpIs, Value: true}).OrderBy("id", storage.Desc)
		n, err := q.Count(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, n)
		rows, err := q.Fetch(ctx, -1, 1)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, true, attr(t, rows[0], "active"))
		require.Equal(t, 128.0, attr(t, rows[0], "decibels"))
	})

	t.Run("relationships", func(t *testing.T) {
		q, err := s.Query("vendors")
		require.NoError(t, err)
		vendors, err := q.Fetch(ctx, 1, 0)
		require.NoError(t, err)
		require.Len(t, vendors, 1)

		horns := attr(t, vendors[0], "horns").([]storage.Entity)
		ids := make([]any, len(horns))
		for i, h := range horns {
			ids[i] = h.Key().ID
		}
		require.Equal(t, []any{int64(2), int64(1)}, ids)
		require.Equal(t, time.Date(2022, 6, 1, 12, 30, 0, 0, time.UTC), attr(t, horns[0], "installed"))

		owner := attr(t, horns[0], "vendor").(storage.Entity)
		require.Equal(t, "Federal Signal", attr(t, owner, "name"))
	})

	t.Run("canceled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		q, err := s.Query("horns")
		require.NoError(t, err)
		_, err = q.Count(cctx)
		require.Error(t, err)
	})
}

var _ storage.Source = (*Store)(nil)

func TestCreateTableStmt(t *testing.T) {
	d, err := LookupDialect(Postgres)
	require.NoError(t, err)
	stmt, err := CreateTableStmt(d, hornsTable)
	require.NoError(t, err)
	want := "CREATE TABLE IF NOT EXISTS horns (\n" +
		"\tid BIGSERIAL PRIMARY KEY,\n" +
		"\tname TEXT NOT NULL,\n" +
		"\tactive BOOLEAN NOT NULL,\n" +
		"\tdecibels DOUBLE PRECISION,\n" +
		"\tinstalled TIMESTAMP NOT NULL,\n" +
		"\tvendor_id BIGINT\n" +
		")"
	if diff := cmp.Diff(want, stmt); diff != "" {
		t.Fatalf("statement mismatch (-want +got):\n%s", diff)
	}
}
