package sqlstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/sirendb/sirendb/internal/storage"
)

type order struct {
	column string
	dir    storage.Direction
}

type query struct {
	store  *Store
	table  *storage.Table
	preds  []storage.Predicate
	orders []order
}

var _ storage.Query = (*query)(nil)

func (q *query) Table() string { return q.table.Name }

func (q *query) Where(preds ...storage.Predicate) storage.Query {
	c := *q
	c.preds = append(slices.Clip(q.preds), preds...)
	return &c
}

func (q *query) OrderBy(column string, dir storage.Direction) storage.Query {
	c := *q
	c.orders = append(slices.Clip(q.orders), order{column: column, dir: dir})
	return &c
}

// where renders the WHERE clause and its arguments.
func (q *query) where() (string, []any, error) {
	if len(q.preds) == 0 {
		return "", nil, nil
	}
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString(" WHERE ")
	for i, p := range q.preds {
		if !identifier.MatchString(p.Column) {
			return "", nil, fmt.Errorf("sqlstore: invalid column %q", p.Column)
		}
		if i > 0 {
			b.WriteString(" AND ")
		}
		if p.Value == nil {
			fmt.Fprintf(&b, "%s IS NULL", p.Column)
			continue
		}
		args = append(args, p.Value)
		ph := q.store.dialect.Placeholder(len(args))
		switch p.Op {
		case storage.OpEq, storage.OpIs:
			fmt.Fprintf(&b, "%s = %s", p.Column, ph)
		case storage.OpLike:
			fmt.Fprintf(&b, "%s LIKE %s ESCAPE %s", p.Column, ph, q.store.dialect.Escape)
		default:
			return "", nil, fmt.Errorf("sqlstore: unsupported operator %q", p.Op)
		}
	}
	return b.String(), args, nil
}

func (q *query) orderBy() (string, error) {
	if len(q.orders) == 0 {
		return "", nil
	}
	parts := make([]string, len(q.orders))
	for i, o := range q.orders {
		if !identifier.MatchString(o.column) {
			return "", fmt.Errorf("sqlstore: invalid column %q", o.column)
		}
		dir := "ASC"
		if o.dir == storage.Desc {
			dir = "DESC"
		}
		parts[i] = o.column + " " + dir
	}
	return " ORDER BY " + strings.Join(parts, ", "), nil
}

// selectStmt renders the statement Fetch runs.
func (q *query) selectStmt(limit, offset int) (string, []any, error) {
	where, args, err := q.where()
	if err != nil {
		return "", nil, err
	}
	orderBy, err := q.orderBy()
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, len(q.table.Columns))
	for i, c := range q.table.Columns {
		cols[i] = c.Name
	}
	stmt := "SELECT " + strings.Join(cols, ", ") + " FROM " + q.table.Name + where + orderBy + q.store.dialect.limit(limit, offset)
	return stmt, args, nil
}

func (q *query) Count(ctx context.Context) (n int, err error) {
	where, args, err := q.where()
	if err != nil {
		return 0, err
	}
	stmt := "SELECT COUNT(*) FROM " + q.table.Name + where
	done := q.store.trace(ctx, q.table.Name, stmt)
	defer func() { done(1, err) }()

	if err := q.store.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlstore: query: %w", err)
	}
	return n, nil
}

func (q *query) Fetch(ctx context.Context, limit, offset int) (out []storage.Entity, err error) {
	stmt, args, err := q.selectStmt(limit, offset)
	if err != nil {
		return nil, err
	}
	done := q.store.trace(ctx, q.table.Name, stmt)
	defer func() { done(len(out), err) }()

	rows, err := q.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlstore: query: %w", err)
	}
	defer rows.Close()

	out = make([]storage.Entity, 0)
	for rows.Next() {
		r, err := q.store.scan(q.table, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlstore: query: %w", err)
	}
	return out, nil
}

// trace publishes the start of stmt and returns the matching finisher.
func (s *Store) trace(ctx context.Context, table, stmt string) func(rows int, err error) {
	start := time.Now()
	eventbus.Publish(ctx, events.QueryStart{Table: table, Statement: stmt})
	return func(rows int, err error) {
		d := time.Since(start)
		s.logger.DebugContext(ctx, "sql", "stmt", stmt, "rows", rows, "duration", d, "err", err)
		eventbus.Publish(ctx, events.QueryFinish{Table: table, Statement: stmt, Rows: rows, Err: err, Duration: d})
	}
}
