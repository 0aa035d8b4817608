package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirendb/sirendb/internal/storage"
)

// row is a fetched record. Relationships are loaded on first access and
// not retained.
type row struct {
	store  *Store
	table  *storage.Table
	values map[string]any
}

func (s *Store) scan(t *storage.Table, rows *sql.Rows) (*row, error) {
	raw := make([]any, len(t.Columns))
	ptrs := make([]any, len(t.Columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("sqlstore: scan %s: %w", t.Name, err)
	}
	r := &row{store: s, table: t, values: make(map[string]any, len(t.Columns))}
	for i, c := range t.Columns {
		v, err := normalize(c.Type, raw[i])
		if err != nil {
			return nil, fmt.Errorf("sqlstore: column %s.%s: %w", t.Name, c.Name, err)
		}
		r.values[c.Name] = v
	}
	return r, nil
}

func (r *row) Key() storage.Key {
	return storage.Key{Kind: r.table.Name, ID: r.values[r.table.PrimaryKey]}
}

func (r *row) Attr(ctx context.Context, name string) (any, error) {
	if v, ok := r.values[name]; ok {
		return v, nil
	}
	rel, ok := r.table.Relationship(name)
	if !ok {
		return nil, fmt.Errorf("sqlstore: %s has no attribute %q", r.table.Name, name)
	}
	q, err := r.store.Query(rel.Target)
	if err != nil {
		return nil, err
	}
	if !rel.List {
		fk := r.values[rel.LocalColumn]
		if fk == nil {
			return nil, nil
		}
		target := r.store.tables[rel.Target]
		found, err := q.Where(storage.Predicate{Column: target.PrimaryKey, Op: storage.OpEq, Value: fk}).Fetch(ctx, 1, 0)
		if err != nil || len(found) == 0 {
			return nil, err
		}
		return found[0], nil
	}

	q = q.Where(storage.Predicate{Column: rel.RemoteColumn, Op: storage.OpEq, Value: r.values[r.table.PrimaryKey]})
	if rel.OrderBy != "" {
		dir := storage.Asc
		if rel.Desc {
			dir = storage.Desc
		}
		q = q.OrderBy(rel.OrderBy, dir)
	}
	return q.Fetch(ctx, -1, 0)
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// normalize converts a driver value to the Go type of the column.
func normalize(typ storage.ColumnType, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch typ {
	case storage.TypeInt:
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case float64:
			return int64(n), nil
		case string:
			return strconv.ParseInt(n, 10, 64)
		}
	case storage.TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case float32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case string:
			return strconv.ParseFloat(n, 64)
		}
	case storage.TypeBool:
		switch b := v.(type) {
		case bool:
			return b, nil
		case int64:
			return b != 0, nil
		case string:
			return strconv.ParseBool(strings.ToLower(b))
		}
	case storage.TypeTime:
		switch t := v.(type) {
		case time.Time:
			return t.UTC(), nil
		case string:
			for _, layout := range timeLayouts {
				if parsed, err := time.Parse(layout, t); err == nil {
					return parsed.UTC(), nil
				}
			}
			return nil, fmt.Errorf("unrecognized time %q", t)
		}
	case storage.TypeString, storage.TypeEnum:
		switch s := v.(type) {
		case string:
			return s, nil
		case int64:
			return strconv.FormatInt(s, 10), nil
		}
	}
	return nil, fmt.Errorf("cannot use %T as %s", v, typ)
}
