// Package memstore is an in-memory storage.Source used by tests. It counts
// attribute reads per entity.
package memstore

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirendb/sirendb/internal/storage"
)

// Row is one stored record keyed by column name.
type Row map[string]any

// Store holds rows for a fixed set of tables.
type Store struct {
	mu     sync.RWMutex
	tables map[string]*storage.Table
	rows   map[string][]Row
	reads  map[readKey]int
}

type readKey struct {
	key  storage.Key
	attr string
}

// New returns an empty Store for tables.
func New(tables ...*storage.Table) *Store {
	s := &Store{
		tables: make(map[string]*storage.Table),
		rows:   make(map[string][]Row),
		reads:  make(map[readKey]int),
	}
	for _, t := range tables {
		s.tables[t.Name] = t
	}
	return s
}

// Insert appends row to table. Integer values are widened to int64.
func (s *Store) Insert(table string, row Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("memstore: unknown table %q", table)
	}
	stored := make(Row, len(row))
	for k, v := range row {
		stored[k] = normalize(v)
	}
	if _, ok := stored[t.PrimaryKey]; !ok {
		stored[t.PrimaryKey] = int64(len(s.rows[table]) + 1)
	}
	s.rows[table] = append(s.rows[table], stored)
	return nil
}

// MustInsert is Insert for fixtures.
func (s *Store) MustInsert(table string, rows ...Row) *Store {
	for _, r := range rows {
		if err := s.Insert(table, r); err != nil {
			panic(err)
		}
	}
	return s
}

// Reads returns how many times attr was read from the entity identified by key.
func (s *Store) Reads(key storage.Key, attr string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reads[readKey{key: key, attr: attr}]
}

// TotalReads returns the number of attribute reads across all entities.
func (s *Store) TotalReads() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, c := range s.reads {
		n += c
	}
	return n
}

// Entity returns the entity for table with primary key id.
func (s *Store) Entity(table string, id any) (storage.Entity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tables[table]
	if !ok {
		return nil, false
	}
	id = normalize(id)
	for _, r := range s.rows[table] {
		if compare(r[t.PrimaryKey], id) == 0 {
			return &entity{store: s, table: t, row: r}, true
		}
	}
	return nil, false
}

// Query implements storage.Source.
func (s *Store) Query(table string) (storage.Query, error) {
	t, ok := s.tables[table]
	if !ok {
		return nil, fmt.Errorf("memstore: unknown table %q", table)
	}
	return &query{store: s, table: t}, nil
}

type entity struct {
	store *Store
	table *storage.Table
	row   Row
}

func (e *entity) Key() storage.Key {
	return storage.Key{Kind: e.table.Name, ID: e.row[e.table.PrimaryKey]}
}

func (e *entity) Attr(_ context.Context, name string) (any, error) {
	e.store.mu.Lock()
	e.store.reads[readKey{key: e.Key(), attr: name}]++
	e.store.mu.Unlock()

	if _, ok := e.table.Column(name); ok {
		return e.row[name], nil
	}
	rel, ok := e.table.Relationship(name)
	if !ok {
		return nil, fmt.Errorf("memstore: %s has no attribute %q", e.table.Name, name)
	}
	target, ok := e.store.tables[rel.Target]
	if !ok {
		return nil, fmt.Errorf("memstore: unknown table %q", rel.Target)
	}
	if !rel.List {
		fk := e.row[rel.LocalColumn]
		if fk == nil {
			return nil, nil
		}
		ent, ok := e.store.Entity(target.Name, fk)
		if !ok {
			return nil, nil
		}
		return ent, nil
	}

	q := storage.Query(&query{store: e.store, table: target})
	q = q.Where(storage.Predicate{Column: rel.RemoteColumn, Op: storage.OpEq, Value: e.row[e.table.PrimaryKey]})
	if rel.OrderBy != "" {
		dir := storage.Asc
		if rel.Desc {
			dir = storage.Desc
		}
		q = q.OrderBy(rel.OrderBy, dir)
	}
	return q.Fetch(context.Background(), -1, 0)
}

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

func (q *query) matching() ([]Row, error) {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()
	var out []Row
	for _, r := range q.store.rows[q.table.Name] {
		ok, err := q.match(r)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, func(a, b Row) int {
		for _, o := range q.orders {
			c := compare(a[o.column], b[o.column])
			if o.dir == storage.Desc {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	})
	return out, nil
}

func (q *query) match(r Row) (bool, error) {
	for _, p := range q.preds {
		v := r[p.Column]
		switch p.Op {
		case storage.OpEq, storage.OpIs:
			if v == nil || p.Value == nil {
				if v != p.Value {
					return false, nil
				}
				continue
			}
			if compare(v, normalize(p.Value)) != 0 {
				return false, nil
			}
		case storage.OpLike:
			s, ok := v.(string)
			if !ok {
				return false, nil
			}
			pattern, ok := p.Value.(string)
			if !ok {
				return false, fmt.Errorf("memstore: LIKE needs a string, got %T", p.Value)
			}
			if !likeRegexp(pattern).MatchString(s) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("memstore: unsupported operator %q", p.Op)
		}
	}
	return true, nil
}

func (q *query) Count(context.Context) (int, error) {
	rows, err := q.matching()
	return len(rows), err
}

func (q *query) Fetch(_ context.Context, limit, offset int) ([]storage.Entity, error) {
	rows, err := q.matching()
	if err != nil {
		return nil, err
	}
	if offset > len(rows) {
		offset = len(rows)
	}
	rows = rows[offset:]
	if limit >= 0 && limit < len(rows) {
		rows = rows[:limit]
	}
	out := make([]storage.Entity, len(rows))
	for i, r := range rows {
		out[i] = &entity{store: q.store, table: q.table, row: r}
	}
	return out, nil
}

// likeRegexp translates a LIKE pattern with backslash escapes.
func likeRegexp(pattern string) *regexp.Regexp {
	var b strings.Builder
	b.WriteString("^")
	escaped := false
	for _, r := range pattern {
		switch {
		case escaped:
			b.WriteString(regexp.QuoteMeta(string(r)))
			escaped = false
		case r == '\\':
			escaped = true
		case r == '%':
			b.WriteString(".*")
		case r == '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	return regexp.MustCompile(b.String())
}

func normalize(v any) any {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float32:
		return float64(v)
	}
	return v
}

// compare orders nil first, then values of the same kind.
func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	}
	switch a := a.(type) {
	case int64:
		if b, ok := b.(int64); ok {
			return cmpOrdered(a, b)
		}
	case float64:
		if b, ok := b.(float64); ok {
			return cmpOrdered(a, b)
		}
	case string:
		if b, ok := b.(string); ok {
			return strings.Compare(a, b)
		}
	case bool:
		if b, ok := b.(bool); ok {
			switch {
			case a == b:
				return 0
			case !a:
				return -1
			}
			return 1
		}
	case time.Time:
		if b, ok := b.(time.Time); ok {
			return a.Compare(b)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func cmpOrdered[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
