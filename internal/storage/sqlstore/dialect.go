package sqlstore

import (
	"fmt"
	"strconv"
)

// Supported dialect names.
const (
	Postgres = "postgres"
	MySQL    = "mysql"
	SQLite   = "sqlite"
)

// Dialect captures the SQL differences between the supported databases.
type Dialect struct {
	Name string
	// Driver is the database/sql driver name.
	Driver string
	// Escape is the literal used in LIKE ... ESCAPE clauses.
	Escape string
	// numbered placeholders ($1) instead of '?'
	numbered bool
	// unlimited is the LIMIT value meaning "no limit" when an offset is set.
	unlimited string
}

var dialects = map[string]Dialect{
	Postgres: {Name: Postgres, Driver: "postgres", Escape: `'\'`, numbered: true, unlimited: "ALL"},
	MySQL:    {Name: MySQL, Driver: "mysql", Escape: `'\\'`, unlimited: "18446744073709551615"},
	SQLite:   {Name: SQLite, Driver: "sqlite", Escape: `'\'`, unlimited: "-1"},
}

// LookupDialect returns the dialect registered under name.
func LookupDialect(name string) (Dialect, error) {
	d, ok := dialects[name]
	if !ok {
		return Dialect{}, fmt.Errorf("sqlstore: unsupported dialect %q", name)
	}
	return d, nil
}

// Placeholder returns the bind parameter for the n-th argument, counting from 1.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func (d Dialect) limit(limit, offset int) string {
	switch {
	case limit >= 0 && offset > 0:
		return fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)
	case limit >= 0:
		return fmt.Sprintf(" LIMIT %d", limit)
	case offset > 0:
		return fmt.Sprintf(" LIMIT %s OFFSET %d", d.unlimited, offset)
	}
	return ""
}
