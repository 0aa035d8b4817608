package paginate

import (
	"fmt"
	"strings"

	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

// Condition is one set field of a filter input.
type Condition struct {
	Field schema.FilterField
	Value any
}

// searchPredicate compiles a string filter value. Values without wildcards
// compare for equality; others become a LIKE pattern with '\' as escape.
func searchPredicate(column, value string) (storage.Predicate, error) {
	if value == "" {
		return storage.Predicate{}, errInvalidSearch
	}
	var (
		b        strings.Builder
		wildcard bool
		prevWild bool
	)
	for _, r := range value {
		isWild := r == '*' || r == '?'
		switch {
		case isWild && prevWild:
			return storage.Predicate{}, errInvalidSearch
		case r == '*':
			b.WriteByte('%')
		case r == '?':
			b.WriteByte('_')
		case r == '%':
			b.WriteString(`\%`)
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			return storage.Predicate{}, errInvalidSearch
		}
		wildcard = wildcard || isWild
		prevWild = isWild
	}
	if !wildcard {
		return storage.Predicate{Column: column, Op: storage.OpEq, Value: value}, nil
	}
	return storage.Predicate{Column: column, Op: storage.OpLike, Value: b.String()}, nil
}

func (c Condition) predicate() (storage.Predicate, error) {
	col := c.Field.Column
	switch c.Field.Type {
	case storage.TypeString:
		s, ok := c.Value.(string)
		if !ok {
			return storage.Predicate{}, invalid(fmt.Sprintf("filter %s expects a string", schema.GraphQLName(c.Field.Name)))
		}
		return searchPredicate(col, s)
	case storage.TypeBool:
		return storage.Predicate{Column: col, Op: storage.OpIs, Value: c.Value}, nil
	default:
		return storage.Predicate{Column: col, Op: storage.OpEq, Value: c.Value}, nil
	}
}
