package paginate

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

// DefaultFirst is the page size used when neither first nor last is given.
const DefaultFirst = 10

// Request holds the arguments of one paginated root field.
type Request struct {
	First  *int
	Last   *int
	Before *string
	After  *string
	// Sort is a label of the type's sort enum; empty selects the default.
	Sort   string
	Filter []Condition
}

// ParseArgs maps the coerced GraphQL arguments paginate, sort and filter
// onto a Request for td.
func ParseArgs(td *schema.TypeDescriptor, args map[string]any) (Request, error) {
	var req Request
	if p, ok := args["paginate"].(map[string]any); ok {
		var err error
		if req.First, err = intArg(p, "first"); err != nil {
			return req, err
		}
		if req.Last, err = intArg(p, "last"); err != nil {
			return req, err
		}
		req.Before = stringArg(p, "before")
		req.After = stringArg(p, "after")
	}

	switch s := args["sort"].(type) {
	case nil:
	case string:
		if _, ok := td.Sort.Lookup(s); !ok {
			return req, invalid("unknown sort value")
		}
		req.Sort = s
	default:
		return req, invalid("unknown sort value")
	}

	if f, ok := args["filter"].(map[string]any); ok {
		for name := range f {
			if _, ok := td.Filter.Lookup(schema.FieldName(name)); !ok {
				return req, invalid(fmt.Sprintf("unknown filter field %q", name))
			}
		}
		for _, ff := range td.Filter.Fields {
			v, ok := f[schema.GraphQLName(ff.Name)]
			if !ok || v == nil {
				continue
			}
			v, err := filterValue(ff, v)
			if err != nil {
				return req, err
			}
			req.Filter = append(req.Filter, Condition{Field: ff, Value: v})
		}
	}
	return req, nil
}

func intArg(m map[string]any, name string) (*int, error) {
	v, ok := m[name]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := toInt64(v)
	if !ok || n > math.MaxInt32 || n < math.MinInt32 {
		return nil, invalid(fmt.Sprintf("%s must be an integer", name))
	}
	i := int(n)
	return &i, nil
}

func stringArg(m map[string]any, name string) *string {
	if s, ok := m[name].(string); ok {
		return &s
	}
	return nil
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}

// filterValue converts a coerced argument to the column's storage type.
func filterValue(ff schema.FilterField, v any) (any, error) {
	name := schema.GraphQLName(ff.Name)
	switch ff.Type {
	case storage.TypeInt:
		n, ok := toInt64(v)
		if !ok {
			return nil, invalid(fmt.Sprintf("filter %s expects an integer", name))
		}
		return n, nil
	case storage.TypeFloat:
		switch n := v.(type) {
		case float64:
			return n, nil
		case json.Number:
			f, err := n.Float64()
			if err == nil {
				return f, nil
			}
		default:
			if i, ok := toInt64(v); ok {
				return float64(i), nil
			}
		}
		return nil, invalid(fmt.Sprintf("filter %s expects a number", name))
	case storage.TypeBool:
		b, ok := v.(bool)
		if !ok {
			return nil, invalid(fmt.Sprintf("filter %s expects a boolean", name))
		}
		return b, nil
	case storage.TypeTime:
		s, ok := v.(string)
		if !ok {
			return nil, invalid(fmt.Sprintf("filter %s expects a DateTime", name))
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return nil, invalid(fmt.Sprintf("filter %s expects an RFC 3339 DateTime", name))
		}
		return t, nil
	}
	return v, nil
}
