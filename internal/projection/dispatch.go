package projection

import (
	"context"
	"fmt"

	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

// ResolverFunc computes a field for e. b describes the field's own position:
// its prefix, the selection paths below it and the visited types of the
// branch. Resolvers project nested entities through r.Related and r.RelatedList.
type ResolverFunc func(ctx context.Context, r *Resolution, b Branch, e storage.Entity) (any, error)

// Dispatcher maps computed fields to their resolvers.
type Dispatcher struct {
	resolvers map[string]map[string]ResolverFunc
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{resolvers: make(map[string]map[string]ResolverFunc)}
}

// Register binds fn to typeName.field. Registering a field twice replaces the
// earlier resolver.
func (d *Dispatcher) Register(typeName, field string, fn ResolverFunc) {
	m, ok := d.resolvers[typeName]
	if !ok {
		m = make(map[string]ResolverFunc)
		d.resolvers[typeName] = m
	}
	m[field] = fn
}

func (d *Dispatcher) lookup(typeName, field string) (ResolverFunc, bool) {
	fn, ok := d.resolvers[typeName][field]
	return fn, ok
}

// Validate checks that every computed field in reg has a resolver and every
// resolver belongs to a computed field.
func (d *Dispatcher) Validate(reg *schema.Registry) error {
	var violations schema.SchemaDefinitionError
	for _, td := range reg.Types() {
		for _, f := range td.Fields {
			if f.Kind != schema.ComputedField {
				continue
			}
			if _, ok := d.lookup(td.Name, f.Name); !ok {
				violations = append(violations, &schema.Violation{
					Type:    td.Name,
					Field:   f.Name,
					Message: fmt.Sprintf("Computed field %s.%s has no resolver", td.Name, f.Name),
				})
			}
		}
	}
	for typeName, fields := range d.resolvers {
		td, ok := reg.Lookup(typeName)
		for field := range fields {
			if ok {
				if f, found := td.Field(field); found && f.Kind == schema.ComputedField {
					continue
				}
			}
			violations = append(violations, &schema.Violation{
				Type:    typeName,
				Field:   field,
				Message: fmt.Sprintf("Resolver registered for %s.%s which is not a computed field", typeName, field),
			})
		}
	}
	if len(violations) > 0 {
		return violations
	}
	return nil
}
