// Package schema builds the frozen output-type registry the projection and
// pagination engines run against. Types are collected on a Builder from
// storage table metadata plus declared computed fields, and Freeze turns them
// into immutable TypeDescriptors.
package schema

import (
	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/storage"
)

// Handle is an interned reference to a type in the registry arena.
type Handle int32

// NoHandle marks a field without an object target.
const NoHandle Handle = -1

// FieldKind tells the projector where a field's value comes from.
type FieldKind int

const (
	// DirectField values are read from an entity attribute.
	DirectField FieldKind = iota
	// RelationshipField values project related entities.
	RelationshipField
	// ComputedField values are produced by a registered resolver.
	ComputedField
)

func (k FieldKind) String() string {
	switch k {
	case DirectField:
		return "direct"
	case RelationshipField:
		return "relationship"
	case ComputedField:
		return "computed"
	default:
		return "unknown"
	}
}

// Default is a field's default: a fixed value or a factory producing a fresh one.
type Default struct {
	Value   any
	Factory func() any
}

// Make returns the default value.
func (d *Default) Make() any {
	if d == nil {
		return nil
	}
	if d.Factory != nil {
		return d.Factory()
	}
	return d.Value
}

// EmptyList is the default for list relationships.
func EmptyList() *Default {
	return &Default{Factory: func() any { return []any{} }}
}

// FieldSpec describes one output field.
type FieldSpec struct {
	// Name is the snake_case field name used in selection paths.
	Name string
	// Column is the entity attribute read for direct and relationship fields.
	Column string
	Kind   FieldKind
	// Required fields are non-nullable and have no default.
	Required bool
	// Nullable reports whether the rendered GraphQL type may be null.
	Nullable bool
	IsList   bool
	Default  *Default
	// DeclaredType is the GraphQL named type of the field (or of its elements).
	DeclaredType string
	// Target is the object type for relationship and object-valued computed fields.
	Target Handle
	Doc    string
}

// GraphQLName returns the field's lower camel case name.
func (f *FieldSpec) GraphQLName() string { return GraphQLName(f.Name) }

// HasDefault reports whether the field carries a default value or factory.
func (f *FieldSpec) HasDefault() bool { return f.Default != nil }

// TypeDescriptor is the ordered field layout of one output type.
type TypeDescriptor struct {
	Name   string
	Handle Handle
	// Table is the storage table backing the type.
	Table  string
	Doc    string
	Fields []*FieldSpec
	Sort   SortSpec
	Filter FilterSpec

	index map[string]int
}

// Field returns the field with the given snake_case name.
func (td *TypeDescriptor) Field(name string) (*FieldSpec, bool) {
	i, ok := td.index[name]
	if !ok {
		return nil, false
	}
	return td.Fields[i], true
}

// FieldIndex returns the position of the named field in Fields, or -1.
func (td *TypeDescriptor) FieldIndex(name string) int {
	if i, ok := td.index[name]; ok {
		return i
	}
	return -1
}

// SortKey maps one sort enum label to a column and direction.
type SortKey struct {
	Label     string
	Column    string
	Direction storage.Direction
}

// SortSpec is the sort enumeration of a type.
type SortSpec struct {
	Keys    []SortKey
	Default string
}

// Lookup returns the sort key for label.
func (s SortSpec) Lookup(label string) (SortKey, bool) {
	for _, k := range s.Keys {
		if k.Label == label {
			return k, true
		}
	}
	return SortKey{}, false
}

// DefaultKey returns the key used when no sort is requested.
func (s SortSpec) DefaultKey() SortKey {
	k, _ := s.Lookup(s.Default)
	return k
}

// FilterField is one filterable column.
type FilterField struct {
	Name   string
	Column string
	Type   storage.ColumnType
	Enum   string
}

// FilterSpec lists the filterable columns of a type in declaration order.
type FilterSpec struct {
	Fields []FilterField
}

// Lookup returns the filter field with the given snake_case name.
func (s FilterSpec) Lookup(name string) (FilterField, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FilterField{}, false
}

// RootField is a paginated Query field.
type RootField struct {
	// Name is the GraphQL field name, e.g. "sirenLocations".
	Name string
	// Type is the item type name.
	Type        string
	Description string
	// Contributor names the package or module that declared the field.
	Contributor string
}

// Registry is the frozen set of type descriptors. It is safe for concurrent reads.
type Registry struct {
	types  []*TypeDescriptor
	byName map[string]Handle
	roots  []RootField
	enums  map[string]*storage.Enum
	sdl    string
	schema *language.Schema
}

// Type returns the descriptor for h.
func (r *Registry) Type(h Handle) *TypeDescriptor {
	if h < 0 || int(h) >= len(r.types) {
		return nil
	}
	return r.types[h]
}

// Lookup returns the descriptor with the given type name.
func (r *Registry) Lookup(name string) (*TypeDescriptor, bool) {
	h, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return r.types[h], true
}

// Target returns the object type a field points to, or nil for scalars.
func (r *Registry) Target(f *FieldSpec) *TypeDescriptor {
	if f.Target == NoHandle {
		return nil
	}
	return r.Type(f.Target)
}

// Types returns all descriptors in registration order.
func (r *Registry) Types() []*TypeDescriptor { return r.types }

// Roots returns the Query fields sorted by name.
func (r *Registry) Roots() []RootField { return r.roots }

// Root returns the Query field with the given name.
func (r *Registry) Root(name string) (RootField, bool) {
	for _, rf := range r.roots {
		if rf.Name == name {
			return rf, true
		}
	}
	return RootField{}, false
}

// SDL returns the rendered GraphQL schema.
func (r *Registry) SDL() string { return r.sdl }

// Schema returns the validated GraphQL schema.
func (r *Registry) Schema() *language.Schema { return r.schema }
