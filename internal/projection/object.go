package projection

import (
	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

// Object is a projected output instance. Values are stored in the type
// descriptor's field order; fields that were never owed stay unset.
type Object struct {
	Type *schema.TypeDescriptor
	Key  storage.Key

	values  []any
	present []bool
}

func newObject(td *schema.TypeDescriptor, key storage.Key) *Object {
	return &Object{
		Type:    td,
		Key:     key,
		values:  make([]any, len(td.Fields)),
		present: make([]bool, len(td.Fields)),
	}
}

func (o *Object) set(i int, v any) {
	o.values[i] = v
	o.present[i] = true
}

// Get returns the value of the named field and whether it was projected.
func (o *Object) Get(name string) (any, bool) {
	i := o.Type.FieldIndex(name)
	if i < 0 || !o.present[i] {
		return nil, false
	}
	return o.values[i], true
}

// Values returns the projected fields keyed by name, for diagnostics and tests.
func (o *Object) Values() map[string]any {
	out := make(map[string]any)
	for i, f := range o.Type.Fields {
		if o.present[i] {
			out[f.Name] = o.values[i]
		}
	}
	return out
}
