package projection

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/sirendb/sirendb/internal/selection"
	"github.com/sirendb/sirendb/internal/storage"
)

// Visited is the set of type names entered along one relationship branch.
// It is copied on extension, so sibling branches never see each other's entries.
type Visited map[string]struct{}

// Has reports whether typeName was entered on this branch.
func (v Visited) Has(typeName string) bool {
	_, ok := v[typeName]
	return ok
}

// With returns a copy of v that also holds typeName.
func (v Visited) With(typeName string) Visited {
	out := make(Visited, len(v)+1)
	maps.Copy(out, v)
	out[typeName] = struct{}{}
	return out
}

// Branch locates a projection inside the response tree.
type Branch struct {
	// Prefix is the dotted output path of the object being projected,
	// including the trailing dot, or "" at the root.
	Prefix string
	// Paths holds the selected leaf paths at or below Prefix.
	Paths selection.Set
	// Visited holds the types entered on the way here.
	Visited Visited
	// Root is set for the top-level objects of a request. Projecting at a
	// root branch enters the object's own type before any field resolves.
	Root bool
}

// Field returns the branch for the field name of the current object,
// without entering a new type.
func (b Branch) Field(name string) Branch {
	fq := b.Prefix + name
	return Branch{Prefix: fq + ".", Paths: b.Paths.Under(fq), Visited: b.Visited}
}

// Enter returns b with typeName marked as visited.
func (b Branch) Enter(typeName string) Branch {
	b.Visited = b.Visited.With(typeName)
	b.Root = false
	return b
}

type objectKey struct {
	typ string
	id  any
}

type fieldKey struct {
	kind  string
	id    any
	field string
}

// Stats counts the work done during one resolution.
type Stats struct {
	Objects       int
	CacheHits     int
	AttrReads     int
	ResolverCalls int
}

// Resolution carries the per-request projection state: the requested paths,
// the outstanding required paths and the memoization caches. It is not safe
// for concurrent use.
type Resolution struct {
	engine      *Engine
	paths       selection.Set
	outstanding map[string]struct{}
	objects     map[objectKey]*Object
	values      map[fieldKey]any
	stats       Stats
}

// NewResolution starts a resolution for the given selection paths.
func (e *Engine) NewResolution(paths selection.Set) *Resolution {
	outstanding := make(map[string]struct{}, paths.Len())
	for _, p := range paths.Sorted() {
		outstanding[p] = struct{}{}
	}
	return &Resolution{
		engine:      e,
		paths:       paths,
		outstanding: outstanding,
		objects:     make(map[objectKey]*Object),
		values:      make(map[fieldKey]any),
	}
}

// Branch returns the root branch for objects placed at prefix. An empty
// prefix addresses the whole selection.
func (r *Resolution) Branch(prefix string) Branch {
	if prefix == "" {
		return Branch{Paths: r.paths, Root: true}
	}
	return Branch{Prefix: prefix + ".", Paths: r.paths.Under(prefix), Root: true}
}

// Outstanding returns the selected paths no projection has satisfied yet.
func (r *Resolution) Outstanding() []string {
	var keys []string
	for k := range r.outstanding {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Stats returns the counters accumulated so far.
func (r *Resolution) Stats() Stats { return r.stats }

// Project projects e as an instance of typeName at branch b.
func (r *Resolution) Project(ctx context.Context, b Branch, typeName string, e storage.Entity) (*Object, error) {
	td, ok := r.engine.reg.Lookup(typeName)
	if !ok {
		return nil, fmt.Errorf("projection: unknown type %q", typeName)
	}
	return r.engine.project(ctx, r, b, td, e)
}

// Related projects a related entity of typeName below b, entering the type.
// It returns nil when typeName was already visited on this branch.
func (r *Resolution) Related(ctx context.Context, b Branch, typeName string, e storage.Entity) (*Object, error) {
	if e == nil || b.Visited.Has(typeName) {
		return nil, nil
	}
	return r.Project(ctx, b.Enter(typeName), typeName, e)
}

// RelatedList is Related for a list of entities. The result is never nil.
func (r *Resolution) RelatedList(ctx context.Context, b Branch, typeName string, es []storage.Entity) ([]*Object, error) {
	out := make([]*Object, 0, len(es))
	if b.Visited.Has(typeName) {
		return out, nil
	}
	child := b.Enter(typeName)
	for _, e := range es {
		obj, err := r.Project(ctx, child, typeName, e)
		if err != nil {
			return nil, err
		}
		out = append(out, obj)
	}
	return out, nil
}

// LogValue reports the resolution counters.
func (r *Resolution) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("objects", r.stats.Objects),
		slog.Int("cache_hits", r.stats.CacheHits),
		slog.Int("attr_reads", r.stats.AttrReads),
		slog.Int("resolver_calls", r.stats.ResolverCalls),
		slog.Int("outstanding", len(r.outstanding)),
	)
}
