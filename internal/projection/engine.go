// Package projection turns storage entities into output objects holding
// exactly the fields a request owes: the selected ones plus the required
// ones. Entities and computed values are memoized per request and
// relationship cycles are cut per branch.
package projection

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

// Engine projects entities against a frozen registry.
type Engine struct {
	reg      *schema.Registry
	dispatch *Dispatcher
	logger   *slog.Logger
}

type Option func(*Engine)

// WithLogger sets the logger used for projection diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine validates d against reg and returns an Engine.
func NewEngine(reg *schema.Registry, d *Dispatcher, opts ...Option) (*Engine, error) {
	if d == nil {
		d = NewDispatcher()
	}
	if err := d.Validate(reg); err != nil {
		return nil, err
	}
	e := &Engine{reg: reg, dispatch: d, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Registry returns the registry the engine projects against.
func (e *Engine) Registry() *schema.Registry { return e.reg }

func (e *Engine) project(ctx context.Context, r *Resolution, b Branch, td *schema.TypeDescriptor, ent storage.Entity) (*Object, error) {
	if ent == nil {
		return nil, nil
	}
	key := ent.Key()
	ok := objectKey{typ: td.Name, id: key.ID}
	if obj, hit := r.objects[ok]; hit {
		r.stats.CacheHits++
		r.satisfyFrom(b, obj)
		return obj, nil
	}

	// A top-level object is the first entry of its own type on the branch.
	if b.Root {
		b = b.Enter(td.Name)
	}
	obj := newObject(td, key)
	skipped := make([]bool, len(td.Fields))
	for i, f := range td.Fields {
		fq := b.Prefix + f.Name
		if !f.Required && !b.Paths.Covers(fq) {
			if f.IsList && f.Default != nil {
				obj.set(i, f.Default.Make())
			}
			continue
		}

		var (
			v    any
			skip bool
			err  error
		)
		switch f.Kind {
		case schema.DirectField:
			v, err = e.direct(ctx, r, key, f, ent)
		case schema.RelationshipField:
			v, skip, err = e.relationship(ctx, r, b, f, ent)
		case schema.ComputedField:
			v, skip, err = e.computed(ctx, r, b, td, f, ent)
		}
		if err != nil {
			return nil, err
		}
		if skip {
			skipped[i] = true
			continue
		}
		if isNil(v) {
			if f.Required {
				continue
			}
			if f.IsList && f.Default != nil {
				v = f.Default.Make()
			}
		}
		obj.set(i, v)
		delete(r.outstanding, fq)
	}

	for i, f := range td.Fields {
		if f.Required && !obj.present[i] && !skipped[i] {
			return nil, &MissingFieldError{Type: td.Name, Field: f.Name, Key: key}
		}
	}

	r.objects[ok] = obj
	r.stats.Objects++
	return obj, nil
}

func (e *Engine) direct(ctx context.Context, r *Resolution, key storage.Key, f *schema.FieldSpec, ent storage.Entity) (any, error) {
	fk := fieldKey{kind: key.Kind, id: key.ID, field: f.Name}
	if v, ok := r.values[fk]; ok {
		r.stats.CacheHits++
		return v, nil
	}
	v, err := ent.Attr(ctx, f.Column)
	if err != nil {
		return nil, err
	}
	r.stats.AttrReads++
	r.values[fk] = v
	return v, nil
}

func (e *Engine) relationship(ctx context.Context, r *Resolution, b Branch, f *schema.FieldSpec, ent storage.Entity) (any, bool, error) {
	target := e.reg.Target(f)
	if target == nil {
		return nil, false, fmt.Errorf("projection: relationship %s has no target", f.Name)
	}
	if b.Visited.Has(target.Name) {
		e.logger.DebugContext(ctx, "relationship cut by cycle", "field", b.Prefix+f.Name, "type", target.Name)
		return nil, true, nil
	}
	raw, err := ent.Attr(ctx, f.Column)
	if err != nil {
		return nil, false, err
	}
	r.stats.AttrReads++
	child := b.Field(f.Name).Enter(target.Name)
	switch v := raw.(type) {
	case nil:
		return nil, false, nil
	case storage.Entity:
		obj, err := e.project(ctx, r, child, target, v)
		if err != nil {
			return nil, false, err
		}
		return obj, false, nil
	case []storage.Entity:
		out := make([]*Object, 0, len(v))
		for _, item := range v {
			obj, err := e.project(ctx, r, child, target, item)
			if err != nil {
				return nil, false, err
			}
			out = append(out, obj)
		}
		return out, false, nil
	default:
		return nil, false, fmt.Errorf("projection: relationship %s returned %T", f.Name, raw)
	}
}

func (e *Engine) computed(ctx context.Context, r *Resolution, b Branch, td *schema.TypeDescriptor, f *schema.FieldSpec, ent storage.Entity) (any, bool, error) {
	if target := e.reg.Target(f); target != nil && b.Visited.Has(target.Name) {
		return nil, true, nil
	}
	key := ent.Key()
	fk := fieldKey{kind: key.Kind, id: key.ID, field: f.Name}
	if v, ok := r.values[fk]; ok {
		r.stats.CacheHits++
		return v, false, nil
	}
	fn, ok := e.dispatch.lookup(td.Name, f.Name)
	if !ok {
		return nil, false, fmt.Errorf("projection: no resolver for %s.%s", td.Name, f.Name)
	}
	v, err := fn(ctx, r, b.Field(f.Name), ent)
	if err != nil {
		return nil, false, fmt.Errorf("projection: resolve %s.%s: %w", td.Name, f.Name, err)
	}
	r.stats.ResolverCalls++
	r.values[fk] = v
	return v, false, nil
}

// satisfyFrom clears the outstanding paths below b that a cached object
// already holds.
func (r *Resolution) satisfyFrom(b Branch, obj *Object) {
	for _, p := range b.Paths.Sorted() {
		if _, open := r.outstanding[p]; !open || !strings.HasPrefix(p, b.Prefix) {
			continue
		}
		if holds(obj, strings.Split(strings.TrimPrefix(p, b.Prefix), ".")) {
			delete(r.outstanding, p)
		}
	}
}

func holds(obj *Object, segs []string) bool {
	if obj == nil {
		return true
	}
	v, ok := obj.Get(segs[0])
	if !ok {
		return false
	}
	if len(segs) == 1 {
		return true
	}
	switch v := v.(type) {
	case *Object:
		return holds(v, segs[1:])
	case []*Object:
		for _, item := range v {
			if !holds(item, segs[1:]) {
				return false
			}
		}
	}
	return true
}

func isNil(v any) bool {
	switch v := v.(type) {
	case nil:
		return true
	case *Object:
		return v == nil
	}
	return false
}
