package selection

import (
	"github.com/sirendb/sirendb/internal/language"
	"github.com/sirendb/sirendb/internal/schema"
)

// Extract flattens set into leaf paths. Fragment spreads are inlined under
// the current prefix, inline fragments add no segment, and fields skipped by
// @skip or @include are left out. Field names are normalized to snake_case.
func Extract(doc *language.QueryDocument, set language.SelectionSet, vars map[string]any) Set {
	out := New()
	w := walker{doc: doc, vars: vars, out: out, active: make(map[string]bool)}
	w.walk(set, "")
	return out
}

type walker struct {
	doc  *language.QueryDocument
	vars map[string]any
	out  Set
	// fragments currently being expanded, to stop self-referencing spreads
	active map[string]bool
}

func (w *walker) walk(set language.SelectionSet, prefix string) {
	for _, sel := range set {
		switch sel := sel.(type) {
		case *language.Field:
			if !w.include(sel.Directives) || sel.Name == "__typename" {
				continue
			}
			name := prefix + schema.FieldName(sel.Name)
			if len(sel.SelectionSet) == 0 {
				w.out.add(name)
				continue
			}
			w.walk(sel.SelectionSet, name+".")

		case *language.InlineFragment:
			if !w.include(sel.Directives) {
				continue
			}
			w.walk(sel.SelectionSet, prefix)

		case *language.FragmentSpread:
			if !w.include(sel.Directives) || w.active[sel.Name] {
				continue
			}
			def := w.fragment(sel.Name)
			if def == nil || !w.include(def.Directives) {
				continue
			}
			w.active[sel.Name] = true
			w.walk(def.SelectionSet, prefix)
			delete(w.active, sel.Name)
		}
	}
}

func (w *walker) fragment(name string) *language.FragmentDefinition {
	if w.doc == nil {
		return nil
	}
	return w.doc.Fragments.ForName(name)
}

// include evaluates @skip and @include.
func (w *walker) include(directives language.DirectiveList) bool {
	if d := directives.ForName("skip"); d != nil && w.condition(d) {
		return false
	}
	if d := directives.ForName("include"); d != nil && !w.condition(d) {
		return false
	}
	return true
}

func (w *walker) condition(d *language.Directive) bool {
	arg := d.Arguments.ForName("if")
	if arg == nil {
		return false
	}
	v, err := arg.Value.Value(w.vars)
	if err != nil {
		return false
	}
	b, _ := v.(bool)
	return b
}
