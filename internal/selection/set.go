// Package selection flattens a GraphQL selection set into the dotted
// snake_case leaf paths the projector uses to decide which fields are owed.
package selection

import (
	"sort"
	"strings"
)

// Set is an unordered set of dotted leaf paths.
type Set struct {
	paths   map[string]struct{}
	covered map[string]struct{}
}

// New returns a Set holding paths.
func New(paths ...string) Set {
	s := Set{paths: make(map[string]struct{}), covered: make(map[string]struct{})}
	for _, p := range paths {
		s.add(p)
	}
	return s
}

func (s Set) add(p string) {
	if strings.Contains(p, "..") {
		panic("selection: malformed path " + p)
	}
	s.paths[p] = struct{}{}
	for i := 0; i < len(p); i++ {
		if p[i] == '.' {
			s.covered[p[:i]] = struct{}{}
		}
	}
	s.covered[p] = struct{}{}
}

// Has reports whether p was selected as a leaf.
func (s Set) Has(p string) bool {
	_, ok := s.paths[p]
	return ok
}

// Covers reports whether prefix is a selected leaf or a whole-segment prefix
// of one.
func (s Set) Covers(prefix string) bool {
	_, ok := s.covered[prefix]
	return ok
}

// Under returns the paths equal to prefix or below it.
func (s Set) Under(prefix string) Set {
	out := New()
	for p := range s.paths {
		if p == prefix || strings.HasPrefix(p, prefix+".") {
			out.add(p)
		}
	}
	return out
}

// Len returns the number of paths.
func (s Set) Len() int { return len(s.paths) }

// Sorted returns the paths in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s.paths))
	for p := range s.paths {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
