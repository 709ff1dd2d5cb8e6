package symtab

import (
	"maps"
	"slices"
)

// Set is a set of symbol or class names.
type Set map[string]struct{}

// NewSet returns a set holding names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	s.Add(names...)
	return s
}

// Add inserts names.
func (s Set) Add(names ...string) {
	for _, n := range names {
		s[n] = struct{}{}
	}
}

// Has reports whether name is in the set.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// AddAll inserts every member of o.
func (s Set) AddAll(o Set) {
	for n := range o {
		s[n] = struct{}{}
	}
}

// RemoveAll deletes every member of o.
func (s Set) RemoveAll(o Set) {
	for n := range o {
		delete(s, n)
	}
}

// Disjoint reports whether s and o share no member.
func (s Set) Disjoint(o Set) bool {
	small, large := s, o
	if len(small) > len(large) {
		small, large = large, small
	}
	for n := range small {
		if large.Has(n) {
			return false
		}
	}
	return true
}

// Intersect returns the members present in both s and o.
func (s Set) Intersect(o Set) Set {
	out := make(Set)
	for n := range s {
		if o.Has(n) {
			out[n] = struct{}{}
		}
	}
	return out
}

// Clone returns an independent copy.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	out.AddAll(s)
	return out
}

// Sorted returns the members in ascending order.
func (s Set) Sorted() []string {
	return slices.Sorted(maps.Keys(s))
}
