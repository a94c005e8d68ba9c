// Package grouping folds flat report rows into keyed summaries.
package grouping

import "sort"

// Ordered is a map of accumulators that remembers key insertion order.
type Ordered[A any] struct {
	keys   []string
	values map[string]A
}

// NewOrdered returns an empty Ordered map.
func NewOrdered[A any]() *Ordered[A] {
	return &Ordered[A]{values: make(map[string]A)}
}

// Get returns the accumulator stored under key.
func (o *Ordered[A]) Get(key string) (A, bool) {
	v, ok := o.values[key]
	return v, ok
}

// Set stores v under key, appending key on first use.
func (o *Ordered[A]) Set(key string, v A) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

// Len returns the number of keys.
func (o *Ordered[A]) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Keys returns keys in insertion order.
func (o *Ordered[A]) Keys() []string {
	if o == nil {
		return nil
	}
	out := make([]string, len(o.keys))
	copy(out, o.keys)
	return out
}

// Values returns accumulators in key insertion order.
func (o *Ordered[A]) Values() []A {
	if o == nil {
		return nil
	}
	out := make([]A, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.values[k])
	}
	return out
}

// Each calls fn for every entry in insertion order.
func (o *Ordered[A]) Each(fn func(key string, v A)) {
	if o == nil {
		return
	}
	for _, k := range o.keys {
		fn(k, o.values[k])
	}
}

// GroupAndSummarize folds rows into one accumulator per key in a single pass.
// init is called the first time a key is seen.
func GroupAndSummarize[R, A any](rows []R, key func(R) string, accumulate func(A, R) A, init func() A) *Ordered[A] {
	out := NewOrdered[A]()
	for _, row := range rows {
		k := key(row)
		acc, ok := out.values[k]
		if !ok {
			acc = init()
			out.keys = append(out.keys, k)
		}
		out.values[k] = accumulate(acc, row)
	}
	return out
}

// SortedBy returns a sorted copy of values; the receiver keeps its order.
func SortedBy[A any](o *Ordered[A], less func(a, b A) bool) []A {
	values := o.Values()
	sort.SliceStable(values, func(i, j int) bool {
		return less(values[i], values[j])
	})
	return values
}

// Set is an insertion-ordered string set.
type Set struct {
	items []string
	seen  map[string]struct{}
}

// NewSet returns an empty set.
func NewSet() *Set {
	return &Set{seen: make(map[string]struct{})}
}

// Add inserts v and reports whether it was new.
func (s *Set) Add(v string) bool {
	if _, ok := s.seen[v]; ok {
		return false
	}
	s.seen[v] = struct{}{}
	s.items = append(s.items, v)
	return true
}

// Has reports membership.
func (s *Set) Has(v string) bool {
	_, ok := s.seen[v]
	return ok
}

// Len returns the number of members.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.items)
}

// Items returns members in insertion order.
func (s *Set) Items() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.items))
	copy(out, s.items)
	return out
}
