package model

import "sort"

// Set is a string set used for field and relationship names.
type Set map[string]struct{}

func NewSet(items ...string) Set {
	s := make(Set, len(items))
	for _, it := range items {
		s[it] = struct{}{}
	}
	return s
}

func (s Set) Has(item string) bool {
	_, ok := s[item]
	return ok
}

func (s Set) Add(items ...string) {
	for _, it := range items {
		s[it] = struct{}{}
	}
}

// Minus returns s without any item of the others.
func (s Set) Minus(others ...Set) Set {
	out := make(Set, len(s))
	for it := range s {
		drop := false
		for _, o := range others {
			if o.Has(it) {
				drop = true
				break
			}
		}
		if !drop {
			out[it] = struct{}{}
		}
	}
	return out
}

func (s Set) Union(others ...Set) Set {
	out := make(Set, len(s))
	for it := range s {
		out[it] = struct{}{}
	}
	for _, o := range others {
		for it := range o {
			out[it] = struct{}{}
		}
	}
	return out
}

// Sorted returns the items in lexical order.
func (s Set) Sorted() []string {
	out := make([]string, 0, len(s))
	for it := range s {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}
