package model

import "github.com/Masterminds/squirrel"

// Filter narrows a query to rows whose Field equals Value (nil matches NULL).
type Filter struct {
	Field string
	Value any
}

// Sort orders a query by Field.
type Sort struct {
	Field string
	Desc  bool
}

// Query is everything needed to select rows of one resource: the request's
// filters and sorts plus extra scope conditions (id lists, foreign keys,
// relationship subqueries).
type Query struct {
	Filters []Filter
	Sorts   []Sort
	Scope   []squirrel.Sqlizer
}

// HasFilter reports whether the client narrowed the result set.
func (q Query) HasFilter() bool { return len(q.Filters) > 0 }
