package model

import (
	"ResteasyAPI/internal/db"

	"github.com/Masterminds/squirrel"
)

// buildWhereClause combines the query's scope and filters, or returns nil.
func (c *Config) buildWhereClause(q Query) squirrel.Sqlizer {
	exprs := make([]squirrel.Sqlizer, 0, len(q.Scope)+len(q.Filters))
	exprs = append(exprs, q.Scope...)
	for _, f := range q.Filters {
		exprs = append(exprs, squirrel.Eq{db.QuoteIdent(f.Field): f.Value})
	}
	if len(exprs) == 0 {
		return nil
	}
	return squirrel.And(exprs)
}

// IDIn scopes a query to the given ids.
func IDIn(ids []int64) squirrel.Sqlizer {
	return squirrel.Eq{db.QuoteIdent(IDField): ids}
}

// ColumnIn scopes a query to rows whose column is one of values.
func ColumnIn(column string, values []int64) squirrel.Sqlizer {
	return squirrel.Eq{db.QuoteIdent(column): values}
}
