package model

import (
	"ResteasyAPI/internal/db"

	"github.com/Masterminds/squirrel"
)

// BuildIndexQuery selects every declared column of the resource, narrowed and
// ordered by q. Results are always ordered by id last so pages are stable.
func (c *Config) BuildIndexQuery(b squirrel.StatementBuilderType, q Query) squirrel.SelectBuilder {
	cols := c.Columns()
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = db.QuoteIdent(col)
	}

	sb := b.Select(quoted...).From(db.QuoteIdent(c.table))
	if where := c.buildWhereClause(q); where != nil {
		sb = sb.Where(where)
	}

	byID := false
	for _, s := range q.Sorts {
		expr := db.QuoteIdent(s.Field)
		if s.Desc {
			expr += " DESC"
		} else {
			expr += " ASC"
		}
		sb = sb.OrderBy(expr)
		if s.Field == IDField {
			byID = true
		}
	}
	if !byID {
		sb = sb.OrderBy(db.QuoteIdent(IDField) + " ASC")
	}
	return sb
}

// BuildIDQuery selects only the ids matching q, for existence checks.
func (c *Config) BuildIDQuery(b squirrel.StatementBuilderType, q Query) squirrel.SelectBuilder {
	sb := b.Select(db.QuoteIdent(IDField)).From(db.QuoteIdent(c.table))
	if where := c.buildWhereClause(q); where != nil {
		sb = sb.Where(where)
	}
	return sb
}
