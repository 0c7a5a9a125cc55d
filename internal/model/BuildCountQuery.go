package model

import (
	"ResteasyAPI/internal/db"

	"github.com/Masterminds/squirrel"
)

// BuildCountQuery counts the rows BuildIndexQuery would select.
func (c *Config) BuildCountQuery(b squirrel.StatementBuilderType, q Query) squirrel.SelectBuilder {
	sb := b.Select("COUNT(*) AS count").From(db.QuoteIdent(c.table))
	if where := c.buildWhereClause(q); where != nil {
		sb = sb.Where(where)
	}
	return sb
}
