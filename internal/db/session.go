package db

import (
	"context"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pkg/errors"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Queryer runs SQL against a session or an open transaction.
type Queryer interface {
	Query(ctx context.Context, sql string, args ...any) ([]Row, error)
	Exec(ctx context.Context, sql string, args ...any) (int64, error)
}

// Tx is a write transaction. Rollback after Commit is a no-op.
type Tx interface {
	Queryer
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Session is a connection pool to one store.
type Session interface {
	Queryer
	Begin(ctx context.Context) (Tx, error)
	Dialect() Dialect
	Ping(ctx context.Context) error
	Close()
}

// Dialect carries the SQL differences between the supported stores.
type Dialect struct {
	Name        string
	Placeholder squirrel.PlaceholderFormat
	// columns returns the (name, type) introspection query for a table
	columns func(table string) squirrel.SelectBuilder
}

var (
	PostgresDialect = Dialect{
		Name:        "postgres",
		Placeholder: squirrel.Dollar,
		columns: func(table string) squirrel.SelectBuilder {
			return squirrel.Select("column_name::text AS name", "data_type::text AS type").
				From("information_schema.columns").
				Where(squirrel.Eq{"table_name": table}).
				Where("table_schema = current_schema()").
				OrderBy("ordinal_position")
		},
	}
	SQLiteDialect = Dialect{
		Name:        "sqlite",
		Placeholder: squirrel.Question,
		columns: func(table string) squirrel.SelectBuilder {
			return squirrel.Select("name", "type").
				From("pragma_table_info('" + strings.ReplaceAll(table, "'", "''") + "')").
				OrderBy("cid")
		},
	}
)

// Builder returns a squirrel statement builder with the dialect's placeholders.
func (d Dialect) Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(d.Placeholder)
}

// QuoteIdent quotes a table or column name; both stores accept double quotes.
func QuoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Columns introspects the column names and database types of table.
func Columns(ctx context.Context, q Queryer, d Dialect, table string) (map[string]string, error) {
	sqlStr, args, err := d.columns(table).PlaceholderFormat(d.Placeholder).ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := q.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "introspect table %s", table)
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		name, _ := r["name"].(string)
		typ, _ := r["type"].(string)
		if name != "" {
			out[name] = typ
		}
	}
	return out, nil
}

// Run renders a squirrel builder and queries it.
func Run(ctx context.Context, q Queryer, b squirrel.Sqlizer) ([]Row, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "build sql")
	}
	return q.Query(ctx, sqlStr, args...)
}

// RunExec renders a squirrel builder and executes it.
func RunExec(ctx context.Context, q Queryer, b squirrel.Sqlizer) (int64, error) {
	sqlStr, args, err := b.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "build sql")
	}
	return q.Exec(ctx, sqlStr, args...)
}

// normalizeValue flattens driver-specific types into plain Go values.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int32:
		return int64(x)
	case int16:
		return int64(x)
	case int:
		return int64(x)
	case float32:
		return float64(x)
	case pgtype.Numeric:
		if !x.Valid {
			return nil
		}
		f, err := x.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case time.Time:
		return x
	default:
		return v
	}
}
