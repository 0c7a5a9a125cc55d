package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"ResteasyAPI/internal/logger"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"
)

// SQLSession is a Session over database/sql, used for the embedded SQLite store.
type SQLSession struct {
	DB      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (and creates) the database file at path. ":memory:" is
// accepted for throwaway stores.
func OpenSQLite(path string) (*SQLSession, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create sqlite dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_time_format=sqlite", path)
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one connection: a transaction and the pool never race for the file lock
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLSession{DB: sqlDB, dialect: SQLiteDialect}, nil
}

func (s *SQLSession) Dialect() Dialect { return s.dialect }

func (s *SQLSession) Ping(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *SQLSession) Close() { _ = s.DB.Close() }

func (s *SQLSession) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return sqlQuery(ctx, s.DB, query, args...)
}

func (s *SQLSession) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, s.DB, query, args...)
}

func (s *SQLSession) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "begin transaction")
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx *sql.Tx
}

func (t *sqlTx) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return sqlQuery(ctx, t.tx, query, args...)
}

func (t *sqlTx) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	return sqlExec(ctx, t.tx, query, args...)
}

func (t *sqlTx) Commit(context.Context) error {
	return errors.Wrap(t.tx.Commit(), "commit")
}

func (t *sqlTx) Rollback(context.Context) error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// sqlQuerier is satisfied by both *sql.DB and *sql.Tx.
type sqlQuerier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func sqlQuery(ctx context.Context, q sqlQuerier, query string, args ...any) ([]Row, error) {
	logger.Debug("sql", map[string]any{"sql": query, "args": args})
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "query")
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns")
	}
	out := make([]Row, 0, 16)
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, errors.Wrap(err, "scan rows")
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			row[c] = normalizeValue(vals[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "rows")
	}
	return out, nil
}

func sqlExec(ctx context.Context, q sqlQuerier, query string, args ...any) (int64, error) {
	logger.Debug("sql", map[string]any{"sql": query, "args": args})
	res, err := q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}
