package db

import (
	"context"
	"fmt"
)

// Open connects to the store selected by driver ("postgres" or "sqlite").
func Open(ctx context.Context, driver, postgresDSN, sqlitePath string) (Session, error) {
	switch driver {
	case "", "postgres", "postgresql", "pgx":
		return InitPostgres(ctx, postgresDSN)
	case "sqlite", "sqlite3":
		return OpenSQLite(sqlitePath)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
}
