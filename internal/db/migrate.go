package db

import (
	"errors"
	"fmt"
	"path/filepath"

	"ResteasyAPI/internal/logger"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrate applies (up) or rolls back one step of (down) the SQL migrations
// in dir against a postgres:// DSN. Having nothing to do is not an error.
func Migrate(dsn, dir string, up bool) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("abs migrations: %w", err)
	}
	// file:// needs an absolute path with forward slashes
	m, err := migrate.New("file://"+filepath.ToSlash(abs), dsn)
	if err != nil {
		return fmt.Errorf("migrate.New: %w", err)
	}
	defer func() { _, _ = m.Close() }()

	direction := "up"
	if up {
		err = m.Up()
	} else {
		direction = "down"
		err = m.Steps(-1)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("migrate_no_change", map[string]any{"direction": direction})
		return nil
	}
	if err != nil {
		return fmt.Errorf("migrate %s: %w", direction, err)
	}
	version, dirty, _ := m.Version()
	logger.Info("migrate_done", map[string]any{
		"direction": direction,
		"version":   version,
		"dirty":     dirty,
	})
	return nil
}
