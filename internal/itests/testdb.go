//go:build integration

package itests

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"ResteasyAPI/internal"
	"ResteasyAPI/internal/db"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

const testDBName = "resteasy_test"

// testDatabase is a throwaway database created next to the configured one.
type testDatabase struct {
	dsn      string
	adminDSN string
	name     string
}

// newTestDatabase derives the test and admin DSNs from base. Only local
// hosts are accepted.
func newTestDatabase(base string) (*testDatabase, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, errors.Wrap(err, "parse DSN")
	}
	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return nil, errors.New("only URL DSNs are supported: postgres://...")
	}
	if host := u.Hostname(); host != "localhost" && host != "127.0.0.1" {
		return nil, fmt.Errorf("refusing non-local host for tests: %s", host)
	}
	if os.Getenv("APP_ENV") == "production" {
		return nil, errors.New("APP_ENV=production, aborting tests")
	}

	td := &testDatabase{name: testDBName}
	u.Path = "/" + testDBName
	td.dsn = u.String()
	u.Path = "/postgres"
	td.adminDSN = u.String()
	return td, nil
}

func (td *testDatabase) admin(ctx context.Context, fn func(*sql.DB) error) error {
	conn, err := sql.Open("pgx", td.adminDSN)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(conn)
}

// create drops any leftover copy, creates the database and migrates it.
func (td *testDatabase) create() error {
	if err := td.drop(); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := td.admin(ctx, func(conn *sql.DB) error {
		_, err := conn.ExecContext(ctx, `CREATE DATABASE `+db.QuoteIdent(td.name))
		return err
	})
	if err != nil {
		return errors.Wrapf(err, "create database %s (check POSTGRES_DSN %s)", td.name, redactDSN(td.adminDSN))
	}

	root, err := internal.FindRepoRoot()
	if err != nil {
		return errors.Wrap(err, "repo root")
	}
	return db.Migrate(td.dsn, filepath.Join(root, "migrations"), true)
}

func (td *testDatabase) drop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return td.admin(ctx, func(conn *sql.DB) error {
		_, _ = conn.ExecContext(ctx, `
			SELECT pg_terminate_backend(pid)
			FROM pg_stat_activity
			WHERE datname = $1 AND pid <> pg_backend_pid()`, td.name)
		_, err := conn.ExecContext(ctx, `DROP DATABASE IF EXISTS `+db.QuoteIdent(td.name))
		return err
	})
}

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil || u.User.Username() == "" {
		return dsn
	}
	u.User = url.UserPassword(u.User.Username(), "******")
	return u.String()
}
