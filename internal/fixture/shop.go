// Package fixture opens a seeded SQLite shop database with the resources
// declared in the repository's resources/ directory. It backs the
// store-level tests of the processor and handler packages.
package fixture

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"ResteasyAPI/internal"
	"ResteasyAPI/internal/db"
	"ResteasyAPI/internal/model"
)

const schema = `
CREATE TABLE product_category (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL
);
CREATE TABLE product (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sku TEXT NOT NULL,
	name TEXT,
	price REAL,
	created_at DATETIME,
	product_category_id INTEGER REFERENCES product_category(id)
);
CREATE TABLE tag (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	label TEXT NOT NULL
);
CREATE TABLE product_tags (
	product_id INTEGER NOT NULL REFERENCES product(id) ON DELETE CASCADE,
	tag_id INTEGER NOT NULL REFERENCES tag(id) ON DELETE CASCADE,
	PRIMARY KEY (product_id, tag_id)
);
CREATE TABLE client (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	full_name TEXT NOT NULL,
	email TEXT,
	_password TEXT
);
CREATE TABLE "order" (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	placed_at DATETIME,
	client_id INTEGER REFERENCES client(id)
);
CREATE TABLE order_item (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	quantity INTEGER NOT NULL DEFAULT 1,
	order_id INTEGER REFERENCES "order"(id) ON DELETE CASCADE,
	product_id INTEGER REFERENCES product(id)
)`

const seed = `
INSERT INTO product_category (id, name) VALUES (1, 'Fruit'), (2, 'Vegetables');
INSERT INTO product (id, sku, name, price, created_at, product_category_id) VALUES
	(1, 'APPL', 'Apple', 1.5, '2024-01-02 10:00:00+00:00', 1),
	(2, 'BEET', 'Beet', 0.8, '2024-01-03 10:00:00+00:00', 2),
	(3, 'CARR', 'Carrot', 0.6, '2024-01-04 10:00:00+00:00', 2);
INSERT INTO tag (id, label) VALUES (1, 'fresh'), (2, 'organic');
INSERT INTO product_tags (product_id, tag_id) VALUES (1, 1), (2, 1), (2, 2);
INSERT INTO client (id, full_name, email, _password) VALUES
	(1, 'Ann Smith', 'ann@example.com', 'x'),
	(2, 'Bob Jones', 'bob@example.com', 'y'),
	(3, 'Cid Young', NULL, NULL);
INSERT INTO "order" (id, placed_at, client_id) VALUES
	(1, '2024-02-01 09:00:00+00:00', 1),
	(2, '2024-02-02 09:00:00+00:00', 1),
	(3, '2024-02-03 09:00:00+00:00', 2);
INSERT INTO order_item (id, quantity, order_id, product_id) VALUES
	(1, 2, 1, 1),
	(2, 1, 1, 2),
	(3, 5, 3, 3)`

// Defaults mirror the service's default registry options.
var Defaults = model.ConfigOptions{
	DefaultConvention: "jsonapi",
	DefaultMethods:    []string{"GET"},
	MaxPerPage:        100,
}

// Open creates the shop database in a temporary directory and builds the
// registry from resources/, introspecting fields from the database where a
// definition omits them.
func Open(t testing.TB, opts model.ConfigOptions) (*db.SQLSession, *model.Registry) {
	t.Helper()
	ctx := context.Background()

	sess, err := db.OpenSQLite(filepath.Join(t.TempDir(), "shop.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(sess.Close)

	for _, script := range []string{schema, seed} {
		for _, stmt := range strings.Split(script, ";") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := sess.Exec(ctx, stmt); err != nil {
				t.Fatalf("exec %q: %v", stmt, err)
			}
		}
	}

	root, err := internal.FindRepoRoot()
	if err != nil {
		t.Fatalf("repo root: %v", err)
	}
	reg, err := model.Load(ctx, filepath.Join(root, "resources"), model.Options{
		ConfigOptions: opts,
		Introspector: model.IntrospectorFunc(func(ctx context.Context, table string) (map[string]string, error) {
			return db.Columns(ctx, sess, sess.Dialect(), table)
		}),
	})
	if err != nil {
		t.Fatalf("load resources: %v", err)
	}
	return sess, reg
}
