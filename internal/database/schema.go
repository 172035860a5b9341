package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is portable between postgres and sqlite. Prices are NUMERIC(12,2):
// ten integer digits and cents.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS categories (
		id         TEXT PRIMARY KEY,
		parent_id  TEXT REFERENCES categories(id) ON DELETE CASCADE,
		name       TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_categories_parent_id ON categories(parent_id)`,
	`CREATE TABLE IF NOT EXISTS products (
		id           TEXT PRIMARY KEY,
		kind         TEXT NOT NULL,
		title        TEXT NOT NULL,
		category_id  TEXT NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
		price        NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (price >= 0),
		pricing_rule TEXT NOT NULL DEFAULT '',
		created_at   TIMESTAMP NOT NULL,
		updated_at   TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_products_category_id ON products(category_id)`,
	`CREATE TABLE IF NOT EXISTS bundle_members (
		bundle_id  TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id) ON DELETE CASCADE,
		position   INTEGER NOT NULL,
		PRIMARY KEY (bundle_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_bundle_members_product_id ON bundle_members(product_id)`,
}

// Migrate creates the catalog tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
