package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema statements are embedded and applied in order at startup; each one is
// idempotent so a restart is safe without a migrations table.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS cafe_tables (
		table_id     VARCHAR(36) PRIMARY KEY,
		table_number VARCHAR(50) NOT NULL UNIQUE,
		status       INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
		payment_method_id   VARCHAR(36) PRIMARY KEY,
		payment_method_type VARCHAR(50) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS orders (
		order_id          VARCHAR(36) PRIMARY KEY,
		order_date        TIMESTAMPTZ NOT NULL DEFAULT now(),
		status            VARCHAR(10) NOT NULL DEFAULT 'OPEN',
		total_amount      NUMERIC(10,2) NOT NULL DEFAULT 0,
		table_id          VARCHAR(36) REFERENCES cafe_tables(table_id),
		payment_method_id VARCHAR(36) REFERENCES payment_methods(payment_method_id)
	)`,
	`CREATE TABLE IF NOT EXISTS order_details (
		order_id     VARCHAR(36) NOT NULL REFERENCES orders(order_id),
		product_id   VARCHAR(36) NOT NULL,
		product_name VARCHAR(150) NOT NULL,
		quantity     INTEGER NOT NULL CHECK (quantity > 0),
		unit_price   NUMERIC(10,2) NOT NULL,
		notes        VARCHAR(255),
		seq          BIGSERIAL,
		PRIMARY KEY (order_id, product_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_orders_date_status ON orders (order_date, status)`,
}

// Migrate applies the embedded schema.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
