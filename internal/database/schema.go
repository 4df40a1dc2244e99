package database

import (
	"context"
	"database/sql"
)

// schema holds the DDL executed at startup.  CREATE TABLE IF NOT EXISTS
// keeps restarts idempotent.  Notable choices:
//
//   - sale_stock is keyed (event_id, product_id): each event owns an
//     isolated stock pool per product, decremented only by the ledger.
//   - orders.created_at is DATETIME(6); microsecond precision makes the
//     purchase timestamp usable as a leaderboard sort key.
//   - sale_stock cascades on event deletion; orders do not, purchase
//     records are permanent.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		email         VARCHAR(255) NOT NULL UNIQUE,
		full_name     VARCHAR(255) NOT NULL DEFAULT '',
		password_hash VARCHAR(255) NOT NULL,
		role          VARCHAR(16)  NOT NULL DEFAULT 'CUSTOMER',
		is_active     TINYINT(1)   NOT NULL DEFAULT 1,
		created_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at    TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS products (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		name        VARCHAR(255) NOT NULL,
		description TEXT NOT NULL,
		category    VARCHAR(100) NOT NULL DEFAULT '',
		price_cents BIGINT NOT NULL,
		created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS sale_events (
		id              BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		title           VARCHAR(255) NOT NULL UNIQUE,
		description     TEXT NOT NULL,
		discount_type   VARCHAR(16) NOT NULL,
		discount_value  BIGINT NOT NULL,
		starts_at       DATETIME NOT NULL,
		ends_at         DATETIME NULL,
		schedule_option VARCHAR(16) NOT NULL DEFAULT 'ONE_OFF',
		next_starts_at  DATETIME NULL,
		status          VARCHAR(16) NOT NULL DEFAULT 'SCHEDULED',
		disabled        TINYINT(1) NOT NULL DEFAULT 0,
		created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_sale_events_status (status)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS sale_stock (
		event_id    BIGINT UNSIGNED NOT NULL,
		product_id  BIGINT UNSIGNED NOT NULL,
		price_cents BIGINT NOT NULL,
		stock_count BIGINT NOT NULL,
		PRIMARY KEY (event_id, product_id),
		CONSTRAINT fk_sale_stock_event FOREIGN KEY (event_id)
			REFERENCES sale_events(id) ON DELETE CASCADE,
		CONSTRAINT fk_sale_stock_product FOREIGN KEY (product_id)
			REFERENCES products(id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS orders (
		id          BIGINT UNSIGNED AUTO_INCREMENT PRIMARY KEY,
		user_id     BIGINT UNSIGNED NOT NULL,
		event_id    BIGINT UNSIGNED NOT NULL,
		total_cents BIGINT NOT NULL,
		created_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
		INDEX idx_orders_event_created (event_id, created_at),
		INDEX idx_orders_user (user_id)
	) ENGINE=InnoDB`,

	`CREATE TABLE IF NOT EXISTS order_items (
		order_id    BIGINT UNSIGNED NOT NULL,
		product_id  BIGINT UNSIGNED NOT NULL,
		quantity    BIGINT NOT NULL,
		price_cents BIGINT NOT NULL,
		PRIMARY KEY (order_id, product_id),
		CONSTRAINT fk_order_items_order FOREIGN KEY (order_id)
			REFERENCES orders(id) ON DELETE CASCADE
	) ENGINE=InnoDB`,
}

// Migrate applies the schema statements in order.
func Migrate(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
