package migrations

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

const createProducts = `
	CREATE TABLE IF NOT EXISTS products (
		id VARCHAR(64) PRIMARY KEY,
		title VARCHAR(255) NOT NULL,
		price DECIMAL(10,2) NOT NULL,
		shipping_cost DECIMAL(10,2) NULL,
		stock_quantity INT NOT NULL DEFAULT 0,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
`

const createProductVariants = `
	CREATE TABLE IF NOT EXISTS product_variants (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		product_id VARCHAR(64) NOT NULL,
		size_name VARCHAR(50) NOT NULL DEFAULT '',
		color_name VARCHAR(50) NOT NULL DEFAULT '',
		stock_quantity INT NOT NULL DEFAULT 0,
		price_adjustment DECIMAL(10,2) NOT NULL DEFAULT 0,
		is_available BOOLEAN NOT NULL DEFAULT TRUE,
		UNIQUE KEY uniq_variant (product_id, size_name, color_name),
		FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE
	);
`

const createOrders = `
	CREATE TABLE IF NOT EXISTS orders (
		id VARCHAR(16) PRIMARY KEY,
		customer_name VARCHAR(255) NOT NULL,
		customer_email VARCHAR(255) NOT NULL DEFAULT '',
		customer_phone VARCHAR(32) NOT NULL DEFAULT '',
		shipping_address VARCHAR(500) NOT NULL,
		shipping_city VARCHAR(100) NOT NULL DEFAULT '',
		shipping_country VARCHAR(100) NOT NULL DEFAULT '',
		shipping_postal_code VARCHAR(20) NOT NULL DEFAULT '',
		subtotal DECIMAL(10,2) NOT NULL,
		shipping_cost DECIMAL(10,2) NOT NULL,
		tax_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		total DECIMAL(10,2) NOT NULL,
		discount_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		promo_code VARCHAR(50) NOT NULL DEFAULT '',
		status VARCHAR(20) NOT NULL,
		payment_method VARCHAR(50) NOT NULL DEFAULT '',
		payment_reference VARCHAR(255) NULL UNIQUE,
		tracking_number VARCHAR(100) NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);
`

const createOrderItems = `
	CREATE TABLE IF NOT EXISTS order_items (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		order_id VARCHAR(16) NOT NULL,
		product_id VARCHAR(64) NOT NULL,
		product_variant_id BIGINT NULL,
		selected_size VARCHAR(50) NOT NULL DEFAULT '',
		selected_color VARCHAR(50) NOT NULL DEFAULT '',
		quantity INT NOT NULL,
		unit_price DECIMAL(10,2) NOT NULL,
		total_price DECIMAL(10,2) NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
		FOREIGN KEY (product_variant_id) REFERENCES product_variants(id) ON DELETE SET NULL
	);
`

const createPromoCodes = `
	CREATE TABLE IF NOT EXISTS promo_codes (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		code VARCHAR(50) NOT NULL UNIQUE,
		description VARCHAR(255) NOT NULL DEFAULT '',
		discount_type VARCHAR(20) NOT NULL,
		discount_value DECIMAL(10,2) NOT NULL DEFAULT 0,
		minimum_order_amount DECIMAL(10,2) NOT NULL DEFAULT 0,
		maximum_discount_amount DECIMAL(10,2) NULL,
		usage_limit INT NULL,
		usage_count INT NOT NULL DEFAULT 0,
		valid_from DATETIME NOT NULL,
		valid_until DATETIME NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE
	);
`

// AutoMigrateCatalog creates the products and product_variants tables if they
// do not exist.
func AutoMigrateCatalog(retries int, db *sql.DB) error {
	return execWithRetry(retries, db, createProducts, createProductVariants)
}

// AutoMigrateOrders creates the orders and order_items tables if they do not
// exist. Order items reference variants, so the catalog goes first.
func AutoMigrateOrders(retries int, db *sql.DB) error {
	return execWithRetry(retries, db, createOrders, createOrderItems)
}

// AutoMigratePromoCodes creates the promo_codes table if it does not exist.
func AutoMigratePromoCodes(retries int, db *sql.DB) error {
	return execWithRetry(retries, db, createPromoCodes)
}

func execWithRetry(retries int, db *sql.DB, queries ...string) error {
	for _, query := range queries {
		_, err := db.Exec(query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				logger.Warn().Err(err).Msgf("❌ Retry %d: migration failed", i+1)
				time.Sleep(1 * time.Second)
				_, err = db.Exec(query)
				if err == nil {
					break
				}
			}
		}
		if err != nil {
			logger.Error().Err(err).Msg("❌ Migration gave up")
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
