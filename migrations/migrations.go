package migrations

import (
	"database/sql"
	"fmt"
	"time"
)

var retryDelay = 1 * time.Second

// tables are created in dependency order.
var tables = []struct {
	name  string
	query string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id INT AUTO_INCREMENT PRIMARY KEY,
			phone VARCHAR(15) NOT NULL UNIQUE,
			name VARCHAR(100) NOT NULL DEFAULT '',
			email VARCHAR(100) NOT NULL UNIQUE,
			password_hash VARCHAR(200) NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			created_at DATETIME(6) NOT NULL,
			postal_code VARCHAR(10) NOT NULL DEFAULT '',
			street VARCHAR(200) NOT NULL DEFAULT '',
			number VARCHAR(10) NOT NULL DEFAULT '',
			complement VARCHAR(100) NOT NULL DEFAULT '',
			district VARCHAR(100) NOT NULL DEFAULT '',
			city VARCHAR(100) NOT NULL DEFAULT '',
			state CHAR(2) NOT NULL DEFAULT ''
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`},
	{"products", `
		CREATE TABLE IF NOT EXISTS products (
			id INT AUTO_INCREMENT PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			description VARCHAR(200) NOT NULL DEFAULT '',
			price DECIMAL(10,2) NOT NULL,
			stock INT NOT NULL,
			CHECK (price >= 0),
			CHECK (stock >= 0)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`},
	{"orders", `
		CREATE TABLE IF NOT EXISTS orders (
			id INT AUTO_INCREMENT PRIMARY KEY,
			user_id INT NOT NULL,
			created_at DATETIME(6) NOT NULL,
			pickup_location VARCHAR(50) NOT NULL,
			delivery_fee DECIMAL(10,2) NOT NULL,
			pickup_time DATETIME NOT NULL,
			total DECIMAL(10,2) NOT NULL,
			status VARCHAR(20) NOT NULL,
			INDEX idx_orders_user_created (user_id, created_at),
			FOREIGN KEY (user_id) REFERENCES users(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`},
	{"order_items", `
		CREATE TABLE IF NOT EXISTS order_items (
			id INT AUTO_INCREMENT PRIMARY KEY,
			order_id INT NOT NULL,
			product_id INT NOT NULL,
			quantity INT NOT NULL,
			unit_price DECIMAL(10,2) NOT NULL,
			CHECK (quantity > 0),
			FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE,
			FOREIGN KEY (product_id) REFERENCES products(id)
		) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;
	`},
}

// AutoMigrate creates the storefront tables if they do not exist, retrying
// each statement up to retries more times.
func AutoMigrate(retries int, db *sql.DB) error {
	for _, table := range tables {
		_, err := db.Exec(table.query)
		if err != nil {
			// Retry creating the table
			for i := 0; i < retries; i++ {
				time.Sleep(retryDelay)
				_, err = db.Exec(table.query)
				if err == nil {
					break
				}
			}
		}
		if err != nil {
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}
	return nil
}
