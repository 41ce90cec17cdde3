package entity

import "time"

type User struct {
	ID           int       `json:"id"`
	Phone        string    `json:"phone"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
	Address      Address   `json:"address"`
}

type Address struct {
	PostalCode string `json:"postal_code"`
	Street     string `json:"street"`
	Number     string `json:"number"`
	Complement string `json:"complement"`
	District   string `json:"district"`
	City       string `json:"city"`
	State      string `json:"state"`
}

// UserSummary is the part of a user shown next to an order.
type UserSummary struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

/*
Mysql Schema:
CREATE TABLE users (
	id INT AUTO_INCREMENT PRIMARY KEY,
	phone VARCHAR(15) NOT NULL UNIQUE,
	name VARCHAR(100) NOT NULL DEFAULT '',
	email VARCHAR(100) NOT NULL UNIQUE,
	password_hash VARCHAR(200) NOT NULL,
	is_admin BOOLEAN NOT NULL DEFAULT FALSE,
	created_at DATETIME(6) NOT NULL,
	postal_code VARCHAR(10) NOT NULL,
	street VARCHAR(200) NOT NULL,
	number VARCHAR(10) NOT NULL,
	complement VARCHAR(100) NOT NULL DEFAULT '',
	district VARCHAR(100) NOT NULL,
	city VARCHAR(100) NOT NULL,
	state CHAR(2) NOT NULL
);
*/
