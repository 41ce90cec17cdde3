package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"storefront/internal/entity"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert hits a unique index.
var ErrDuplicate = errors.New("duplicate entry")

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry
}

// UnitOfWork groups the reads and writes of one order placement.
// Every call runs in the same transaction; Commit or Rollback ends it.
type UnitOfWork interface {
	// LockProduct reads a product and holds its row lock until the unit of work ends.
	LockProduct(ctx context.Context, productID int) (*entity.Product, error)
	// DecrementStock fails with ErrInsufficientStock when stock would go negative.
	DecrementStock(ctx context.Context, productID int, quantity int) error
	// InsertOrder assigns order.ID without making the order visible to other transactions.
	InsertOrder(ctx context.Context, order *entity.Order) error
	// InsertLineItems stores the items of an order and fills in their ids.
	InsertLineItems(ctx context.Context, orderID int, items []entity.LineItem) error
	UpdateOrderTotal(ctx context.Context, orderID int, total decimal.Decimal) error
	Commit() error
	Rollback() error
}

// ErrInsufficientStock is returned by DecrementStock when the conditional update matched no row.
var ErrInsufficientStock = errors.New("insufficient stock")

// Transactor opens units of work on a MySQL database.
type Transactor struct {
	db *sql.DB
}

func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db}
}

// Begin starts a read-committed transaction. Stock rows are serialized with SELECT ... FOR UPDATE.
func (t *Transactor) Begin(ctx context.Context) (UnitOfWork, error) {
	tx, err := t.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &sqlUnitOfWork{tx: tx}, nil
}

type sqlUnitOfWork struct {
	tx *sql.Tx
}

func (u *sqlUnitOfWork) LockProduct(ctx context.Context, productID int) (*entity.Product, error) {
	query := `SELECT id, name, description, price, stock FROM products WHERE id = ? FOR UPDATE`

	product := &entity.Product{}
	err := u.tx.QueryRowContext(ctx, query, productID).Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("lock product %d: %w", productID, err)
	}
	return product, nil
}

func (u *sqlUnitOfWork) DecrementStock(ctx context.Context, productID int, quantity int) error {
	query := `UPDATE products SET stock = stock - ? WHERE id = ? AND stock >= ?`
	res, err := u.tx.ExecContext(ctx, query, quantity, productID, quantity)
	if err != nil {
		return fmt.Errorf("decrement stock of product %d: %w", productID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("decrement stock of product %d: %w", productID, err)
	}
	if affected == 0 {
		return ErrInsufficientStock
	}
	return nil
}

func (u *sqlUnitOfWork) InsertOrder(ctx context.Context, order *entity.Order) error {
	query := `INSERT INTO orders (user_id, created_at, pickup_location, delivery_fee, pickup_time, total, status) VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := u.tx.ExecContext(ctx, query, order.UserID, order.CreatedAt, order.PickupLocation, order.DeliveryFee, order.PickupTime, order.Total, order.Status)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	order.ID = int(id)
	return nil
}

// InsertLineItems writes all items of an order with one batch insert. InnoDB hands out
// consecutive auto-increment values to a simple multi-row insert, starting at
// LastInsertId. The ids are derived from that and assume auto_increment_increment=1.
func (u *sqlUnitOfWork) InsertLineItems(ctx context.Context, orderID int, items []entity.LineItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `INSERT INTO order_items (order_id, product_id, quantity, unit_price) VALUES `
	rows := make([]string, 0, len(items))
	values := make([]interface{}, 0, len(items)*4)
	for _, item := range items {
		rows = append(rows, "(?, ?, ?, ?)")
		values = append(values, orderID, item.ProductID, item.Quantity, item.UnitPrice)
	}
	query += strings.Join(rows, ", ")

	res, err := u.tx.ExecContext(ctx, query, values...)
	if err != nil {
		return fmt.Errorf("insert items of order %d: %w", orderID, err)
	}

	firstID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert items of order %d: %w", orderID, err)
	}
	for i := range items {
		items[i].ID = int(firstID) + i
		items[i].OrderID = orderID
	}
	return nil
}

func (u *sqlUnitOfWork) UpdateOrderTotal(ctx context.Context, orderID int, total decimal.Decimal) error {
	query := `UPDATE orders SET total = ? WHERE id = ?`
	_, err := u.tx.ExecContext(ctx, query, total, orderID)
	if err != nil {
		return fmt.Errorf("update total of order %d: %w", orderID, err)
	}
	return nil
}

func (u *sqlUnitOfWork) Commit() error {
	return u.tx.Commit()
}

func (u *sqlUnitOfWork) Rollback() error {
	return u.tx.Rollback()
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
