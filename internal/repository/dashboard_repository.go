package repository

import (
	"context"
	"database/sql"
)

// DashboardRepository serves the admin summary.
type DashboardRepository struct {
	*OrderRepository
	db *sql.DB
}

func NewDashboardRepository(db *sql.DB) *DashboardRepository {
	return &DashboardRepository{OrderRepository: NewOrderRepository(db), db: db}
}

// Count returns the number of users, products and orders.
func (r *DashboardRepository) Count(ctx context.Context) (users, products, orders int, err error) {
	query := `SELECT (SELECT COUNT(*) FROM users), (SELECT COUNT(*) FROM products), (SELECT COUNT(*) FROM orders)`
	err = r.db.QueryRowContext(ctx, query).Scan(&users, &products, &orders)
	return users, products, orders, err
}
