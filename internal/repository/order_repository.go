package repository

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/entity"
)

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db}
}

const orderColumns = `o.id, o.user_id, o.created_at, o.pickup_location, o.delivery_fee, o.pickup_time, o.total, o.status`

func orderFields(order *entity.Order) []interface{} {
	return []interface{}{&order.ID, &order.UserID, &order.CreatedAt, &order.PickupLocation, &order.DeliveryFee, &order.PickupTime, &order.Total, &order.Status}
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, id int) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.id = ?`

	order := &entity.Order{Items: []entity.LineItem{}}
	err := r.db.QueryRowContext(ctx, query, id).Scan(orderFields(order)...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := r.loadItems(ctx, []*entity.Order{order}); err != nil {
		return nil, err
	}
	return order, nil
}

// FindByUser returns the orders of a user, newest first, with their items.
func (r *OrderRepository) FindByUser(ctx context.Context, userID int) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC`
	return r.queryOrders(ctx, query, false, userID)
}

// FindLatestByUser returns the most recent order of a user with items and product detail.
func (r *OrderRepository) FindLatestByUser(ctx context.Context, userID int) (*entity.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders o WHERE o.user_id = ? ORDER BY o.created_at DESC, o.id DESC LIMIT 1`
	orders, err := r.queryOrders(ctx, query, false, userID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, ErrNotFound
	}
	return orders[0], nil
}

// ListAll returns every order with its user and items, newest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + `, u.id, u.name, u.phone, u.email FROM orders o JOIN users u ON u.id = o.user_id ORDER BY o.created_at DESC, o.id DESC`
	return r.queryOrders(ctx, query, true)
}

// RecentOrders is ListAll capped to limit rows.
func (r *OrderRepository) RecentOrders(ctx context.Context, limit int) ([]*entity.Order, error) {
	query := `SELECT ` + orderColumns + `, u.id, u.name, u.phone, u.email FROM orders o JOIN users u ON u.id = o.user_id ORDER BY o.created_at DESC, o.id DESC LIMIT ?`
	return r.queryOrders(ctx, query, true, limit)
}

func (r *OrderRepository) UpdateOrderStatus(ctx context.Context, id int, status string) error {
	query := `UPDATE orders SET status = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OrderRepository) queryOrders(ctx context.Context, query string, withUser bool, args ...interface{}) ([]*entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []*entity.Order{}
	for rows.Next() {
		order := &entity.Order{Items: []entity.LineItem{}}
		fields := orderFields(order)
		if withUser {
			order.User = &entity.UserSummary{}
			fields = append(fields, &order.User.ID, &order.User.Name, &order.User.Phone, &order.User.Email)
		}
		if err := rows.Scan(fields...); err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := r.loadItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// loadItems attaches line items and their products to the given orders.
func (r *OrderRepository) loadItems(ctx context.Context, orders []*entity.Order) error {
	if len(orders) == 0 {
		return nil
	}

	byID := make(map[int]*entity.Order, len(orders))
	ids := make([]interface{}, 0, len(orders))
	for _, order := range orders {
		byID[order.ID] = order
		ids = append(ids, order.ID)
	}

	query := `SELECT oi.id, oi.order_id, oi.product_id, oi.quantity, oi.unit_price, p.id, p.name, p.description, p.price, p.stock
		FROM order_items oi JOIN products p ON p.id = oi.product_id
		WHERE oi.order_id IN (` + placeholders(len(ids)) + `) ORDER BY oi.order_id, oi.id`
	rows, err := r.db.QueryContext(ctx, query, ids...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		item := entity.LineItem{Product: &entity.Product{}}
		p := item.Product
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &p.ID, &p.Name, &p.Description, &p.Price, &p.Stock)
		if err != nil {
			return err
		}
		if order, ok := byID[item.OrderID]; ok {
			order.Items = append(order.Items, item)
		}
	}
	return rows.Err()
}
