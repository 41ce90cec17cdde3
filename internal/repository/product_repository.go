package repository

import (
	"context"
	"database/sql"
	"errors"

	"storefront/internal/entity"
)

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db}
}

func (r *ProductRepository) GetProductByID(ctx context.Context, id int) (*entity.Product, error) {
	product := &entity.Product{}

	query := `SELECT id, name, description, price, stock FROM products WHERE id = ?`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return product, nil
}

func (r *ProductRepository) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	query := `INSERT INTO products (name, description, price, stock) VALUES (?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query, product.Name, product.Description, product.Price, product.Stock)
	if err != nil {
		return nil, err
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	product.ID = int(id)
	return product, nil
}

func (r *ProductRepository) UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	query := `UPDATE products SET name = ?, description = ?, price = ?, stock = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, product.Name, product.Description, product.Price, product.Stock, product.ID)
	if err != nil {
		return nil, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return product, nil
}

// ListInStock returns the products with stock left, ordered by name.
func (r *ProductRepository) ListInStock(ctx context.Context) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT id, name, description, price, stock FROM products WHERE stock > 0 ORDER BY name`)
}

func (r *ProductRepository) GetProducts(ctx context.Context) ([]*entity.Product, error) {
	return r.list(ctx, `SELECT id, name, description, price, stock FROM products ORDER BY name`)
}

func (r *ProductRepository) list(ctx context.Context, query string) ([]*entity.Product, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []*entity.Product{}
	for rows.Next() {
		var product entity.Product
		err := rows.Scan(&product.ID, &product.Name, &product.Description, &product.Price, &product.Stock)
		if err != nil {
			return nil, err
		}
		products = append(products, &product)
	}

	return products, rows.Err()
}
