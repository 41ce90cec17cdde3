package service

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"storefront/internal/entity"
	"storefront/internal/repository"
)

// ProductStore is the catalog side of the database.
type ProductStore interface {
	GetProductByID(ctx context.Context, id int) (*entity.Product, error)
	CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	ListInStock(ctx context.Context) ([]*entity.Product, error)
	GetProducts(ctx context.Context) ([]*entity.Product, error)
}

// CatalogCache holds the in-stock listing.
type CatalogCache interface {
	GetInStock(ctx context.Context) ([]*entity.Product, bool, error)
	SetInStock(ctx context.Context, products []*entity.Product) error
	Invalidate(ctx context.Context) error
}

type ProductService struct {
	productRepo ProductStore
	cache       CatalogCache
	publisher   EventPublisher
}

// NewProductService creates a new instance of ProductService.
func NewProductService(productRepo ProductStore, cache CatalogCache, publisher EventPublisher) *ProductService {
	return &ProductService{
		productRepo: productRepo,
		cache:       cache,
		publisher:   publisher,
	}
}

// ListInStock returns products with stock left, ordered by name. The listing is
// served from the cache when possible.
func (p *ProductService) ListInStock(ctx context.Context) ([]*entity.Product, error) {
	products, hit, err := p.cache.GetInStock(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error reading catalog from cache")
	}
	if hit {
		return products, nil
	}

	products, err = p.productRepo.ListInStock(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing products in stock")
		return nil, err
	}

	if err := p.cache.SetInStock(ctx, products); err != nil {
		logger.Error().Err(err).Msg("Error writing catalog to cache")
	}
	return products, nil
}

// ListProducts returns the whole catalog, including sold out products.
func (p *ProductService) ListProducts(ctx context.Context) ([]*entity.Product, error) {
	products, err := p.productRepo.GetProducts(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error getting products")
		return nil, err
	}
	return products, nil
}

func (p *ProductService) GetProduct(ctx context.Context, id int) (*entity.Product, error) {
	product, err := p.productRepo.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "product not found")
		}
		logger.Error().Err(err).Msgf("Error getting product by ID %d", id)
		return nil, err
	}
	return product, nil
}

func (p *ProductService) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	created, err := p.productRepo.CreateProduct(ctx, product)
	if err != nil {
		logger.Error().Err(err).Msg("Error creating product")
		return nil, err
	}

	p.changed(ctx, "product.created", created)
	return created, nil
}

// UpdateProduct replaces name, description, price and stock. Items of placed
// orders keep the price they were sold at.
func (p *ProductService) UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	updated, err := p.productRepo.UpdateProduct(ctx, product)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "product not found")
		}
		logger.Error().Err(err).Msgf("Error updating product %d", product.ID)
		return nil, err
	}

	p.changed(ctx, "product.updated", updated)
	return updated, nil
}

// InvalidateCatalog drops the cached in-stock listing.
func (p *ProductService) InvalidateCatalog(ctx context.Context) error {
	return p.cache.Invalidate(ctx)
}

func (p *ProductService) changed(ctx context.Context, eventType string, product *entity.Product) {
	if err := p.cache.Invalidate(ctx); err != nil {
		logger.Error().Err(err).Msgf("Error invalidating catalog after change of product %d", product.ID)
	}
	if err := p.publisher.Publish(ctx, eventType, product.ID, product); err != nil {
		logger.Error().Err(err).Msgf("Error publishing %s event for product %d", eventType, product.ID)
	}
}

func validateProduct(product *entity.Product) error {
	product.Name = strings.TrimSpace(product.Name)
	switch {
	case product.Name == "":
		return fail(ErrValidation, "product name is required")
	case product.Price.LessThan(decimal.Zero):
		return fail(ErrValidation, "product price must not be negative")
	case !product.Price.Equal(product.Price.Round(2)):
		// prices are stored as DECIMAL(10,2)
		return fail(ErrValidation, "product price must have at most 2 decimal places")
	case product.Stock < 0:
		return fail(ErrValidation, "product stock must not be negative")
	}
	return nil
}
