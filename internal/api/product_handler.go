package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"storefront/internal/entity"
)

type ProductService interface {
	ListInStock(ctx context.Context) ([]*entity.Product, error)
	ListProducts(ctx context.Context) ([]*entity.Product, error)
	GetProduct(ctx context.Context, id int) (*entity.Product, error)
	CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	UpdateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
}

type ProductHandler struct {
	productService ProductService
}

// NewProductHandler creates a new instance of ProductHandler
func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

type productRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price" validate:"gte=0"`
	Stock       int             `json:"stock" validate:"gte=0"`
}

func (r productRequest) product(id int) *entity.Product {
	return &entity.Product{ID: id, Name: r.Name, Description: r.Description, Price: r.Price, Stock: r.Stock}
}

// ListInStock --> GET /products
func (h *ProductHandler) ListInStock(c echo.Context) error {
	products, err := h.productService.ListInStock(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct --> GET /products/:id
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid product ID"})
	}

	product, err := h.productService.GetProduct(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}

// ListProducts --> GET /admin/products
func (h *ProductHandler) ListProducts(c echo.Context) error {
	products, err := h.productService.ListProducts(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, products)
}

// CreateProduct --> POST /admin/products
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.productService.CreateProduct(c.Request().Context(), req.product(0))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, product)
}

// UpdateProduct --> PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid product ID"})
	}

	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	product, err := h.productService.UpdateProduct(c.Request().Context(), req.product(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, product)
}
