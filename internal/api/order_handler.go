package api

import (
	"context"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/entity"
	"storefront/internal/service"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, req service.PlaceOrderRequest) (*entity.Order, error)
	LatestOrder(ctx context.Context, userID int) (*entity.Order, error)
	UserOrders(ctx context.Context, userID int) ([]*entity.Order, error)
	AllOrders(ctx context.Context) ([]*entity.Order, error)
	GetOrder(ctx context.Context, id int) (*entity.Order, error)
	SetStatus(ctx context.Context, orderID int, status string) error
}

type OrderHandler struct {
	orderService OrderService
}

// NewOrderHandler creates a new instance of OrderHandler
func NewOrderHandler(orderService OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// placeOrderRequest is the cart form. Items maps product id to quantity.
type placeOrderRequest struct {
	PickupLocation string         `json:"pickup_location" validate:"required"`
	PickupTime     string         `json:"pickup_time" validate:"required"`
	Items          map[string]int `json:"items"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

// cartLines converts the items map to lines ordered by product id.
func cartLines(items map[string]int) ([]service.RawLine, error) {
	lines := make([]service.RawLine, 0, len(items))
	for key, quantity := range items {
		id, err := strconv.Atoi(key)
		if err != nil || id <= 0 {
			return nil, &service.Failure{Kind: service.ErrValidation, Message: "invalid product id " + strconv.Quote(key)}
		}
		lines = append(lines, service.RawLine{ProductID: id, Quantity: quantity})
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })
	return lines, nil
}

// PlaceOrder submits the cart --> POST /orders
func (h *OrderHandler) PlaceOrder(c echo.Context) error {
	var req placeOrderRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	lines, err := cartLines(req.Items)
	if err != nil {
		return respondError(c, err)
	}

	order, err := h.orderService.PlaceOrder(c.Request().Context(), service.PlaceOrderRequest{
		UserID:         claimsFrom(c).UserID,
		PickupLocation: req.PickupLocation,
		PickupTime:     req.PickupTime,
		Lines:          lines,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
	})
	if err != nil {
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, order)
}

// LatestOrder --> GET /orders/latest
func (h *OrderHandler) LatestOrder(c echo.Context) error {
	order, err := h.orderService.LatestOrder(c.Request().Context(), claimsFrom(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// MyOrders --> GET /orders
func (h *OrderHandler) MyOrders(c echo.Context) error {
	orders, err := h.orderService.UserOrders(c.Request().Context(), claimsFrom(c).UserID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// AllOrders --> GET /admin/orders
func (h *OrderHandler) AllOrders(c echo.Context) error {
	orders, err := h.orderService.AllOrders(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, orders)
}

// GetOrder --> GET /admin/orders/:id
func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID"})
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, order)
}

// SetStatus --> PUT /admin/orders/:id/status
func (h *OrderHandler) SetStatus(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid ID"})
	}

	var req statusRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	if err := h.orderService.SetStatus(c.Request().Context(), id, req.Status); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Order status updated"})
}
