package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"storefront/internal/entity"
	"storefront/internal/repository"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// PickupTimeLayout is the format sent by a datetime-local input.
const PickupTimeLayout = "2006-01-02T15:04"

// Transactor opens the unit of work of one placement.
type Transactor interface {
	Begin(ctx context.Context) (repository.UnitOfWork, error)
}

// OrderStore is the read and status side of the order tables.
type OrderStore interface {
	GetOrderByID(ctx context.Context, id int) (*entity.Order, error)
	FindByUser(ctx context.Context, userID int) ([]*entity.Order, error)
	FindLatestByUser(ctx context.Context, userID int) (*entity.Order, error)
	ListAll(ctx context.Context) ([]*entity.Order, error)
	UpdateOrderStatus(ctx context.Context, id int, status string) error
}

// EventPublisher announces committed changes, e.g. "order.created" for order 12.
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, id int, payload interface{}) error
}

// IdempotencyStore remembers submission keys for a while.
type IdempotencyStore interface {
	Claim(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// PlaceOrderRequest is a cart submission.
type PlaceOrderRequest struct {
	UserID         int
	PickupLocation string
	PickupTime     string
	Lines          []RawLine
	IdempotencyKey string
}

// OrderService is a service that provides order-related operations
type OrderService struct {
	transactor  Transactor
	orders      OrderStore
	locations   entity.PickupLocations
	publisher   EventPublisher
	idempotency IdempotencyStore
	nowFunc     func() time.Time
}

// NewOrderService creates a new instance of OrderService. idempotency may be nil.
func NewOrderService(transactor Transactor, orders OrderStore, locations entity.PickupLocations, publisher EventPublisher, idempotency IdempotencyStore) *OrderService {
	return &OrderService{
		transactor:  transactor,
		orders:      orders,
		locations:   locations,
		publisher:   publisher,
		idempotency: idempotency,
		nowFunc:     time.Now,
	}
}

// PlaceOrder converts a cart submission into a committed order. Either the order,
// all of its items and every stock decrement are stored, or nothing is.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*entity.Order, error) {
	if req.IdempotencyKey != "" && s.idempotency != nil {
		claimed, err := s.idempotency.Claim(ctx, req.IdempotencyKey)
		if err != nil {
			logger.Error().Err(err).Msg("Error claiming idempotency key")
			return nil, err
		}
		if !claimed {
			return nil, fail(ErrDuplicateSubmission, "this order was already submitted")
		}
	}

	order, err := s.placeOrder(ctx, req)
	if err != nil {
		var failure *Failure
		if errors.As(err, &failure) {
			logger.Warn().Int("user_id", req.UserID).Msgf("Order rejected: %s", failure.Message)
		} else {
			logger.Error().Err(err).Int("user_id", req.UserID).Msg("Error placing order")
		}
		if req.IdempotencyKey != "" && s.idempotency != nil {
			if relErr := s.idempotency.Release(ctx, req.IdempotencyKey); relErr != nil {
				logger.Error().Err(relErr).Msg("Error releasing idempotency key")
			}
		}
		return nil, err
	}

	logger.Info().Int("order_id", order.ID).Int("user_id", order.UserID).Str("total", order.Total.StringFixed(2)).Msg("Order placed")

	// publish failures never undo a committed order
	if err := s.publisher.Publish(ctx, "order.created", order.ID, order); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order %d created event", order.ID)
	}

	return order, nil
}

func (s *OrderService) placeOrder(ctx context.Context, req PlaceOrderRequest) (*entity.Order, error) {
	location := strings.TrimSpace(req.PickupLocation)
	if location == "" || strings.TrimSpace(req.PickupTime) == "" {
		return nil, fail(ErrValidation, "pickup location and pickup time are required")
	}

	fee, ok := s.locations.Fee(location)
	if !ok {
		return nil, fail(ErrValidation, "unknown pickup location %q", location)
	}

	pickupTime, err := parsePickupTime(req.PickupTime)
	if err != nil {
		return nil, fail(ErrValidation, "invalid pickup time %q", req.PickupTime)
	}

	order := &entity.Order{
		UserID:         req.UserID,
		CreatedAt:      s.nowFunc().UTC(),
		PickupLocation: location,
		DeliveryFee:    fee,
		PickupTime:     pickupTime,
		Status:         entity.StatusReceived,
	}

	uow, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, err
	}

	ended := false
	defer func() {
		if ended {
			return
		}
		if err := uow.Rollback(); err != nil {
			logger.Error().Err(err).Msg("Error rolling back order placement")
		}
	}()

	if err := buildOrder(ctx, uow, order, req.Lines); err != nil {
		return nil, err
	}

	ended = true
	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit order: %w", err)
	}

	return order, nil
}

func parsePickupTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(PickupTimeLayout, value); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}

// LatestOrder returns the most recent order of a user with its items.
func (s *OrderService) LatestOrder(ctx context.Context, userID int) (*entity.Order, error) {
	order, err := s.orders.FindLatestByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "no order found")
		}
		logger.Error().Err(err).Msgf("Error getting latest order of user %d", userID)
		return nil, err
	}
	return order, nil
}

// GetOrder returns one order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id int) (*entity.Order, error) {
	order, err := s.orders.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fail(ErrNotFound, "order not found")
		}
		logger.Error().Err(err).Msgf("Error getting order %d", id)
		return nil, err
	}
	return order, nil
}

// UserOrders returns every order of a user, newest first.
func (s *OrderService) UserOrders(ctx context.Context, userID int) ([]*entity.Order, error) {
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		logger.Error().Err(err).Msgf("Error getting orders of user %d", userID)
		return nil, err
	}
	return orders, nil
}

// AllOrders returns every order with user and item detail, newest first.
func (s *OrderService) AllOrders(ctx context.Context) ([]*entity.Order, error) {
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Error listing orders")
		return nil, err
	}
	return orders, nil
}

// SetStatus replaces the status label of an order. Any known label may follow any other.
func (s *OrderService) SetStatus(ctx context.Context, orderID int, status string) error {
	status = strings.TrimSpace(status)
	if !entity.ValidStatus(status) {
		return fail(ErrValidation, "unknown order status %q", status)
	}

	err := s.orders.UpdateOrderStatus(ctx, orderID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fail(ErrNotFound, "order not found")
		}
		logger.Error().Err(err).Msgf("Error updating status of order %d", orderID)
		return err
	}

	logger.Info().Int("order_id", orderID).Str("status", status).Msg("Order status updated")

	event := map[string]interface{}{"id": orderID, "status": status}
	if err := s.publisher.Publish(ctx, "order.status", orderID, event); err != nil {
		logger.Error().Err(err).Msgf("Error publishing order %d status event", orderID)
	}
	return nil
}
