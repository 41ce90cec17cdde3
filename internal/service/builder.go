package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"storefront/internal/entity"
	"storefront/internal/repository"
)

// RawLine is one submitted cart entry.
type RawLine struct {
	ProductID int
	Quantity  int
}

// buildOrder inserts the provisional order, turns every positive line into a
// line item at the current product price and decrements stock, all through uow.
// The caller owns commit and rollback.
func buildOrder(ctx context.Context, uow repository.UnitOfWork, order *entity.Order, lines []RawLine) error {
	if err := uow.InsertOrder(ctx, order); err != nil {
		return err
	}

	subtotal := decimal.Zero
	items := make([]entity.LineItem, 0, len(lines))
	for _, line := range lines {
		if line.Quantity <= 0 {
			continue
		}

		product, err := uow.LockProduct(ctx, line.ProductID)
		if errors.Is(err, repository.ErrNotFound) {
			logger.Warn().Int("product_id", line.ProductID).Msg("Product not found while placing order")
			return &Failure{Kind: ErrProductNotFound, Message: "a selected product is no longer available", ProductID: line.ProductID}
		}
		if err != nil {
			return err
		}

		if product.Stock < line.Quantity {
			return insufficientStock(product)
		}

		if err := uow.DecrementStock(ctx, product.ID, line.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return insufficientStock(product)
			}
			return err
		}

		item := entity.LineItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		}
		items = append(items, item)
		subtotal = subtotal.Add(item.Subtotal())

		logger.Debug().Msgf("Item added to order %d: %s x%d", order.ID, product.Name, line.Quantity)
	}

	if len(items) == 0 {
		return fail(ErrEmptyOrder, "add at least one item to the cart")
	}

	if err := uow.InsertLineItems(ctx, order.ID, items); err != nil {
		return err
	}

	order.Total = subtotal.Add(order.DeliveryFee)
	if err := uow.UpdateOrderTotal(ctx, order.ID, order.Total); err != nil {
		return err
	}

	order.Items = items
	return nil
}

func insufficientStock(product *entity.Product) *Failure {
	logger.Warn().Int("product_id", product.ID).Int("stock", product.Stock).Msgf("Insufficient stock for %s", product.Name)
	return &Failure{Kind: ErrInsufficientStock, Message: "insufficient stock for " + product.Name, ProductID: product.ID}
}
