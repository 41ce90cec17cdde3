package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"storefront/internal/events"
)

// CatalogInvalidator drops the cached in-stock listing.
type CatalogInvalidator interface {
	InvalidateCatalog(ctx context.Context) error
}

// MessageReader is satisfied by *kafka.Reader.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

type Consumer struct {
	catalog    CatalogInvalidator
	retryDelay time.Duration
}

func NewConsumer(catalog CatalogInvalidator) *Consumer {
	return &Consumer{catalog: catalog, retryDelay: time.Second}
}

// Start reads events until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context, reader MessageReader) {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				log.Info().Msg("Event consumer stopped")
				return
			}
			log.Error().Msgf("Error reading message: %v", err)
			select {
			case <-ctx.Done():
				log.Info().Msg("Event consumer stopped")
				return
			case <-time.After(c.retryDelay):
			}
			continue
		}

		if err := c.Handle(ctx, string(msg.Key), msg.Value); err != nil {
			log.Error().Err(err).Msgf("Error processing message %s", msg.Key)
		}
	}
}

// Handle processes one event. key -> "order.created.12", "product.updated.3"
func (c *Consumer) Handle(ctx context.Context, key string, value []byte) error {
	parts := strings.Split(key, ".")
	if len(parts) != 3 {
		return fmt.Errorf("malformed event key %q", key)
	}

	var env events.Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return fmt.Errorf("decode event %s: %w", key, err)
	}

	switch parts[0] + "." + parts[1] {
	case "order.created", "product.created", "product.updated":
		// stock or catalog changed
		if err := c.catalog.InvalidateCatalog(ctx); err != nil {
			return fmt.Errorf("invalidate catalog: %w", err)
		}
		log.Debug().Msgf("Catalog invalidated by %s", key)
	case "order.status":
		log.Info().Msgf("Order %s status changed: %s", parts[2], env.Payload)
	default:
		log.Warn().Msgf("Unknown event type: %s", env.Type)
	}
	return nil
}
