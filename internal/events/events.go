package events

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Envelope is the value of every event message.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Key builds the message key, e.g. "order.created.12".
func Key(eventType string, id int) string {
	return fmt.Sprintf("%s.%d", eventType, id)
}

func newMessage(eventType string, id int, payload interface{}) (kafka.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}

	value, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Payload:    data,
	})
	if err != nil {
		return kafka.Message{}, err
	}

	return kafka.Message{Key: []byte(Key(eventType, id)), Value: value}, nil
}

// MessageWriter is satisfied by *kafka.Writer.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events to a Kafka topic.
type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, eventType string, id int, payload interface{}) error {
	msg, err := newMessage(eventType, id, payload)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s: %w", msg.Key, err)
	}

	logger.Debug().Str("key", string(msg.Key)).Msg("Event published")
	return nil
}

// Handler processes one event message.
type Handler interface {
	Handle(ctx context.Context, key string, value []byte) error
}

// LocalPublisher hands events straight to a handler in the same process.
type LocalPublisher struct {
	handler Handler
}

func NewLocalPublisher(handler Handler) *LocalPublisher {
	return &LocalPublisher{handler: handler}
}

func (p *LocalPublisher) Publish(ctx context.Context, eventType string, id int, payload interface{}) error {
	msg, err := newMessage(eventType, id, payload)
	if err != nil {
		return err
	}
	return p.handler.Handle(ctx, string(msg.Key), msg.Value)
}
