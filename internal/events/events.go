// Package events publishes order events to kafka from the transactional outbox.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const TypeOrderSubmitted = "order.submitted"

// OrderSubmitted is written to the outbox in the same transaction as the order.
type OrderSubmitted struct {
	OrderID          string    `json:"order_id"`
	CartID           string    `json:"cart_id"`
	CustomerID       string    `json:"customer_id,omitempty"`
	PaymentGatewayID string    `json:"payment_gateway_id"`
	ShippingCityID   string    `json:"shipping_city_id"`
	Currency         string    `json:"currency"`
	Total            int64     `json:"total"`
	CreateAccount    bool      `json:"create_account"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// Event is one outbox row.
type Event struct {
	ID          int64
	AggregateID string
	Type        string
	Payload     json.RawMessage
	CreatedAt   time.Time
}

// NewEvent marshals payload into an outbox event for aggregateID.
func NewEvent(aggregateID, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s: %w", eventType, err)
	}
	return Event{AggregateID: aggregateID, Type: eventType, Payload: data}, nil
}

// MessageWriter is the part of *kafka.Writer the publisher uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	w MessageWriter
}

func NewPublisher(w MessageWriter) *Publisher {
	return &Publisher{w: w}
}

// NewKafkaPublisher writes to topic on brokers, keyed by aggregate id so events
// for one order stay ordered.
func NewKafkaPublisher(brokers []string, topic string) *Publisher {
	return NewPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	})
}

func (p *Publisher) Publish(ctx context.Context, e Event) error {
	msg := kafka.Message{
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
		Time: e.CreatedAt.UTC(),
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka write %s: %w", e.Type, err)
	}
	return nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
