// Package events fans order activity out to the rest of the café system
// (POS front end notifications) over RabbitMQ. Publishing is best-effort
// side channel: the lifecycle manager logs a failed publish and moves on.
package events

import (
	"context"
	"encoding/json"
	"time"

	"cafe-order-service/internal/connections/rabbitmq"
	"cafe-order-service/internal/models"
)

const (
	Exchange = "cafe.orders"

	OrderCreated       = "order.created"
	OrderStatusChanged = "order.status_changed"
)

// OrderEvent is the message body published for both event kinds.
type OrderEvent struct {
	Type        string    `json:"type"`
	OrderID     string    `json:"orderId"`
	Status      string    `json:"status"`
	TableNumber *string   `json:"tableNumber,omitempty"`
	TotalAmount string    `json:"totalAmount"`
	OccurredAt  time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishOrderEvent(ctx context.Context, eventType string, order *models.Order) error
}

// AMQPPublisher publishes persistent JSON messages on the orders topic
// exchange with the event type as routing key.
type AMQPPublisher struct {
	client *rabbitmq.Client
}

func NewAMQPPublisher(client *rabbitmq.Client) (*AMQPPublisher, error) {
	if err := client.DeclareTopicExchange(Exchange); err != nil {
		return nil, err
	}
	return &AMQPPublisher{client: client}, nil
}

func (p *AMQPPublisher) PublishOrderEvent(ctx context.Context, eventType string, order *models.Order) error {
	body, err := json.Marshal(OrderEvent{
		Type:        eventType,
		OrderID:     order.OrderID,
		Status:      string(order.Status),
		TableNumber: order.TableNumber,
		TotalAmount: order.TotalAmount.String(),
		OccurredAt:  time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, Exchange, eventType, body)
}

// NoopPublisher is used when no broker is configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderEvent(context.Context, string, *models.Order) error { return nil }
