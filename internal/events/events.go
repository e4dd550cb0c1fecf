// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TopicOrderCreated = "order.created"
	TopicOrderPaid    = "order.paid"
	TopicOrderFailed  = "order.failed"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Price     string `json:"price"`
}

type OrderCreated struct {
	OrderID       string      `json:"order_id"`
	SupermarketID string      `json:"supermarket_id"`
	UserID        string      `json:"user_id,omitempty"`
	TotalAmount   string      `json:"total_amount"`
	Items         []OrderLine `json:"items"`
}

type OrderSettled struct {
	OrderID     string `json:"order_id"`
	Status      string `json:"status"`
	AmountMinor int64  `json:"amount_minor"`
}

// Publisher delivers a payload on topic, keyed so that one order's events stay ordered.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

// Discard drops every event; used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, string, string, any) error { return nil }
