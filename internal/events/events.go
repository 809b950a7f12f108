// Package events publishes order domain events to kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated       = "OrderCreated"
	OrderStatusChanged = "OrderStatusChanged"
	OrderDeleted       = "OrderDeleted"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status.changed"
	TopicOrderDeleted       = "order.deleted"
)

// TopicFor maps an event type to its topic.
func TopicFor(eventType string) string {
	switch eventType {
	case OrderCreated:
		return TopicOrderCreated
	case OrderStatusChanged:
		return TopicOrderStatusChanged
	case OrderDeleted:
		return TopicOrderDeleted
	default:
		return "order.unknown"
	}
}

// Envelope wraps every payload on the wire.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload into a version 1 envelope.
func NewEnvelope(producer, eventType, correlationID string, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: correlationID,
		Payload:       raw,
	}, nil
}

// UnmarshalEnvelope decodes a message value.
func UnmarshalEnvelope(b []byte, out *Envelope) error {
	return json.Unmarshal(b, out)
}

// UnwrapPayload decodes an envelope payload into T.
func UnwrapPayload[T any](payload json.RawMessage) (T, error) {
	var t T
	if err := json.Unmarshal(payload, &t); err != nil {
		return t, fmt.Errorf("decode payload: %w", err)
	}
	return t, nil
}

// StatusChangedPayload is the payload of OrderStatusChanged.
type StatusChangedPayload struct {
	OrderID string `json:"order_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// DeletedPayload is the payload of OrderDeleted.
type DeletedPayload struct {
	OrderID string   `json:"order_id"`
	UserID  string   `json:"user_id"`
	Assets  []string `json:"assets,omitempty"`
}

// Publisher sends one event keyed by key (the order id).
type Publisher interface {
	Publish(ctx context.Context, eventType, key string, payload any) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, string, any) error { return nil }
