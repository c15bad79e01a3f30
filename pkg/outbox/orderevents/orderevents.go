// Package orderevents is the wire contract of the orders topic. The relay
// turns outbox rows into messages with it and consumers turn the messages
// back into typed payloads with it, so both sides agree on one decoding.
package orderevents

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/outbox"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/payloads"
)

// Message attributes. Subscriptions may filter on AttrEventType.
const (
	AttrEventID    = "event_id"
	AttrEventType  = "event_type"
	AttrOrderID    = "order_id"
	AttrOccurredAt = "occurred_at"
)

// ErrUnknownType is returned for event types no payload is registered for.
var ErrUnknownType = errors.New("unknown order event type")

// Event is one order event with its payload decoded into the matching
// pkg/outbox/payloads struct.
type Event struct {
	ID         string
	Type       enums.OutboxEventType
	OrderID    string
	OccurredAt time.Time
	Actor      *outbox.Actor
	Payload    any
	Data       json.RawMessage

	stored json.RawMessage
}

// DecodePayload parses data into the payload struct for eventType.
func DecodePayload(eventType enums.OutboxEventType, data []byte) (any, error) {
	var target any
	switch eventType {
	case enums.EventOrderPlaced:
		target = &payloads.OrderPlacedEvent{}
	case enums.EventOrderStatusChanged:
		target = &payloads.OrderStatusChangedEvent{}
	case enums.EventOrderPaymentResolved:
		target = &payloads.OrderPaymentResolvedEvent{}
	default:
		return nil, fmt.Errorf("%w %q", ErrUnknownType, eventType)
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("%s payload is empty", eventType)
	}
	if err := json.Unmarshal(trimmed, target); err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", eventType, err)
	}
	return target, nil
}

// FromRow checks an outbox row before it is relayed. Every error is
// permanent: retrying the same row cannot fix it.
func FromRow(row models.OutboxEvent) (Event, error) {
	if row.AggregateType != enums.AggregateOrder {
		return Event{}, fmt.Errorf("aggregate %q is not an order", row.AggregateType)
	}
	return parse(row.EventType, row.AggregateID, row.Payload)
}

// FromMessage rebuilds the event carried by a relayed message.
func FromMessage(msg *gcppubsub.Message) (Event, error) {
	if msg == nil {
		return Event{}, errors.New("nil message")
	}
	eventType := enums.OutboxEventType(strings.TrimSpace(msg.Attributes[AttrEventType]))
	if !eventType.IsValid() {
		return Event{}, fmt.Errorf("%w %q", ErrUnknownType, eventType)
	}
	orderID := msg.Attributes[AttrOrderID]
	if strings.TrimSpace(orderID) == "" {
		orderID = msg.OrderingKey
	}
	return parse(eventType, orderID, msg.Data)
}

func parse(eventType enums.OutboxEventType, orderID string, stored []byte) (Event, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Event{}, errors.New("order id missing")
	}
	var envelope outbox.Envelope
	if err := json.Unmarshal(stored, &envelope); err != nil {
		return Event{}, fmt.Errorf("decode envelope: %w", err)
	}
	if strings.TrimSpace(envelope.EventID) == "" {
		return Event{}, errors.New("event id missing")
	}
	payload, err := DecodePayload(eventType, envelope.Data)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:         envelope.EventID,
		Type:       eventType,
		OrderID:    orderID,
		OccurredAt: envelope.OccurredAt.UTC(),
		Actor:      envelope.Actor,
		Payload:    payload,
		Data:       envelope.Data,
		stored:     stored,
	}, nil
}

// Message renders the event for the orders topic. The ordering key is the
// order id, so one order's events reach subscribers in the order written.
func (e Event) Message() *gcppubsub.Message {
	return &gcppubsub.Message{
		Data:        e.stored,
		OrderingKey: e.OrderID,
		Attributes: map[string]string{
			AttrEventID:    e.ID,
			AttrEventType:  string(e.Type),
			AttrOrderID:    e.OrderID,
			AttrOccurredAt: e.OccurredAt.Format(time.RFC3339Nano),
		},
	}
}
