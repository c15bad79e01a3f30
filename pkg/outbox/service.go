// Package outbox records order events next to the order writes that cause
// them. A separate relay drains the table to Pub/Sub.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/payloads"
)

// OrderEvent is one change to an order. Payload must be the payloads struct
// that belongs to Type.
type OrderEvent struct {
	Type       enums.OutboxEventType
	OrderID    string
	Actor      Actor
	OccurredAt time.Time
	Payload    any
}

// Emitter writes order events inside the caller's transaction.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event OrderEvent) error
}

type Writer struct {
	repo *Repository
	logg *logger.Logger
	now  func() time.Time
}

func NewWriter(repo *Repository, logg *logger.Logger) *Writer {
	return &Writer{repo: repo, logg: logg, now: time.Now}
}

// Emit queues event on tx. Nothing is written when the transaction rolls
// back, so an event exists exactly when its order change committed.
func (w *Writer) Emit(ctx context.Context, tx *gorm.DB, event OrderEvent) error {
	if tx == nil {
		return errors.New("outbox: transaction required")
	}
	orderID := strings.TrimSpace(event.OrderID)
	if orderID == "" {
		return errors.New("outbox: order id required")
	}
	if err := checkPayload(event.Type, event.Payload); err != nil {
		return err
	}
	data, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("outbox: encode %s: %w", event.Type, err)
	}

	occurred := event.OccurredAt
	if occurred.IsZero() {
		occurred = w.now()
	}
	id := uuid.New()
	envelope := Envelope{
		Version:    EnvelopeVersion,
		EventID:    id.String(),
		OccurredAt: occurred.UTC(),
		Data:       data,
	}
	if event.Actor.Kind != "" {
		actor := event.Actor
		envelope.Actor = &actor
	}
	stored, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("outbox: encode envelope: %w", err)
	}

	if err := w.repo.Insert(tx, models.OutboxEvent{
		ID:            id,
		EventType:     event.Type,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       stored,
	}); err != nil {
		return err
	}
	if w.logg != nil {
		w.logg.Info(w.logg.WithFields(ctx, map[string]any{
			"event_id":   envelope.EventID,
			"event_type": event.Type,
			"order_id":   orderID,
			"actor":      event.Actor.Kind,
		}), "order event queued")
	}
	return nil
}

func checkPayload(eventType enums.OutboxEventType, payload any) error {
	var ok bool
	switch eventType {
	case enums.EventOrderPlaced:
		_, ok = payload.(payloads.OrderPlacedEvent)
	case enums.EventOrderStatusChanged:
		_, ok = payload.(payloads.OrderStatusChangedEvent)
	case enums.EventOrderPaymentResolved:
		_, ok = payload.(payloads.OrderPaymentResolvedEvent)
	default:
		return fmt.Errorf("outbox: unknown event type %q", eventType)
	}
	if !ok {
		return fmt.Errorf("outbox: %s cannot carry %T", eventType, payload)
	}
	return nil
}
