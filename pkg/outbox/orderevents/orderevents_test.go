package orderevents

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/outbox"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/payloads"
)

var placedAt = time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC)

func storedRow(t *testing.T, eventType enums.OutboxEventType, orderID string, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	id := uuid.New()
	envelope, err := json.Marshal(outbox.Envelope{
		Version:    outbox.EnvelopeVersion,
		EventID:    id.String(),
		OccurredAt: placedAt,
		Actor:      &outbox.Actor{Kind: outbox.ActorCustomer},
		Data:       raw,
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            id,
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   orderID,
		Payload:       envelope,
	}
}

func TestFromRowDecodesPayload(t *testing.T) {
	row := storedRow(t, enums.EventOrderPlaced, "AS-7742", payloads.OrderPlacedEvent{
		OrderID:   "AS-7742",
		Total:     decimal.RequireFromString("1900"),
		ItemCount: 2,
	})

	event, err := FromRow(row)
	require.NoError(t, err)
	assert.Equal(t, row.ID.String(), event.ID)
	assert.Equal(t, "AS-7742", event.OrderID)
	assert.Equal(t, placedAt, event.OccurredAt)
	require.NotNil(t, event.Actor)
	assert.Equal(t, outbox.ActorCustomer, event.Actor.Kind)

	placed, ok := event.Payload.(*payloads.OrderPlacedEvent)
	require.True(t, ok, "payload type %T", event.Payload)
	assert.Equal(t, 2, placed.ItemCount)
	assert.True(t, placed.Total.Equal(decimal.NewFromInt(1900)))
}

func TestFromRowRejectsRowsThatCannotBeRelayed(t *testing.T) {
	valid := storedRow(t, enums.EventOrderStatusChanged, "AS-1001", payloads.OrderStatusChangedEvent{OrderID: "AS-1001"})

	cases := map[string]func(*models.OutboxEvent){
		"foreign aggregate": func(row *models.OutboxEvent) { row.AggregateType = "product" },
		"blank order id":    func(row *models.OutboxEvent) { row.AggregateID = "  " },
		"unknown type":      func(row *models.OutboxEvent) { row.EventType = "order_refunded" },
		"broken envelope":   func(row *models.OutboxEvent) { row.Payload = json.RawMessage(`{"eventId":`) },
		"null data": func(row *models.OutboxEvent) {
			row.Payload = json.RawMessage(`{"version":1,"eventId":"evt-1","data":null}`)
		},
		"missing event id": func(row *models.OutboxEvent) {
			row.Payload = json.RawMessage(`{"version":1,"data":{"order_id":"AS-1001"}}`)
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			row := valid
			mutate(&row)
			_, err := FromRow(row)
			assert.Error(t, err)
		})
	}
}

func TestMessageRoundTripsThroughFromMessage(t *testing.T) {
	row := storedRow(t, enums.EventOrderPaymentResolved, "AS-2002", payloads.OrderPaymentResolvedEvent{
		OrderID:       "AS-2002",
		PaymentStatus: enums.PaymentStatusPaid,
	})
	event, err := FromRow(row)
	require.NoError(t, err)

	msg := event.Message()
	assert.Equal(t, "AS-2002", msg.OrderingKey)
	assert.Equal(t, map[string]string{
		AttrEventID:    row.ID.String(),
		AttrEventType:  "order_payment_resolved",
		AttrOrderID:    "AS-2002",
		AttrOccurredAt: "2026-02-13T10:00:00Z",
	}, msg.Attributes)
	assert.JSONEq(t, string(row.Payload), string(msg.Data))

	received, err := FromMessage(&gcppubsub.Message{Data: msg.Data, Attributes: msg.Attributes})
	require.NoError(t, err)
	assert.Equal(t, event.ID, received.ID)
	resolved, ok := received.Payload.(*payloads.OrderPaymentResolvedEvent)
	require.True(t, ok)
	assert.Equal(t, enums.PaymentStatusPaid, resolved.PaymentStatus)
}

func TestFromMessageFallsBackToOrderingKey(t *testing.T) {
	row := storedRow(t, enums.EventOrderStatusChanged, "AS-3003", payloads.OrderStatusChangedEvent{OrderID: "AS-3003"})

	event, err := FromMessage(&gcppubsub.Message{
		Data:        row.Payload,
		OrderingKey: "AS-3003",
		Attributes:  map[string]string{AttrEventType: "order_status_changed"},
	})
	require.NoError(t, err)
	assert.Equal(t, "AS-3003", event.OrderID)

	_, err = FromMessage(&gcppubsub.Message{Data: row.Payload, Attributes: map[string]string{AttrEventType: "order_refunded"}})
	assert.True(t, errors.Is(err, ErrUnknownType))
}
