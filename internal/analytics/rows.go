// Package analytics records order events in BigQuery. One row is written per
// event, keyed by event id, so the table is an append-only order history.
package analytics

import (
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/asarum-backend/pkg/outbox/orderevents"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/payloads"
)

// OrderEventRow is the order_events schema. Columns that do not apply to an
// event type stay NULL.
type OrderEventRow struct {
	EventID         string            `bigquery:"event_id"`
	EventType       string            `bigquery:"event_type"`
	OccurredAt      time.Time         `bigquery:"occurred_at"`
	OrderID         string            `bigquery:"order_id"`
	DeliveryType    *string           `bigquery:"delivery_type"`
	PickupBranch    *string           `bigquery:"pickup_branch"`
	PaymentStatus   *string           `bigquery:"payment_status"`
	StatusFrom      *string           `bigquery:"status_from"`
	StatusTo        *string           `bigquery:"status_to"`
	Currency        *string           `bigquery:"currency"`
	TotalMinorUnits *int64            `bigquery:"total_minor_units"`
	ItemCount       *int64            `bigquery:"item_count"`
	Items           bigquery.NullJSON `bigquery:"items"`
	Payload         bigquery.NullJSON `bigquery:"payload"`
}

// RowFor flattens a decoded order event into its BigQuery row.
func RowFor(event orderevents.Event) (OrderEventRow, error) {
	row := OrderEventRow{
		EventID:    event.ID,
		EventType:  string(event.Type),
		OccurredAt: event.OccurredAt.UTC(),
		OrderID:    event.OrderID,
		Payload:    jsonColumn(event.Data),
	}

	switch p := event.Payload.(type) {
	case *payloads.OrderPlacedEvent:
		items, err := json.Marshal(p.Items)
		if err != nil {
			return OrderEventRow{}, fmt.Errorf("encode items: %w", err)
		}
		row.Items = jsonColumn(items)
		row.DeliveryType = text(string(p.DeliveryType))
		if p.PickupBranch != nil {
			row.PickupBranch = text(string(*p.PickupBranch))
		}
		row.PaymentStatus = text(string(p.PaymentStatus))
		row.Currency = text(string(p.Currency))
		row.TotalMinorUnits = minorUnits(p.Total)
		count := int64(p.ItemCount)
		row.ItemCount = &count
	case *payloads.OrderStatusChangedEvent:
		row.StatusFrom = text(string(p.From))
		row.StatusTo = text(string(p.To))
	case *payloads.OrderPaymentResolvedEvent:
		row.PaymentStatus = text(string(p.PaymentStatus))
		row.TotalMinorUnits = minorUnits(p.Total)
	default:
		return OrderEventRow{}, fmt.Errorf("no row mapping for %s payload %T", event.Type, event.Payload)
	}
	return row, nil
}

// minorUnits stores pesos as centavos so sums in BigQuery stay exact.
func minorUnits(amount decimal.Decimal) *int64 {
	v := amount.Shift(2).Round(0).IntPart()
	return &v
}

func text(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func jsonColumn(raw []byte) bigquery.NullJSON {
	if len(raw) == 0 || string(raw) == "null" {
		return bigquery.NullJSON{}
	}
	return bigquery.NullJSON{JSONVal: string(raw), Valid: true}
}
