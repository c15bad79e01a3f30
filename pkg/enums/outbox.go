package enums

// OutboxAggregateType is the aggregate_type column of outbox_events. Orders
// are the only aggregate that emits events.
type OutboxAggregateType string

const AggregateOrder OutboxAggregateType = "order"

// OutboxEventType is the event_type column and the event_type message
// attribute on the orders topic.
type OutboxEventType string

const (
	EventOrderPlaced          OutboxEventType = "order_placed"
	EventOrderStatusChanged   OutboxEventType = "order_status_changed"
	EventOrderPaymentResolved OutboxEventType = "order_payment_resolved"
)

func (e OutboxEventType) IsValid() bool {
	switch e {
	case EventOrderPlaced, EventOrderStatusChanged, EventOrderPaymentResolved:
		return true
	default:
		return false
	}
}
