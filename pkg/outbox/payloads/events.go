package payloads

import (
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// OrderPlacedEvent is emitted when checkout records a new order.
type OrderPlacedEvent struct {
	OrderID       string              `json:"order_id"`
	Total         decimal.Decimal     `json:"total"`
	Currency      enums.Currency      `json:"currency"`
	ItemCount     int                 `json:"item_count"`
	Items         []types.LineItem    `json:"items"`
	DeliveryType  enums.DeliveryType  `json:"delivery_type"`
	PickupBranch  *enums.Branch       `json:"pickup_branch,omitempty"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	PlacedAt      time.Time           `json:"placed_at"`
}

// OrderStatusChangedEvent is emitted when an admin moves an order through fulfillment.
type OrderStatusChangedEvent struct {
	OrderID   string                  `json:"order_id"`
	From      enums.FulfillmentStatus `json:"from"`
	To        enums.FulfillmentStatus `json:"to"`
	Action    enums.FulfillmentAction `json:"action"`
	ChangedAt time.Time               `json:"changed_at"`
}

// OrderPaymentResolvedEvent is emitted when a pending payment settles or fails.
type OrderPaymentResolvedEvent struct {
	OrderID          string              `json:"order_id"`
	PaymentStatus    enums.PaymentStatus `json:"payment_status"`
	PaymentReference string              `json:"payment_reference,omitempty"`
	Total            decimal.Decimal     `json:"total"`
	ResolvedAt       time.Time           `json:"resolved_at"`
}
