package models

import (
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Order is the append-only record of a placed checkout.
type Order struct {
	ID               string                  `gorm:"column:id;primaryKey"`
	Date             time.Time               `gorm:"column:date;not null"`
	Items            []types.LineItem        `gorm:"column:items;type:jsonb;serializer:json;not null"`
	Total            decimal.Decimal         `gorm:"column:total;type:numeric(12,2);not null"`
	SenderName       string                  `gorm:"column:sender_name;not null"`
	SenderPhone      string                  `gorm:"column:sender_phone;not null"`
	SenderEmail      string                  `gorm:"column:sender_email;not null"`
	ReceiverName     string                  `gorm:"column:receiver_name;not null"`
	ReceiverPhone    string                  `gorm:"column:receiver_phone;not null"`
	DeliveryType     enums.DeliveryType      `gorm:"column:delivery_type;not null"`
	DeliveryAddress  string                  `gorm:"column:delivery_address;not null;default:''"`
	DeliveryCoords   *types.Coordinates      `gorm:"column:delivery_coords;type:jsonb;serializer:json"`
	GateCode         *string                 `gorm:"column:gate_code"`
	QRAccess         bool                    `gorm:"column:qr_access;not null;default:false"`
	PickupBranch     *enums.Branch           `gorm:"column:pickup_branch"`
	CardMessage      string                  `gorm:"column:card_message;not null;default:''"`
	Status           enums.FulfillmentStatus `gorm:"column:status;not null"`
	PaymentStatus    enums.PaymentStatus     `gorm:"column:payment_status;not null"`
	PaymentReference *string                 `gorm:"column:payment_reference"`
	DeliveredAt      *time.Time              `gorm:"column:delivered_at"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
