package orders

import (
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/checkout"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// PlaceOrderInput is the checkout form plus the customer's payment source.
type PlaceOrderInput struct {
	SessionID       string
	Contact         checkout.Contact
	DeliveryType    enums.DeliveryType
	DeliveryAddress string
	DeliveryCoords  *types.Coordinates
	GateCode        *string
	QRAccess        bool
	PickupBranch    *enums.Branch
	CardMessage     string
	PaymentSourceID string
}

// ResolvePaymentInput settles a pending payment. OrderID wins over
// PaymentReference when both are set.
type ResolvePaymentInput struct {
	OrderID          string
	PaymentReference string
	Status           enums.PaymentStatus
}

// OrderDTO is the order payload returned to clients and the admin board.
type OrderDTO struct {
	ID               string                  `json:"id"`
	Date             time.Time               `json:"date"`
	Items            []types.LineItem        `json:"items"`
	Total            decimal.Decimal         `json:"total"`
	SenderName       string                  `json:"senderName"`
	SenderPhone      string                  `json:"senderPhone"`
	SenderEmail      string                  `json:"senderEmail"`
	ReceiverName     string                  `json:"receiverName"`
	ReceiverPhone    string                  `json:"receiverPhone"`
	DeliveryType     enums.DeliveryType      `json:"deliveryType"`
	DeliveryAddress  string                  `json:"deliveryAddress"`
	DeliveryCoords   *types.Coordinates      `json:"deliveryCoords,omitempty"`
	GateCode         *string                 `json:"gateCode,omitempty"`
	QRAccess         bool                    `json:"qrAccess"`
	PickupBranch     *enums.Branch           `json:"pickupBranch,omitempty"`
	CardMessage      string                  `json:"cardMessage"`
	Status           enums.FulfillmentStatus `json:"status"`
	PaymentStatus    enums.PaymentStatus     `json:"paymentStatus"`
	PaymentReference *string                 `json:"paymentReference,omitempty"`
	DeliveredAt      *time.Time              `json:"deliveredAt,omitempty"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
}

// FromModel maps a stored order onto its DTO.
func FromModel(m models.Order) OrderDTO {
	items := make([]types.LineItem, len(m.Items))
	copy(items, m.Items)
	return OrderDTO{
		ID:               m.ID,
		Date:             m.Date,
		Items:            items,
		Total:            m.Total,
		SenderName:       m.SenderName,
		SenderPhone:      m.SenderPhone,
		SenderEmail:      m.SenderEmail,
		ReceiverName:     m.ReceiverName,
		ReceiverPhone:    m.ReceiverPhone,
		DeliveryType:     m.DeliveryType,
		DeliveryAddress:  m.DeliveryAddress,
		DeliveryCoords:   m.DeliveryCoords,
		GateCode:         m.GateCode,
		QRAccess:         m.QRAccess,
		PickupBranch:     m.PickupBranch,
		CardMessage:      m.CardMessage,
		Status:           m.Status,
		PaymentStatus:    m.PaymentStatus,
		PaymentReference: m.PaymentReference,
		DeliveredAt:      m.DeliveredAt,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}
