package fulfillment

import (
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/types"
	"github.com/shopspring/decimal"
)

func demoDate(day int) time.Time {
	return time.Date(2026, time.January, day, 12, 0, 0, 0, time.UTC)
}

func demoLine(id, productID, name, variant string, price int64) []types.LineItem {
	return []types.LineItem{{
		ID:           id,
		ProductID:    productID,
		VariantName:  variant,
		Quantity:     1,
		Price:        decimal.NewFromInt(price),
		ProductName:  name,
		ProductImage: "/products/" + productID + ".png",
	}}
}

func strPtr(s string) *string { return &s }

// DemoOrders returns the seeded orders shown when the board runs without a live ledger.
func DemoOrders() []models.Order {
	slrc := enums.BranchSLRC
	orders := []models.Order{
		{
			ID:              "AS-7742",
			Date:            demoDate(28),
			Items:           demoLine("item1", "sofia", "Sofía", "24 ROSAS", 1650),
			SenderName:      "Juan Pérez",
			SenderPhone:     "6621234567",
			SenderEmail:     "juan@example.com",
			ReceiverName:    "María García",
			ReceiverPhone:   "6629876543",
			DeliveryType:    enums.DeliveryTypeDelivery,
			DeliveryAddress: "Blvd. Kino #300, Col. Pitic, Hermosillo",
			GateCode:        strPtr("#1234"),
			QRAccess:        true,
			CardMessage:     "¡Feliz aniversario mi amor!",
		},
		{
			ID:              "AS-3321",
			Date:            demoDate(28),
			Items:           demoLine("item2", "elena", "Elena", "500 ROSAS", 20500),
			SenderName:      "Roberto Villa",
			SenderPhone:     "6531112233",
			SenderEmail:     "roberto@villa.com",
			ReceiverName:    "Lucía Méndez",
			ReceiverPhone:   "6534445566",
			DeliveryType:    enums.DeliveryTypePickup,
			DeliveryAddress: slrc.PickupLabel(),
			PickupBranch:    &slrc,
			CardMessage:     "Espero que te gusten.",
		},
		{
			ID:              "AS-5582",
			Date:            demoDate(29),
			Items:           demoLine("item3", "amalia", "Amalia", "12 ROSAS", 950),
			SenderName:      "Carlos Ruiz",
			SenderPhone:     "6625558899",
			SenderEmail:     "carlos@ruiz.com",
			ReceiverName:    "Ana Martínez",
			ReceiverPhone:   "6624441122",
			DeliveryType:    enums.DeliveryTypeDelivery,
			DeliveryAddress: "Residencial La Joya, Hermosillo",
			GateCode:        strPtr("#5678"),
			CardMessage:     "Con mucho cariño.",
		},
		{
			ID:              "AS-9921",
			Date:            demoDate(29),
			Items:           demoLine("item4", "olivia", "Olivia", "12 ROSAS", 1250),
			SenderName:      "Patricia Lopez",
			SenderPhone:     "6539998877",
			SenderEmail:     "paty@mail.com",
			ReceiverName:    "Elena Sanchez",
			ReceiverPhone:   "6531110022",
			DeliveryType:    enums.DeliveryTypeDelivery,
			DeliveryAddress: "Av. Libertad #15, San Luis Río Colorado",
			CardMessage:     "Con mucho amor.",
		},
	}
	for i := range orders {
		orders[i].Total = types.SumLineItems(orders[i].Items)
		orders[i].Status = enums.FulfillmentPending
		orders[i].PaymentStatus = enums.PaymentStatusPaid
		orders[i].CreatedAt = orders[i].Date
		orders[i].UpdatedAt = orders[i].Date
	}
	return orders
}
