package types

import "github.com/shopspring/decimal"

// LineItem is a cart line, and once an order is placed, its frozen snapshot.
type LineItem struct {
	ID           string          `json:"id"`
	ProductID    string          `json:"productId"`
	VariantName  string          `json:"variantName,omitempty"`
	Quantity     int             `json:"quantity"`
	Price        decimal.Decimal `json:"price"`
	ProductName  string          `json:"productName"`
	ProductImage string          `json:"productImage,omitempty"`
}

// Subtotal is price × quantity.
func (l LineItem) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// SumLineItems totals a set of lines.
func SumLineItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Coordinates is an optional delivery map pin.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
