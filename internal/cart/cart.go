package cart

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/asarum-backend/pkg/types"
)

// Cart is one customer's in-progress selection. Lines are unique by
// (ProductID, VariantName).
type Cart struct {
	SessionID string           `json:"sessionId"`
	Items     []types.LineItem `json:"items"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// New returns an empty cart for the session.
func New(sessionID string) *Cart {
	return &Cart{SessionID: sessionID, Items: []types.LineItem{}}
}

func (c *Cart) indexOf(productID, variantName string) int {
	for i, item := range c.Items {
		if item.ProductID == productID && item.VariantName == variantName {
			return i
		}
	}
	return -1
}

// Add merges the item into an existing line with the same key, or appends it.
func (c *Cart) Add(item types.LineItem) {
	if idx := c.indexOf(item.ProductID, item.VariantName); idx >= 0 {
		c.Items[idx].Quantity += item.Quantity
		return
	}
	c.Items = append(c.Items, item)
}

// UpdateQuantity shifts a line's quantity by delta, never below 1.
// Unknown lines are ignored.
func (c *Cart) UpdateQuantity(productID, variantName string, delta int) {
	idx := c.indexOf(productID, variantName)
	if idx < 0 {
		return
	}
	next := c.Items[idx].Quantity + delta
	if next < 1 {
		next = 1
	}
	c.Items[idx].Quantity = next
}

// Remove drops the matching line. Unknown lines are ignored.
func (c *Cart) Remove(productID, variantName string) {
	idx := c.indexOf(productID, variantName)
	if idx < 0 {
		return
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []types.LineItem{}
}

// Total is recomputed from the current lines on every call.
func (c *Cart) Total() decimal.Decimal {
	return types.SumLineItems(c.Items)
}

// ItemCount is the number of units across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Snapshot returns a copy of the lines that later cart mutations cannot touch.
func (c *Cart) Snapshot() []types.LineItem {
	out := make([]types.LineItem, len(c.Items))
	copy(out, c.Items)
	return out
}
