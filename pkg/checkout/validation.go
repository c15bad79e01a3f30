package checkout

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

var validate = validator.New()

// Contact holds the sender and receiver identity collected at checkout.
type Contact struct {
	SenderName    string
	SenderPhone   string
	SenderEmail   string
	ReceiverName  string
	ReceiverPhone string
}

// Delivery holds the fulfillment choice and its type-specific fields.
type Delivery struct {
	Type    enums.DeliveryType
	Address string
	Branch  *enums.Branch
}

// FieldViolation is returned to callers when a checkout field is rejected.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidateItems ensures the cart snapshot can become an order.
func ValidateItems(items []types.LineItem) []FieldViolation {
	if len(items) == 0 {
		return []FieldViolation{{Field: "items", Reason: "cart is empty"}}
	}
	var violations []FieldViolation
	for i, item := range items {
		if item.Quantity < 1 {
			violations = append(violations, FieldViolation{
				Field:  fmt.Sprintf("items[%d].quantity", i),
				Reason: "must be at least 1",
			})
		}
		if !item.Price.IsPositive() {
			violations = append(violations, FieldViolation{
				Field:  fmt.Sprintf("items[%d].price", i),
				Reason: "must be positive",
			})
		}
	}
	return violations
}

// ValidateContact requires every sender and receiver field.
func ValidateContact(c Contact) []FieldViolation {
	var violations []FieldViolation
	required := []struct {
		field string
		value string
	}{
		{"senderName", c.SenderName},
		{"senderPhone", c.SenderPhone},
		{"senderEmail", c.SenderEmail},
		{"receiverName", c.ReceiverName},
		{"receiverPhone", c.ReceiverPhone},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			violations = append(violations, FieldViolation{Field: r.field, Reason: "is required"})
		}
	}
	if email := strings.TrimSpace(c.SenderEmail); email != "" {
		if err := validate.Var(email, "email"); err != nil {
			violations = append(violations, FieldViolation{Field: "senderEmail", Reason: "is not a valid email"})
		}
	}
	return violations
}

// ValidateDelivery enforces that exactly one delivery field group applies.
func ValidateDelivery(d Delivery) []FieldViolation {
	switch d.Type {
	case enums.DeliveryTypeDelivery:
		if strings.TrimSpace(d.Address) == "" {
			return []FieldViolation{{Field: "deliveryAddress", Reason: "is required for delivery"}}
		}
	case enums.DeliveryTypePickup:
		if d.Branch == nil || !d.Branch.IsValid() {
			return []FieldViolation{{Field: "pickupBranch", Reason: "must be a known branch"}}
		}
	default:
		return []FieldViolation{{Field: "deliveryType", Reason: "must be delivery or pickup"}}
	}
	return nil
}

// Failure turns collected violations into a validation error, or nil when there are none.
func Failure(violations ...[]FieldViolation) error {
	var all []FieldViolation
	for _, group := range violations {
		all = append(all, group...)
	}
	if len(all) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("checkout rejected %d field(s)", len(all))).WithDetails(map[string]any{
		"violations": all,
	})
}
