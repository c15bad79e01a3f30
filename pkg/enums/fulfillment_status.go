package enums

import "fmt"

// FulfillmentStatus is the shop-floor state of an order.
type FulfillmentStatus string

const (
	FulfillmentPending   FulfillmentStatus = "Pendiente"
	FulfillmentPrepared  FulfillmentStatus = "Elaborado"
	FulfillmentDelivered FulfillmentStatus = "Entregado"
)

var validFulfillmentStatuses = []FulfillmentStatus{
	FulfillmentPending,
	FulfillmentPrepared,
	FulfillmentDelivered,
}

// String implements fmt.Stringer.
func (f FulfillmentStatus) String() string {
	return string(f)
}

// IsValid reports whether the value is a known FulfillmentStatus.
func (f FulfillmentStatus) IsValid() bool {
	for _, candidate := range validFulfillmentStatuses {
		if candidate == f {
			return true
		}
	}
	return false
}

// ParseFulfillmentStatus converts raw input into a FulfillmentStatus.
func ParseFulfillmentStatus(value string) (FulfillmentStatus, error) {
	for _, candidate := range validFulfillmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment status %q", value)
}

// FulfillmentAction names an admin operation on the fulfillment state machine.
type FulfillmentAction string

const (
	ActionPrepare    FulfillmentAction = "prepare"
	ActionDeliver    FulfillmentAction = "deliver"
	ActionRevert     FulfillmentAction = "revert"
	ActionReactivate FulfillmentAction = "reactivate"
)

var validFulfillmentActions = []FulfillmentAction{
	ActionPrepare,
	ActionDeliver,
	ActionRevert,
	ActionReactivate,
}

// String implements fmt.Stringer.
func (a FulfillmentAction) String() string {
	return string(a)
}

// IsValid reports whether the value is a known FulfillmentAction.
func (a FulfillmentAction) IsValid() bool {
	for _, candidate := range validFulfillmentActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseFulfillmentAction converts raw input into a FulfillmentAction.
func ParseFulfillmentAction(value string) (FulfillmentAction, error) {
	for _, candidate := range validFulfillmentActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid fulfillment action %q", value)
}
