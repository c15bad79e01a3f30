package enums

import (
	"fmt"
	"strings"
)

// DeliveryType selects courier delivery or in-store pickup.
type DeliveryType string

const (
	DeliveryTypeDelivery DeliveryType = "delivery"
	DeliveryTypePickup   DeliveryType = "pickup"
)

var validDeliveryTypes = []DeliveryType{
	DeliveryTypeDelivery,
	DeliveryTypePickup,
}

// String implements fmt.Stringer.
func (d DeliveryType) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryType.
func (d DeliveryType) IsValid() bool {
	for _, candidate := range validDeliveryTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDeliveryType converts raw input into a DeliveryType.
func ParseDeliveryType(value string) (DeliveryType, error) {
	for _, candidate := range validDeliveryTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery type %q", value)
}

// Branch is a physical store location.
type Branch string

const (
	BranchHermosillo Branch = "Hermosillo"
	BranchSLRC       Branch = "San Luis Río Colorado"
)

var validBranches = []Branch{
	BranchHermosillo,
	BranchSLRC,
}

// branchAddressHints are matched against lowercased delivery addresses.
var branchAddressHints = map[Branch]string{
	BranchHermosillo: "hermosillo",
	BranchSLRC:       "san luis",
}

// Branches returns the fixed branch set.
func Branches() []Branch {
	out := make([]Branch, len(validBranches))
	copy(out, validBranches)
	return out
}

// String implements fmt.Stringer.
func (b Branch) String() string {
	return string(b)
}

// IsValid reports whether the value is a known Branch.
func (b Branch) IsValid() bool {
	for _, candidate := range validBranches {
		if candidate == b {
			return true
		}
	}
	return false
}

// PickupLabel is the display address of a pickup order at this branch.
func (b Branch) PickupLabel() string {
	return "Sucursal: " + string(b)
}

// MatchesAddress reports whether a free-form address falls in the branch's city.
func (b Branch) MatchesAddress(address string) bool {
	hint, ok := branchAddressHints[b]
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(address), hint)
}

// ParseBranch converts raw input into a Branch.
func ParseBranch(value string) (Branch, error) {
	for _, candidate := range validBranches {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid branch %q", value)
}
