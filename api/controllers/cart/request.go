package cart

import (
	"github.com/angelmondragon/asarum-backend/api/validators"
	"github.com/angelmondragon/asarum-backend/internal/cart"
)

type addItemRequest struct {
	ProductID   string `json:"productId" validate:"required"`
	VariantName string `json:"variantName"`
	Quantity    int    `json:"quantity" validate:"omitempty,min=1"`
}

func (r addItemRequest) toInput() cart.AddItemInput {
	quantity := r.Quantity
	if quantity == 0 {
		quantity = 1
	}
	return cart.AddItemInput{
		ProductID:   validators.SanitizeString(r.ProductID, 128),
		VariantName: validators.SanitizeString(r.VariantName, 128),
		Quantity:    quantity,
	}
}

type updateQuantityRequest struct {
	ProductID   string `json:"productId" validate:"required"`
	VariantName string `json:"variantName"`
	Delta       int    `json:"delta" validate:"required"`
}

func (r updateQuantityRequest) toInput() cart.UpdateQuantityInput {
	return cart.UpdateQuantityInput{
		ProductID:   validators.SanitizeString(r.ProductID, 128),
		VariantName: validators.SanitizeString(r.VariantName, 128),
		Delta:       r.Delta,
	}
}
