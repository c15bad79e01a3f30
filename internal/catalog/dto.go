package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

// ProductDTO is the product payload returned to storefront and admin clients.
type ProductDTO struct {
	ID             string                 `json:"id"`
	Name           string                 `json:"name"`
	Description    string                 `json:"description"`
	BasePrice      decimal.Decimal        `json:"basePrice"`
	EffectivePrice decimal.Decimal        `json:"effectivePrice"`
	Images         []string               `json:"images"`
	Category       string                 `json:"category"`
	Variants       []types.ProductVariant `json:"variants,omitempty"`
	Notes          *string                `json:"notes,omitempty"`
	Seasons        []enums.Season         `json:"seasons"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

// PriceFor resolves the unit price a purchase of the named variant pays.
// An empty name selects the default variant. ok is false for unknown variants.
func (p ProductDTO) PriceFor(variantName string) (price decimal.Decimal, resolvedName string, ok bool) {
	if len(p.Variants) == 0 {
		if variantName != "" {
			return decimal.Zero, "", false
		}
		return p.BasePrice, "", true
	}
	if variantName == "" {
		for _, v := range p.Variants {
			if v.IsDefault {
				return v.Price, v.Name, true
			}
		}
		return p.Variants[0].Price, p.Variants[0].Name, true
	}
	for _, v := range p.Variants {
		if v.Name == variantName {
			return v.Price, v.Name, true
		}
	}
	return decimal.Zero, "", false
}

// PrimaryImage returns the first image or an empty string.
func (p ProductDTO) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}

func toDTO(p models.Product) ProductDTO {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	return ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Description:    p.Description,
		BasePrice:      p.BasePrice,
		EffectivePrice: p.EffectivePrice(),
		Images:         images,
		Category:       p.Category,
		Variants:       p.Variants,
		Notes:          p.Notes,
		Seasons:        []enums.Season(p.Seasons.OrDefault()),
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}
