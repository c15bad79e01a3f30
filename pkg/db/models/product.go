package models

import (
	"time"

	"github.com/angelmondragon/asarum-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Product is a catalog listing.
type Product struct {
	ID          string                 `gorm:"column:id;primaryKey"`
	Name        string                 `gorm:"column:name;not null"`
	Description string                 `gorm:"column:description;not null;default:''"`
	BasePrice   decimal.Decimal        `gorm:"column:base_price;type:numeric(12,2);not null"`
	Images      []string               `gorm:"column:images;type:jsonb;serializer:json"`
	Category    string                 `gorm:"column:category;not null;default:''"`
	Variants    []types.ProductVariant `gorm:"column:variants;type:jsonb;serializer:json"`
	Notes       *string                `gorm:"column:notes"`
	Seasons     types.SeasonSet        `gorm:"column:seasons;type:jsonb;not null"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// EffectivePrice is the entry price shown in listings: the default variant,
// else the first variant, else the base price.
func (p Product) EffectivePrice() decimal.Decimal {
	if v, ok := p.DefaultVariant(); ok {
		return v.Price
	}
	return p.BasePrice
}

// DefaultVariant returns the variant flagged as default, falling back to the first.
func (p Product) DefaultVariant() (types.ProductVariant, bool) {
	if len(p.Variants) == 0 {
		return types.ProductVariant{}, false
	}
	for _, v := range p.Variants {
		if v.IsDefault {
			return v, true
		}
	}
	return p.Variants[0], true
}

// Variant looks up a variant by name.
func (p Product) Variant(name string) (types.ProductVariant, bool) {
	for _, v := range p.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return types.ProductVariant{}, false
}

// PrimaryImage returns the first image or an empty string.
func (p Product) PrimaryImage() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
