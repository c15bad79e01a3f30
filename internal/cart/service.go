package cart

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/asarum-backend/internal/catalog"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

const maxSessionIDLen = 128

type productReader interface {
	Get(ctx context.Context, id string) (*catalog.ProductDTO, error)
}

// Service applies cart operations to the session's stored cart.
type Service interface {
	Get(ctx context.Context, sessionID string) (*CartDTO, error)
	AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartDTO, error)
	UpdateQuantity(ctx context.Context, sessionID string, input UpdateQuantityInput) (*CartDTO, error)
	RemoveItem(ctx context.Context, sessionID, productID, variantName string) (*CartDTO, error)
	Clear(ctx context.Context, sessionID string) error
	Load(ctx context.Context, sessionID string) (*Cart, error)
}

// AddItemInput selects a product and variant to add. An empty VariantName
// picks the product's default variant.
type AddItemInput struct {
	ProductID   string
	VariantName string
	Quantity    int
}

// UpdateQuantityInput shifts a line's quantity by Delta.
type UpdateQuantityInput struct {
	ProductID   string
	VariantName string
	Delta       int
}

// CartDTO is the cart payload returned to clients.
type CartDTO struct {
	SessionID string           `json:"sessionId"`
	Items     []types.LineItem `json:"items"`
	ItemCount int              `json:"itemCount"`
	Total     decimal.Decimal  `json:"total"`
}

type service struct {
	store    Store
	products productReader
	now      func() time.Time
}

// NewService constructs a cart service.
func NewService(store Store, products productReader) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart store required")
	}
	if products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	return &service{store: store, products: products, now: time.Now}, nil
}

func (s *service) Get(ctx context.Context, sessionID string) (*CartDTO, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return toDTO(c), nil
}

// Load returns the stored cart for the session, empty when none exists.
func (s *service) Load(ctx context.Context, sessionID string) (*Cart, error) {
	if err := validateSession(sessionID); err != nil {
		return nil, err
	}
	c, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart store: load")
	}
	return c, nil
}

// AddItem snapshots the product's name, primary image and the chosen variant's
// price into the line at add time.
func (s *service) AddItem(ctx context.Context, sessionID string, input AddItemInput) (*CartDTO, error) {
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	product, err := s.products.Get(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	price, variantName, ok := product.PriceFor(strings.TrimSpace(input.VariantName))
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown variant %q for %s", input.VariantName, product.Name))
	}

	return s.mutate(ctx, sessionID, func(c *Cart) {
		c.Add(types.LineItem{
			ID:           uuid.NewString(),
			ProductID:    product.ID,
			VariantName:  variantName,
			Quantity:     input.Quantity,
			Price:        price,
			ProductName:  product.Name,
			ProductImage: product.PrimaryImage(),
		})
	})
}

func (s *service) UpdateQuantity(ctx context.Context, sessionID string, input UpdateQuantityInput) (*CartDTO, error) {
	if strings.TrimSpace(input.ProductID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	return s.mutate(ctx, sessionID, func(c *Cart) {
		c.UpdateQuantity(input.ProductID, input.VariantName, input.Delta)
	})
}

func (s *service) RemoveItem(ctx context.Context, sessionID, productID, variantName string) (*CartDTO, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required")
	}
	return s.mutate(ctx, sessionID, func(c *Cart) {
		c.Remove(productID, variantName)
	})
}

// Clear drops the stored cart. Clearing an empty cart is a no-op.
func (s *service) Clear(ctx context.Context, sessionID string) error {
	if err := validateSession(sessionID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart store: clear")
	}
	return nil
}

func (s *service) mutate(ctx context.Context, sessionID string, fn func(*Cart)) (*CartDTO, error) {
	c, err := s.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	fn(c)
	c.UpdatedAt = s.now().UTC()
	if err := s.store.Save(ctx, c); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cart store: save")
	}
	return toDTO(c), nil
}

func validateSession(sessionID string) error {
	trimmed := strings.TrimSpace(sessionID)
	if trimmed == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	if len(trimmed) > maxSessionIDLen {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart session is too long")
	}
	return nil
}

func toDTO(c *Cart) *CartDTO {
	return &CartDTO{
		SessionID: c.SessionID,
		Items:     c.Snapshot(),
		ItemCount: c.ItemCount(),
		Total:     c.Total(),
	}
}
