package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"

	"github.com/angelmondragon/asarum-backend/pkg/db"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

// Service exposes catalog reads and administrative product management.
type Service interface {
	List(ctx context.Context, season enums.Season) ([]ProductDTO, error)
	ListAll(ctx context.Context) ([]ProductDTO, error)
	Get(ctx context.Context, id string) (*ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id string, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id string) error
	ToggleSeason(ctx context.Context, id string, season enums.Season) (*ProductDTO, error)
	UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (*ProductDTO, error)
	Seed(ctx context.Context) (int, error)
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	ID          string
	Name        string
	Description string
	BasePrice   decimal.Decimal
	Images      []string
	Category    string
	Variants    []types.ProductVariant
	Notes       *string
	Seasons     []enums.Season
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string
	Description *string
	BasePrice   *decimal.Decimal
	Images      *[]string
	Category    *string
	Variants    *[]types.ProductVariant
	Notes       *string
	Seasons     *[]enums.Season
}

type service struct {
	repo *Repository
}

// NewService constructs the catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

// List returns the products tagged with season, cheapest first.
func (s *service) List(ctx context.Context, season enums.Season) ([]ProductDTO, error) {
	if season == "" {
		season = enums.DefaultSeason
	}
	if !season.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown season %q", season))
	}
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	filtered := make([]models.Product, 0, len(rows))
	for _, p := range rows {
		if p.Seasons.OrDefault().Contains(season) {
			filtered = append(filtered, p)
		}
	}
	return sortedDTOs(filtered), nil
}

// ListAll returns the whole catalog regardless of season, cheapest first.
func (s *service) ListAll(ctx context.Context) ([]ProductDTO, error) {
	rows, err := s.repo.ListAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return sortedDTOs(rows), nil
}

func (s *service) Get(ctx context.Context, id string) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*product)
	return &dto, nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		id = Slugify(input.Name)
	}
	product := &models.Product{
		ID:          id,
		Name:        strings.TrimSpace(input.Name),
		Description: strings.TrimSpace(input.Description),
		BasePrice:   input.BasePrice,
		Images:      input.Images,
		Category:    strings.TrimSpace(input.Category),
		Variants:    input.Variants,
		Notes:       trimmedPtr(input.Notes),
		Seasons:     types.SeasonSet(input.Seasons).OrDefault(),
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		if db.IsDuplicate(err) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("product %q already exists", id))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	dto := toDTO(*created)
	return &dto, nil
}

func (s *service) Update(ctx context.Context, id string, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	applyUpdate(product, input)
	if err := validateProduct(product); err != nil {
		return nil, err
	}
	return s.save(ctx, product)
}

func (s *service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// ToggleSeason adds the season when absent and removes it when present.
// A product never ends up without seasons.
func (s *service) ToggleSeason(ctx context.Context, id string, season enums.Season) (*ProductDTO, error) {
	if !season.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown season %q", season))
	}
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	product.Seasons = toggleSeason(product.Seasons, season)
	return s.save(ctx, product)
}

// UpdatePrice sets the base price and keeps the default variant in step with it.
func (s *service) UpdatePrice(ctx context.Context, id string, price decimal.Decimal) (*ProductDTO, error) {
	if !price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "price must be positive")
	}
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	product.BasePrice = price
	if len(product.Variants) > 0 {
		variants := make([]types.ProductVariant, len(product.Variants))
		copy(variants, product.Variants)
		idx := defaultVariantIndex(variants)
		variants[idx].Price = price
		product.Variants = variants
	}
	return s.save(ctx, product)
}

// Seed upserts the initial storefront catalog.
func (s *service) Seed(ctx context.Context) (int, error) {
	products := SeedProducts()
	if err := s.repo.Upsert(ctx, products); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seed products")
	}
	return len(products), nil
}

func (s *service) load(ctx context.Context, id string) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
	}
	return product, nil
}

func (s *service) save(ctx context.Context, product *models.Product) (*ProductDTO, error) {
	saved, err := s.repo.Save(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	dto := toDTO(*saved)
	return &dto, nil
}

func validateProduct(p *models.Product) error {
	if p.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if p.Name == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !p.BasePrice.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "base price must be positive")
	}
	seen := map[string]struct{}{}
	for i, v := range p.Variants {
		if strings.TrimSpace(v.Name) == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variants[%d].name is required", i))
		}
		if !v.Price.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("variants[%d].price must be positive", i))
		}
		if _, dup := seen[v.Name]; dup {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate variant %q", v.Name))
		}
		seen[v.Name] = struct{}{}
	}
	for _, season := range p.Seasons {
		if !season.IsValid() {
			return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown season %q", season))
		}
	}
	return nil
}

func applyUpdate(p *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		p.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		p.Description = strings.TrimSpace(*input.Description)
	}
	if input.BasePrice != nil {
		p.BasePrice = *input.BasePrice
	}
	if input.Images != nil {
		p.Images = append([]string(nil), (*input.Images)...)
	}
	if input.Category != nil {
		p.Category = strings.TrimSpace(*input.Category)
	}
	if input.Variants != nil {
		p.Variants = append([]types.ProductVariant(nil), (*input.Variants)...)
	}
	if input.Notes != nil {
		p.Notes = trimmedPtr(input.Notes)
	}
	if input.Seasons != nil {
		p.Seasons = types.SeasonSet(*input.Seasons).OrDefault()
	}
}

func toggleSeason(current types.SeasonSet, season enums.Season) types.SeasonSet {
	next := make(types.SeasonSet, 0, len(current)+1)
	found := false
	for _, s := range current {
		if s == season {
			found = true
			continue
		}
		next = append(next, s)
	}
	if !found {
		next = append(next, season)
	}
	return next.OrDefault()
}

func defaultVariantIndex(variants []types.ProductVariant) int {
	for i, v := range variants {
		if v.IsDefault {
			return i
		}
	}
	return 0
}

func sortedDTOs(rows []models.Product) []ProductDTO {
	out := make([]ProductDTO, 0, len(rows))
	for _, p := range rows {
		out = append(out, toDTO(p))
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EffectivePrice.LessThan(out[j].EffectivePrice)
	})
	return out
}

func trimmedPtr(v *string) *string {
	if v == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

// Slugify derives a product id from its display name: "Sofía" becomes "sofia".
func Slugify(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(folded) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteByte('-')
			lastDash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
