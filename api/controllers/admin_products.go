package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/api/validators"
	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

// AdminListProducts lists the whole catalog regardless of season.
func AdminListProducts(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		products, err := svc.ListAll(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

func AdminCreateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		var payload createProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toCreateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// AdminUpdateProduct applies a partial update; absent fields stay as they are.
func AdminUpdateProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateProductRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toUpdateInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.Update(r.Context(), productID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

func AdminDeleteProduct(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), productID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func AdminUpdatePrice(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePriceRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if payload.Price == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "price is required").WithDetails(map[string]string{"price": "is required"}))
			return
		}

		product, err := svc.UpdatePrice(r.Context(), productID, *payload.Price)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// AdminToggleSeason adds the season to the product, or removes it when present.
func AdminToggleSeason(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		productID, err := productIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload toggleSeasonRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		season, err := enums.ParseSeason(strings.TrimSpace(payload.Season))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid season"))
			return
		}

		product, err := svc.ToggleSeason(r.Context(), productID, season)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

type variantRequest struct {
	Name      string          `json:"name" validate:"required"`
	Price     decimal.Decimal `json:"price"`
	IsDefault bool            `json:"isDefault"`
}

type createProductRequest struct {
	ID          string           `json:"id"`
	Name        string           `json:"name" validate:"required"`
	Description string           `json:"description"`
	BasePrice   decimal.Decimal  `json:"basePrice"`
	Images      []string         `json:"images" validate:"omitempty,dive,url"`
	Category    string           `json:"category"`
	Variants    []variantRequest `json:"variants" validate:"omitempty,dive"`
	Notes       *string          `json:"notes,omitempty"`
	Seasons     []string         `json:"seasons"`
}

type updateProductRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	BasePrice   *decimal.Decimal  `json:"basePrice,omitempty"`
	Images      *[]string         `json:"images,omitempty"`
	Category    *string           `json:"category,omitempty"`
	Variants    *[]variantRequest `json:"variants,omitempty"`
	Notes       *string           `json:"notes,omitempty"`
	Seasons     *[]string         `json:"seasons,omitempty"`
}

type updatePriceRequest struct {
	Price *decimal.Decimal `json:"price"`
}

type toggleSeasonRequest struct {
	Season string `json:"season" validate:"required"`
}

func (r createProductRequest) toCreateInput() (catalog.CreateProductInput, error) {
	seasons, err := parseSeasons(r.Seasons)
	if err != nil {
		return catalog.CreateProductInput{}, err
	}
	return catalog.CreateProductInput{
		ID:          strings.TrimSpace(r.ID),
		Name:        strings.TrimSpace(r.Name),
		Description: strings.TrimSpace(r.Description),
		BasePrice:   r.BasePrice,
		Images:      r.Images,
		Category:    strings.TrimSpace(r.Category),
		Variants:    toVariants(r.Variants),
		Notes:       r.Notes,
		Seasons:     seasons,
	}, nil
}

func (r updateProductRequest) toUpdateInput() (catalog.UpdateProductInput, error) {
	input := catalog.UpdateProductInput{
		Name:        r.Name,
		Description: r.Description,
		BasePrice:   r.BasePrice,
		Images:      r.Images,
		Category:    r.Category,
		Notes:       r.Notes,
	}
	if r.Variants != nil {
		variants := toVariants(*r.Variants)
		input.Variants = &variants
	}
	if r.Seasons != nil {
		seasons, err := parseSeasons(*r.Seasons)
		if err != nil {
			return catalog.UpdateProductInput{}, err
		}
		input.Seasons = &seasons
	}
	return input, nil
}

func toVariants(in []variantRequest) []types.ProductVariant {
	if len(in) == 0 {
		return nil
	}
	out := make([]types.ProductVariant, 0, len(in))
	for _, v := range in {
		out = append(out, types.ProductVariant{
			Name:      strings.TrimSpace(v.Name),
			Price:     v.Price,
			IsDefault: v.IsDefault,
		})
	}
	return out
}

func parseSeasons(values []string) ([]enums.Season, error) {
	result := make([]enums.Season, 0, len(values))
	for _, value := range values {
		season, err := enums.ParseSeason(strings.TrimSpace(value))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid season").WithDetails(map[string]string{"seasons": value})
		}
		result = append(result, season)
	}
	return result, nil
}

func productIDParam(r *http.Request) (string, error) {
	productID := strings.TrimSpace(chi.URLParam(r, "productId"))
	if productID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return productID, nil
}
