package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/api/validators"
	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

type seasonReader interface {
	CurrentSeason(ctx context.Context) (enums.Season, error)
}

type catalogListResponse struct {
	Season   enums.Season         `json:"season"`
	Products []catalog.ProductDTO `json:"products"`
}

// CatalogList lists the products shown for ?season=, or for the store's
// current season when the parameter is absent.
func CatalogList(svc catalog.Service, seasons seasonReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil || seasons == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}

		requested, err := validators.ParseQueryEnum(r, "season", enums.ParseSeason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var season enums.Season
		if requested != nil {
			season = *requested
		} else {
			season, err = seasons.CurrentSeason(r.Context())
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		products, err := svc.List(r.Context(), season)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, catalogListResponse{Season: season, Products: products})
	}
}

func CatalogGet(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
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

		product, err := svc.Get(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, product)
	}
}
