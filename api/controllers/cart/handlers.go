// Package cart serves the storefront cart. Every route works on the session
// that middleware.CartSession attached, and all but Clear answer with the
// cart as it stands after the change.
package cart

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/asarum-backend/api/middleware"
	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/api/validators"
	cartsvc "github.com/angelmondragon/asarum-backend/internal/cart"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

// cartOp applies one change to the session's cart.
type cartOp func(r *http.Request, svc cartsvc.Service, sessionID string) (*cartsvc.CartDTO, error)

// Fetch returns the cart, empty when the session has none yet.
func Fetch(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(r *http.Request, svc cartsvc.Service, sessionID string) (*cartsvc.CartDTO, error) {
		return svc.Get(r.Context(), sessionID)
	})
}

// AddItem merges into the line for the same variant when one exists.
func AddItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(r *http.Request, svc cartsvc.Service, sessionID string) (*cartsvc.CartDTO, error) {
		var body addItemRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), sessionID, body.toInput())
	})
}

// UpdateItem moves a line's quantity by delta. It never drops below one.
func UpdateItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(r *http.Request, svc cartsvc.Service, sessionID string) (*cartsvc.CartDTO, error) {
		var body updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.UpdateQuantity(r.Context(), sessionID, body.toInput())
	})
}

// RemoveItem drops the line named by ?productId= and ?variantName=.
func RemoveItem(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return handle(svc, logg, func(r *http.Request, svc cartsvc.Service, sessionID string) (*cartsvc.CartDTO, error) {
		q := r.URL.Query()
		productID := strings.TrimSpace(q.Get("productId"))
		if productID == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "productId is required").
				WithDetails(map[string]any{"field": "productId"})
		}
		return svc.RemoveItem(r.Context(), sessionID, productID, strings.TrimSpace(q.Get("variantName")))
	})
}

func Clear(svc cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := session(r, svc)
		if err == nil {
			err = svc.Clear(r.Context(), sessionID)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handle(svc cartsvc.Service, logg *logger.Logger, op cartOp) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID, err := session(r, svc)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cart, err := op(r, svc, sessionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cart)
	}
}

func session(r *http.Request, svc cartsvc.Service) (string, error) {
	if svc == nil {
		return "", pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
	}
	sessionID := middleware.CartSessionFrom(r.Context())
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "cart session missing").
			WithDetails(map[string]any{"header": middleware.CartSessionHeader})
	}
	return sessionID, nil
}
