package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/asarum-backend/api/middleware"
	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/api/validators"
	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/pkg/checkout"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

const (
	maxContactLen     = 200
	maxAddressLen     = 500
	maxCardMessageLen = 1000
)

// Checkout turns the session cart into an order. Field rules are enforced by
// the order service so violations come back together.
func Checkout(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		sessionID := middleware.CartSessionFrom(r.Context())
		if sessionID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cart session missing"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Place(r.Context(), payload.toInput(sessionID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

type checkoutRequest struct {
	SenderName      string             `json:"senderName"`
	SenderPhone     string             `json:"senderPhone"`
	SenderEmail     string             `json:"senderEmail"`
	ReceiverName    string             `json:"receiverName"`
	ReceiverPhone   string             `json:"receiverPhone"`
	DeliveryType    string             `json:"deliveryType"`
	DeliveryAddress string             `json:"deliveryAddress"`
	DeliveryCoords  *types.Coordinates `json:"deliveryCoords,omitempty"`
	GateCode        *string            `json:"gateCode,omitempty"`
	QRAccess        bool               `json:"qrAccess"`
	PickupBranch    string             `json:"pickupBranch"`
	CardMessage     string             `json:"cardMessage"`
	PaymentSourceID string             `json:"paymentSourceId"`
}

func (p checkoutRequest) toInput(sessionID string) orders.PlaceOrderInput {
	input := orders.PlaceOrderInput{
		SessionID: sessionID,
		Contact: checkout.Contact{
			SenderName:    validators.SanitizeString(p.SenderName, maxContactLen),
			SenderPhone:   validators.SanitizeString(p.SenderPhone, maxContactLen),
			SenderEmail:   validators.SanitizeString(p.SenderEmail, maxContactLen),
			ReceiverName:  validators.SanitizeString(p.ReceiverName, maxContactLen),
			ReceiverPhone: validators.SanitizeString(p.ReceiverPhone, maxContactLen),
		},
		DeliveryType:    enums.DeliveryType(strings.TrimSpace(p.DeliveryType)),
		DeliveryAddress: validators.SanitizeString(p.DeliveryAddress, maxAddressLen),
		DeliveryCoords:  p.DeliveryCoords,
		QRAccess:        p.QRAccess,
		CardMessage:     validators.SanitizeString(p.CardMessage, maxCardMessageLen),
		PaymentSourceID: strings.TrimSpace(p.PaymentSourceID),
	}
	if p.GateCode != nil {
		if code := validators.SanitizeString(*p.GateCode, maxContactLen); code != "" {
			input.GateCode = &code
		}
	}
	if branch := strings.TrimSpace(p.PickupBranch); branch != "" {
		b := enums.Branch(branch)
		input.PickupBranch = &b
	}
	return input
}
