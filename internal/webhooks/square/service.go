package squarewebhook

import (
	"context"
	"strings"

	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/internal/payments"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

const eventPaymentUpdated = "payment.updated"

type paymentResolver interface {
	ResolvePayment(ctx context.Context, input orders.ResolvePaymentInput) (*orders.OrderDTO, bool, error)
}

type ServiceParams struct {
	Orders paymentResolver
	Logger *logger.Logger
}

type Service struct {
	orders paymentResolver
	logg   *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "orders service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{orders: params.Orders, logg: params.Logger}, nil
}

type SquareWebhookEvent struct {
	EventID    string            `json:"event_id"`
	Type       string            `json:"type"`
	MerchantID string            `json:"merchant_id"`
	CreatedAt  string            `json:"created_at"`
	Data       SquareWebhookData `json:"data"`
}

type SquareWebhookData struct {
	Type   string              `json:"type"`
	ID     string              `json:"id"`
	Object SquareWebhookObject `json:"object"`
}

type SquareWebhookObject struct {
	Payment *SquarePayment `json:"payment"`
}

// SquarePayment is the subset of the Square payment object the storefront reads.
type SquarePayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	ReferenceID string `json:"reference_id"`
	OrderID     string `json:"order_id"`
}

// HandleEvent settles the order behind a payment.updated event. Other event
// types, non-final payment states and unknown orders are acknowledged without
// changes.
func (s *Service) HandleEvent(ctx context.Context, event *SquareWebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "square event required")
	}
	if strings.ToLower(event.Type) != eventPaymentUpdated {
		return nil
	}
	payment := event.Data.Object.Payment
	if payment == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment payload missing")
	}
	paymentID := strings.TrimSpace(payment.ID)
	if paymentID == "" {
		paymentID = strings.TrimSpace(event.Data.ID)
	}

	status := payments.StatusFromSquare(&payment.Status)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"square_event_id":   event.EventID,
		"square_payment_id": paymentID,
		"square_status":     payment.Status,
	})
	if !status.IsFinal() {
		s.logg.Debug(ctx, "square payment not final yet")
		return nil
	}

	order, updated, err := s.orders.ResolvePayment(ctx, orders.ResolvePaymentInput{
		OrderID:          strings.TrimSpace(payment.ReferenceID),
		PaymentReference: paymentID,
		Status:           status,
	})
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(ctx, "square payment does not match an order")
			return nil
		}
		return err
	}
	if !updated {
		s.logg.Info(s.logg.WithOrderID(ctx, order.ID), "order payment already final, event ignored")
		return nil
	}
	if status == enums.PaymentStatusFailed {
		s.logg.Warn(s.logg.WithOrderID(ctx, order.ID), "order payment failed after checkout")
	}
	return nil
}
