package payments

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/square"
)

// ChargeRequest is what checkout asks the processor to collect.
type ChargeRequest struct {
	OrderID    string
	Amount     decimal.Decimal
	Currency   enums.Currency
	SourceID   string
	BuyerEmail string
	Note       string
}

// ChargeResult is the processor outcome recorded on the order.
type ChargeResult struct {
	Status    enums.PaymentStatus
	Reference string
}

// Processor turns an amount into a payment outcome and an opaque reference.
type Processor interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
}

type squarePayments interface {
	Charge(ctx context.Context, ch square.Charge) (*sq.Payment, error)
}

// SquareProcessor charges card nonces through the Square Payments API.
type SquareProcessor struct {
	client squarePayments
	logg   *logger.Logger
}

func NewSquareProcessor(client squarePayments, logg *logger.Logger) (*SquareProcessor, error) {
	if client == nil {
		return nil, fmt.Errorf("square client required")
	}
	return &SquareProcessor{client: client, logg: logg}, nil
}

// Charge creates a Square payment under a fresh idempotency key, one per
// checkout attempt. The order id travels as the payment's reference_id.
func (p *SquareProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if strings.TrimSpace(req.SourceID) == "" {
		return ChargeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "payment source is required")
	}
	cents := MinorUnits(req.Amount)
	if cents <= 0 {
		return ChargeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}

	payment, err := p.client.Charge(ctx, square.Charge{
		OrderID:    req.OrderID,
		Centavos:   cents,
		Currency:   req.Currency.String(),
		SourceID:   req.SourceID,
		AttemptKey: square.AttemptKey(req.OrderID),
		BuyerEmail: req.BuyerEmail,
		Note:       req.Note,
	})
	if err != nil {
		return ChargeResult{}, err
	}

	result := ChargeResult{Status: StatusFromSquare(payment.GetStatus())}
	if id := payment.GetID(); id != nil {
		result.Reference = *id
	}
	if result.Status == enums.PaymentStatusFailed {
		return result, pkgerrors.New(pkgerrors.CodePaymentFailed, "payment was not approved").WithDetails(map[string]any{
			"reference": result.Reference,
		})
	}
	return result, nil
}

// StatusFromSquare maps a Square payment status onto the order's payment status.
func StatusFromSquare(status *string) enums.PaymentStatus {
	if status == nil {
		return enums.PaymentStatusPending
	}
	switch strings.ToUpper(strings.TrimSpace(*status)) {
	case "COMPLETED":
		return enums.PaymentStatusPaid
	case "FAILED", "CANCELED":
		return enums.PaymentStatusFailed
	default:
		return enums.PaymentStatusPending
	}
}

// MinorUnits converts a decimal amount to centavos.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

// DevProcessor approves every charge. It backs local runs without Square credentials.
type DevProcessor struct {
	logg *logger.Logger
}

func NewDevProcessor(logg *logger.Logger) *DevProcessor {
	return &DevProcessor{logg: logg}
}

func (p *DevProcessor) Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error) {
	if !req.Amount.IsPositive() {
		return ChargeResult{}, pkgerrors.New(pkgerrors.CodeValidation, "charge amount must be positive")
	}
	ref := "dev_" + uuid.NewString()
	if p.logg != nil {
		logCtx := p.logg.WithFields(ctx, map[string]any{
			"order_id":  req.OrderID,
			"amount":    req.Amount.StringFixed(2),
			"reference": ref,
		})
		p.logg.Warn(logCtx, "dev payment processor approved charge")
	}
	return ChargeResult{Status: enums.PaymentStatusPaid, Reference: ref}, nil
}
