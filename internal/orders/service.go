package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/asarum-backend/internal/cart"
	"github.com/angelmondragon/asarum-backend/internal/payments"
	"github.com/angelmondragon/asarum-backend/pkg/checkout"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/db"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/metrics"
	"github.com/angelmondragon/asarum-backend/pkg/outbox"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/payloads"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartSessions interface {
	Load(ctx context.Context, sessionID string) (*cart.Cart, error)
	Clear(ctx context.Context, sessionID string) error
}

// Service captures orders from carts and settles their payments.
type Service interface {
	Place(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error)
	Get(ctx context.Context, id string) (*OrderDTO, error)
	List(ctx context.Context) ([]OrderDTO, error)
	ResolvePayment(ctx context.Context, input ResolvePaymentInput) (*OrderDTO, bool, error)
}

// ServiceParams wires the order capture dependencies.
type ServiceParams struct {
	Repo      Repository
	Tx        txRunner
	Outbox    outbox.Emitter
	Carts     cartSessions
	Processor payments.Processor
	Metrics   *metrics.CheckoutMetrics
	Logger    *logger.Logger
	Config    config.OrdersConfig
	NewID     IDGenerator
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	carts     cartSessions
	processor payments.Processor
	metrics   *metrics.CheckoutMetrics
	logg      *logger.Logger
	currency  enums.Currency
	attempts  int
	newID     IDGenerator
	now       func() time.Time
}

// NewService builds the order capture service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Carts == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Processor == nil {
		return nil, fmt.Errorf("payment processor required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	currency, err := enums.ParseCurrency(params.Config.Currency)
	if err != nil {
		return nil, err
	}
	attempts := params.Config.MaxIDAttempts
	if attempts <= 0 {
		attempts = 1
	}
	newID := params.NewID
	if newID == nil {
		newID = RandomID(params.Config.IDPrefix)
	}
	return &service{
		repo:      params.Repo,
		tx:        params.Tx,
		outbox:    params.Outbox,
		carts:     params.Carts,
		processor: params.Processor,
		metrics:   params.Metrics,
		logg:      params.Logger,
		currency:  currency,
		attempts:  attempts,
		newID:     newID,
		now:       time.Now,
	}, nil
}

// Place converts the session cart into an order. The order row is reserved
// before the charge and removed again when the charge fails, so a declined
// payment records nothing and the cart stays intact.
func (s *service) Place(ctx context.Context, input PlaceOrderInput) (*OrderDTO, error) {
	started := s.now()
	outcome := "error"
	defer func() {
		s.metrics.ObserveDuration(outcome, time.Since(started))
	}()

	sessionID := strings.TrimSpace(input.SessionID)
	if sessionID == "" {
		outcome = "rejected"
		s.metrics.IncFailure("validation")
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart session is required")
	}
	ctx = s.logg.WithCartSession(ctx, sessionID)

	c, err := s.carts.Load(ctx, sessionID)
	if err != nil {
		s.metrics.IncFailure("cart")
		return nil, err
	}
	items := c.Snapshot()

	if err := checkout.Failure(
		checkout.ValidateItems(items),
		checkout.ValidateContact(input.Contact),
		checkout.ValidateDelivery(checkout.Delivery{
			Type:    input.DeliveryType,
			Address: input.DeliveryAddress,
			Branch:  input.PickupBranch,
		}),
	); err != nil {
		outcome = "rejected"
		s.metrics.IncFailure("validation")
		return nil, err
	}

	order := s.buildOrder(input, c)
	if err := s.reserve(ctx, order); err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeConflict) {
			s.metrics.IncFailure("order_id")
		} else {
			s.metrics.IncFailure("persistence")
		}
		return nil, err
	}
	ctx = s.logg.WithOrderID(ctx, order.ID)

	charge, err := s.processor.Charge(ctx, payments.ChargeRequest{
		OrderID:    order.ID,
		Amount:     order.Total,
		Currency:   s.currency,
		SourceID:   input.PaymentSourceID,
		BuyerEmail: strings.TrimSpace(input.Contact.SenderEmail),
		Note:       "Asarum " + order.ID,
	})
	if err != nil {
		s.release(ctx, order.ID)
		if pkgerrors.IsCode(err, pkgerrors.CodePaymentFailed) {
			outcome = "payment_failed"
			s.metrics.IncFailure("payment_declined")
			s.logg.Warn(ctx, "checkout payment declined")
			return nil, err
		}
		s.metrics.IncFailure("payment_error")
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "payment processor unavailable")
	}
	order.PaymentStatus = charge.Status
	if charge.Reference != "" {
		ref := charge.Reference
		order.PaymentReference = &ref
	}

	if err := s.confirm(ctx, order); err != nil {
		s.metrics.IncFailure("persistence")
		s.logg.Error(s.logg.WithField(ctx, "payment_reference", charge.Reference), "order write failed after charge", err)
		return nil, err
	}

	if err := s.carts.Clear(ctx, sessionID); err != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "cart clear failed after checkout")
	}

	outcome = "placed"
	s.metrics.IncPlaced(order.DeliveryType.String(), order.PaymentStatus.String())
	s.logg.Info(ctx, "order placed")

	out := FromModel(*order)
	return &out, nil
}

func (s *service) buildOrder(input PlaceOrderInput, c *cart.Cart) *models.Order {
	now := s.now().UTC()
	order := &models.Order{
		Date:          now,
		Items:         c.Snapshot(),
		Total:         c.Total(),
		SenderName:    strings.TrimSpace(input.Contact.SenderName),
		SenderPhone:   strings.TrimSpace(input.Contact.SenderPhone),
		SenderEmail:   strings.TrimSpace(input.Contact.SenderEmail),
		ReceiverName:  strings.TrimSpace(input.Contact.ReceiverName),
		ReceiverPhone: strings.TrimSpace(input.Contact.ReceiverPhone),
		DeliveryType:  input.DeliveryType,
		CardMessage:   input.CardMessage,
		Status:        enums.FulfillmentPending,
		PaymentStatus: enums.PaymentStatusPending,
	}
	switch input.DeliveryType {
	case enums.DeliveryTypePickup:
		branch := *input.PickupBranch
		order.PickupBranch = &branch
		order.DeliveryAddress = branch.PickupLabel()
	default:
		order.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)
		order.DeliveryCoords = input.DeliveryCoords
		if input.GateCode != nil && strings.TrimSpace(*input.GateCode) != "" {
			code := strings.TrimSpace(*input.GateCode)
			order.GateCode = &code
		}
		order.QRAccess = input.QRAccess
	}
	return order
}

// reserve inserts the order with a pending payment under a fresh id, drawing
// again when the id is taken. The charge is tied to the id that was stored.
func (s *service) reserve(ctx context.Context, order *models.Order) error {
	for attempt := 0; attempt < s.attempts; attempt++ {
		order.ID = s.newID()
		err := s.repo.Create(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsDuplicate(err) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve order")
		}
		s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
			"order_id": order.ID,
			"attempt":  attempt + 1,
		}), "order id collision, retrying")
	}
	return pkgerrors.New(pkgerrors.CodeConflict, "could not allocate an order id")
}

// release drops a reservation whose charge did not go through.
func (s *service) release(ctx context.Context, id string) {
	if err := s.repo.Delete(ctx, id); err != nil {
		s.logg.Error(ctx, "release order reservation", err)
	}
}

// confirm records the charge outcome and the order_placed event in one
// transaction.
func (s *service) confirm(ctx context.Context, order *models.Order) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		stored, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return err
		}
		if order.PaymentReference != nil && stored.PaymentReference != nil && *stored.PaymentReference == *order.PaymentReference {
			// A webhook settled the charge before this write.
			order.PaymentStatus = stored.PaymentStatus
		} else if err := repo.AttachPayment(ctx, order.ID, order.PaymentStatus, order.PaymentReference); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.OrderEvent{
			Type:    enums.EventOrderPlaced,
			OrderID: order.ID,
			Actor:   outbox.Actor{Kind: outbox.ActorCustomer, Name: order.SenderEmail},
			Payload: payloads.OrderPlacedEvent{
				OrderID:       order.ID,
				Total:         order.Total,
				Currency:      s.currency,
				ItemCount:     countUnits(order),
				Items:         order.Items,
				DeliveryType:  order.DeliveryType,
				PickupBranch:  order.PickupBranch,
				PaymentStatus: order.PaymentStatus,
				PlacedAt:      order.Date,
			},
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record order")
	}
	return nil
}

func countUnits(order *models.Order) int {
	total := 0
	for _, item := range order.Items {
		total += item.Quantity
	}
	return total
}

func (s *service) Get(ctx context.Context, id string) (*OrderDTO, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapStoreError(err, "order not found")
	}
	out := FromModel(*order)
	return &out, nil
}

func (s *service) List(ctx context.Context) ([]OrderDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, mapStoreError(err, "orders not found")
	}
	out := make([]OrderDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, FromModel(row))
	}
	return out, nil
}

// ResolvePayment applies a final processor outcome to a pending order. The
// boolean is false when the order's payment was already final.
func (s *service) ResolvePayment(ctx context.Context, input ResolvePaymentInput) (*OrderDTO, bool, error) {
	if !input.Status.IsFinal() {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "payment status must be paid or failed")
	}
	orderID := strings.TrimSpace(input.OrderID)
	reference := strings.TrimSpace(input.PaymentReference)
	if orderID == "" && reference == "" {
		return nil, false, pkgerrors.New(pkgerrors.CodeValidation, "order id or payment reference is required")
	}

	var (
		order   *models.Order
		updated bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		var err error
		order, err = s.findForPayment(ctx, repo, orderID, reference)
		if err != nil {
			return err
		}
		var refPtr *string
		if reference != "" {
			refPtr = &reference
		}
		updated, err = repo.ResolvePayment(ctx, order.ID, input.Status, refPtr)
		if err != nil || !updated {
			return err
		}
		order.PaymentStatus = input.Status
		if refPtr != nil {
			order.PaymentReference = refPtr
		}
		return s.outbox.Emit(ctx, tx, outbox.OrderEvent{
			Type:    enums.EventOrderPaymentResolved,
			OrderID: order.ID,
			Actor:   outbox.Actor{Kind: outbox.ActorSystem, Name: "payments"},
			Payload: payloads.OrderPaymentResolvedEvent{
				OrderID:          order.ID,
				PaymentStatus:    input.Status,
				PaymentReference: reference,
				Total:            order.Total,
				ResolvedAt:       s.now().UTC(),
			},
		})
	})
	if err != nil {
		return nil, false, mapStoreError(err, "order not found")
	}

	logCtx := s.logg.WithFields(s.logg.WithOrderID(ctx, order.ID), map[string]any{
		"payment_status": order.PaymentStatus,
		"updated":        updated,
	})
	s.logg.Info(logCtx, "order payment resolution processed")

	out := FromModel(*order)
	return &out, updated, nil
}

// findForPayment prefers the processor reference. The order id only matches
// when that order carries no other reference.
func (s *service) findForPayment(ctx context.Context, repo Repository, orderID, reference string) (*models.Order, error) {
	if reference != "" {
		order, err := repo.FindByPaymentReference(ctx, reference)
		if err == nil || !errors.Is(err, gorm.ErrRecordNotFound) || orderID == "" {
			return order, err
		}
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if reference != "" && order.PaymentReference != nil && *order.PaymentReference != reference {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func mapStoreError(err error, notFound string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, notFound)
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order store unavailable")
}
