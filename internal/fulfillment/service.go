package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/metrics"
	"gorm.io/gorm"
)

// Board splits the filtered orders into open work and delivered history.
type Board struct {
	Branch    *enums.Branch     `json:"branch,omitempty"`
	NewOrders []orders.OrderDTO `json:"newOrders"`
	History   []orders.OrderDTO `json:"history"`
}

// TransitionInput asks for either an action or a target status. Action wins
// when both are set.
type TransitionInput struct {
	OrderID string
	Action  enums.FulfillmentAction
	Status  enums.FulfillmentStatus
	Actor   string
}

// Service drives the admin fulfillment board.
type Service interface {
	Board(ctx context.Context, branch *enums.Branch) (*Board, error)
	Get(ctx context.Context, id string) (*orders.OrderDTO, error)
	Transition(ctx context.Context, input TransitionInput) (*orders.OrderDTO, error)
	Sales(ctx context.Context, branch *enums.Branch) (*SalesSummary, error)
}

type service struct {
	source  OrderSource
	metrics *metrics.FulfillmentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(source OrderSource, m *metrics.FulfillmentMetrics, logg *logger.Logger) (Service, error) {
	if source == nil {
		return nil, fmt.Errorf("order source required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{source: source, metrics: m, logg: logg, now: time.Now}, nil
}

// MatchesBranch reports whether an order belongs to the branch, by pickup
// branch or by the city named in its delivery address.
func MatchesBranch(order models.Order, branch enums.Branch) bool {
	if order.PickupBranch != nil && *order.PickupBranch == branch {
		return true
	}
	return branch.MatchesAddress(order.DeliveryAddress)
}

func (s *service) filtered(ctx context.Context, branch *enums.Branch) ([]models.Order, error) {
	if branch != nil && !branch.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown branch").WithDetails(map[string]any{
			"branch":  *branch,
			"allowed": enums.Branches(),
		})
	}
	rows, err := s.source.List(ctx)
	if err != nil {
		return nil, mapSourceError(err)
	}
	if branch == nil {
		return rows, nil
	}
	out := make([]models.Order, 0, len(rows))
	for _, row := range rows {
		if MatchesBranch(row, *branch) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *service) Board(ctx context.Context, branch *enums.Branch) (*Board, error) {
	rows, err := s.filtered(ctx, branch)
	if err != nil {
		return nil, err
	}
	board := &Board{
		Branch:    branch,
		NewOrders: []orders.OrderDTO{},
		History:   []orders.OrderDTO{},
	}
	for _, row := range rows {
		if row.Status == enums.FulfillmentDelivered {
			board.History = append(board.History, orders.FromModel(row))
			continue
		}
		board.NewOrders = append(board.NewOrders, orders.FromModel(row))
	}
	return board, nil
}

func (s *service) Get(ctx context.Context, id string) (*orders.OrderDTO, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	row, err := s.source.Get(ctx, id)
	if err != nil {
		return nil, mapSourceError(err)
	}
	out := orders.FromModel(*row)
	return &out, nil
}

// Transition applies one state machine step. A rejected step leaves the
// stored status unchanged.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*orders.OrderDTO, error) {
	id := strings.TrimSpace(input.OrderID)
	if id == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if input.Action == "" && input.Status == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "action or status is required")
	}
	if input.Action != "" && !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment action")
	}
	if input.Action == "" && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown fulfillment status")
	}

	ctx = s.logg.WithOrderID(ctx, id)
	row, err := s.source.Get(ctx, id)
	if err != nil {
		return nil, mapSourceError(err)
	}

	from := row.Status
	action := input.Action
	var to enums.FulfillmentStatus
	if action != "" {
		to, err = Next(from, action)
	} else {
		to = input.Status
		action, err = ActionFor(from, to)
	}
	if err != nil {
		attempted := to.String()
		if attempted == "" {
			attempted = action.String()
		}
		s.metrics.IncRejected(from.String(), attempted)
		return nil, err
	}

	now := s.now().UTC()
	var deliveredAt *time.Time
	if to == enums.FulfillmentDelivered {
		deliveredAt = &now
	}
	change := StatusChange{
		OrderID:     id,
		From:        from,
		To:          to,
		Action:      action,
		DeliveredAt: deliveredAt,
		Actor:       input.Actor,
		ChangedAt:   now,
	}
	if err := s.source.UpdateStatus(ctx, change); err != nil {
		s.logg.Error(ctx, "order status update failed", err)
		return nil, mapSourceError(err)
	}

	s.metrics.IncTransition(from.String(), to.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"from":   from,
		"to":     to,
		"action": action,
	}), "order status changed")

	row.Status = to
	row.DeliveredAt = deliveredAt
	row.UpdatedAt = now
	out := orders.FromModel(*row)
	return &out, nil
}

func mapSourceError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "order store unavailable")
}
