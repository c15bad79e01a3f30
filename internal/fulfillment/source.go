package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	"github.com/angelmondragon/asarum-backend/pkg/outbox"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/asarum-backend/pkg/types"
	"gorm.io/gorm"
)

// StatusChange describes one applied transition.
type StatusChange struct {
	OrderID     string
	From        enums.FulfillmentStatus
	To          enums.FulfillmentStatus
	Action      enums.FulfillmentAction
	DeliveredAt *time.Time
	Actor       string
	ChangedAt   time.Time
}

// OrderSource is where the board reads orders and writes status changes.
type OrderSource interface {
	List(ctx context.Context) ([]models.Order, error)
	Get(ctx context.Context, id string) (*models.Order, error)
	UpdateStatus(ctx context.Context, change StatusChange) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// LiveOrderSource reads the orders ledger and records each change as a domain event.
type LiveOrderSource struct {
	repo   orders.Repository
	tx     txRunner
	outbox outbox.Emitter
}

func NewLiveOrderSource(repo orders.Repository, tx txRunner, emitter outbox.Emitter) (*LiveOrderSource, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &LiveOrderSource{repo: repo, tx: tx, outbox: emitter}, nil
}

func (s *LiveOrderSource) List(ctx context.Context) ([]models.Order, error) {
	return s.repo.List(ctx)
}

func (s *LiveOrderSource) Get(ctx context.Context, id string) (*models.Order, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *LiveOrderSource) UpdateStatus(ctx context.Context, change StatusChange) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).UpdateStatus(ctx, change.OrderID, change.To, change.DeliveredAt); err != nil {
			return err
		}
		return s.outbox.Emit(ctx, tx, outbox.OrderEvent{
			Type:       enums.EventOrderStatusChanged,
			OrderID:    change.OrderID,
			Actor:      outbox.Actor{Kind: outbox.ActorAdmin, Name: change.Actor},
			OccurredAt: change.ChangedAt,
			Payload: payloads.OrderStatusChangedEvent{
				OrderID:   change.OrderID,
				From:      change.From,
				To:        change.To,
				Action:    change.Action,
				ChangedAt: change.ChangedAt,
			},
		})
	})
}

// InMemoryDemoOrderSource keeps seeded orders in process memory. Changes are
// never persisted and never emit events.
type InMemoryDemoOrderSource struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]models.Order
}

// NewInMemoryDemoOrderSource seeds the source with the given orders, or the
// standard demo set when none are passed.
func NewInMemoryDemoOrderSource(seed ...models.Order) *InMemoryDemoOrderSource {
	if len(seed) == 0 {
		seed = DemoOrders()
	}
	src := &InMemoryDemoOrderSource{byID: make(map[string]models.Order, len(seed))}
	for _, o := range seed {
		if _, dup := src.byID[o.ID]; !dup {
			src.order = append(src.order, o.ID)
		}
		src.byID[o.ID] = cloneOrder(o)
	}
	return src
}

// List returns the newest orders first, matching the live ledger.
func (s *InMemoryDemoOrderSource) List(context.Context) ([]models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Order, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneOrder(s.byID[id]))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *InMemoryDemoOrderSource) Get(_ context.Context, id string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.byID[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := cloneOrder(o)
	return &out, nil
}

func (s *InMemoryDemoOrderSource) UpdateStatus(_ context.Context, change StatusChange) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.byID[change.OrderID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	o.Status = change.To
	o.DeliveredAt = change.DeliveredAt
	o.UpdatedAt = change.ChangedAt
	s.byID[change.OrderID] = o
	return nil
}

func cloneOrder(o models.Order) models.Order {
	items := make([]types.LineItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	if o.DeliveredAt != nil {
		at := *o.DeliveredAt
		o.DeliveredAt = &at
	}
	return o
}
