package fulfillment

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/pkg/db/dbtest"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/outbox"
	"github.com/angelmondragon/asarum-backend/pkg/types"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "fulfillment-test", Output: io.Discard})
}

type failingSource struct {
	*InMemoryDemoOrderSource
}

func (f failingSource) UpdateStatus(context.Context, StatusChange) error {
	return errors.New("connection refused")
}

func newDemoService(t *testing.T, seed ...models.Order) (Service, *InMemoryDemoOrderSource) {
	t.Helper()
	src := NewInMemoryDemoOrderSource(seed...)
	svc, err := NewService(src, nil, testLogger())
	require.NoError(t, err)
	return svc, src
}

func TestDemoBoardStartsWithSeededOrders(t *testing.T) {
	svc, _ := newDemoService(t)

	board, err := svc.Board(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, board.NewOrders, 4)
	assert.Empty(t, board.History)
	ids := []string{}
	for _, o := range board.NewOrders {
		ids = append(ids, o.ID)
		assert.Equal(t, enums.FulfillmentPending, o.Status)
		assert.Equal(t, enums.PaymentStatusPaid, o.PaymentStatus)
	}
	assert.Equal(t, []string{"AS-5582", "AS-9921", "AS-7742", "AS-3321"}, ids)
}

func TestTransitionWalkthrough(t *testing.T) {
	svc, _ := newDemoService(t)
	ctx := context.Background()

	out, err := svc.Transition(ctx, TransitionInput{OrderID: "AS-7742", Action: enums.ActionPrepare})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentPrepared, out.Status)
	assert.Nil(t, out.DeliveredAt)

	out, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-7742", Status: enums.FulfillmentDelivered})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentDelivered, out.Status)
	require.NotNil(t, out.DeliveredAt)

	board, err := svc.Board(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, board.NewOrders, 3)
	require.Len(t, board.History, 1)
	assert.Equal(t, "AS-7742", board.History[0].ID)

	out, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-7742", Action: enums.ActionReactivate})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentPrepared, out.Status)
	assert.Nil(t, out.DeliveredAt)

	out, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-7742", Action: enums.ActionRevert})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentPending, out.Status)
}

func TestTransitionSkipToDelivered(t *testing.T) {
	svc, _ := newDemoService(t)
	out, err := svc.Transition(context.Background(), TransitionInput{OrderID: "AS-3321", Action: enums.ActionDeliver})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentDelivered, out.Status)
}

func TestTransitionRejectedLeavesStatus(t *testing.T) {
	svc, _ := newDemoService(t)
	ctx := context.Background()

	_, err := svc.Transition(ctx, TransitionInput{OrderID: "AS-5582", Action: enums.ActionRevert})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	_, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-5582", Status: enums.FulfillmentPending})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	got, err := svc.Get(ctx, "AS-5582")
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentPending, got.Status)
}

func TestTransitionValidation(t *testing.T) {
	svc, _ := newDemoService(t)
	ctx := context.Background()

	_, err := svc.Transition(ctx, TransitionInput{OrderID: "AS-5582"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-5582", Action: "ship"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-5582", Status: "Cancelado"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-0000", Action: enums.ActionPrepare})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestTransitionPersistenceFailureKeepsPreviousStatus(t *testing.T) {
	src := NewInMemoryDemoOrderSource()
	svc, err := NewService(failingSource{src}, nil, testLogger())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Transition(ctx, TransitionInput{OrderID: "AS-9921", Action: enums.ActionPrepare})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	row, err := src.Get(ctx, "AS-9921")
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentPending, row.Status)
}

func TestBoardBranchFilter(t *testing.T) {
	svc, _ := newDemoService(t)
	ctx := context.Background()

	hmo := enums.BranchHermosillo
	board, err := svc.Board(ctx, &hmo)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AS-7742", "AS-5582"}, boardIDs(board))

	slrc := enums.BranchSLRC
	board, err = svc.Board(ctx, &slrc)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"AS-3321", "AS-9921"}, boardIDs(board))

	bogus := enums.Branch("Nogales")
	_, err = svc.Board(ctx, &bogus)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func boardIDs(b *Board) []string {
	ids := []string{}
	for _, o := range append(append([]orders.OrderDTO{}, b.NewOrders...), b.History...) {
		ids = append(ids, o.ID)
	}
	return ids
}

func TestMatchesBranchCaseInsensitive(t *testing.T) {
	order := models.Order{DeliveryAddress: "CALLE 5, SAN LUIS RÍO COLORADO"}
	assert.True(t, MatchesBranch(order, enums.BranchSLRC))
	assert.False(t, MatchesBranch(order, enums.BranchHermosillo))

	hmo := enums.BranchHermosillo
	pickup := models.Order{PickupBranch: &hmo, DeliveryAddress: hmo.PickupLabel()}
	assert.True(t, MatchesBranch(pickup, enums.BranchHermosillo))
}

func TestDemoSourceListsNewestFirst(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, time.February, d, 9, 0, 0, 0, time.UTC) }
	seed := []models.Order{
		{ID: "AS-0001", Date: day(1), CreatedAt: day(1)},
		{ID: "AS-0003", Date: day(3), CreatedAt: day(3)},
		{ID: "AS-0002", Date: day(2), CreatedAt: day(2)},
		{ID: "AS-0004", Date: day(3), CreatedAt: day(3).Add(time.Hour)},
	}
	src := NewInMemoryDemoOrderSource(seed...)

	list, err := src.List(context.Background())
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, o := range list {
		ids = append(ids, o.ID)
	}
	assert.Equal(t, []string{"AS-0004", "AS-0003", "AS-0002", "AS-0001"}, ids)
}

func TestDemoSourceIsolatesCopies(t *testing.T) {
	_, src := newDemoService(t)
	ctx := context.Background()

	list, err := src.List(ctx)
	require.NoError(t, err)
	list[0].Items[0].Quantity = 99
	list[0].Status = enums.FulfillmentDelivered

	again, err := src.Get(ctx, list[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
	assert.Equal(t, enums.FulfillmentPending, again.Status)
}

func TestSalesSummary(t *testing.T) {
	seed := DemoOrders()
	seed[3].PaymentStatus = enums.PaymentStatusPending
	seed = append(seed, models.Order{
		ID:            "AS-1200",
		Date:          time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
		DeliveryType:  enums.DeliveryTypeDelivery,
		Status:        enums.FulfillmentDelivered,
		PaymentStatus: enums.PaymentStatusPaid,
		Items: []types.LineItem{
			{ProductID: "amalia", ProductName: "Amalia", Quantity: 2, Price: decimal.NewFromInt(950)},
			{ProductID: "mia", ProductName: "Mia", Quantity: 1, Price: decimal.NewFromInt(700)},
		},
		Total: decimal.NewFromInt(2600),
	})
	svc, _ := newDemoService(t, seed...)

	summary, err := svc.Sales(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.PaidCount)
	assert.True(t, summary.Revenue.Equal(decimal.NewFromInt(1650+20500+950+2600)), "revenue %s", summary.Revenue)
	assert.True(t, summary.AverageTicket.Equal(decimal.RequireFromString("6425")), "avg %s", summary.AverageTicket)
	require.Len(t, summary.TopProducts, 4)
	assert.Equal(t, "elena", summary.TopProducts[0].ProductID)
	assert.Equal(t, "amalia", summary.TopProducts[1].ProductID)
	assert.Equal(t, 3, summary.TopProducts[1].Quantity)
	assert.True(t, summary.TopProducts[1].Total.Equal(decimal.NewFromInt(2850)))
}

func TestSummarizeNoPaidOrders(t *testing.T) {
	summary := Summarize(nil)
	assert.Zero(t, summary.PaidCount)
	assert.True(t, summary.AverageTicket.IsZero())
	assert.Empty(t, summary.TopProducts)
}

func TestSummarizeCapsTopProducts(t *testing.T) {
	var items []types.LineItem
	for i, id := range []string{"a", "b", "c", "d", "e", "f", "g"} {
		items = append(items, types.LineItem{ProductID: id, ProductName: id, Quantity: 1, Price: decimal.NewFromInt(int64(100 * (i + 1)))})
	}
	summary := Summarize([]models.Order{{PaymentStatus: enums.PaymentStatusPaid, Items: items, Total: types.SumLineItems(items)}})
	require.Len(t, summary.TopProducts, 5)
	assert.Equal(t, "g", summary.TopProducts[0].ProductID)
	assert.Equal(t, "c", summary.TopProducts[4].ProductID)
}

func TestLiveSourceEmitsStatusEvent(t *testing.T) {
	client := dbtest.Open(t)
	ctx := context.Background()
	repo := orders.NewRepository(client.DB())
	seed := DemoOrders()[0]
	require.NoError(t, repo.Create(ctx, &seed))

	outboxRepo := outbox.NewRepository(client.DB())
	src, err := NewLiveOrderSource(repo, client, outbox.NewWriter(outboxRepo, testLogger()))
	require.NoError(t, err)
	svc, err := NewService(src, nil, testLogger())
	require.NoError(t, err)

	out, err := svc.Transition(ctx, TransitionInput{OrderID: seed.ID, Action: enums.ActionDeliver, Actor: "admin"})
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentDelivered, out.Status)

	stored, err := repo.FindByID(ctx, seed.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.FulfillmentDelivered, stored.Status)
	assert.NotNil(t, stored.DeliveredAt)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Where("aggregate_id = ?", seed.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderStatusChanged, events[0].EventType)

	_, err = NewLiveOrderSource(nil, client, nil)
	assert.Error(t, err)
}
