package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/asarum-backend/api/middleware"
	"github.com/angelmondragon/asarum-backend/api/responses"
	"github.com/angelmondragon/asarum-backend/internal/advisor"
	"github.com/angelmondragon/asarum-backend/internal/catalog"
	"github.com/angelmondragon/asarum-backend/internal/fulfillment"
	"github.com/angelmondragon/asarum-backend/internal/orders"
	"github.com/angelmondragon/asarum-backend/internal/settings"
	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/db/dbtest"
	"github.com/angelmondragon/asarum-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubOrders struct {
	last  orders.PlaceOrderInput
	calls int
	err   error
}

func (s *stubOrders) Place(_ context.Context, input orders.PlaceOrderInput) (*orders.OrderDTO, error) {
	s.calls++
	s.last = input
	if s.err != nil {
		return nil, s.err
	}
	return &orders.OrderDTO{
		ID:            "AS-4821",
		Status:        enums.FulfillmentPending,
		PaymentStatus: enums.PaymentStatusPaid,
		DeliveryType:  input.DeliveryType,
	}, nil
}

func (s *stubOrders) Get(context.Context, string) (*orders.OrderDTO, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
}

func (s *stubOrders) List(context.Context) ([]orders.OrderDTO, error) { return nil, nil }

func (s *stubOrders) ResolvePayment(context.Context, orders.ResolvePaymentInput) (*orders.OrderDTO, bool, error) {
	return nil, false, nil
}

type stubAdvisor struct {
	last advisor.ReplyInput
}

func (s *stubAdvisor) Reply(_ context.Context, input advisor.ReplyInput) (*advisor.Reply, error) {
	s.last = input
	return &advisor.Reply{Reply: "Te recomiendo Sofía."}, nil
}

type fixture struct {
	catalog  catalog.Service
	settings settings.Service
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	catalogSvc, err := catalog.NewService(catalog.NewRepository(client.DB()))
	require.NoError(t, err)
	_, err = catalogSvc.Seed(context.Background())
	require.NoError(t, err)
	settingsSvc, err := settings.NewService(settings.NewRepository(client.DB()), testLogger())
	require.NoError(t, err)
	boardSvc, err := fulfillment.NewService(fulfillment.NewInMemoryDemoOrderSource(), nil, testLogger())
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Get("/catalog", CatalogList(catalogSvc, settingsSvc, nil))
	r.Get("/catalog/{productId}", CatalogGet(catalogSvc, nil))
	r.Get("/settings/season", CurrentSeason(settingsSvc, nil))
	r.Put("/admin/settings/season", AdminSetSeason(settingsSvc, nil))
	r.Get("/admin/products", AdminListProducts(catalogSvc, nil))
	r.Post("/admin/products", AdminCreateProduct(catalogSvc, nil))
	r.Patch("/admin/products/{productId}", AdminUpdateProduct(catalogSvc, nil))
	r.Delete("/admin/products/{productId}", AdminDeleteProduct(catalogSvc, nil))
	r.Put("/admin/products/{productId}/price", AdminUpdatePrice(catalogSvc, nil))
	r.Post("/admin/products/{productId}/seasons/toggle", AdminToggleSeason(catalogSvc, nil))
	r.Get("/admin/orders", AdminOrdersBoard(boardSvc, nil))
	r.Get("/admin/orders/{orderId}", AdminOrderDetail(boardSvc, nil))
	r.Post("/admin/orders/{orderId}/status", AdminOrderStatus(boardSvc, nil))
	r.Get("/admin/sales", AdminSales(boardSvc, nil))

	return &fixture{catalog: catalogSvc, settings: settingsSvc, router: r}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func decodeData[T any](t *testing.T, resp *httptest.ResponseRecorder) T {
	t.Helper()
	var envelope struct {
		Data T `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope), resp.Body.String())
	return envelope.Data
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope responses.ErrorEnvelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}

func TestHealth(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "test"}}

	resp := httptest.NewRecorder()
	HealthLive(cfg).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "test", resp.Header().Get("X-Asarum-Env"))

	ready := HealthReady(cfg, nil, ReadinessCheck{Name: "db", Pinger: stubPinger{}}, ReadinessCheck{Name: "redis", Pinger: stubPinger{}})
	resp = httptest.NewRecorder()
	ready.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	body := decodeData[map[string]string](t, resp)
	assert.Equal(t, "ready", body["status"])
	assert.Equal(t, "ok", body["redis"])

	notReady := HealthReady(cfg, nil, ReadinessCheck{Name: "db", Pinger: stubPinger{}}, ReadinessCheck{Name: "redis", Pinger: stubPinger{err: errors.New("dial tcp: refused")}})
	resp = httptest.NewRecorder()
	notReady.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeDependency), errorCode(t, resp))
}

func TestCatalogListFollowsCurrentSeason(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/catalog", "")
	require.Equal(t, http.StatusOK, resp.Code)
	list := decodeData[catalogListResponse](t, resp)
	assert.Equal(t, enums.SeasonRegular, list.Season)
	require.Len(t, list.Products, 13)
	for i := 1; i < len(list.Products); i++ {
		assert.False(t, list.Products[i].EffectivePrice.LessThan(list.Products[i-1].EffectivePrice), "catalog must be sorted by price")
	}

	_, err := f.settings.SetCurrentSeason(context.Background(), enums.SeasonMothersDay)
	require.NoError(t, err)
	resp = f.do(t, http.MethodGet, "/catalog", "")
	list = decodeData[catalogListResponse](t, resp)
	assert.Equal(t, enums.SeasonMothersDay, list.Season)
	assert.Empty(t, list.Products)

	resp = f.do(t, http.MethodGet, "/catalog?season="+url.QueryEscape(string(enums.SeasonValentines)), "")
	list = decodeData[catalogListResponse](t, resp)
	assert.Len(t, list.Products, 13)

	resp = f.do(t, http.MethodGet, "/catalog?season=Navidad", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCatalogGet(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/catalog/sofia", "")
	require.Equal(t, http.StatusOK, resp.Code)
	product := decodeData[catalog.ProductDTO](t, resp)
	assert.Equal(t, "Sofía", product.Name)
	assert.Len(t, product.Variants, 3)

	resp = f.do(t, http.MethodGet, "/catalog/rosa-azul", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestSeasonSetting(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/settings/season", "")
	require.Equal(t, http.StatusOK, resp.Code)
	got := decodeData[seasonPayload](t, resp)
	assert.Equal(t, enums.SeasonRegular, got.Season)
	assert.Len(t, got.Available, 3)

	resp = f.do(t, http.MethodPut, "/admin/settings/season", `{"season":"San Valentín"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.SeasonValentines, decodeData[seasonPayload](t, resp).Season)

	resp = f.do(t, http.MethodPut, "/admin/settings/season", `{"season":"Navidad"}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodGet, "/settings/season", "")
	assert.Equal(t, enums.SeasonValentines, decodeData[seasonPayload](t, resp).Season)
}

func TestAdminProductLifecycle(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/admin/products", `{
		"name": "Valeria",
		"description": "Ramo de peonías",
		"basePrice": 1200,
		"images": ["https://img.example.com/valeria.png"],
		"variants": [{"name": "Chico", "price": 1200, "isDefault": true}, {"name": "Grande", "price": 1900}],
		"seasons": ["Día de las Madres"]
	}`)
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	created := decodeData[catalog.ProductDTO](t, resp)
	assert.Equal(t, "valeria", created.ID)
	assert.Equal(t, []enums.Season{enums.SeasonMothersDay}, created.Seasons)

	resp = f.do(t, http.MethodPatch, "/admin/products/valeria", `{"name":"Valeria Deluxe"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Valeria Deluxe", decodeData[catalog.ProductDTO](t, resp).Name)

	resp = f.do(t, http.MethodPut, "/admin/products/valeria/price", `{"price":"1350"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	priced := decodeData[catalog.ProductDTO](t, resp)
	assert.True(t, priced.BasePrice.Equal(decimal.NewFromInt(1350)))

	resp = f.do(t, http.MethodPost, "/admin/products/valeria/seasons/toggle", `{"season":"San Valentín"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.ElementsMatch(t, []enums.Season{enums.SeasonMothersDay, enums.SeasonValentines}, decodeData[catalog.ProductDTO](t, resp).Seasons)

	resp = f.do(t, http.MethodGet, "/admin/products", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Len(t, decodeData[[]catalog.ProductDTO](t, resp), 14)

	resp = f.do(t, http.MethodDelete, "/admin/products/valeria", "")
	require.Equal(t, http.StatusNoContent, resp.Code)

	resp = f.do(t, http.MethodDelete, "/admin/products/valeria", "")
	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestAdminProductValidation(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodPost, "/admin/products", `{"basePrice": 100}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, "/admin/products", `{"name":"Gratis","basePrice":0}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, "/admin/products", `{"name":"Otra","basePrice":10,"seasons":["Navidad"]}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPut, "/admin/products/sofia/price", `{}`)
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, "/admin/products", `{"name":"Sofía","basePrice":10}`)
	require.Equal(t, http.StatusConflict, resp.Code)
}

func TestAdminOrdersBoardAndTransitions(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/admin/orders?branch=Hermosillo", "")
	require.Equal(t, http.StatusOK, resp.Code)
	board := decodeData[fulfillment.Board](t, resp)
	ids := []string{}
	for _, o := range board.NewOrders {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"AS-7742", "AS-5582"}, ids)

	resp = f.do(t, http.MethodGet, "/admin/orders?branch=Nogales", "")
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = f.do(t, http.MethodPost, "/admin/orders/AS-7742/status", `{"action":"prepare"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.FulfillmentPrepared, decodeData[orders.OrderDTO](t, resp).Status)

	resp = f.do(t, http.MethodPost, "/admin/orders/AS-7742/status", `{"status":"Entregado"}`)
	require.Equal(t, http.StatusOK, resp.Code)
	delivered := decodeData[orders.OrderDTO](t, resp)
	assert.Equal(t, enums.FulfillmentDelivered, delivered.Status)
	assert.NotNil(t, delivered.DeliveredAt)

	resp = f.do(t, http.MethodPost, "/admin/orders/AS-3321/status", `{"action":"revert"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeInvalidTransition), errorCode(t, resp))

	resp = f.do(t, http.MethodGet, "/admin/orders/AS-3321", "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.FulfillmentPending, decodeData[orders.OrderDTO](t, resp).Status)

	resp = f.do(t, http.MethodGet, "/admin/orders/AS-0000", "")
	require.Equal(t, http.StatusNotFound, resp.Code)

	resp = f.do(t, http.MethodGet, "/admin/orders", "")
	board = decodeData[fulfillment.Board](t, resp)
	require.Len(t, board.History, 1)
	assert.Equal(t, "AS-7742", board.History[0].ID)
}

func TestAdminSales(t *testing.T) {
	f := newFixture(t)

	resp := f.do(t, http.MethodGet, "/admin/sales", "")
	require.Equal(t, http.StatusOK, resp.Code)
	summary := decodeData[fulfillment.SalesSummary](t, resp)
	assert.Equal(t, 4, summary.PaidCount)
	assert.True(t, summary.Revenue.IsPositive())
	assert.LessOrEqual(t, len(summary.TopProducts), 5)

	resp = f.do(t, http.MethodGet, "/admin/sales?branch="+url.QueryEscape(string(enums.BranchSLRC)), "")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 2, decodeData[fulfillment.SalesSummary](t, resp).PaidCount)
}

func TestCheckoutMapsRequest(t *testing.T) {
	svc := &stubOrders{}
	handler := Checkout(svc, testLogger())

	body := `{
		"senderName": "  Juan Pérez ",
		"senderPhone": "6621234567",
		"senderEmail": "juan@example.com",
		"receiverName": "María",
		"receiverPhone": "6629876543",
		"deliveryType": "pickup",
		"pickupBranch": "San Luis Río Colorado",
		"gateCode": "  ",
		"cardMessage": "Feliz cumpleaños",
		"paymentSourceId": "cnon:card-nonce-ok"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(body))
	req = req.WithContext(middleware.WithCartSession(req.Context(), "sess-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "AS-4821", decodeData[orders.OrderDTO](t, resp).ID)
	assert.Equal(t, "sess-1", svc.last.SessionID)
	assert.Equal(t, "Juan Pérez", svc.last.Contact.SenderName)
	assert.Equal(t, enums.DeliveryTypePickup, svc.last.DeliveryType)
	require.NotNil(t, svc.last.PickupBranch)
	assert.Equal(t, enums.BranchSLRC, *svc.last.PickupBranch)
	assert.Nil(t, svc.last.GateCode)
	assert.Equal(t, "cnon:card-nonce-ok", svc.last.PaymentSourceID)
}

func TestCheckoutErrors(t *testing.T) {
	svc := &stubOrders{}
	handler := Checkout(svc, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Zero(t, svc.calls)

	svc.err = pkgerrors.New(pkgerrors.CodePaymentFailed, "card declined")
	req = httptest.NewRequest(http.MethodPost, "/api/v1/checkout", strings.NewReader(`{"deliveryType":"delivery"}`))
	req = req.WithContext(middleware.WithCartSession(req.Context(), "sess-2"))
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusPaymentRequired, resp.Code)
	assert.Equal(t, string(pkgerrors.CodePaymentFailed), errorCode(t, resp))
}

func TestAdvisorMessage(t *testing.T) {
	svc := &stubAdvisor{}
	handler := AdvisorMessage(svc, nil)

	body := `{"history":[{"role":"user","text":"Hola"},{"role":"model","text":"¡Hola!"}],"message":"¿Qué me recomiendas?"}`
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/advisor/messages", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "Te recomiendo Sofía.", decodeData[advisor.Reply](t, resp).Reply)
	assert.Len(t, svc.last.History, 2)
	assert.Equal(t, "¿Qué me recomiendas?", svc.last.Message)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/advisor/messages", strings.NewReader(`{"history":[]}`)))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
