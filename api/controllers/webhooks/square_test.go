package webhooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	squarewebhook "github.com/angelmondragon/asarum-backend/internal/webhooks/square"
	"github.com/angelmondragon/asarum-backend/pkg/dedupe"
)

const (
	testSecret = "secret"
	testURL    = "https://api.asarum.mx/api/v1/webhooks/square"
)

func TestSquareWebhook_SuccessAndIdempotent(t *testing.T) {
	payload := buildSquareEvent(t, "payment.updated")
	header := squarewebhook.Sign(payload, testURL, testSecret)
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: testSecret, url: testURL}, newLedger(t, newInMemoryStore()), nil)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if service.calls != 1 {
		t.Fatalf("expected service called once, got %d", service.calls)
	}

	rec2 := post(handler, payload, header)
	if rec2.Code != http.StatusOK {
		t.Fatalf("expected 200 on duplicate, got %d", rec2.Code)
	}
	if service.calls != 1 {
		t.Fatalf("duplicate should not increment calls, got %d", service.calls)
	}
}

func TestSquareWebhook_InvalidSignature(t *testing.T) {
	payload := buildSquareEvent(t, "payment.updated")
	service := &fakeSquareWebhookService{}
	handler := SquareWebhook(service, &fakeSigningClient{secret: testSecret, url: testURL}, newLedger(t, newInMemoryStore()), nil)

	cases := map[string]string{
		"missing":   "",
		"garbage":   "invalid",
		"wrong url": squarewebhook.Sign(payload, "https://elsewhere.example.com/hook", testSecret),
		"wrong key": squarewebhook.Sign(payload, testURL, "other"),
	}
	for name, header := range cases {
		rec := post(handler, payload, header)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 for invalid signature, got %d", name, rec.Code)
		}
	}
	if service.calls != 0 {
		t.Fatalf("service should not be invoked on invalid signature")
	}
}

func TestSquareWebhook_FailureReleasesClaim(t *testing.T) {
	payload := buildSquareEvent(t, "payment.updated")
	header := squarewebhook.Sign(payload, testURL, testSecret)
	service := &fakeSquareWebhookService{err: errors.New("db down")}
	store := newInMemoryStore()
	handler := SquareWebhook(service, &fakeSigningClient{secret: testSecret, url: testURL}, newLedger(t, store), nil)

	rec := post(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if len(store.data) != 0 {
		t.Fatalf("claim should be released after failure, got %v", store.data)
	}

	service.err = nil
	rec = post(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected the retry to reach the service, got %d calls", service.calls)
	}
}

func TestSquareWebhook_RejectsMalformedPayload(t *testing.T) {
	payload := []byte(`{"type":`)
	handler := SquareWebhook(&fakeSquareWebhookService{}, &fakeSigningClient{secret: testSecret, url: testURL}, newLedger(t, newInMemoryStore()), nil)

	rec := post(handler, payload, squarewebhook.Sign(payload, testURL, testSecret))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func post(handler http.Handler, payload []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/square", bytes.NewReader(payload))
	if signature != "" {
		req.Header.Set(squarewebhook.SignatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newLedger(t *testing.T, store *inMemoryStore) *dedupe.Ledger {
	t.Helper()
	ledger, err := dedupe.NewLedger(store, "square-webhook", time.Minute)
	if err != nil {
		t.Fatalf("ledger setup: %v", err)
	}
	return ledger
}

func buildSquareEvent(t *testing.T, eventType string) []byte {
	event := &squarewebhook.SquareWebhookEvent{
		EventID:    "evt_" + uuid.NewString(),
		Type:       eventType,
		MerchantID: "merchant",
		Data: squarewebhook.SquareWebhookData{
			Type: "payment",
			ID:   "pay_" + uuid.NewString(),
			Object: squarewebhook.SquareWebhookObject{
				Payment: &squarewebhook.SquarePayment{
					ID:          "pay_1",
					Status:      "COMPLETED",
					ReferenceID: "AS-7742",
				},
			},
		},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload
}

type fakeSquareWebhookService struct {
	calls int
	err   error
}

func (f *fakeSquareWebhookService) HandleEvent(ctx context.Context, event *squarewebhook.SquareWebhookEvent) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
	url    string
}

func (c *fakeSigningClient) SigningSecret() string {
	return c.secret
}

func (c *fakeSigningClient) NotificationURL() string {
	return c.url
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: make(map[string]string)}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.data[key]; exists {
		return false, nil
	}
	s.data[key] = fmt.Sprintf("%v", value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("as:idempotency:%s:%s", scope, id)
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
