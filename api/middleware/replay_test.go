package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/asarum-backend/pkg/redis"
)

type replayStore struct {
	mu     sync.Mutex
	values map[string]string
	ttls   map[string]time.Duration
	failNX error
}

func newReplayStore() *replayStore {
	return &replayStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (s *replayStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (s *replayStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key], _ = value.(string)
	s.ttls[key] = ttl
	return nil
}

func (s *replayStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNX != nil {
		return false, s.failNX
	}
	if _, ok := s.values[key]; ok {
		return false, nil
	}
	s.values[key], _ = value.(string)
	s.ttls[key] = ttl
	return true, nil
}

func (s *replayStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	return nil
}

func (s *replayStore) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func routed(method, pattern, path, key, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func checkout(key, body string) *http.Request {
	req := routed(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", key, body)
	return req.WithContext(WithCartSession(req.Context(), "cart-1"))
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload), rec.Body.String())
	return payload.Error.Code
}

func TestReplayWindowCoversGuardedRoutesOnly(t *testing.T) {
	cases := []struct {
		method, pattern string
		want            time.Duration
		guarded         bool
	}{
		{http.MethodPost, "/api/v1/checkout", checkoutReplayWindow, true},
		{http.MethodPost, "/api/v1/admin/products", adminReplayWindow, true},
		{http.MethodPost, "/api/v1/admin/orders/{orderId}/status", adminReplayWindow, true},
		{http.MethodGet, "/api/v1/admin/products", 0, false},
		{http.MethodPost, "/api/v1/cart/items", 0, false},
		{http.MethodPost, "/api/v1/admin/auth/login", 0, false},
	}
	for _, tc := range cases {
		window, guarded := replayWindow(routed(tc.method, tc.pattern, "/x", "", ""))
		assert.Equal(t, tc.guarded, guarded, tc.pattern)
		assert.Equal(t, tc.want, window, tc.pattern)
	}
}

func TestIdempotencyRequiresKey(t *testing.T) {
	called := false
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkout("", `{}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, called)
}

func TestIdempotencyReplaysRecordedResponse(t *testing.T) {
	store := newReplayStore()
	calls := 0
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"AS-100001"}}`))
	}))

	first := httptest.NewRecorder()
	h.ServeHTTP(first, checkout("order-1", `{"a":1}`))
	second := httptest.NewRecorder()
	h.ServeHTTP(second, checkout("order-1", `{"a":1}`))

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, checkoutReplayWindow, store.ttls["idem:cart:cart-1|POST|/api/v1/checkout:order-1"])
}

func TestIdempotencyRefusesDifferentBody(t *testing.T) {
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), checkout("order-2", `{"a":1}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkout("order-2", `{"a":2}`))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, rec))
}

func TestIdempotencyConflictsWhileFirstRequestRuns(t *testing.T) {
	store := newReplayStore()
	inside := make(chan struct{})
	release := make(chan struct{})
	var calls int
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		close(inside)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan *httptest.ResponseRecorder)
	go func() {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, checkout("order-3", `{}`))
		done <- rec
	}()
	<-inside

	dup := httptest.NewRecorder()
	h.ServeHTTP(dup, checkout("order-3", `{}`))
	close(release)
	first := <-done

	assert.Equal(t, http.StatusCreated, first.Code)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, string(pkgerrors.CodeConflict), errorCode(t, dup))
	assert.Equal(t, 1, calls)
}

func TestIdempotencyForgetsServerErrors(t *testing.T) {
	calls := 0
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), checkout("order-4", `{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkout("order-4", `{}`))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotencyKeysAreScopedPerCart(t *testing.T) {
	calls := 0
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for _, session := range []string{"cart-a", "cart-b"} {
		req := routed(http.MethodPost, "/api/v1/checkout", "/api/v1/checkout", "same", `{}`)
		h.ServeHTTP(httptest.NewRecorder(), req.WithContext(WithCartSession(req.Context(), session)))
	}
	assert.Equal(t, 2, calls)
}

func TestIdempotencyStoreFailure(t *testing.T) {
	store := newReplayStore()
	store.failNX = errors.New("redis down")
	called := false
	h := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, checkout("order-5", `{}`))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.False(t, called)
}

func TestIdempotencyPassesUnguardedRoutes(t *testing.T) {
	called := false
	h := Idempotency(newReplayStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, _ = io.ReadAll(r.Body)
	}))

	h.ServeHTTP(httptest.NewRecorder(), routed(http.MethodPost, "/api/v1/cart/items", "/api/v1/cart/items", "", `{}`))
	assert.True(t, called)
}
