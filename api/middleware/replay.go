package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/asarum-backend/api/responses"
	pkgerrors "github.com/angelmondragon/asarum-backend/pkg/errors"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/asarum-backend/pkg/redis"
)

// IdempotencyHeader names the client-chosen key for a guarded write.
const IdempotencyHeader = "Idempotency-Key"

const (
	adminReplayWindow    = 24 * time.Hour
	checkoutReplayWindow = 7 * 24 * time.Hour
	// An in-flight claim outlives any sane handler but not a crashed one.
	inFlightTTL = 2 * time.Minute
)

// replayWindows lists the guarded writes by method and chi route pattern.
var replayWindows = map[string]time.Duration{
	http.MethodPost + " /api/v1/checkout":                       checkoutReplayWindow,
	http.MethodPost + " /api/v1/admin/products":                 adminReplayWindow,
	http.MethodPost + " /api/v1/admin/orders/{orderId}/status": adminReplayWindow,
}

// ReplayStore persists the outcome of guarded writes.
type ReplayStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// storedReply is either an in-flight claim (Status 0) or a finished response.
type storedReply struct {
	BodyHash    string `json:"bodyHash"`
	Status      int    `json:"status,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Body        []byte `json:"body,omitempty"`
}

func (s storedReply) done() bool { return s.Status != 0 }

// Idempotency guards checkout and admin writes. The first request with a key
// runs; later requests with the same key and body get the recorded response,
// a different body is refused, and a retry while the first is running gets a
// conflict. Responses of 5xx are forgotten so the client can retry.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			window, guarded := replayWindow(r)
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(replayScope(r), clientKey)
			claim := storedReply{BodyHash: digest(body)}
			fresh, err := store.SetNX(ctx, key, encodeReply(claim), inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !fresh {
				replayExisting(ctx, store, key, claim.BodyHash, w, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.statusCode() >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}
			claim.Status = capture.statusCode()
			claim.ContentType = capture.Header().Get("Content-Type")
			claim.Body = capture.body.Bytes()
			if err := store.Set(ctx, key, encodeReply(claim), window); err != nil && logg != nil {
				logg.Error(ctx, "record idempotent response", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, store ReplayStore, key, bodyHash string, w http.ResponseWriter, logg *logger.Logger) {
	raw, err := store.Get(ctx, key)
	if errors.Is(err, pkgredis.Nil) {
		// The first attempt failed and released the key between our calls.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "request is being retried, try again"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotent response"))
		return
	}
	var prior storedReply
	if err := json.Unmarshal([]byte(raw), &prior); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotent response"))
		return
	}
	switch {
	case prior.BodyHash != bodyHash:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, IdempotencyHeader+" reused with a different request body"))
	case !prior.done():
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeConflict, "a request with this "+IdempotencyHeader+" is still in progress"))
	default:
		if prior.ContentType != "" {
			w.Header().Set("Content-Type", prior.ContentType)
		}
		w.Header().Set("Idempotent-Replayed", "true")
		w.WriteHeader(prior.Status)
		_, _ = w.Write(prior.Body)
	}
}

func replayWindow(r *http.Request) (time.Duration, bool) {
	pattern := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		pattern = rc.RoutePattern()
	}
	window, ok := replayWindows[r.Method+" "+pattern]
	return window, ok
}

// replayScope keeps keys from different carts or admins apart.
func replayScope(r *http.Request) string {
	owner := AdminFrom(r.Context()).Username
	if owner == "" {
		owner = "cart:" + CartSessionFrom(r.Context())
	}
	return owner + "|" + r.Method + "|" + r.URL.Path
}

func encodeReply(s storedReply) string {
	raw, _ := json.Marshal(s)
	return string(raw)
}

func digest(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
