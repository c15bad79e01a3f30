// Package dedupe records which deliveries a consumer has handled. Pub/Sub and
// Square both deliver at least once; a Ledger makes the handler act once.
package dedupe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

type store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	IdempotencyKey(scope, id string) string
}

// Ledger claims event ids for one consumer. Keys live under
// as:idempotency:processed:<consumer>:<id> and expire after ttl.
type Ledger struct {
	store store
	scope string
	ttl   time.Duration
}

func NewLedger(s store, consumer string, ttl time.Duration) (*Ledger, error) {
	consumer = strings.TrimSpace(consumer)
	switch {
	case s == nil:
		return nil, errors.New("dedupe store is required")
	case consumer == "":
		return nil, errors.New("consumer name is required")
	case ttl <= 0:
		return nil, errors.New("dedupe ttl must be positive")
	}
	return &Ledger{store: s, scope: "processed:" + consumer, ttl: ttl}, nil
}

// Claim reports true when this delivery is the first to see id.
func (l *Ledger) Claim(ctx context.Context, id string) (bool, error) {
	key, err := l.key(id)
	if err != nil {
		return false, err
	}
	fresh, err := l.store.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), l.ttl)
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return fresh, nil
}

// Release drops a claim after a failed attempt so the next delivery runs.
func (l *Ledger) Release(ctx context.Context, id string) error {
	key, err := l.key(id)
	if err != nil {
		return err
	}
	return l.store.Del(ctx, key)
}

func (l *Ledger) key(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("event id is required")
	}
	return l.store.IdempotencyKey(l.scope, id), nil
}
