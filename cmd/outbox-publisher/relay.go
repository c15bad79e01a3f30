package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/googleapis/gax-go/v2"
	"gorm.io/gorm"

	"github.com/angelmondragon/asarum-backend/pkg/config"
	"github.com/angelmondragon/asarum-backend/pkg/db/models"
	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/metrics"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/orderevents"
)

const (
	publishTimeout = 15 * time.Second
	maxErrorPause  = 10 * time.Second
)

type txRunner interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type rowStore interface {
	ClaimBatch(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(tx *gorm.DB, id uuid.UUID) error
	MarkFailed(tx *gorm.DB, id uuid.UUID, err error) error
	Park(tx *gorm.DB, id uuid.UUID, err error, ceiling int) error
}

// publisher is the slice of *pubsub.Publisher the relay drives. An ordering
// key pauses after a failed publish until ResumePublish is called for it.
type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
	ResumePublish(orderingKey string)
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type relayParams struct {
	Outbox    config.OutboxConfig
	Logger    *logger.Logger
	DB        txRunner
	Store     rowStore
	Publisher publisher
	PubSub    interface{ Ping(context.Context) error }
	Metrics   *metrics.PublisherMetrics
}

// relay moves committed outbox rows to the orders topic. A batch is fetched
// and locked in one transaction, every row is published, and only then are
// the results awaited and written back.
type relay struct {
	logg        *logger.Logger
	db          txRunner
	store       rowStore
	publisher   publisher
	pubsub      interface{ Ping(context.Context) error }
	metrics     *metrics.PublisherMetrics
	batchSize   int
	maxAttempts int
	poll        time.Duration
}

func newRelay(p relayParams) (*relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.DB == nil || p.Store == nil:
		return nil, errors.New("database and outbox store are required")
	case p.Publisher == nil || p.PubSub == nil:
		return nil, errors.New("orders publisher is required")
	case p.Outbox.BatchSize <= 0 || p.Outbox.MaxAttempts <= 0 || p.Outbox.PollIntervalMS <= 0:
		return nil, fmt.Errorf("outbox batch size, max attempts and poll interval must be positive: %+v", p.Outbox)
	}
	return &relay{
		logg:        p.Logger,
		db:          p.DB,
		store:       p.Store,
		publisher:   p.Publisher,
		pubsub:      p.PubSub,
		metrics:     p.Metrics,
		batchSize:   p.Outbox.BatchSize,
		maxAttempts: p.Outbox.MaxAttempts,
		poll:        time.Duration(p.Outbox.PollIntervalMS) * time.Millisecond,
	}, nil
}

// Run drains the outbox until ctx is done. A full batch is followed
// immediately by the next one; an empty one waits a poll interval, and a
// failed one backs off with jitter.
func (r *relay) Run(ctx context.Context) error {
	if err := r.db.Ping(ctx); err != nil {
		return fmt.Errorf("database ping: %w", err)
	}
	if err := r.pubsub.Ping(ctx); err != nil {
		return fmt.Errorf("pubsub ping: %w", err)
	}

	pause := r.errorBackoff()
	for ctx.Err() == nil {
		sent, err := r.drain(ctx)
		wait := r.poll
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			wait = pause.Pause()
		case sent > 0:
			pause = r.errorBackoff()
			continue
		default:
			pause = r.errorBackoff()
		}
		if err := gax.Sleep(ctx, wait); err != nil {
			return err
		}
	}
	return ctx.Err()
}

func (r *relay) errorBackoff() gax.Backoff {
	return gax.Backoff{Initial: r.poll, Max: maxErrorPause, Multiplier: 2}
}

type inflight struct {
	row    models.OutboxEvent
	event  orderevents.Event
	result publishResult
}

// drain handles one batch and returns how many rows it fetched.
func (r *relay) drain(ctx context.Context) (int, error) {
	fetched := 0
	err := r.db.WithTx(ctx, func(tx *gorm.DB) error {
		rows, err := r.store.ClaimBatch(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox rows: %w", err)
		}
		fetched = len(rows)
		if fetched == 0 {
			return nil
		}

		publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		sent := make([]inflight, 0, len(rows))
		for _, row := range rows {
			event, err := orderevents.FromRow(row)
			if err != nil {
				if err := r.park(ctx, tx, row, "undecodable", err); err != nil {
					return err
				}
				continue
			}
			sent = append(sent, inflight{row: row, event: event, result: r.publisher.Publish(publishCtx, event.Message())})
		}

		for _, f := range sent {
			if err := r.settle(publishCtx, tx, f); err != nil {
				return err
			}
		}
		return nil
	})
	return fetched, err
}

func (r *relay) settle(ctx context.Context, tx *gorm.DB, f inflight) error {
	logCtx := r.logg.WithFields(ctx, rowFields(f.row))
	serverID, err := f.result.Get(ctx)
	if err == nil {
		if err := r.store.MarkPublished(tx, f.row.ID); err != nil {
			return fmt.Errorf("mark %s published: %w", f.row.ID, err)
		}
		r.metrics.IncPublished(string(f.row.EventType))
		r.logg.Info(r.logg.WithField(logCtx, "message_id", serverID), "order event published")
		return nil
	}

	r.publisher.ResumePublish(f.event.OrderID)
	if f.row.AttemptCount+1 >= r.maxAttempts {
		return r.park(ctx, tx, f.row, "max_attempts", fmt.Errorf("gave up after %d attempts: %w", r.maxAttempts, err))
	}
	r.logg.Warn(r.logg.WithField(logCtx, "error", err.Error()), "order event publish failed, will retry")
	r.metrics.IncFailed(string(f.row.EventType), false)
	if err := r.store.MarkFailed(tx, f.row.ID, err); err != nil {
		return fmt.Errorf("mark %s failed: %w", f.row.ID, err)
	}
	return nil
}

// park sets attempt_count to the ceiling so the row is never fetched again.
// last_error keeps the reason for whoever replays it.
func (r *relay) park(ctx context.Context, tx *gorm.DB, row models.OutboxEvent, reason string, cause error) error {
	fields := rowFields(row)
	fields["park_reason"] = reason
	fields["error"] = cause.Error()
	r.logg.Warn(r.logg.WithFields(ctx, fields), "order event parked")
	r.metrics.IncFailed(string(row.EventType), true)
	if err := r.store.Park(tx, row.ID, cause, r.maxAttempts); err != nil {
		return fmt.Errorf("park %s: %w", row.ID, err)
	}
	return nil
}

func rowFields(row models.OutboxEvent) map[string]any {
	return map[string]any{
		"outbox_id":     row.ID.String(),
		"event_type":    row.EventType,
		"order_id":      row.AggregateID,
		"attempt_count": row.AttemptCount,
	}
}

// topicPublisher adapts *pubsub.Publisher to publisher.
type topicPublisher struct {
	*gcppubsub.Publisher
}

func (p topicPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
