package analytics

import (
	"context"
	"errors"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/asarum-backend/pkg/logger"
	"github.com/angelmondragon/asarum-backend/pkg/outbox/orderevents"
)

type receiver interface {
	Receive(ctx context.Context, f func(context.Context, *gcppubsub.Message)) error
}

type ledger interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type rowWriter interface {
	Write(ctx context.Context, row OrderEventRow) error
}

// Consumer reads the analytics subscription and writes one row per event.
type Consumer struct {
	sub    receiver
	rows   rowWriter
	ledger ledger
	logg   *logger.Logger
}

func NewConsumer(sub receiver, rows rowWriter, l ledger, logg *logger.Logger) (*Consumer, error) {
	switch {
	case sub == nil:
		return nil, errors.New("analytics subscription is required")
	case rows == nil:
		return nil, errors.New("row writer is required")
	case l == nil:
		return nil, errors.New("event ledger is required")
	case logg == nil:
		return nil, errors.New("logger is required")
	}
	return &Consumer{sub: sub, rows: rows, ledger: l, logg: logg}, nil
}

// Run blocks until ctx is done or the subscription fails.
func (c *Consumer) Run(ctx context.Context) error {
	return c.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		if c.handle(ctx, msg) {
			msg.Ack()
			return
		}
		msg.Nack()
	})
}

// handle reports whether msg is finished with. Messages that can never be
// recorded are finished too; a redelivery would fail the same way.
func (c *Consumer) handle(ctx context.Context, msg *gcppubsub.Message) bool {
	ctx = c.logg.WithField(ctx, "message_id", msg.ID)

	event, err := orderevents.FromMessage(msg)
	if err != nil {
		ctx = c.logg.WithField(ctx, "error", err.Error())
		if errors.Is(err, orderevents.ErrUnknownType) {
			c.logg.Info(ctx, "event type not tracked by analytics")
		} else {
			c.logg.Warn(ctx, "dropping undecodable order event")
		}
		return true
	}
	ctx = c.logg.WithFields(ctx, map[string]any{
		"event_id":   event.ID,
		"event_type": event.Type,
		"order_id":   event.OrderID,
	})

	row, err := RowFor(event)
	if err != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "dropping order event without a row mapping")
		return true
	}

	fresh, err := c.ledger.Claim(ctx, event.ID)
	if err != nil {
		c.logg.Error(ctx, "analytics ledger unavailable", err)
		return false
	}
	if !fresh {
		c.logg.Info(ctx, "order event already recorded")
		return true
	}

	if err := c.rows.Write(ctx, row); err != nil {
		c.logg.Error(ctx, "order event row not written", err)
		if relErr := c.ledger.Release(ctx, event.ID); relErr != nil {
			c.logg.Error(ctx, "analytics ledger release failed", relErr)
		}
		return false
	}
	c.logg.Info(ctx, "order event recorded")
	return true
}
