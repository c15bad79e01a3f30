package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/asarum-backend/pkg/enums"
)

// OutboxEvent is an order event written in the same transaction as the order
// change it describes. The relay stamps PublishedAt once Pub/Sub accepts it;
// until then AttemptCount and LastError track failed sends.
type OutboxEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   string
	Payload       json.RawMessage `gorm:"type:jsonb"`
	CreatedAt     time.Time
	PublishedAt   *time.Time
	AttemptCount  int
	LastError     *string
}

// Pending reports whether the relay still owes this row a send.
func (e OutboxEvent) Pending() bool { return e.PublishedAt == nil }
