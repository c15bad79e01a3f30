package outbox

import (
	"encoding/json"
	"time"
)

// EnvelopeVersion is bumped only when Envelope's own shape changes.
// Payload structs evolve by adding optional fields.
const EnvelopeVersion = 1

// Actor kinds recorded on order events.
const (
	ActorCustomer = "customer"
	ActorAdmin    = "admin"
	ActorSystem   = "system"
)

// Actor is whoever caused the change: the buyer at checkout, the admin moving
// an order on the board, or the payment webhook.
type Actor struct {
	Kind string `json:"kind"`
	Name string `json:"name,omitempty"`
}

// Envelope is the JSON stored in outbox_events.payload and relayed verbatim
// as the message body.
type Envelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *Actor          `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
