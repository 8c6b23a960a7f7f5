package model

import (
	"encoding/json"
	"time"
)

// Event is a persisted event record, mirroring what is published to NATS.
// Events are scoped to the owner whose data changed.
type Event struct {
	ID        int64           `json:"id"`
	Topic     string          `json:"topic"`
	UserID    string          `json:"user_id"`
	EntityID  string          `json:"entity_id"`
	Payload   json.RawMessage `json:"payload"`
	CreatedAt time.Time       `json:"created_at"`
}
