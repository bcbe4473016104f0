package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event types carried in GameEventPayload.
const (
	EventGameFinished  = "game.finished"
	EventGameAbandoned = "game.abandoned"
)

// GameEventPayload is the message emitted when a session reaches a terminal
// state. The notification pipeline consumes it downstream; this service only
// publishes.
type GameEventPayload struct {
	EventType  string     `json:"event_type"`
	SessionID  uuid.UUID  `json:"session_id"`
	UserID     uuid.UUID  `json:"user_id"`
	MapID      uuid.UUID  `json:"map_id"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	TotalTries int        `json:"total_tries"`
	Stages     int        `json:"stages"`
}
