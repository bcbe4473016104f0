package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a game session.
// The string values match the ones stored in the database.
type SessionStatus string

const (
	StatusInProgress SessionStatus = "inProgress"
	StatusCompleted  SessionStatus = "completed"
	StatusAbandoned  SessionStatus = "abandoned"
)

// IsTerminal reports whether the status allows no further progression.
func (s SessionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusAbandoned
}

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// LocationSample is a client-reported position. Timestamp may be zero when the
// client does not send one; the service fills it with the server time.
type LocationSample struct {
	Point     GeoPoint
	Timestamp time.Time
}

// GameMap groups an ordered stage sequence under a single playable map.
// Authoring happens elsewhere; the progression service only reads these fields.
type GameMap struct {
	ID          uuid.UUID
	Name        string
	Author      string
	Description string
	CreatedAt   time.Time
}

// Stage is one geolocated waypoint of a map. Immutable once authored.
type Stage struct {
	ID         uuid.UUID `json:"id"`
	MapID      uuid.UUID `json:"mapId"`
	OrderIndex int       `json:"orderIndex"`
	Location   GeoPoint  `json:"location"`
	Name       string    `json:"name"`
	Hint       string    `json:"hint,omitempty"`
}

// ProgressEntry is the per-stage attempt record inside a session.
// Attempts starts at 1 on the first submission for the stage and only grows.
// CompletedAt is nil until the proximity check first succeeds; after that the
// entry is immutable.
type ProgressEntry struct {
	StageID     uuid.UUID  `json:"stageId"`
	OrderIndex  int        `json:"orderIndex"`
	Attempts    int        `json:"attempts"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// GameSession is one player's run through a map's stage sequence.
type GameSession struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	MapID         uuid.UUID       `json:"mapId"`
	Status        SessionStatus   `json:"status"`
	StartedAt     time.Time       `json:"startedAt"`
	StartLocation GeoPoint        `json:"startLocation"`
	Progress      []ProgressEntry `json:"progress"`
	EndedAt       *time.Time      `json:"endedAt,omitempty"`
	Rating        *int            `json:"rating,omitempty"`
	Comment       *string         `json:"comment,omitempty"`
	UpdatedAt     time.Time       `json:"-"`
}

// CurrentIndex returns the order index of the first stage the player has not
// completed yet, i.e. the number of completed progress entries. Progress is
// kept in stage order, so counting is enough.
func (s *GameSession) CurrentIndex() int {
	n := 0
	for i := range s.Progress {
		if s.Progress[i].CompletedAt != nil {
			n++
		}
	}
	return n
}

// EntryForStage returns the progress entry for the given stage, or nil.
func (s *GameSession) EntryForStage(stageID uuid.UUID) *ProgressEntry {
	for i := range s.Progress {
		if s.Progress[i].StageID == stageID {
			return &s.Progress[i]
		}
	}
	return nil
}
