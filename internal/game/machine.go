// Package game holds the session state machine: the pure transition function
// that advances a loaded session against a location sample. It never talks to
// storage; the service layer loads the session and the map's stage sequence,
// runs the transition and persists the result as one unit.
package game

import (
	"fmt"
	"time"

	"gymkapp-server/internal/geo"
	"gymkapp-server/internal/models"
)

// Machine evaluates location submissions against a session's current stage.
type Machine struct {
	radiusMeters float64
	now          func() time.Time
}

// NewMachine creates a state machine with the configured arrival radius.
// now may be nil, in which case time.Now is used; tests inject a fixed clock.
func NewMachine(radiusMeters float64, now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{radiusMeters: radiusMeters, now: now}
}

// Advance runs one transition of the session state machine.
//
// The session must be InProgress and stages must be the map's full ordered
// sequence. The player is only ever evaluated against the current stage (the
// first one without a completed progress entry); proximity to any later stage
// is ignored, which keeps progression strictly sequential. The submission is
// always recorded as an attempt on the current stage, whether or not it
// arrives.
//
// Advance mutates the session in place; the caller persists it together with
// returning the outcome.
func (m *Machine) Advance(session *models.GameSession, stages []models.Stage, sample models.LocationSample) (models.Outcome, error) {
	if session.Status != models.StatusInProgress {
		return models.Outcome{}, models.ErrSessionClosed
	}
	if len(stages) == 0 {
		return models.Outcome{}, fmt.Errorf("%w: session %s references a map without stages", models.ErrProgressCorrupted, session.ID)
	}

	currentIndex := session.CurrentIndex()
	if currentIndex >= len(stages) {
		// An InProgress session with every stage completed must not exist:
		// completing the last stage flips the status in the same transition.
		return models.Outcome{}, fmt.Errorf("%w: session %s has %d completed entries for a %d-stage map",
			models.ErrProgressCorrupted, session.ID, currentIndex, len(stages))
	}

	target := stages[currentIndex]

	entry := session.EntryForStage(target.ID)
	if entry == nil {
		session.Progress = append(session.Progress, models.ProgressEntry{
			StageID:    target.ID,
			OrderIndex: target.OrderIndex,
			Attempts:   1,
		})
		entry = &session.Progress[len(session.Progress)-1]
	} else {
		entry.Attempts++
	}

	now := m.now().UTC()
	session.UpdatedAt = now

	if !geo.IsArrived(sample.Point, target.Location, m.radiusMeters) {
		// The incremented attempt count stands as the cost of the miss.
		return models.Outcome{
			Kind:     models.OutcomeRetry,
			Stage:    &target,
			Attempts: entry.Attempts,
		}, nil
	}

	entry.CompletedAt = &now

	if currentIndex+1 == len(stages) {
		session.Status = models.StatusCompleted
		session.EndedAt = &now
		return models.Outcome{
			Kind:     models.OutcomeFinished,
			Stage:    &target,
			Attempts: entry.Attempts,
		}, nil
	}

	next := stages[currentIndex+1]
	return models.Outcome{
		Kind:      models.OutcomeAdvance,
		Stage:     &target,
		Attempts:  entry.Attempts,
		NextStage: &next,
	}, nil
}
