package game_test

import (
	"testing"
	"time"

	"gymkapp-server/internal/game"
	"gymkapp-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func newTestSession(mapID uuid.UUID) *models.GameSession {
	return &models.GameSession{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		MapID:     mapID,
		Status:    models.StatusInProgress,
		StartedAt: testNow.Add(-time.Minute),
	}
}

// newTestStages builds an ordered stage sequence at the given coordinates.
func newTestStages(mapID uuid.UUID, points ...models.GeoPoint) []models.Stage {
	stages := make([]models.Stage, len(points))
	for i, p := range points {
		stages[i] = models.Stage{
			ID:         uuid.New(),
			MapID:      mapID,
			OrderIndex: i,
			Location:   p,
		}
	}
	return stages
}

func sampleAt(lat, long float64) models.LocationSample {
	return models.LocationSample{Point: models.GeoPoint{Latitude: lat, Longitude: long}, Timestamp: testNow}
}

func TestAdvanceSingleStageFinish(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID, models.GeoPoint{Latitude: 0, Longitude: 0})
	session := newTestSession(mapID)
	m := game.NewMachine(50, fixedClock)

	outcome, err := m.Advance(session, stages, sampleAt(0, 0))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeFinished, outcome.Kind)
	assert.Nil(t, outcome.NextStage)
	assert.Equal(t, models.StatusCompleted, session.Status)
	require.NotNil(t, session.EndedAt)
	assert.Equal(t, testNow, *session.EndedAt)

	require.Len(t, session.Progress, 1)
	entry := session.Progress[0]
	assert.Equal(t, stages[0].ID, entry.StageID)
	assert.Equal(t, 1, entry.Attempts)
	require.NotNil(t, entry.CompletedAt)
	assert.Equal(t, testNow, *entry.CompletedAt)
}

func TestAdvanceRetryThenAdvance(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID,
		models.GeoPoint{Latitude: 0, Longitude: 0},
		models.GeoPoint{Latitude: 1, Longitude: 1},
	)
	session := newTestSession(mapID)
	m := game.NewMachine(10, fixedClock)

	// Far away from stage 0: retry, attempt recorded, status unchanged.
	outcome, err := m.Advance(session, stages, sampleAt(5, 5))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeRetry, outcome.Kind)
	assert.Equal(t, stages[0].ID, outcome.Stage.ID)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, models.StatusInProgress, session.Status)
	require.Len(t, session.Progress, 1)
	assert.Nil(t, session.Progress[0].CompletedAt)

	// At stage 0: advance to stage 1, no entry for stage 1 yet.
	outcome, err = m.Advance(session, stages, sampleAt(0, 0))
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeAdvance, outcome.Kind)
	require.NotNil(t, outcome.NextStage)
	assert.Equal(t, stages[1].ID, outcome.NextStage.ID)
	assert.Equal(t, models.StatusInProgress, session.Status)

	require.Len(t, session.Progress, 1)
	entry := session.Progress[0]
	assert.Equal(t, 2, entry.Attempts)
	require.NotNil(t, entry.CompletedAt)
}

func TestAdvanceMissesAreIdempotentOnStatus(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID, models.GeoPoint{Latitude: 0, Longitude: 0})
	session := newTestSession(mapID)
	m := game.NewMachine(10, fixedClock)

	for i := 1; i <= 5; i++ {
		outcome, err := m.Advance(session, stages, sampleAt(5, 5))
		require.NoError(t, err)
		assert.Equal(t, models.OutcomeRetry, outcome.Kind)
		assert.Equal(t, models.StatusInProgress, session.Status)
		assert.Nil(t, session.EndedAt)

		// Only the attempt counter moves, monotonically.
		require.Len(t, session.Progress, 1)
		assert.Equal(t, i, session.Progress[0].Attempts)
		assert.Nil(t, session.Progress[0].CompletedAt)
	}
}

func TestAdvanceIgnoresProximityToFutureStages(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID,
		models.GeoPoint{Latitude: 0, Longitude: 0},
		models.GeoPoint{Latitude: 1, Longitude: 1},
		models.GeoPoint{Latitude: 2, Longitude: 2},
	)
	session := newTestSession(mapID)
	m := game.NewMachine(50, fixedClock)

	// Player stands exactly on stage 2 while still owing stage 0.
	outcome, err := m.Advance(session, stages, sampleAt(2, 2))
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeRetry, outcome.Kind)
	assert.Equal(t, stages[0].ID, outcome.Stage.ID)
	require.Len(t, session.Progress, 1)
	assert.Equal(t, stages[0].ID, session.Progress[0].StageID)
	assert.Nil(t, session.Progress[0].CompletedAt)
}

func TestAdvanceFullRunKeepsProgressInvariants(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID,
		models.GeoPoint{Latitude: 0, Longitude: 0},
		models.GeoPoint{Latitude: 1, Longitude: 1},
		models.GeoPoint{Latitude: 2, Longitude: 2},
	)
	session := newTestSession(mapID)
	m := game.NewMachine(50, fixedClock)

	submissions := []models.LocationSample{
		sampleAt(9, 9), // miss stage 0
		sampleAt(0, 0), // complete stage 0
		sampleAt(9, 9), // miss stage 1
		sampleAt(9, 9), // miss stage 1 again
		sampleAt(1, 1), // complete stage 1
		sampleAt(2, 2), // complete stage 2, finish
	}
	for _, s := range submissions {
		_, err := m.Advance(session, stages, s)
		require.NoError(t, err)

		// progress never exceeds the stage count and holds no duplicates
		assert.LessOrEqual(t, len(session.Progress), len(stages))
		seen := map[uuid.UUID]bool{}
		for _, e := range session.Progress {
			assert.False(t, seen[e.StageID], "duplicate progress entry for stage %s", e.StageID)
			seen[e.StageID] = true
		}
	}

	assert.Equal(t, models.StatusCompleted, session.Status)
	require.Len(t, session.Progress, 3)
	assert.Equal(t, 2, session.Progress[0].Attempts)
	assert.Equal(t, 3, session.Progress[1].Attempts)
	assert.Equal(t, 1, session.Progress[2].Attempts)
	for _, e := range session.Progress {
		assert.NotNil(t, e.CompletedAt)
	}
}

func TestAdvanceOnTerminalSession(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID, models.GeoPoint{Latitude: 0, Longitude: 0})
	m := game.NewMachine(50, fixedClock)

	for _, status := range []models.SessionStatus{models.StatusCompleted, models.StatusAbandoned} {
		session := newTestSession(mapID)
		session.Status = status

		_, err := m.Advance(session, stages, sampleAt(0, 0))
		assert.ErrorIs(t, err, models.ErrSessionClosed)
		assert.Empty(t, session.Progress, "terminal session must not be mutated")
	}
}

func TestAdvanceDetectsCorruptedProgress(t *testing.T) {
	mapID := uuid.New()
	stages := newTestStages(mapID, models.GeoPoint{Latitude: 0, Longitude: 0})
	session := newTestSession(mapID)
	m := game.NewMachine(50, fixedClock)

	// An InProgress session whose single stage is already completed.
	completed := testNow.Add(-time.Minute)
	session.Progress = []models.ProgressEntry{{
		StageID:     stages[0].ID,
		OrderIndex:  0,
		Attempts:    1,
		CompletedAt: &completed,
	}}

	_, err := m.Advance(session, stages, sampleAt(0, 0))
	assert.ErrorIs(t, err, models.ErrProgressCorrupted)

	_, err = m.Advance(session, nil, sampleAt(0, 0))
	assert.ErrorIs(t, err, models.ErrProgressCorrupted)
}
