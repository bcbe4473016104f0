package mocks

import (
	"context"
	"time"

	"gymkapp-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock ProgressionService
type ProgressionService struct {
	mock.Mock
}

func (m *ProgressionService) StartSession(ctx context.Context, userID, mapID uuid.UUID, start models.GeoPoint) (*models.GameSession, *models.Stage, error) {
	args := m.Called(ctx, userID, mapID, start)
	session, _ := args.Get(0).(*models.GameSession)
	stage, _ := args.Get(1).(*models.Stage)
	return session, stage, args.Error(2)
}

func (m *ProgressionService) SubmitLocation(ctx context.Context, userID, sessionID uuid.UUID, sample models.LocationSample) (models.Outcome, error) {
	args := m.Called(ctx, userID, sessionID, sample)
	outcome, _ := args.Get(0).(models.Outcome)
	return outcome, args.Error(1)
}

func (m *ProgressionService) RecordStats(ctx context.Context, userID, sessionID uuid.UUID, rating int, comment string) (*models.GameSession, error) {
	args := m.Called(ctx, userID, sessionID, rating, comment)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}

func (m *ProgressionService) AbandonSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, userID, sessionID)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}

func (m *ProgressionService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, userID, sessionID)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}

func (m *ProgressionService) AbandonStaleSessions(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	args := m.Called(ctx, olderThan, limit)
	return args.Int(0), args.Error(1)
}
