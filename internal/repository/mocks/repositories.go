package mocks

import (
	"context"
	"time"

	"gymkapp-server/internal/models"
	"gymkapp-server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock StageRepository
type StageRepository struct {
	mock.Mock
}

func (m *StageRepository) GetMap(ctx context.Context, mapID uuid.UUID) (*models.GameMap, error) {
	args := m.Called(ctx, mapID)
	gm, _ := args.Get(0).(*models.GameMap)
	return gm, args.Error(1)
}
func (m *StageRepository) ListStages(ctx context.Context, mapID uuid.UUID) ([]models.Stage, error) {
	args := m.Called(ctx, mapID)
	stages, _ := args.Get(0).([]models.Stage)
	return stages, args.Error(1)
}
func (m *StageRepository) StageAt(ctx context.Context, mapID uuid.UUID, index int) (*models.Stage, error) {
	args := m.Called(ctx, mapID, index)
	stage, _ := args.Get(0).(*models.Stage)
	return stage, args.Error(1)
}
func (m *StageRepository) StageCount(ctx context.Context, mapID uuid.UUID) (int, error) {
	args := m.Called(ctx, mapID)
	return args.Int(0), args.Error(1)
}

// Mock GameSessionRepository
type GameSessionRepository struct {
	mock.Mock
}

func (m *GameSessionRepository) Create(ctx context.Context, querier repository.DBTX, session *models.GameSession) error {
	args := m.Called(ctx, querier, session)
	return args.Error(0)
}
func (m *GameSessionRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, querier, id)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}
func (m *GameSessionRepository) GetByIDForUpdate(ctx context.Context, tx repository.DBTX, id uuid.UUID) (*models.GameSession, error) {
	args := m.Called(ctx, tx, id)
	session, _ := args.Get(0).(*models.GameSession)
	return session, args.Error(1)
}
func (m *GameSessionRepository) Update(ctx context.Context, querier repository.DBTX, session *models.GameSession) error {
	args := m.Called(ctx, querier, session)
	return args.Error(0)
}
func (m *GameSessionRepository) ListStaleInProgress(ctx context.Context, querier repository.DBTX, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	args := m.Called(ctx, querier, cutoff, limit)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}
