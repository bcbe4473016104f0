package repository

import (
	"context"
	"errors"
	"fmt"

	"gymkapp-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ StageRepository = (*pgStageRepository)(nil)

const getMapQuery = `
SELECT id, name, author, description, created_at
FROM maps
WHERE id = $1`

const listStagesQuery = `
SELECT id, map_id, order_index, latitude, longitude, name, hint
FROM stages
WHERE map_id = $1
ORDER BY order_index`

const stageAtQuery = `
SELECT id, map_id, order_index, latitude, longitude, name, hint
FROM stages
WHERE map_id = $1 AND order_index = $2`

const stageCountQuery = `
SELECT COUNT(*)
FROM stages
WHERE map_id = $1`

// stageRow mirrors the stages table for scany.
type stageRow struct {
	ID         uuid.UUID `db:"id"`
	MapID      uuid.UUID `db:"map_id"`
	OrderIndex int       `db:"order_index"`
	Latitude   float64   `db:"latitude"`
	Longitude  float64   `db:"longitude"`
	Name       string    `db:"name"`
	Hint       string    `db:"hint"`
}

func (r stageRow) toModel() models.Stage {
	return models.Stage{
		ID:         r.ID,
		MapID:      r.MapID,
		OrderIndex: r.OrderIndex,
		Location:   models.GeoPoint{Latitude: r.Latitude, Longitude: r.Longitude},
		Name:       r.Name,
		Hint:       r.Hint,
	}
}

type pgStageRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgStageRepository creates a new PostgreSQL-backed stage repository.
func NewPgStageRepository(db DBTX, logger *zap.Logger) StageRepository {
	return &pgStageRepository{
		db:     db,
		logger: logger.Named("PgStageRepo"),
	}
}

func (r *pgStageRepository) GetMap(ctx context.Context, mapID uuid.UUID) (*models.GameMap, error) {
	var m models.GameMap
	err := r.db.QueryRow(ctx, getMapQuery, mapID).Scan(
		&m.ID, &m.Name, &m.Author, &m.Description, &m.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrMapNotFound
		}
		r.logger.Error("Failed to get map", zap.String("mapID", mapID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get map %s: %w", mapID, err)
	}
	return &m, nil
}

func (r *pgStageRepository) ListStages(ctx context.Context, mapID uuid.UUID) ([]models.Stage, error) {
	var rows []stageRow
	if err := pgxscan.Select(ctx, r.db, &rows, listStagesQuery, mapID); err != nil {
		r.logger.Error("Failed to list stages", zap.String("mapID", mapID.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to list stages for map %s: %w", mapID, err)
	}
	stages := make([]models.Stage, len(rows))
	for i, row := range rows {
		stages[i] = row.toModel()
	}
	return stages, nil
}

func (r *pgStageRepository) StageAt(ctx context.Context, mapID uuid.UUID, index int) (*models.Stage, error) {
	var row stageRow
	err := r.db.QueryRow(ctx, stageAtQuery, mapID, index).Scan(
		&row.ID, &row.MapID, &row.OrderIndex, &row.Latitude, &row.Longitude, &row.Name, &row.Hint,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrStageNotFound
		}
		r.logger.Error("Failed to get stage",
			zap.String("mapID", mapID.String()),
			zap.Int("index", index),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get stage %d of map %s: %w", index, mapID, err)
	}
	stage := row.toModel()
	return &stage, nil
}

func (r *pgStageRepository) StageCount(ctx context.Context, mapID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, stageCountQuery, mapID).Scan(&count); err != nil {
		r.logger.Error("Failed to count stages", zap.String("mapID", mapID.String()), zap.Error(err))
		return 0, fmt.Errorf("failed to count stages for map %s: %w", mapID, err)
	}
	return count, nil
}
