package repository

import (
	"context"

	"gymkapp-server/internal/models"

	"github.com/google/uuid"
)

// StageRepository is the read-only lookup of a map and its ordered waypoint
// sequence. Map authoring happens outside this service; the progression
// protocol only ever reads these records, which is what makes the Redis
// cache decorator safe.
type StageRepository interface {
	// GetMap retrieves map metadata. Returns models.ErrMapNotFound when the
	// map does not exist.
	GetMap(ctx context.Context, mapID uuid.UUID) (*models.GameMap, error)

	// ListStages returns the map's stages ordered by their order index.
	ListStages(ctx context.Context, mapID uuid.UUID) ([]models.Stage, error)

	// StageAt returns the stage at the given order index.
	// Returns models.ErrStageNotFound when the map or index is invalid.
	StageAt(ctx context.Context, mapID uuid.UUID, index int) (*models.Stage, error)

	// StageCount returns the number of stages authored for the map.
	StageCount(ctx context.Context, mapID uuid.UUID) (int, error)
}
