package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gymkapp-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ GameSessionRepository = (*pgGameSessionRepository)(nil)

const sessionFields = `id, user_id, map_id, status, started_at, start_latitude, start_longitude, ended_at, rating, comment, updated_at`

const insertSessionQuery = `
INSERT INTO game_sessions (` + sessionFields + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const getSessionQuery = `
SELECT ` + sessionFields + `
FROM game_sessions
WHERE id = $1`

const getSessionForUpdateQuery = getSessionQuery + `
FOR UPDATE`

const updateSessionQuery = `
UPDATE game_sessions
SET status = $2, ended_at = $3, rating = $4, comment = $5, updated_at = $6
WHERE id = $1`

const upsertProgressQuery = `
INSERT INTO session_progress (session_id, stage_id, order_index, attempts, completed_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (session_id, stage_id) DO UPDATE SET
    attempts = EXCLUDED.attempts,
    completed_at = EXCLUDED.completed_at`

const listProgressQuery = `
SELECT stage_id, order_index, attempts, completed_at
FROM session_progress
WHERE session_id = $1
ORDER BY order_index`

const listStaleSessionsQuery = `
SELECT id
FROM game_sessions
WHERE status = $1 AND updated_at < $2
ORDER BY updated_at
LIMIT $3`

// progressRow mirrors the session_progress table for scany.
type progressRow struct {
	StageID     uuid.UUID  `db:"stage_id"`
	OrderIndex  int        `db:"order_index"`
	Attempts    int        `db:"attempts"`
	CompletedAt *time.Time `db:"completed_at"`
}

type pgGameSessionRepository struct {
	db     DBTX
	logger *zap.Logger
}

// NewPgGameSessionRepository creates a new PostgreSQL-backed session repository.
func NewPgGameSessionRepository(db DBTX, logger *zap.Logger) GameSessionRepository {
	return &pgGameSessionRepository{
		db:     db,
		logger: logger.Named("PgGameSessionRepo"),
	}
}

func (r *pgGameSessionRepository) Create(ctx context.Context, querier DBTX, session *models.GameSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	now := time.Now().UTC()
	if session.StartedAt.IsZero() {
		session.StartedAt = now
	}
	session.UpdatedAt = now

	_, err := querier.Exec(ctx, insertSessionQuery,
		session.ID,
		session.UserID,
		session.MapID,
		session.Status,
		session.StartedAt,
		session.StartLocation.Latitude,
		session.StartLocation.Longitude,
		session.EndedAt,
		session.Rating,
		session.Comment,
		session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert game session",
			zap.String("sessionID", session.ID.String()),
			zap.String("userID", session.UserID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to insert game session: %w", err)
	}

	r.logger.Debug("Game session created",
		zap.String("sessionID", session.ID.String()),
		zap.String("mapID", session.MapID.String()))
	return nil
}

func (r *pgGameSessionRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.GameSession, error) {
	return r.get(ctx, querier, id, getSessionQuery)
}

func (r *pgGameSessionRepository) GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.GameSession, error) {
	return r.get(ctx, tx, id, getSessionForUpdateQuery)
}

func (r *pgGameSessionRepository) get(ctx context.Context, querier DBTX, id uuid.UUID, query string) (*models.GameSession, error) {
	var s models.GameSession
	err := querier.QueryRow(ctx, query, id).Scan(
		&s.ID,
		&s.UserID,
		&s.MapID,
		&s.Status,
		&s.StartedAt,
		&s.StartLocation.Latitude,
		&s.StartLocation.Longitude,
		&s.EndedAt,
		&s.Rating,
		&s.Comment,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSessionNotFound
		}
		r.logger.Error("Failed to get game session", zap.String("sessionID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to get game session %s: %w", id, err)
	}

	var rows []progressRow
	if err := pgxscan.Select(ctx, querier, &rows, listProgressQuery, id); err != nil {
		r.logger.Error("Failed to load session progress", zap.String("sessionID", id.String()), zap.Error(err))
		return nil, fmt.Errorf("failed to load progress for session %s: %w", id, err)
	}
	s.Progress = make([]models.ProgressEntry, len(rows))
	for i, row := range rows {
		s.Progress[i] = models.ProgressEntry{
			StageID:     row.StageID,
			OrderIndex:  row.OrderIndex,
			Attempts:    row.Attempts,
			CompletedAt: row.CompletedAt,
		}
	}
	return &s, nil
}

func (r *pgGameSessionRepository) Update(ctx context.Context, querier DBTX, session *models.GameSession) error {
	if session.UpdatedAt.IsZero() {
		session.UpdatedAt = time.Now().UTC()
	}

	tag, err := querier.Exec(ctx, updateSessionQuery,
		session.ID,
		session.Status,
		session.EndedAt,
		session.Rating,
		session.Comment,
		session.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update game session", zap.String("sessionID", session.ID.String()), zap.Error(err))
		return fmt.Errorf("failed to update game session %s: %w", session.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSessionNotFound
	}

	for i := range session.Progress {
		entry := &session.Progress[i]
		if _, err := querier.Exec(ctx, upsertProgressQuery,
			session.ID,
			entry.StageID,
			entry.OrderIndex,
			entry.Attempts,
			entry.CompletedAt,
		); err != nil {
			r.logger.Error("Failed to upsert progress entry",
				zap.String("sessionID", session.ID.String()),
				zap.String("stageID", entry.StageID.String()),
				zap.Error(err))
			return fmt.Errorf("failed to upsert progress for session %s: %w", session.ID, err)
		}
	}

	r.logger.Debug("Game session updated",
		zap.String("sessionID", session.ID.String()),
		zap.String("status", string(session.Status)))
	return nil
}

func (r *pgGameSessionRepository) ListStaleInProgress(ctx context.Context, querier DBTX, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := pgxscan.Select(ctx, querier, &ids, listStaleSessionsQuery, models.StatusInProgress, cutoff, limit); err != nil {
		r.logger.Error("Failed to list stale sessions", zap.Time("cutoff", cutoff), zap.Error(err))
		return nil, fmt.Errorf("failed to list stale sessions: %w", err)
	}
	return ids, nil
}
