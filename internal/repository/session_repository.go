package repository

import (
	"context"
	"time"

	"gymkapp-server/internal/models"

	"github.com/google/uuid"
)

// GameSessionRepository owns the durable session records. All mutation goes
// through the progression service; nothing else writes these rows.
//
// Methods accept a DBTX so the service can run load-mutate-persist inside one
// transaction. GetByIDForUpdate takes a row lock, which is what serializes
// concurrent submissions for the same session (the lost-update guard): a
// second submission blocks on the lock until the first one commits.
type GameSessionRepository interface {
	// Create inserts a new session together with its (empty) progress.
	Create(ctx context.Context, querier DBTX, session *models.GameSession) error

	// GetByID loads a session and its progress entries in stage order.
	// Returns models.ErrSessionNotFound when the session does not exist.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.GameSession, error)

	// GetByIDForUpdate is GetByID with a SELECT ... FOR UPDATE lock on the
	// session row. Must be called inside a transaction.
	GetByIDForUpdate(ctx context.Context, tx DBTX, id uuid.UUID) (*models.GameSession, error)

	// Update persists the session row and upserts its progress entries.
	Update(ctx context.Context, querier DBTX, session *models.GameSession) error

	// ListStaleInProgress returns IDs of InProgress sessions not touched since
	// the cutoff, oldest first. Used by the abandonment sweeper.
	ListStaleInProgress(ctx context.Context, querier DBTX, cutoff time.Time, limit int) ([]uuid.UUID, error)
}
