package service

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"gymkapp-server/internal/game"
	"gymkapp-server/internal/messaging"
	"gymkapp-server/internal/models"
	"gymkapp-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Options carries the gameplay tunables consumed by the progression service.
type Options struct {
	ProximityRadiusMeters float64
	CommentMinLength      int
	CommentMaxLength      int
}

// ProgressionService is the public entry point of the game-session protocol.
// The transport layer calls it and nothing else.
type ProgressionService interface {
	// StartSession creates an InProgress session for the user on the given map
	// and returns it together with the map's first stage. Fails with
	// models.ErrMapNotFound when the map is unresolvable and with
	// models.ErrMapHasNoStages when it has no stages.
	StartSession(ctx context.Context, userID, mapID uuid.UUID, start models.GeoPoint) (*models.GameSession, *models.Stage, error)

	// SubmitLocation evaluates a location sample against the session's current
	// stage, persists the resulting state and returns the outcome. The
	// load-evaluate-persist cycle runs under a per-session row lock, so
	// concurrent submissions for one session are serialized.
	SubmitLocation(ctx context.Context, userID, sessionID uuid.UUID, sample models.LocationSample) (models.Outcome, error)

	// RecordStats stores the post-game rating and comment. Only allowed once
	// the session left InProgress; fails with models.ErrSessionStillActive
	// otherwise.
	RecordStats(ctx context.Context, userID, sessionID uuid.UUID, rating int, comment string) (*models.GameSession, error)

	// AbandonSession explicitly moves an InProgress session to Abandoned.
	AbandonSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.GameSession, error)

	// GetSession returns the session with its progress entries.
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.GameSession, error)

	// AbandonStaleSessions abandons InProgress sessions whose last update is
	// older than olderThan. Called by the inactivity sweeper; returns the
	// number of sessions abandoned.
	AbandonStaleSessions(ctx context.Context, olderThan time.Duration, limit int) (int, error)
}

type progressionService struct {
	stageRepo   repository.StageRepository
	sessionRepo repository.GameSessionRepository
	db          repository.DBTX
	tx          repository.Transactor
	publisher   messaging.GameEventPublisher
	machine     *game.Machine
	opts        Options
	logger      *zap.Logger
}

// NewProgressionService creates the progression service. All collaborators are
// injected here, once, at process start; the service keeps no other state.
func NewProgressionService(
	stageRepo repository.StageRepository,
	sessionRepo repository.GameSessionRepository,
	db repository.DBTX,
	tx repository.Transactor,
	publisher messaging.GameEventPublisher,
	opts Options,
	logger *zap.Logger,
) ProgressionService {
	return &progressionService{
		stageRepo:   stageRepo,
		sessionRepo: sessionRepo,
		db:          db,
		tx:          tx,
		publisher:   publisher,
		machine:     game.NewMachine(opts.ProximityRadiusMeters, nil),
		opts:        opts,
		logger:      logger.Named("ProgressionService"),
	}
}

func (s *progressionService) StartSession(ctx context.Context, userID, mapID uuid.UUID, start models.GeoPoint) (*models.GameSession, *models.Stage, error) {
	if _, err := s.stageRepo.GetMap(ctx, mapID); err != nil {
		return nil, nil, err
	}

	stages, err := s.stageRepo.ListStages(ctx, mapID)
	if err != nil {
		return nil, nil, err
	}
	if len(stages) == 0 {
		s.logger.Warn("Refusing to start session on map without stages",
			zap.String("mapID", mapID.String()))
		return nil, nil, models.ErrMapHasNoStages
	}

	session := &models.GameSession{
		ID:            uuid.New(),
		UserID:        userID,
		MapID:         mapID,
		Status:        models.StatusInProgress,
		StartLocation: start,
	}
	if err := s.sessionRepo.Create(ctx, s.db, session); err != nil {
		return nil, nil, err
	}

	s.logger.Info("Game session started",
		zap.String("sessionID", session.ID.String()),
		zap.String("userID", userID.String()),
		zap.String("mapID", mapID.String()),
		zap.Int("stages", len(stages)))

	first := stages[0]
	return session, &first, nil
}

func (s *progressionService) SubmitLocation(ctx context.Context, userID, sessionID uuid.UUID, sample models.LocationSample) (models.Outcome, error) {
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now().UTC()
	}

	var outcome models.Outcome
	var finished *models.GameSession

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		session, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return models.ErrForbidden
		}
		if session.Status.IsTerminal() {
			return models.ErrSessionClosed
		}

		stages, err := s.stageRepo.ListStages(ctx, session.MapID)
		if err != nil {
			return err
		}

		outcome, err = s.machine.Advance(session, stages, sample)
		if err != nil {
			if errors.Is(err, models.ErrProgressCorrupted) {
				// Fatal internal invariant violation, never swallowed.
				s.logger.Error("Session progress corrupted",
					zap.String("sessionID", sessionID.String()),
					zap.Error(err))
			}
			return err
		}

		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return err
		}
		if outcome.Kind == models.OutcomeFinished {
			finished = session
		}
		return nil
	})
	if err != nil {
		return models.Outcome{}, err
	}

	s.logger.Debug("Location submission processed",
		zap.String("sessionID", sessionID.String()),
		zap.String("outcome", string(outcome.Kind)),
		zap.Int("attempts", outcome.Attempts))

	if finished != nil {
		s.publishTerminalEvent(ctx, messaging.EventGameFinished, finished)
	}
	return outcome, nil
}

func (s *progressionService) RecordStats(ctx context.Context, userID, sessionID uuid.UUID, rating int, comment string) (*models.GameSession, error) {
	if rating < 1 || rating > 5 {
		return nil, fmt.Errorf("%w: rating must be between 1 and 5", models.ErrInvalidInput)
	}
	if comment != "" {
		length := utf8.RuneCountInString(comment)
		if length < s.opts.CommentMinLength || length > s.opts.CommentMaxLength {
			return nil, fmt.Errorf("%w: comment length must be between %d and %d characters",
				models.ErrInvalidInput, s.opts.CommentMinLength, s.opts.CommentMaxLength)
		}
	}

	var updated *models.GameSession
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		session, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return models.ErrForbidden
		}
		if session.Status == models.StatusInProgress {
			return models.ErrSessionStillActive
		}

		session.Rating = &rating
		if comment != "" {
			session.Comment = &comment
		}
		session.UpdatedAt = time.Now().UTC()
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return err
		}
		updated = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Session stats recorded",
		zap.String("sessionID", sessionID.String()),
		zap.Int("rating", rating))
	return updated, nil
}

func (s *progressionService) AbandonSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.GameSession, error) {
	var abandoned *models.GameSession
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		session, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		if session.UserID != userID {
			return models.ErrForbidden
		}
		if session.Status.IsTerminal() {
			return models.ErrSessionClosed
		}

		now := time.Now().UTC()
		session.Status = models.StatusAbandoned
		session.EndedAt = &now
		session.UpdatedAt = now
		if err := s.sessionRepo.Update(ctx, tx, session); err != nil {
			return err
		}
		abandoned = session
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Game session abandoned",
		zap.String("sessionID", sessionID.String()),
		zap.String("userID", userID.String()))
	s.publishTerminalEvent(ctx, messaging.EventGameAbandoned, abandoned)
	return abandoned, nil
}

func (s *progressionService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.GameSession, error) {
	session, err := s.sessionRepo.GetByID(ctx, s.db, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, models.ErrForbidden
	}
	return session, nil
}

func (s *progressionService) AbandonStaleSessions(ctx context.Context, olderThan time.Duration, limit int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	ids, err := s.sessionRepo.ListStaleInProgress(ctx, s.db, cutoff, limit)
	if err != nil {
		return 0, err
	}

	abandoned := 0
	for _, id := range ids {
		var session *models.GameSession
		err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
			loaded, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, id)
			if err != nil {
				return err
			}
			// Re-check under the lock: the player may have just come back.
			if loaded.Status != models.StatusInProgress || loaded.UpdatedAt.After(cutoff) {
				return nil
			}
			now := time.Now().UTC()
			loaded.Status = models.StatusAbandoned
			loaded.EndedAt = &now
			loaded.UpdatedAt = now
			if err := s.sessionRepo.Update(ctx, tx, loaded); err != nil {
				return err
			}
			session = loaded
			return nil
		})
		if err != nil {
			s.logger.Warn("Failed to abandon stale session",
				zap.String("sessionID", id.String()),
				zap.Error(err))
			continue
		}
		if session != nil {
			abandoned++
			s.publishTerminalEvent(ctx, messaging.EventGameAbandoned, session)
		}
	}
	return abandoned, nil
}

// publishTerminalEvent emits a terminal game event. Publishing is best effort:
// the session state is already committed, so a broker hiccup must not fail
// the player's request.
func (s *progressionService) publishTerminalEvent(ctx context.Context, eventType string, session *models.GameSession) {
	if s.publisher == nil {
		return
	}
	totalTries := 0
	for _, e := range session.Progress {
		totalTries += e.Attempts
	}
	payload := messaging.GameEventPayload{
		EventType:  eventType,
		SessionID:  session.ID,
		UserID:     session.UserID,
		MapID:      session.MapID,
		StartedAt:  session.StartedAt,
		EndedAt:    session.EndedAt,
		TotalTries: totalTries,
		Stages:     len(session.Progress),
	}
	if err := s.publisher.PublishGameEvent(ctx, payload); err != nil {
		s.logger.Warn("Failed to publish game event",
			zap.String("sessionID", session.ID.String()),
			zap.String("eventType", eventType),
			zap.Error(err))
	}
}
