package repository_test

import (
	"context"
	"testing"
	"time"

	"gymkapp-server/internal/models"
	"gymkapp-server/internal/repository"
	"gymkapp-server/migrations"
	"gymkapp-server/pkg/migration"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// RepositoryTestSuite spins up a real PostgreSQL and exercises the session
// and stage repositories against the actual schema.
type RepositoryTestSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	rdContainer *tcredis.RedisContainer
	pool        *pgxpool.Pool
	redisClient *redis.Client
	stageRepo   repository.StageRepository
	sessionRepo repository.GameSessionRepository
	txRunner    *repository.TxRunner
	logger      *zap.Logger
}

func (s *RepositoryTestSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err)

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	s.pool, err = pgxpool.New(s.ctx, connStr)
	require.NoError(s.T(), err)

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, s.pool, s.logger)
	require.NoError(s.T(), migrator.Up(s.ctx), "Failed to run migrations")

	s.rdContainer, err = tcredis.Run(s.ctx,
		"docker.io/redis:7-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForLog("* Ready to accept connections").
				WithOccurrence(1).
				WithStartupTimeout(1*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start redis container")

	redisHost, err := s.rdContainer.Host(s.ctx)
	require.NoError(s.T(), err)
	redisPort, err := s.rdContainer.MappedPort(s.ctx, "6379/tcp")
	require.NoError(s.T(), err)
	s.redisClient = redis.NewClient(&redis.Options{Addr: redisHost + ":" + redisPort.Port()})
	require.NoError(s.T(), s.redisClient.Ping(s.ctx).Err())

	s.stageRepo = repository.NewPgStageRepository(s.pool, s.logger)
	s.sessionRepo = repository.NewPgGameSessionRepository(s.pool, s.logger)
	s.txRunner = repository.NewTxRunner(s.pool, s.logger)
}

func (s *RepositoryTestSuite) TearDownSuite() {
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.rdContainer != nil {
		_ = s.rdContainer.Terminate(s.ctx)
	}
	if s.pool != nil {
		s.pool.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(s.ctx)
	}
}

// seedMap inserts a map with the given number of stages and returns its ID
// with the stage IDs in order.
func (s *RepositoryTestSuite) seedMap(stageCount int) (uuid.UUID, []uuid.UUID) {
	t := s.T()
	mapID := uuid.New()
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO maps (id, name, author, description) VALUES ($1, $2, $3, $4)`,
		mapID, "Test route", "tester", "integration fixture")
	require.NoError(t, err)

	stageIDs := make([]uuid.UUID, stageCount)
	for i := 0; i < stageCount; i++ {
		stageIDs[i] = uuid.New()
		_, err := s.pool.Exec(s.ctx,
			`INSERT INTO stages (id, map_id, order_index, latitude, longitude, name, hint)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			stageIDs[i], mapID, i, 41.38+float64(i)*0.001, 2.17, "", "hint")
		require.NoError(t, err)
	}
	return mapID, stageIDs
}

func TestRepositoryTestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoryTestSuite))
}

func (s *RepositoryTestSuite) TestStageRepositoryListAndCount() {
	t := s.T()
	mapID, stageIDs := s.seedMap(3)

	gameMap, err := s.stageRepo.GetMap(s.ctx, mapID)
	require.NoError(t, err)
	require.Equal(t, "Test route", gameMap.Name)

	stages, err := s.stageRepo.ListStages(s.ctx, mapID)
	require.NoError(t, err)
	require.Len(t, stages, 3)
	for i, stage := range stages {
		require.Equal(t, stageIDs[i], stage.ID)
		require.Equal(t, i, stage.OrderIndex)
	}

	count, err := s.stageRepo.StageCount(s.ctx, mapID)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	second, err := s.stageRepo.StageAt(s.ctx, mapID, 1)
	require.NoError(t, err)
	require.Equal(t, stageIDs[1], second.ID)

	_, err = s.stageRepo.StageAt(s.ctx, mapID, 99)
	require.ErrorIs(t, err, models.ErrStageNotFound)

	_, err = s.stageRepo.GetMap(s.ctx, uuid.New())
	require.ErrorIs(t, err, models.ErrMapNotFound)
}

func (s *RepositoryTestSuite) TestSessionCreateGetRoundTrip() {
	t := s.T()
	mapID, _ := s.seedMap(2)
	userID := uuid.New()

	session := &models.GameSession{
		UserID: userID,
		MapID:  mapID,
		Status:        models.StatusInProgress,
		StartLocation: models.GeoPoint{Latitude: 41.38, Longitude: 2.17},
	}
	require.NoError(t, s.sessionRepo.Create(s.ctx, s.pool, session))
	require.NotEqual(t, uuid.Nil, session.ID)

	loaded, err := s.sessionRepo.GetByID(s.ctx, s.pool, session.ID)
	require.NoError(t, err)
	require.Equal(t, userID, loaded.UserID)
	require.Equal(t, models.StatusInProgress, loaded.Status)
	require.Empty(t, loaded.Progress)

	_, err = s.sessionRepo.GetByID(s.ctx, s.pool, uuid.New())
	require.ErrorIs(t, err, models.ErrSessionNotFound)
}

func (s *RepositoryTestSuite) TestUpdatePersistsProgressUpserts() {
	t := s.T()
	mapID, stageIDs := s.seedMap(2)
	userID := uuid.New()

	session := &models.GameSession{
		UserID: userID,
		MapID:  mapID,
		Status: models.StatusInProgress,
	}
	require.NoError(t, s.sessionRepo.Create(s.ctx, s.pool, session))

	err := s.txRunner.WithTransaction(s.ctx, func(ctx context.Context, tx repository.DBTX) error {
		locked, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		locked.Progress = append(locked.Progress, models.ProgressEntry{
			StageID:    stageIDs[0],
			OrderIndex: 0,
			Attempts:   1,
		})
		locked.UpdatedAt = time.Now().UTC()
		return s.sessionRepo.Update(ctx, tx, locked)
	})
	require.NoError(t, err)

	loaded, err := s.sessionRepo.GetByID(s.ctx, s.pool, session.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Progress, 1)
	require.Equal(t, 1, loaded.Progress[0].Attempts)
	require.Nil(t, loaded.Progress[0].CompletedAt)

	// Second update increments the attempt count on the same stage.
	completed := time.Now().UTC()
	err = s.txRunner.WithTransaction(s.ctx, func(ctx context.Context, tx repository.DBTX) error {
		locked, err := s.sessionRepo.GetByIDForUpdate(ctx, tx, session.ID)
		if err != nil {
			return err
		}
		locked.Progress[0].Attempts = 2
		locked.Progress[0].CompletedAt = &completed
		locked.UpdatedAt = time.Now().UTC()
		return s.sessionRepo.Update(ctx, tx, locked)
	})
	require.NoError(t, err)

	loaded, err = s.sessionRepo.GetByID(s.ctx, s.pool, session.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Progress, 1)
	require.Equal(t, 2, loaded.Progress[0].Attempts)
	require.NotNil(t, loaded.Progress[0].CompletedAt)
}

func (s *RepositoryTestSuite) TestUpdateMissingSession() {
	t := s.T()
	mapID, _ := s.seedMap(1)

	ghost := &models.GameSession{
		ID:     uuid.New(),
		UserID: uuid.New(),
		MapID:  mapID,
		Status: models.StatusInProgress,
	}
	err := s.sessionRepo.Update(s.ctx, s.pool, ghost)
	require.ErrorIs(t, err, models.ErrSessionNotFound)
}

func (s *RepositoryTestSuite) TestListStaleInProgress() {
	t := s.T()
	mapID, _ := s.seedMap(1)

	staleSession := &models.GameSession{
		UserID: uuid.New(),
		MapID:  mapID,
		Status: models.StatusInProgress,
	}
	require.NoError(t, s.sessionRepo.Create(s.ctx, s.pool, staleSession))

	freshSession := &models.GameSession{
		UserID: uuid.New(),
		MapID:  mapID,
		Status: models.StatusInProgress,
	}
	require.NoError(t, s.sessionRepo.Create(s.ctx, s.pool, freshSession))

	// Age one session artificially.
	_, err := s.pool.Exec(s.ctx,
		`UPDATE game_sessions SET updated_at = $1 WHERE id = $2`,
		time.Now().UTC().Add(-48*time.Hour), staleSession.ID)
	require.NoError(t, err)

	ids, err := s.sessionRepo.ListStaleInProgress(s.ctx, s.pool, time.Now().UTC().Add(-24*time.Hour), 10)
	require.NoError(t, err)
	require.Contains(t, ids, staleSession.ID)
	require.NotContains(t, ids, freshSession.ID)
}

func (s *RepositoryTestSuite) TestRedisStageCacheReadThrough() {
	t := s.T()
	mapID, stageIDs := s.seedMap(2)

	cached := repository.NewRedisStageCache(s.stageRepo, s.redisClient, time.Minute, s.logger)

	// First read populates the cache from the database.
	stages, err := cached.ListStages(s.ctx, mapID)
	require.NoError(t, err)
	require.Len(t, stages, 2)

	// Remove the rows underneath; a cached read must still serve them.
	_, err = s.pool.Exec(s.ctx, `DELETE FROM stages WHERE map_id = $1`, mapID)
	require.NoError(t, err)

	stages, err = cached.ListStages(s.ctx, mapID)
	require.NoError(t, err)
	require.Len(t, stages, 2)
	require.Equal(t, stageIDs[0], stages[0].ID)

	count, err := cached.StageCount(s.ctx, mapID)
	require.NoError(t, err)
	require.Equal(t, 2, count)

	stage, err := cached.StageAt(s.ctx, mapID, 1)
	require.NoError(t, err)
	require.Equal(t, stageIDs[1], stage.ID)
}
