package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gymkapp-server/internal/config"
	"gymkapp-server/internal/handler"
	"gymkapp-server/internal/logger"
	"gymkapp-server/internal/messaging"
	appMiddleware "gymkapp-server/internal/middleware"
	"gymkapp-server/internal/repository"
	"gymkapp-server/internal/service"
	"gymkapp-server/internal/worker"
	"gymkapp-server/migrations"
	"gymkapp-server/pkg/migration"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	log.Println("Starting Game Session Service...")

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(logger.Config{
		Level: cfg.LogLevel,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Logger initialized", zap.String("logLevel", cfg.LogLevel))

	dbPool, err := setupDatabase(cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()
	zapLogger.Info("Connected to PostgreSQL")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, dbPool, zapLogger)
	migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 60*time.Second)
	if err := migrator.Up(migrateCtx); err != nil {
		migrateCancel()
		zapLogger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrateCancel()

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	defer redisClient.Close()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		zapLogger.Warn("Redis unavailable, stage cache will fall back to the database", zap.Error(err))
	}
	pingCancel()

	rabbitConn, err := connectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()
	zapLogger.Info("Connected to RabbitMQ")

	stageRepo := repository.NewPgStageRepository(dbPool, zapLogger)
	cachedStageRepo := repository.NewRedisStageCache(stageRepo, redisClient, cfg.StageCacheTTL, zapLogger)
	sessionRepo := repository.NewPgGameSessionRepository(dbPool, zapLogger)
	txRunner := repository.NewTxRunner(dbPool, zapLogger)

	eventPublisher, err := messaging.NewRabbitMQGameEventPublisher(rabbitConn, cfg.GameEventsQueue)
	if err != nil {
		zapLogger.Fatal("Failed to create game event publisher", zap.Error(err))
	}

	progressionService := service.NewProgressionService(
		cachedStageRepo,
		sessionRepo,
		dbPool,
		txRunner,
		eventPublisher,
		service.Options{
			ProximityRadiusMeters: cfg.ProximityRadiusMeters,
			CommentMinLength:      cfg.CommentMinLength,
			CommentMaxLength:      cfg.CommentMaxLength,
		},
		zapLogger,
	)
	gameHandler := handler.NewGameHandler(progressionService, zapLogger, cfg.JWTSecret)

	sweeper := worker.NewSweeper(progressionService, cfg.SessionAbandonAfter, cfg.SweepInterval, zapLogger)
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	if err := sweeper.Start(sweeperCtx); err != nil {
		zapLogger.Fatal("Failed to start inactivity sweeper", zap.Error(err))
	}

	e := echo.New()
	e.Use(appMiddleware.EchoZapLogger(zapLogger))
	e.Use(echoMiddleware.Recover())
	e.Use(echoMiddleware.CORSWithConfig(echoMiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	gameHandler.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	log.Printf("Game session server listening on port %s", cfg.Port)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("HTTP server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zapLogger.Info("Shutdown signal received, starting graceful shutdown...")

	sweeperCancel()
	if err := sweeper.Stop(); err != nil {
		zapLogger.Warn("Sweeper shutdown error", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal("Error during graceful shutdown: ", err)
	}

	log.Println("Game Session Service stopped")
}

// setupDatabase initializes the pgx connection pool.
func setupDatabase(cfg *config.Config, logger *zap.Logger) (*pgxpool.Pool, error) {
	dsn := cfg.GetDSN()
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.DBMaxConns)
	poolConfig.MaxConnIdleTime = cfg.DBIdleTimeout
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	dbPool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}
	if err = dbPool.Ping(ctx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbPool, nil
}

// connectRabbitMQ dials RabbitMQ with a few retries.
func connectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second
	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Failed to connect to RabbitMQ",
			zap.Int("attempt", i+1),
			zap.Int("max_attempts", maxRetries),
			zap.Duration("retry_delay", retryDelay),
			zap.Error(err),
		)
		time.Sleep(retryDelay)
	}
	return nil, err
}
