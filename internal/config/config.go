package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the gymkhana progression service.
type Config struct {
	// Server settings
	Port     string `envconfig:"SERVER_PORT" default:"8083"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// PostgreSQL settings
	DBHost        string        `envconfig:"DB_HOST" required:"true"`
	DBPort        string        `envconfig:"DB_PORT" default:"5432"`
	DBUser        string        `envconfig:"DB_USER" required:"true"`
	DBName        string        `envconfig:"DB_NAME" required:"true"`
	DBSSLMode     string        `envconfig:"DB_SSL_MODE" default:"disable"`
	DBMaxConns    int           `envconfig:"DB_MAX_CONNECTIONS" default:"10"`
	DBIdleTimeout time.Duration `envconfig:"DB_MAX_IDLE_MINUTES" default:"5m"`
	// Secret field WITHOUT an envconfig tag, loaded from a secret file.
	DBPassword string

	// Redis settings (stage cache)
	RedisAddr     string        `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	StageCacheTTL time.Duration `envconfig:"STAGE_CACHE_TTL" default:"5m"`

	// RabbitMQ settings
	RabbitMQURL     string `envconfig:"RABBITMQ_URL" required:"true"`
	GameEventsQueue string `envconfig:"GAME_EVENTS_QUEUE" default:"game_events"`

	// Gameplay settings
	// ProximityRadiusMeters is how close (great-circle) a sample must be to the
	// current stage to count as arrived. Sensible values are 20-50m; the
	// default matches the radius the mobile client was tuned against.
	ProximityRadiusMeters float64 `envconfig:"PROXIMITY_RADIUS_METERS" default:"30"`
	CommentMinLength      int     `envconfig:"GAME_COMMENT_MIN_LENGTH" default:"3"`
	CommentMaxLength      int     `envconfig:"GAME_COMMENT_MAX_LENGTH" default:"280"`

	// Abandonment policy. Zero disables the sweeper entirely; sessions are
	// then only ever abandoned through the explicit endpoint.
	SessionAbandonAfter time.Duration `envconfig:"SESSION_ABANDON_AFTER" default:"0"`
	SweepInterval       time.Duration `envconfig:"SWEEP_INTERVAL" default:"10m"`

	// Secret field WITHOUT an envconfig tag (token verification in middleware).
	JWTSecret string
}

// GetDSN returns the PostgreSQL connection string.
func (c *Config) GetDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

// LoadConfig loads configuration from environment variables and secret files.
func LoadConfig() (*Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load gymkapp-server configuration: %w", err)
	}

	var loadErr error
	cfg.DBPassword, loadErr = readSecret("db_password")
	if loadErr != nil {
		return nil, loadErr
	}

	cfg.JWTSecret, loadErr = readSecret("jwt_secret")
	if loadErr != nil {
		return nil, loadErr
	}

	log.Printf("gymkapp-server configuration loaded (secrets from files):")
	log.Printf("  Port: %s", cfg.Port)
	log.Printf("  LogLevel: %s", cfg.LogLevel)
	log.Printf("  DB DSN: postgres://%s:***@%s:%s/%s?sslmode=%s", cfg.DBUser, cfg.DBHost, cfg.DBPort, cfg.DBName, cfg.DBSSLMode)
	log.Printf("  Redis Addr: %s (stage cache TTL %v)", cfg.RedisAddr, cfg.StageCacheTTL)
	log.Printf("  RabbitMQ URL: %s", cfg.RabbitMQURL)
	log.Printf("  Game Events Queue: %s", cfg.GameEventsQueue)
	log.Printf("  Proximity Radius: %.1fm", cfg.ProximityRadiusMeters)
	log.Printf("  Comment Length: %d..%d", cfg.CommentMinLength, cfg.CommentMaxLength)
	log.Printf("  Session Abandon After: %v (sweep every %v)", cfg.SessionAbandonAfter, cfg.SweepInterval)
	log.Println("  JWT Secret: [LOADED]")

	return &cfg, nil
}

// readSecret reads a secret from the standard Docker Secrets path.
func readSecret(secretName string) (string, error) {
	filePath := fmt.Sprintf("/run/secrets/%s", secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
