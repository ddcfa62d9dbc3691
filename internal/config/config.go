package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Store selects the record store backend
	Store StoreConfig

	// Database configuration (postgres store)
	Database DatabaseConfig

	// Mongo configuration (mongo store)
	Mongo MongoConfig

	// Auth configuration
	Auth AuthConfig

	// Engagement toggle configuration
	Engagement EngagementConfig

	// Comment thread configuration
	Comments CommentsConfig

	// Logging configuration
	Log LogConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string
}

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
)

// StoreConfig holds the record store selection
type StoreConfig struct {
	Driver string // "postgres" or "mongo"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	SSLMode        string
	MaxOpenConns   int
	MaxIdleConns   int
	MaxLifetime    time.Duration
	MigrationsPath string
}

// MongoConfig holds MongoDB connection settings
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// AuthConfig holds bearer token verification settings
type AuthConfig struct {
	JWTSecret string
	AdminRole string
}

// EngagementConfig bounds the optimistic retry loop of the toggle
type EngagementConfig struct {
	MaxRetries   int
	RetryBackoff time.Duration
	MaxBackoff   time.Duration
}

// CommentsConfig bounds comment content and tree materialization
type CommentsConfig struct {
	MaxLength    int
	DefaultDepth int
	MaxDepth     int
	MaxFanout    int
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string // "json" or "pretty"
}

// Load reads configuration from an optional .env file and environment
// variables. Variables already set in the environment win over the file.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RequestTimeout:  getDurationEnv("REQUEST_TIMEOUT", 5*time.Second),
			AllowedOrigins:  getListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", StoreDriverPostgres),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			Name:           getEnv("DB_NAME", "blog_engagement"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:   getIntEnv("DB_MAX_IDLE_CONNS", 5),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", 5*time.Minute),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Mongo: MongoConfig{
			URI:            getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGO_DATABASE", "blog_engagement"),
			ConnectTimeout: getDurationEnv("MONGO_CONNECT_TIMEOUT", 10*time.Second),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
			AdminRole: getEnv("AUTH_ADMIN_ROLE", "admin"),
		},
		Engagement: EngagementConfig{
			MaxRetries:   getIntEnv("ENGAGEMENT_MAX_RETRIES", 5),
			RetryBackoff: getDurationEnv("ENGAGEMENT_RETRY_BACKOFF", 10*time.Millisecond),
			MaxBackoff:   getDurationEnv("ENGAGEMENT_MAX_BACKOFF", 250*time.Millisecond),
		},
		Comments: CommentsConfig{
			MaxLength:    getIntEnv("COMMENT_MAX_LENGTH", 500),
			DefaultDepth: getIntEnv("COMMENT_DEFAULT_DEPTH", 1),
			MaxDepth:     getIntEnv("COMMENT_MAX_DEPTH", 8),
			MaxFanout:    getIntEnv("COMMENT_MAX_FANOUT", 200),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate required configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.Database.Host == "" {
			return fmt.Errorf("DB_HOST is required")
		}
		if c.Database.Name == "" {
			return fmt.Errorf("DB_NAME is required")
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("MONGO_URI is required")
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("MONGO_DATABASE is required")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of: postgres, mongo")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Engagement.MaxRetries < 0 {
		return fmt.Errorf("ENGAGEMENT_MAX_RETRIES must not be negative")
	}
	if c.Comments.MaxLength <= 0 {
		return fmt.Errorf("COMMENT_MAX_LENGTH must be positive")
	}
	if c.Comments.MaxDepth < 0 || c.Comments.DefaultDepth < 0 {
		return fmt.Errorf("comment depths must not be negative")
	}
	if c.Comments.DefaultDepth > c.Comments.MaxDepth {
		return fmt.Errorf("COMMENT_DEFAULT_DEPTH must not exceed COMMENT_MAX_DEPTH")
	}
	if c.Comments.MaxFanout <= 0 {
		return fmt.Errorf("COMMENT_MAX_FANOUT must be positive")
	}
	return nil
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
