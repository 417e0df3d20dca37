package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Webhook  WebhookConfig
	Queue    QueueConfig
	AI       AIConfig
	Vector   VectorConfig
	Graph    GraphConfig
	Email    EmailConfig
	Storage  StorageConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Host            string
	Environment     string
	AllowedOrigins  []string
	ShutdownTimeout int
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// WebhookConfig holds the bot webhook ingress configuration.
// Secret may be empty: the ingress then runs unauthenticated with a loud
// warning instead of refusing to start.
type WebhookConfig struct {
	Secret string
}

// QueueConfig holds the durable processing queue configuration.
type QueueConfig struct {
	Name              string
	DispatchSecret    string
	WorkerURL         string
	MaxRetries        int
	VisibilityTimeout time.Duration
	PollInterval      time.Duration
	Concurrency       int
}

// AIConfig holds the LLM provider configuration (OpenAI-compatible API).
type AIConfig struct {
	APIKey          string
	BaseURL         string
	CompletionModel string
	EmbeddingModel  string
	Timeout         time.Duration
}

// VectorConfig holds the vector store configuration.
type VectorConfig struct {
	BaseURL   string
	APIKey    string
	Namespace string
	Dimension int
}

// GraphConfig holds the graph store (Neo4j HTTP API) configuration.
type GraphConfig struct {
	BaseURL  string
	Database string
	User     string
	Password string
}

// EmailConfig holds the mail API configuration.
type EmailConfig struct {
	BaseURL string
	APIKey  string
	From    string
}

// StorageConfig holds recording archive storage configuration.
type StorageConfig struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	UseSSL          bool
	PublicURL       string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables or defaults")
	}

	config := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "8080"),
			Host:            getEnv("HOST", "0.0.0.0"),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  []string{getEnv("ALLOWED_ORIGINS", "http://localhost:3000")},
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 10),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "meeting_insight"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Webhook: WebhookConfig{
			Secret: getEnv("MEETING_BOT_WEBHOOK_SECRET", ""),
		},
		Queue: QueueConfig{
			Name:              getEnv("QUEUE_NAME", "meeting:process"),
			DispatchSecret:    getEnv("QUEUE_DISPATCH_SECRET", ""),
			WorkerURL:         getEnv("QUEUE_WORKER_URL", "http://localhost:8080/internal/queue/process-meeting"),
			MaxRetries:        getEnvAsInt("QUEUE_MAX_RETRIES", 3),
			VisibilityTimeout: getEnvAsDuration("QUEUE_VISIBILITY_TIMEOUT", "300s"),
			PollInterval:      getEnvAsDuration("QUEUE_POLL_INTERVAL", "2s"),
			Concurrency:       getEnvAsInt("QUEUE_CONCURRENCY", 2),
		},
		AI: AIConfig{
			APIKey:          getEnv("AI_API_KEY", ""),
			BaseURL:         getEnv("AI_BASE_URL", "https://api.openai.com/v1"),
			CompletionModel: getEnv("AI_COMPLETION_MODEL", "gpt-4o-mini"),
			EmbeddingModel:  getEnv("AI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Timeout:         getEnvAsDuration("AI_TIMEOUT", "30s"),
		},
		Vector: VectorConfig{
			BaseURL:   getEnv("VECTOR_BASE_URL", ""),
			APIKey:    getEnv("VECTOR_API_KEY", ""),
			Namespace: getEnv("VECTOR_NAMESPACE", "meetings"),
			Dimension: getEnvAsInt("VECTOR_DIMENSION", 1536),
		},
		Graph: GraphConfig{
			BaseURL:  getEnv("GRAPH_BASE_URL", "http://localhost:7474"),
			Database: getEnv("GRAPH_DATABASE", "neo4j"),
			User:     getEnv("GRAPH_USER", "neo4j"),
			Password: getEnv("GRAPH_PASSWORD", ""),
		},
		Email: EmailConfig{
			BaseURL: getEnv("EMAIL_BASE_URL", "https://api.resend.com"),
			APIKey:  getEnv("EMAIL_API_KEY", ""),
			From:    getEnv("EMAIL_FROM", "notifications@meeting-insight.dev"),
		},
		Storage: StorageConfig{
			Endpoint:        getEnv("STORAGE_ENDPOINT", "localhost:9000"),
			AccessKeyID:     getEnv("STORAGE_ACCESS_KEY", "minioadmin"),
			SecretAccessKey: getEnv("STORAGE_SECRET_KEY", "minioadmin"),
			BucketName:      getEnv("STORAGE_BUCKET", "meeting-recordings"),
			UseSSL:          getEnvAsBool("STORAGE_USE_SSL", false),
			PublicURL:       getEnv("STORAGE_PUBLIC_URL", ""),
		},
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Queue.MaxRetries < 0 {
		return fmt.Errorf("QUEUE_MAX_RETRIES must not be negative")
	}
	if c.Queue.WorkerURL == "" {
		return fmt.Errorf("QUEUE_WORKER_URL is required")
	}
	if c.Queue.Concurrency < 1 {
		return fmt.Errorf("QUEUE_CONCURRENCY must be at least 1")
	}
	return nil
}

// GetDatabaseDSN returns the database connection string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// GetRedisAddr returns the Redis address
func (c *Config) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Redis.Host, c.Redis.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}
