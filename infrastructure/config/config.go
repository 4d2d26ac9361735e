package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	ServerAddress string
	Environment   string

	// AWS configuration
	AWSRegion        string
	ProfilesTable    string
	ConnectionsTable string
	RoomsTable       string
	MessagesTable    string
	SessionsTable    string
	User1IndexName   string // GSI on uid1 - connection/room queries by first participant
	User2IndexName   string // GSI on uid2 - connection/room queries by second participant
	SessionIndexName string // GSI on uid - live session lookups
	EventBusName     string

	// Lambda configuration
	IsLambda           bool
	LambdaFunctionName string

	// WebSocket configuration
	WebSocketEndpoint string

	// Matching configuration
	DefaultMatchLimit     int
	DefaultMatchThreshold float64

	// Embeddings (OpenAI-compatible endpoint)
	OpenAIAPIKey   string
	EmbeddingModel string

	// Summaries (OpenRouter)
	OpenRouterAPIKey  string
	OpenRouterBaseURL string
	SummaryModel      string

	// Push notifications (FCM v1)
	FCMProjectID           string
	FCMServiceAccountEmail string
	FCMPrivateKeyPEM       string

	// Logging
	LogLevel string

	// Authentication
	JWTSecret string
	JWTIssuer string

	// Feature flags
	EnableMetrics bool
	EnableCORS    bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),

		AWSRegion:        getEnv("AWS_REGION", "us-west-2"),
		ProfilesTable:    getEnv("PROFILES_TABLE", "knkt-profiles"),
		ConnectionsTable: getEnv("CONNECTIONS_TABLE", "knkt-connections"),
		RoomsTable:       getEnv("ROOMS_TABLE", "knkt-rooms"),
		MessagesTable:    getEnv("MESSAGES_TABLE", "knkt-messages"),
		SessionsTable:    getEnv("SESSIONS_TABLE", "knkt-sessions"),
		User1IndexName:   getEnv("USER1_INDEX_NAME", "User1Index"),
		User2IndexName:   getEnv("USER2_INDEX_NAME", "User2Index"),
		SessionIndexName: getEnv("SESSION_INDEX_NAME", "UserIndex"),
		EventBusName:     getEnv("EVENT_BUS_NAME", "knkt-events"),

		// Lambda configuration
		IsLambda:           getEnvBool("IS_LAMBDA", false),
		LambdaFunctionName: getEnv("AWS_LAMBDA_FUNCTION_NAME", ""),

		// WebSocket configuration
		WebSocketEndpoint: getEnv("WEBSOCKET_ENDPOINT", ""),

		// Matching
		DefaultMatchLimit:     getEnvInt("MATCH_LIMIT", 20),
		DefaultMatchThreshold: getEnvFloat("MATCH_THRESHOLD", 0.0),

		// Embeddings
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		EmbeddingModel: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),

		// Summaries
		OpenRouterAPIKey:  getEnv("OPENROUTER_API_KEY", ""),
		OpenRouterBaseURL: getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
		SummaryModel:      getEnv("SUMMARY_MODEL", "anthropic/claude-3.5-haiku"),

		// Push notifications
		FCMProjectID:           getEnv("FCM_PROJECT_ID", ""),
		FCMServiceAccountEmail: getEnv("FCM_CLIENT_EMAIL", ""),
		FCMPrivateKeyPEM:       getEnv("FCM_PRIVATE_KEY", ""),

		// Authentication
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "knkt-backend"),

		// Logging and features
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		EnableMetrics: getEnvBool("ENABLE_METRICS", false),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Load is an alias for LoadConfig
func Load() (*Config, error) {
	return LoadConfig()
}

// Validate checks if all required configuration is present
func (c *Config) Validate() error {
	if c.DefaultMatchThreshold < 0 || c.DefaultMatchThreshold > 1 {
		return fmt.Errorf("MATCH_THRESHOLD must be between 0 and 1")
	}
	if c.DefaultMatchLimit <= 0 {
		return fmt.Errorf("MATCH_LIMIT must be positive")
	}

	if c.Environment == "production" {
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required in production")
		}
		if c.ProfilesTable == "" {
			return fmt.Errorf("PROFILES_TABLE is required")
		}
		if c.ConnectionsTable == "" {
			return fmt.Errorf("CONNECTIONS_TABLE is required")
		}
		if c.EventBusName == "" {
			return fmt.Errorf("EVENT_BUS_NAME is required")
		}
	}

	return nil
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable with a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable with a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
