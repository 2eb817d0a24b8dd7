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
	OAuth    OAuthConfig
	JWT      JWTConfig
	Sync     SyncConfig
	Watch    WatchConfig
	Bot      BotConfig
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
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int
	MinConns    int
	AutoMigrate bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	Google GoogleOAuthConfig
}

// GoogleOAuthConfig holds Google OAuth configuration
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
}

// SyncConfig holds calendar sync engine configuration
type SyncConfig struct {
	WindowPastDays   int           // full-window fetch: days into the past
	WindowFutureDays int           // full-window fetch: days into the future
	FastInterval     time.Duration // active users
	NormalInterval   time.Duration
	SlowInterval     time.Duration // inactive, quiet calendars
	ActivityTimeout  time.Duration // how long a signal keeps a user "active"
	SlowThreshold    time.Duration // last sync older than this allows slow
	CreateDebounce   time.Duration // meeting_create trigger debounce
	ProviderTimeout  time.Duration // per-call timeout for provider requests
	LogRetention     time.Duration // sync log pruning age
}

// WatchConfig holds push notification channel configuration
type WatchConfig struct {
	WebhookURL       string // publicly reachable receiver URL
	TTL              time.Duration
	RenewalThreshold time.Duration
	RenewalInterval  time.Duration // how often the renewal sweep runs
}

// BotConfig holds meeting bot gateway configuration
type BotConfig struct {
	BaseURL string
	APIKey  string
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
			Host:        getEnv("DB_HOST", "localhost"),
			Port:        getEnv("DB_PORT", "5432"),
			User:        getEnv("DB_USER", "postgres"),
			Password:    getEnv("DB_PASSWORD", "postgres"),
			Name:        getEnv("DB_NAME", "meetsync"),
			SSLMode:     getEnv("DB_SSLMODE", "disable"),
			MaxConns:    getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:    getEnvAsInt("DB_MIN_CONNS", 5),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", false),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OAuth: OAuthConfig{
			Google: GoogleOAuthConfig{
				ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/v1/auth/google/callback"),
			},
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_ACCESS_SECRET", "your-access-secret-change-in-production"),
			AccessExpiry: getEnvAsDuration("JWT_ACCESS_EXPIRY", "24h"),
		},
		Sync: SyncConfig{
			WindowPastDays:   getEnvAsInt("SYNC_WINDOW_PAST_DAYS", 7),
			WindowFutureDays: getEnvAsInt("SYNC_WINDOW_FUTURE_DAYS", 60),
			FastInterval:     getEnvAsDuration("SYNC_FAST_INTERVAL", "2m"),
			NormalInterval:   getEnvAsDuration("SYNC_NORMAL_INTERVAL", "15m"),
			SlowInterval:     getEnvAsDuration("SYNC_SLOW_INTERVAL", "1h"),
			ActivityTimeout:  getEnvAsDuration("SYNC_ACTIVITY_TIMEOUT", "10m"),
			SlowThreshold:    getEnvAsDuration("SYNC_SLOW_THRESHOLD", "1h"),
			CreateDebounce:   getEnvAsDuration("SYNC_CREATE_DEBOUNCE", "30s"),
			ProviderTimeout:  getEnvAsDuration("SYNC_PROVIDER_TIMEOUT", "30s"),
			LogRetention:     getEnvAsDuration("SYNC_LOG_RETENTION", "720h"),
		},
		Watch: WatchConfig{
			WebhookURL:       getEnv("WATCH_WEBHOOK_URL", ""),
			TTL:              getEnvAsDuration("WATCH_TTL", "168h"),
			RenewalThreshold: getEnvAsDuration("WATCH_RENEWAL_THRESHOLD", "24h"),
			RenewalInterval:  getEnvAsDuration("WATCH_RENEWAL_INTERVAL", "1h"),
		},
		Bot: BotConfig{
			BaseURL: getEnv("BOT_GATEWAY_URL", ""),
			APIKey:  getEnv("BOT_GATEWAY_API_KEY", ""),
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
	if c.OAuth.Google.ClientID == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID is required")
	}
	if c.OAuth.Google.ClientSecret == "" {
		return fmt.Errorf("GOOGLE_CLIENT_SECRET is required")
	}
	if c.Sync.FastInterval <= 0 || c.Sync.NormalInterval <= 0 || c.Sync.SlowInterval <= 0 {
		return fmt.Errorf("sync intervals must be positive")
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
