package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

func init() {
	// Load .env file if it exists (silent fail if not)
	_ = godotenv.Load()
}

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	App       AppConfig
	Cache     CacheConfig
	Store     StoreConfig
	Upstream  UpstreamConfig
	Sync      SyncConfig
	Ledger    LedgerConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"cosmetics-shop-api"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Debug       bool   `envconfig:"APP_DEBUG" default:"false"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	// MaxEntries caps the memory cache; ignored for redis.
	MaxEntries int `envconfig:"CACHE_MAX_ENTRIES" default:"10000"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"cosmetics"`
}

// StoreConfig holds relational store settings.
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"sqlite"` // sqlite, postgres, pgx or mysql
	Path   string `envconfig:"STORE_PATH" default:"./data/cosmetics.db"`
	// Server engines
	Host     string `envconfig:"STORE_HOST" default:"localhost"`
	Port     int    `envconfig:"STORE_PORT" default:"5432"`
	Name     string `envconfig:"STORE_NAME" default:"cosmetics"`
	User     string `envconfig:"STORE_USER" default:"postgres"`
	Password string `envconfig:"STORE_PASS" default:""`
	SSLMode  string `envconfig:"STORE_SSLMODE" default:"disable"`
}

// UpstreamConfig holds catalog API settings.
type UpstreamConfig struct {
	BaseURL  string        `envconfig:"UPSTREAM_BASE_URL" default:"https://fortnite-api.com/v2"`
	APIKey   string        `envconfig:"UPSTREAM_API_KEY" default:""`
	Language string        `envconfig:"UPSTREAM_LANGUAGE" default:""`
	Timeout  time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
}

// SyncConfig holds scheduler settings.
type SyncConfig struct {
	Enabled      bool          `envconfig:"SYNC_ENABLED" default:"true"`
	Interval     time.Duration `envconfig:"SYNC_INTERVAL" default:"1h"`
	StartupDelay time.Duration `envconfig:"SYNC_STARTUP_DELAY" default:"10s"`
	CycleTimeout time.Duration `envconfig:"SYNC_CYCLE_TIMEOUT" default:"5m"`
}

// LedgerConfig holds purchase ledger settings.
type LedgerConfig struct {
	StartingBalance int `envconfig:"STARTING_BALANCE" default:"10000"`
}

// AuthConfig holds access token settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" default:"change-me"`
	Issuer    string        `envconfig:"JWT_ISSUER" default:"cosmetics-shop-api"`
	TokenTTL  time.Duration `envconfig:"JWT_TTL" default:"1h"`
}

// RateLimitConfig holds per-client request limits.
type RateLimitConfig struct {
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// DSN returns the data source name for the configured driver.
func (s *StoreConfig) DSN() string {
	switch s.Driver {
	case "postgres", "postgresql", "pgx":
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			s.User, s.Password, s.Host, s.Port, s.Name, s.SSLMode)
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			s.User, s.Password, s.Host, s.Port, s.Name)
	default:
		return s.Path
	}
}

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsDevelopment returns true if running in development mode.
func (a *AppConfig) IsDevelopment() bool {
	return a.Environment == "development"
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	if c.Ledger.StartingBalance < 0 {
		return fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("SYNC_INTERVAL must be positive")
	}
	if c.App.IsProduction() && c.Auth.JWTSecret == "change-me" {
		return fmt.Errorf("JWT_SECRET must be set in production")
	}
	return nil
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration or panics on error.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}
