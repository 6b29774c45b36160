package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Cache    CacheConfig
	Events   EventsConfig
	Logging  LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Environment     string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
	ServerName      string
}

// DatabaseConfig holds postgres connection settings
type DatabaseConfig struct {
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	MigrationsPath     string
	AutoMigrate        bool
	ConnectRetries     int
	ConnectTimeout     time.Duration
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	// Driver is "postgres" or "memory"
	Driver string
}

// CacheConfig holds read-cache settings
type CacheConfig struct {
	// Provider is "memory", "redis" or "none"
	Provider      string
	TTL           time.Duration
	MaxKeys       int
	RedisURL      string
	RedisDB       int
	RedisPassword string
	PoolSize      int
	KeyPrefix     string
}

// EventsConfig holds event bus settings
type EventsConfig struct {
	BufferSize     int
	WorkerCount    int
	HandlerTimeout time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads .env files (outside production) and the environment.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load() // fallback to .env
		}
	}

	config := &Config{
		Server:   loadServerConfig(env),
		Database: loadDatabaseConfig(env),
		Store:    loadStoreConfig(),
		Cache:    loadCacheConfig(),
		Events:   loadEventsConfig(),
		Logging:  loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:            getEnv("PORT", "9000"),
		Environment:     env,
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
		ServerName:      getEnv("SERVER_NAME", "JourneyRewards"),
	}

	if env == "development" {
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 10*time.Second)
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	config := DatabaseConfig{
		URL:                getEnv("DATABASE_URL", ""),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		MigrationsPath:     getEnv("DB_MIGRATIONS_PATH", "./migrations"),
		AutoMigrate:        getBoolEnv("DB_AUTO_MIGRATE", env != "production"),
		ConnectRetries:     getIntEnv("DB_CONNECT_RETRIES", 5),
		ConnectTimeout:     getDurationEnv("DB_CONNECT_TIMEOUT", 10*time.Second),
	}

	if env == "production" {
		config.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", 50)
		config.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", 25)
	}

	return config
}

func loadStoreConfig() StoreConfig {
	driver := "postgres"
	if getEnv("DATABASE_URL", "") == "" {
		driver = "memory"
	}
	return StoreConfig{
		Driver: strings.ToLower(getEnv("STORE_DRIVER", driver)),
	}
}

func loadCacheConfig() CacheConfig {
	provider := "memory"
	if getEnv("REDIS_URL", "") != "" {
		provider = "redis"
	}
	return CacheConfig{
		Provider:      strings.ToLower(getEnv("CACHE_PROVIDER", provider)),
		TTL:           getDurationEnv("CACHE_TTL", 30*time.Second),
		MaxKeys:       getIntEnv("CACHE_MAX_KEYS", 10000),
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		PoolSize:      getIntEnv("REDIS_POOL_SIZE", 10),
		KeyPrefix:     getEnv("CACHE_KEY_PREFIX", "rewards:"),
	}
}

func loadEventsConfig() EventsConfig {
	return EventsConfig{
		BufferSize:     getIntEnv("EVENT_BUFFER_SIZE", 1000),
		WorkerCount:    getIntEnv("EVENT_WORKERS", 4),
		HandlerTimeout: getDurationEnv("EVENT_HANDLER_TIMEOUT", 10*time.Second),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Store.Validate(); err != nil {
		return fmt.Errorf("store config: %w", err)
	}
	if c.Store.Driver == "postgres" {
		if err := c.Database.Validate(); err != nil {
			return fmt.Errorf("database config: %w", err)
		}
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}
	if c.Events.WorkerCount < 1 {
		return fmt.Errorf("events config: worker count must be positive")
	}
	if c.Events.BufferSize < 1 {
		return fmt.Errorf("events config: buffer size must be positive")
	}
	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	port, err := strconv.Atoi(s.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("invalid port %q", s.Port)
	}
	if s.ReadTimeout <= 0 || s.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// Validate validates database configuration
func (d *DatabaseConfig) Validate() error {
	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := url.Parse(d.URL); err != nil {
		return fmt.Errorf("invalid DATABASE_URL: %w", err)
	}
	if d.MaxOpenConns < 1 {
		return fmt.Errorf("max open connections must be positive")
	}
	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("max idle connections (%d) exceeds max open connections (%d)", d.MaxIdleConns, d.MaxOpenConns)
	}
	return nil
}

// Validate validates the store driver
func (s *StoreConfig) Validate() error {
	switch s.Driver {
	case "postgres", "memory":
		return nil
	default:
		return fmt.Errorf("unknown store driver %q", s.Driver)
	}
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	switch c.Provider {
	case "memory", "none":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis cache")
		}
	default:
		return fmt.Errorf("unknown cache provider %q", c.Provider)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	return nil
}

// IsProduction reports whether the server runs in production
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	case "staging":
		return "debug"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	if env == "production" || env == "staging" {
		return "json"
	}
	return "console"
}
