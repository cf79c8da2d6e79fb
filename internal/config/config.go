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
	Server     ServerConfig
	App        AppConfig
	Log        LogConfig
	Economy    EconomyConfig
	Store      StoreConfig
	Cache      CacheConfig
	Checkpoint CheckpointConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port            int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Name        string `envconfig:"APP_NAME" default:"fishbot-economy"`
	Environment string `envconfig:"APP_ENV" default:"development"`
	Version     string `envconfig:"APP_VERSION" default:"1.0.0"`
	LoginKey    string `envconfig:"LOGIN_KEY" default:""` // Admin endpoints key
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `envconfig:"LOG_LEVEL" default:"info"`
	Format string `envconfig:"LOG_FORMAT" default:"text"` // text or json
}

// EconomyConfig holds the game rules.
type EconomyConfig struct {
	DailyReward     int64         `envconfig:"ECONOMY_DAILY_REWARD" default:"100"`
	DailyCooldown   time.Duration `envconfig:"ECONOMY_DAILY_COOLDOWN" default:"12h"`
	SellPricePolicy string        `envconfig:"ECONOMY_SELL_PRICE_POLICY" default:"current"` // current or purchase
	FlushTimeout    time.Duration `envconfig:"ECONOMY_FLUSH_TIMEOUT" default:"10s"`
}

// StoreConfig holds durable snapshot storage settings.
type StoreConfig struct {
	Type string `envconfig:"STORE_TYPE" default:"file"` // file, sqlite, postgres, mysql or memory
	Dir  string `envconfig:"STORE_DIR" default:"./data"`
	Path string `envconfig:"STORE_SQLITE_PATH" default:"./data/economy.db"`
	// PostgreSQL settings
	PostgresHost     string `envconfig:"STORE_PG_HOST" default:"localhost"`
	PostgresPort     int    `envconfig:"STORE_PG_PORT" default:"5432"`
	PostgresName     string `envconfig:"STORE_PG_NAME" default:"fishbot"`
	PostgresUser     string `envconfig:"STORE_PG_USER" default:"postgres"`
	PostgresPassword string `envconfig:"STORE_PG_PASS" default:""`
	PostgresSSLMode  string `envconfig:"STORE_PG_SSLMODE" default:"disable"`
	// MySQL settings
	MySQLHost     string `envconfig:"STORE_MYSQL_HOST" default:"localhost"`
	MySQLPort     int    `envconfig:"STORE_MYSQL_PORT" default:"3306"`
	MySQLName     string `envconfig:"STORE_MYSQL_NAME" default:"fishbot"`
	MySQLUser     string `envconfig:"STORE_MYSQL_USER" default:"root"`
	MySQLPassword string `envconfig:"STORE_MYSQL_PASS" default:""`
}

// CacheConfig holds the write-behind buffer settings.
type CacheConfig struct {
	Type          string        `envconfig:"CACHE_TYPE" default:"none"` // none, memory or redis
	RedisHost     string        `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int           `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string        `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int           `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix     string        `envconfig:"REDIS_KEY_PREFIX" default:"fishbot:economy"`
	FlushInterval time.Duration `envconfig:"CACHE_FLUSH_INTERVAL" default:"30s"`
}

// CheckpointConfig controls the periodic full snapshot job. Zero disables it.
type CheckpointConfig struct {
	Interval time.Duration `envconfig:"CHECKPOINT_INTERVAL" default:"5m"`
	Timeout  time.Duration `envconfig:"CHECKPOINT_TIMEOUT" default:"1m"`
}

// PostgresDSN returns the PostgreSQL connection string.
func (s *StoreConfig) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.PostgresUser, s.PostgresPassword, s.PostgresHost, s.PostgresPort, s.PostgresName, s.PostgresSSLMode)
}

// MySQLDSN returns the MySQL data source name.
func (s *StoreConfig) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		s.MySQLUser, s.MySQLPassword, s.MySQLHost, s.MySQLPort, s.MySQLName)
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

// Validate checks values envconfig cannot express with tags.
func (c *Config) Validate() error {
	if c.Economy.DailyReward < 0 {
		return fmt.Errorf("ECONOMY_DAILY_REWARD must be non-negative, got %d", c.Economy.DailyReward)
	}
	if c.Economy.DailyCooldown <= 0 {
		return fmt.Errorf("ECONOMY_DAILY_COOLDOWN must be positive, got %s", c.Economy.DailyCooldown)
	}
	switch c.Economy.SellPricePolicy {
	case "current", "purchase":
	default:
		return fmt.Errorf("ECONOMY_SELL_PRICE_POLICY must be current or purchase, got %q", c.Economy.SellPricePolicy)
	}
	switch c.Store.Type {
	case "file", "sqlite", "postgres", "postgresql", "mysql", "memory":
	default:
		return fmt.Errorf("STORE_TYPE %q is not supported", c.Store.Type)
	}
	switch c.Cache.Type {
	case "none", "memory", "redis":
	default:
		return fmt.Errorf("CACHE_TYPE %q is not supported", c.Cache.Type)
	}
	if c.Cache.Type != "none" && c.Cache.FlushInterval <= 0 {
		return fmt.Errorf("CACHE_FLUSH_INTERVAL must be positive, got %s", c.Cache.FlushInterval)
	}
	if c.Checkpoint.Interval < 0 {
		return fmt.Errorf("CHECKPOINT_INTERVAL must be non-negative, got %s", c.Checkpoint.Interval)
	}
	return nil
}

// Buffered reports whether a write-behind buffer sits in front of the store.
func (c *CacheConfig) Buffered() bool {
	return c.Type == "memory" || c.Type == "redis"
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
