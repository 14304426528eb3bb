package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Catalog   CatalogConfig
	Session   SessionConfig
	Favorites FavoritesConfig
	Auth      AuthConfig
	Redis     RedisConfig
	OTEL      OTELConfig
	Log       LogConfig
}

// CatalogConfig holds catalog service client configuration
type CatalogConfig struct {
	BaseURL          string
	RequestTimeout   time.Duration
	// ResultCacheSize is how many searches the session keeps in memory.
	// Leaving grid serves the full set from this cache; with 0 every return
	// from grid to swipe or map fetches the full set again.
	ResultCacheSize  int
	ResultCacheTTL   time.Duration
	SharedCacheTTL   time.Duration
	FetchAllPageSize int
}

// SessionConfig holds browse session behaviour
type SessionConfig struct {
	GridPageSize       int
	AnimationBudget    time.Duration
	ModeSwitchDebounce time.Duration
	TextDirection      string
	InitialViewMode    string
}

// FavoritesConfig holds favorites ledger configuration
type FavoritesConfig struct {
	MutationDeadline time.Duration
	SeedMaxAttempts  int
}

// AuthConfig holds the session credentials handed to the client
type AuthConfig struct {
	UserID       string
	SessionToken string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// LogConfig holds logger configuration
type LogConfig struct {
	Env   string
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Catalog: CatalogConfig{
			BaseURL:          getEnv("CATALOG_BASE_URL", "http://localhost:8080/api"),
			RequestTimeout:   getEnvAsDuration("CATALOG_REQUEST_TIMEOUT", 10*time.Second),
			ResultCacheSize:  getEnvAsInt("CATALOG_RESULT_CACHE_SIZE", 32),
			ResultCacheTTL:   getEnvAsDuration("CATALOG_RESULT_CACHE_TTL", 2*time.Minute),
			SharedCacheTTL:   getEnvAsDuration("CATALOG_SHARED_CACHE_TTL", 2*time.Minute),
			FetchAllPageSize: getEnvAsInt("CATALOG_FETCH_ALL_PAGE_SIZE", 500),
		},
		Session: SessionConfig{
			GridPageSize:       getEnvAsInt("SESSION_GRID_PAGE_SIZE", 9),
			AnimationBudget:    getEnvAsDuration("SESSION_ANIMATION_BUDGET", 300*time.Millisecond),
			ModeSwitchDebounce: getEnvAsDuration("SESSION_MODE_SWITCH_DEBOUNCE", 250*time.Millisecond),
			TextDirection:      getEnv("SESSION_TEXT_DIRECTION", "ltr"),
			InitialViewMode:    getEnv("SESSION_VIEW_MODE", "swipe"),
		},
		Favorites: FavoritesConfig{
			MutationDeadline: getEnvAsDuration("FAVORITES_MUTATION_DEADLINE", 10*time.Second),
			SeedMaxAttempts:  getEnvAsInt("FAVORITES_SEED_MAX_ATTEMPTS", 3),
		},
		Auth: AuthConfig{
			UserID:       getEnv("BROWSE_USER_ID", ""),
			SessionToken: getEnv("BROWSE_SESSION_TOKEN", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "provider-browser"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Log: LogConfig{
			Env:   getEnv("APP_ENV", "development"),
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the session cannot run with
func (c *Config) Validate() error {
	if c.Catalog.RequestTimeout <= 0 {
		return fmt.Errorf("CATALOG_REQUEST_TIMEOUT must be positive")
	}
	if c.Catalog.FetchAllPageSize <= 0 {
		return fmt.Errorf("CATALOG_FETCH_ALL_PAGE_SIZE must be positive")
	}
	if c.Session.GridPageSize <= 0 {
		return fmt.Errorf("SESSION_GRID_PAGE_SIZE must be positive")
	}
	if c.Favorites.MutationDeadline <= 0 {
		return fmt.Errorf("FAVORITES_MUTATION_DEADLINE must be positive")
	}
	switch c.Session.TextDirection {
	case "ltr", "rtl":
	default:
		return fmt.Errorf("SESSION_TEXT_DIRECTION must be ltr or rtl, got %q", c.Session.TextDirection)
	}
	return nil
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
