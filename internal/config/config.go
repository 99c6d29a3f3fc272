package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	GoEnv string `env:"GO_ENV" envDefault:"development"`

	// Service Ports
	HTTPPort int `env:"HTTP_PORT" envDefault:"3000"`

	// Database
	DatabaseURL        string        `env:"DATABASE_URL,required"`
	MigrationPath      string        `env:"MIGRATION_PATH"`
	DBMaxOpenConns     int           `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns     int           `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`
	DBConnMaxIdleTime  time.Duration `env:"DB_CONN_MAX_IDLE_TIME" envDefault:"30s"`
	DBAcquireTimeout   time.Duration `env:"DB_ACQUIRE_TIMEOUT" envDefault:"10s"`
	DBStatementTimeout time.Duration `env:"DB_STATEMENT_TIMEOUT" envDefault:"10s"`

	// Sessions
	SessionSecret string        `env:"SESSION_SECRET,required"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	SessionCookie string        `env:"SESSION_COOKIE" envDefault:"kaimaku_session"`

	// Redis Cache
	RedisURL       string        `env:"REDIS_URL"`
	SearchCacheTTL time.Duration `env:"SEARCH_CACHE_TTL" envDefault:"10m"`

	// External APIs
	AnimeThemesAPIURL   string `env:"ANIMETHEMES_API_URL" envDefault:"https://api.animethemes.moe"`
	AnimeThemesMediaURL string `env:"ANIMETHEMES_MEDIA_URL" envDefault:"https://animethemes.moe"`

	// Search and abuse limits
	SearchPageSize int           `env:"SEARCH_PAGE_SIZE" envDefault:"100"`
	SearchMaxPages int           `env:"SEARCH_MAX_PAGES" envDefault:"5"`
	SearchCooldown time.Duration `env:"SEARCH_COOLDOWN" envDefault:"1s"`
	SearchTimeout  time.Duration `env:"SEARCH_TIMEOUT" envDefault:"45s"`
	RatingCooldown time.Duration `env:"RATING_COOLDOWN" envDefault:"500ms"`
	CaptchaMaxAge  time.Duration `env:"CAPTCHA_MAX_AGE" envDefault:"10m"`

	// Monitoring
	PrometheusEnabled bool `env:"PROMETHEUS_ENABLED" envDefault:"false"`

	// Development
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string   `env:"LOG_FORMAT" envDefault:"text"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
}

// LoadConfig reads .env when present, then the process environment.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		fmt.Printf("Warning: could not read .env file: %v\n", err)
	}
	return parse(env.Options{})
}

// FromMap builds a Config from an explicit environment, ignoring the
// process environment.
func FromMap(environ map[string]string) (*Config, error) {
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}
	for i, o := range cfg.AllowedOrigins {
		cfg.AllowedOrigins[i] = strings.TrimSpace(o)
	}
	return cfg, nil
}

// Validate performs validation on the loaded configuration
func (c *Config) Validate() error {
	var errors []string

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		errors = append(errors, "HTTP_PORT must be between 1 and 65535")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		errors = append(errors, fmt.Sprintf("LOG_LEVEL must be one of: %s", strings.Join(validLogLevels, ", ")))
	}

	validLogFormats := []string{"text", "json"}
	if !slices.Contains(validLogFormats, c.LogFormat) {
		errors = append(errors, fmt.Sprintf("LOG_FORMAT must be one of: %s", strings.Join(validLogFormats, ", ")))
	}

	// HS256 keys shorter than the hash output weaken the signature
	if len(c.SessionSecret) < 32 {
		errors = append(errors, "SESSION_SECRET should be at least 32 characters long")
	}

	if c.SearchPageSize < 1 {
		errors = append(errors, "SEARCH_PAGE_SIZE must be positive")
	}
	if c.SearchMaxPages < 1 {
		errors = append(errors, "SEARCH_MAX_PAGES must be positive")
	}
	if c.SearchTimeout <= 0 {
		errors = append(errors, "SEARCH_TIMEOUT must be positive")
	}
	if c.DBMaxOpenConns < 1 {
		errors = append(errors, "DB_MAX_OPEN_CONNS must be positive")
	}
	if c.SessionTTL <= 0 {
		errors = append(errors, "SESSION_TTL must be positive")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errors, "; "))
	}

	return nil
}

// IsDevelopment returns true if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.GoEnv == "development"
}

// IsProduction returns true if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.GoEnv == "production"
}

// NewLogger builds the process logger: JSON in production or when
// LOG_FORMAT=json, text otherwise.
func (c *Config) NewLogger() *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if c.LogFormat == "json" || c.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	return slog.New(handler).With(slog.String("app", "kaimaku"))
}
