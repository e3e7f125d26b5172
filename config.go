package sitecms

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eringen/sitecms/observability"
)

// Config holds all configuration for a sitecms server. LoadConfig fills it
// from SITECMS_* environment variables; zero values left by a hand-built
// Config get the same defaults from setDefaults.
type Config struct {
	Name        string `env:"SITE_NAME" envDefault:"Site"`                    // Site name for RSS
	URL         string `env:"SITE_URL" envDefault:"http://localhost:3000"`    // Canonical URL
	Description string `env:"SITE_DESCRIPTION"`                               // RSS channel description
	Addr        string `env:"ADDR" envDefault:":3000"`                        // Listen address
	Dev         bool   `env:"DEV"`                                            // Console logging

	DBDriver     string        `env:"DB_DRIVER" envDefault:"sqlite"`         // sqlite or postgres
	DBDSN        string        `env:"DB_DSN" envDefault:"data/sitecms.db"`   // SQLite path or postgres DSN
	QueryRetries int           `env:"QUERY_RETRIES" envDefault:"2"`          // Extra attempts on transient errors
	RetryDelay   time.Duration `env:"RETRY_DELAY" envDefault:"1s"`           // Linear backoff step

	StorageDir        string        `env:"STORAGE_DIR" envDefault:"data/storage"`
	TempRetentionDays int           `env:"TEMP_RETENTION_DAYS" envDefault:"1"`
	CleanupInterval   time.Duration `env:"CLEANUP_INTERVAL" envDefault:"6h"` // 0 disables the sweep

	AdminPassword string `env:"ADMIN_PASSWORD"` // Empty disables admin login
	SessionSecret string `env:"SESSION_SECRET"` // Random per process when empty
	CookieSecure  bool   `env:"COOKIE_SECURE"`  // Set true for HTTPS

	FeedCacheTTL  time.Duration `env:"FEED_CACHE_TTL" envDefault:"5m"`
	StatusTimeout time.Duration `env:"STATUS_TIMEOUT" envDefault:"3s"`
	BodyLimit     string        `env:"BODY_LIMIT" envDefault:"15M"`
}

// LoadConfig reads an optional .env file and then the environment.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("sitecms: load .env: %w", err)
	}
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: "SITECMS_"})
	if err != nil {
		return Config{}, fmt.Errorf("sitecms: parse env: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.Name == "" {
		c.Name = "Site"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DBDriver == "" {
		c.DBDriver = "sqlite"
	}
	if c.DBDSN == "" {
		c.DBDSN = "data/sitecms.db"
	}
	if c.QueryRetries < 0 {
		c.QueryRetries = 0
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.StorageDir == "" {
		c.StorageDir = "data/storage"
	}
	if c.TempRetentionDays <= 0 {
		c.TempRetentionDays = 1
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 5 * time.Minute
	}
	if c.StatusTimeout == 0 {
		c.StatusTimeout = 3 * time.Second
	}
	if c.BodyLimit == "" {
		c.BodyLimit = "15M"
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithLogger sets the logger used by the server, store and storage shim.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		a.Log = l
	}
}

// WithMetrics uses m instead of a fresh registry.
func WithMetrics(m *observability.Metrics) Option {
	return func(a *App) {
		a.Metrics = m
	}
}

// WithClock overrides the time source for ids, timestamps and the active
// event window.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes during Setup.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}
