// Package store maps blog posts, events and gallery images onto a relational
// database (SQLite by default, PostgreSQL optionally) through database/sql.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Config selects and tunes the database connection.
type Config struct {
	Driver          string        // "sqlite" (default) or "postgres"
	DSN             string        // SQLite file path or postgres connection string
	Retries         int           // additional attempts for transient failures
	RetryDelay      time.Duration // backoff step; attempt n waits n*RetryDelay
	MaxOpenConns    int           // default 10
	ConnMaxIdleTime time.Duration // default 60s
}

func (c *Config) setDefaults() {
	if c.Driver == "" {
		c.Driver = string(DialectSQLite)
	}
	if c.DSN == "" && c.Driver == string(DialectSQLite) {
		c.DSN = "data/sitecms.db"
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = time.Second
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 10
	}
	if c.ConnMaxIdleTime == 0 {
		c.ConnMaxIdleTime = 60 * time.Second
	}
}

// Store is the explicit handle to the connection pool. Create one at startup
// with Open and release it with Close.
type Store struct {
	db      *sql.DB
	dialect Dialect
	exec    *Executor
	log     *zap.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for retries and rollbacks.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.log = l
	}
}

// WithRetryCounter counts retried query attempts.
func WithRetryCounter(c prometheus.Counter) Option {
	return func(s *Store) {
		s.exec.retried = c
	}
}

// WithClock overrides the time source for timestamps and ids.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open connects to the database, verifies the connection and ensures the
// schema exists.
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	cfg.setDefaults()

	var dialect Dialect
	dsn := cfg.DSN
	switch cfg.Driver {
	case string(DialectSQLite):
		dialect = DialectSQLite
		if dsn != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
				return nil, fmt.Errorf("create data dir: %w", err)
			}
		}
		dsn = sqliteDSN(dsn)
	case string(DialectPostgres):
		dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := sql.Open(string(dialect), dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	s := &Store{
		db:      db,
		dialect: dialect,
		log:     zap.NewNop(),
		now:     time.Now,
	}
	s.exec = &Executor{
		db:      db,
		dialect: dialect,
		retries: cfg.Retries,
		delay:   cfg.RetryDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.exec.log = s.log

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	return s, nil
}

// sqliteDSN enables WAL, sets a busy timeout on every pooled connection and
// makes transactions take the write lock up front, so concurrent reorders
// wait instead of failing with SQLITE_BUSY.
func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_txlock=immediate"
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Executor exposes the retrying executor.
func (s *Store) Executor() *Executor {
	return s.exec
}

// Dialect reports which database the store talks to.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

func (s *Store) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS blog_posts (
    id TEXT PRIMARY KEY,
    title_en TEXT NOT NULL,
    title_fa TEXT NOT NULL,
    description_en TEXT NOT NULL,
    description_fa TEXT NOT NULL,
    content_en TEXT NOT NULL DEFAULT '',
    content_fa TEXT NOT NULL DEFAULT '',
    category TEXT NOT NULL,
    publish_date TEXT NOT NULL,
    author_en TEXT NOT NULL DEFAULT '',
    author_fa TEXT NOT NULL DEFAULT '',
    main_image TEXT NOT NULL DEFAULT '',
    images TEXT NOT NULL DEFAULT '[]',
    featured INTEGER NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blog_posts_publish_date ON blog_posts(publish_date);
CREATE INDEX IF NOT EXISTS idx_blog_posts_category ON blog_posts(category);

CREATE TABLE IF NOT EXISTS events (
    id TEXT PRIMARY KEY,
    title_en TEXT NOT NULL,
    title_fa TEXT NOT NULL,
    message_en TEXT NOT NULL,
    message_fa TEXT NOT NULL,
    type TEXT NOT NULL,
    start_date TEXT NOT NULL,
    end_date TEXT NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    link TEXT NOT NULL DEFAULT '',
    icon TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL DEFAULT '',
    priority INTEGER NOT NULL DEFAULT 0,
    click_count BIGINT NOT NULL DEFAULT 0,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_events_window ON events(is_active, start_date, end_date);

CREATE TABLE IF NOT EXISTS gallery_images (
    id TEXT PRIMARY KEY,
    title_en TEXT NOT NULL,
    title_fa TEXT NOT NULL,
    description_en TEXT NOT NULL DEFAULT '',
    description_fa TEXT NOT NULL DEFAULT '',
    image TEXT NOT NULL,
    display_order INTEGER NOT NULL,
    is_active INTEGER NOT NULL DEFAULT 1,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_gallery_images_order ON gallery_images(display_order);
`)
	return err
}
