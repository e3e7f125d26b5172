// Package sitecms is the backend of a bilingual (English/Farsi) marketing
// site: blog posts, time-bounded events and a manually ordered gallery, each
// with JSON CRUD endpoints, plus a filesystem image store, a status probe,
// storage administration, RSS and a sitemap.
package sitecms

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/sitecms/blob"
	"github.com/eringen/sitecms/observability"
	"github.com/eringen/sitecms/store"
)

// App is the central sitecms application. It wires together the store, the
// storage shim, the feed cache, handlers and middleware.
type App struct {
	Config  Config
	Echo    *echo.Echo
	Store   *store.Store
	Storage *blob.Storage
	Feeds   *FeedCache
	Log     *zap.Logger
	Metrics *observability.Metrics

	loginLimiter *Limiter
	clickLimiter *Limiter
	stopCleanup  func()
	customRoutes []func(*App)
	now          func() time.Time
	ready        bool
}

// New creates an App with the given configuration. Nothing is opened until
// Setup or Start.
func New(cfg Config, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config: cfg,
		Echo:   e,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = zap.NewNop()
	}
	return a
}

// Setup opens the database and storage, then registers middleware and
// routes. Start calls it; tests call it directly and drive a.Echo.
func (a *App) Setup(ctx context.Context) error {
	if a.ready {
		return nil
	}

	if a.Metrics == nil {
		m, err := observability.NewMetrics()
		if err != nil {
			return fmt.Errorf("sitecms: init metrics: %w", err)
		}
		a.Metrics = m
	}

	if a.Config.SessionSecret == "" {
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("sitecms: generate session secret: %w", err)
		}
		a.Config.SessionSecret = string(secret)
		a.Log.Warn("SITECMS_SESSION_SECRET not set, admin sessions will not survive a restart")
	}

	st, err := store.Open(ctx, store.Config{
		Driver:     a.Config.DBDriver,
		DSN:        a.Config.DBDSN,
		Retries:    a.Config.QueryRetries,
		RetryDelay: a.Config.RetryDelay,
	},
		store.WithLogger(a.Log.Named("store")),
		store.WithRetryCounter(a.Metrics.QueryRetries),
		store.WithClock(a.now),
	)
	if err != nil {
		return fmt.Errorf("sitecms: init store: %w", err)
	}
	a.Store = st

	a.Storage = blob.New(a.Config.StorageDir,
		blob.WithLogger(a.Log.Named("storage")),
		blob.WithMetrics(a.Metrics.StorageOps),
		blob.WithClock(a.now),
	)

	a.Feeds = NewFeedCache(a.Store, a.Config.FeedCacheTTL)
	a.loginLimiter = NewLimiter(5, time.Minute)
	a.clickLimiter = NewLimiter(30, time.Minute)

	if a.Config.CleanupInterval > 0 {
		a.stopCleanup = a.Storage.StartCleanupScheduler(blob.FolderTemp, a.Config.TempRetentionDays, a.Config.CleanupInterval)
	}

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.ready = true
	return nil
}

// Start sets the App up and serves until Shutdown.
func (a *App) Start() error {
	if err := a.Setup(context.Background()); err != nil {
		return err
	}
	a.Log.Info("listening", zap.String("addr", a.Config.Addr))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/healthz", handleHealthz)
	e.GET("/metrics", echo.WrapHandler(a.Metrics.Handler()))
	e.Static("/storage", a.Config.StorageDir)

	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)

	api := e.Group("/api")

	api.GET("/blog", a.handleListPosts)
	api.POST("/blog", a.handleCreatePost)
	api.GET("/blog/:id", a.handleGetPost)
	api.PUT("/blog/:id", a.handleUpdatePost)
	api.DELETE("/blog/:id", a.handleDeletePost)

	api.GET("/events", a.handleListEvents)
	api.POST("/events", a.handleCreateEvent)
	api.POST("/events/click", a.handleEventClick)
	api.GET("/events/:id", a.handleGetEvent)
	api.PUT("/events/:id", a.handleUpdateEvent)
	api.DELETE("/events/:id", a.handleDeleteEvent)

	api.GET("/gallery", a.handleListGallery)
	api.POST("/gallery", a.handleCreateGalleryImage)
	api.GET("/gallery/:id", a.handleGetGalleryImage)
	api.PUT("/gallery/:id", a.handleUpdateGalleryImage)
	api.DELETE("/gallery/:id", a.handleDeleteGalleryImage)

	api.GET("/status", a.handleStatus)
	api.GET("/storage-management", a.handleStorageQuery)
	api.POST("/storage-management", a.handleStorageCommand)

	admin := api.Group("/admin")
	admin.POST("/login", a.handleAdminLogin)
	admin.GET("/session", handleAdminSession)
	admin.POST("/logout", handleAdminLogout)
}

func handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// Shutdown stops accepting requests, waits for in-flight ones until ctx
// expires and then releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if cerr := a.Close(); err == nil {
		err = cerr
	}
	return err
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.stopCleanup != nil {
		a.stopCleanup()
		a.stopCleanup = nil
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Close()
	}
	if a.clickLimiter != nil {
		a.clickLimiter.Close()
	}
	if a.Store != nil {
		return a.Store.Close()
	}
	return nil
}
