package entrypoint

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/sboapp/admin/internal/audit"
	"github.com/sboapp/admin/internal/auth"
	"github.com/sboapp/admin/internal/config"
	"github.com/sboapp/admin/internal/database"
	"github.com/sboapp/admin/internal/database/admins"
	settingsrepo "github.com/sboapp/admin/internal/database/settings"
	http_controllers "github.com/sboapp/admin/internal/http"
	"github.com/sboapp/admin/internal/live"
	"github.com/sboapp/admin/internal/logger"
	"github.com/sboapp/admin/internal/metrics"
	"github.com/sboapp/admin/internal/realtime"
	"github.com/sboapp/admin/internal/repository"
	"github.com/sboapp/admin/internal/scheduler"
	"github.com/sboapp/admin/internal/seed"
	"github.com/sboapp/admin/internal/services"
	"github.com/sboapp/admin/internal/settingsstore"
	"github.com/sboapp/admin/internal/stats"
	"github.com/sboapp/admin/internal/storage"
	"github.com/sboapp/admin/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Components are the pieces every command needs: the backing store with its
// typed collections, the local SQLite database and the audited services.
type Components struct {
	Store    realtime.Store
	Library  *repository.Library
	Database *database.Database
	Tasks    *tasks.Client // nil when the audit outbox is disabled
	Auditor  *audit.Service
	Services *services.Services
}

// OpenStore connects the configured backing store.
func OpenStore(ctx context.Context, cfg config.Store) (realtime.Store, error) {
	switch cfg.Driver {
	case config.StoreDriverRedis:
		return realtime.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	case config.StoreDriverMemory:
		return realtime.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

// Open builds the shared components. Callers must Close them.
func Open(ctx context.Context, cfg *config.Config) (*Components, error) {
	store, err := OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	c := &Components{Store: store, Library: repository.New(store, cfg.Store.Root)}

	c.Database, err = database.NewDatabase(cfg.Database.Path)
	if err != nil {
		c.Close()
		return nil, err
	}

	var opts []audit.Option
	if cfg.Tasks.Enabled && cfg.Audit.OutboxEnabled {
		c.Tasks, err = tasks.NewClient(cfg.Database.Path, tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		})
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("initialize task queue: %w", err)
		}
		c.Tasks.Register(tasks.NewAppendAuditLogQueue(c.Library.AuditLogs))
		opts = append(opts, audit.WithOutbox(tasks.NewAuditOutbox(c.Tasks)))
	}
	c.Auditor = audit.NewService(c.Library.AuditLogs, opts...)
	c.Services = services.New(c.Library, c.Auditor)

	logger.WithFields(logrus.Fields{
		"store":  cfg.Store.Driver,
		"root":   cfg.Store.Root,
		"outbox": c.Tasks != nil,
	}).Info("Components opened")
	return c, nil
}

// Close releases everything Open acquired.
func (c *Components) Close() {
	if c.Tasks != nil {
		if err := c.Tasks.Close(); err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Error closing task client")
		}
	}
	if c.Database != nil {
		if err := c.Database.Close(); err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Error closing database")
		}
	}
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			logger.WithFields(logrus.Fields{"error": err}).Warn("Error closing store")
		}
	}
}

// sessionSecret decodes AUTH_SESSION_SECRET (hex, or raw bytes otherwise) or
// generates a fresh one.
func sessionSecret(configured string) ([]byte, error) {
	if configured != "" {
		if secret, err := hex.DecodeString(configured); err == nil {
			return secret, nil
		}
		return []byte(configured), nil
	}
	generated, err := auth.GenerateSessionSecret()
	if err != nil {
		return nil, err
	}
	logger.Log().Warn("Generated session secret (set AUTH_SESSION_SECRET to persist sessions and tokens across restarts)")
	return hex.DecodeString(generated)
}

func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.WithFields(logrus.Fields{"addr": srv.Addr}).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.WithFields(logrus.Fields{"timeout": timeout.String()}).Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop background work first so nothing writes after the server is gone.
	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	logger.Log().Info("Server exiting")
	return nil
}

// Run starts the admin server and blocks until ctx is cancelled. seedPath,
// when non-empty, is loaded into the store first ("sample" selects the
// embedded sample data).
func Run(ctx context.Context, cfg *config.Config, version, seedPath string) error {
	logger.WithFields(logrus.Fields{"version": version}).Info("Starting SBO APP admin")

	c, err := Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	if seedPath != "" {
		if seedPath == "sample" {
			seedPath = ""
		}
		f, err := seed.Load(seedPath)
		if err != nil {
			return err
		}
		if _, err := seed.NewSeeder(c.Library, c.Services).Apply(ctx, f); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	secret, err := sessionSecret(cfg.Auth.SessionSecret)
	if err != nil {
		return fmt.Errorf("session secret: %w", err)
	}
	authService := auth.NewService(c.Database.DB, cfg.Auth, secret)
	sqlDB, err := c.Database.SQLDB()
	if err != nil {
		return err
	}
	sessions, err := auth.NewSessionManager(sqlDB, cfg.Auth)
	if err != nil {
		return fmt.Errorf("initialize session manager: %w", err)
	}
	authController, err := auth.NewController(authService, sessions, c.Auditor, cfg.Auth)
	if err != nil {
		return err
	}
	defer authController.Stop()
	if hasAdmins, _ := authService.HasAdmins(); !hasAdmins {
		logger.Log().Warn("No administrators found. Visit /setup or run create-admin")
	}

	settings := settingsstore.New(settingsrepo.NewRepository(c.Database.DB), c.Auditor, os.Getenv)

	snapshots := scheduler.NewAnalyticsScheduler(
		stats.NewSnapshotter(c.Library.Books, c.Library.Users, c.Library.AppData),
		cfg.Analytics.SnapshotEnabled,
		settings.AnalyticsSchedule().Schedule,
	)
	if err := snapshots.Start(ctx); err != nil {
		return fmt.Errorf("start analytics scheduler: %w", err)
	}

	hub := live.NewHub(c.Library, audit.DefaultLimit)

	var registry *prometheus.Registry
	if cfg.Metrics.Enabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics.Register(registry)
	}

	var uploader *storage.Uploader
	if cfg.Assets.Enabled {
		objects, err := storage.NewMinioStore(ctx, cfg.Assets)
		if err != nil {
			return fmt.Errorf("initialize asset storage: %w", err)
		}
		uploader = storage.NewUploader(objects, cfg.Assets.MaxUploadMB<<20, cfg.Assets.URLExpiry)
	}

	var taskCancel context.CancelFunc
	if c.Tasks != nil {
		var taskCtx context.Context
		taskCtx, taskCancel = context.WithCancel(context.WithoutCancel(ctx))
		go c.Tasks.Start(taskCtx)
	}

	router := http_controllers.NewRouter(http_controllers.RouterConfig{
		Library:        c.Library,
		Services:       c.Services,
		Auditor:        c.Auditor,
		Database:       c.Database,
		Admins:         admins.NewRepository(c.Database.DB),
		Settings:       settings,
		AuthService:    authService,
		AuthController: authController,
		Sessions:       sessions,
		CSRFSecret:     secret,
		SecureCookies:  cfg.Auth.SecureCookies,
		Scheduler:      snapshots,
		Uploader:       uploader,
		Hub:            hub,
		Registry:       registry,
		PageSize:       cfg.UI.PageSize,
		PageViews:      cfg.Audit.PageViews,
		Version:        version,
	})

	onShutdown := func(ctx context.Context) {
		hub.Close()
		snapshots.Stop()
		if taskCancel != nil {
			c.Tasks.Stop(ctx)
			taskCancel()
		}
	}
	return Serve(ctx, router, cfg, onShutdown)
}
