// Package entrypoint wires the application together for the command line
// and the HTTP server.
package entrypoint

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/abdnh/anki-copycat-importer/internal/ankiapp"
	"github.com/abdnh/anki-copycat-importer/internal/audit"
	"github.com/abdnh/anki-copycat-importer/internal/auth"
	"github.com/abdnh/anki-copycat-importer/internal/collection"
	"github.com/abdnh/anki-copycat-importer/internal/config"
	"github.com/abdnh/anki-copycat-importer/internal/crypto"
	"github.com/abdnh/anki-copycat-importer/internal/database"
	auditrepo "github.com/abdnh/anki-copycat-importer/internal/database/audit"
	"github.com/abdnh/anki-copycat-importer/internal/database/runs"
	"github.com/abdnh/anki-copycat-importer/internal/database/tags"
	http_controllers "github.com/abdnh/anki-copycat-importer/internal/http"
	"github.com/abdnh/anki-copycat-importer/internal/logutil"
	"github.com/abdnh/anki-copycat-importer/internal/scheduler"
	"github.com/abdnh/anki-copycat-importer/internal/services"
	"github.com/abdnh/anki-copycat-importer/internal/settingsstore"
	"github.com/abdnh/anki-copycat-importer/internal/tasks"
)

// App holds the services shared by the command line and the server.
type App struct {
	Config     *config.Config
	DB         *database.Database
	Collection *collection.Collection
	Settings   *settingsstore.SettingsStore
	Audit      *audit.Service
	Imports    *services.ImportService
}

// NewApp opens the collection and builds the services on top of it. The
// collection stays locked until Close.
func NewApp(cfg *config.Config) (*App, error) {
	db, err := database.NewDatabase(cfg.Collection.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	coll, err := collection.Open(db, collection.LockPath(cfg.Collection.Path), cfg.Collection.MediaDir)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	var storeOpts []settingsstore.Option
	if cfg.Secrets.Key != "" {
		sealer, err := crypto.NewSealerFromBase64(cfg.Secrets.Key)
		if err != nil {
			_ = coll.Close()
			_ = db.Close()
			return nil, fmt.Errorf("invalid SECRETS_KEY: %w", err)
		}
		storeOpts = append(storeOpts, settingsstore.WithSealer(sealer))
	}
	settings := settingsstore.New(db, cfg, storeOpts...)
	auditService := audit.NewService(auditrepo.NewRepository(db.DB))

	dataDir := cfg.AnkiApp.DataDir
	if dataDir == "" {
		dataDir = ankiapp.DefaultDataFolder()
	}
	imports := services.NewImportService(db.DB, settings, auditService, coll, services.WithDefaultDataDir(dataDir))

	return &App{
		Config:     cfg,
		DB:         db,
		Collection: coll,
		Settings:   settings,
		Audit:      auditService,
		Imports:    imports,
	}, nil
}

// Close releases the collection lock and the database.
func (a *App) Close() error {
	return errors.Join(a.Collection.Close(), a.DB.Close())
}

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the server until SIGINT or SIGTERM.
func Serve(ctx context.Context, router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) error {
	log := logutil.GetLogger(ctx)
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutting down server", zap.Duration("timeout", timeout))

	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if onShutdown != nil {
		onShutdown(shutdownCtx)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info("server exiting")
	return nil
}

// Run starts the HTTP server with the task queue and the maintenance
// scheduler.
func Run(ctx context.Context, cfg *config.Config, version string) error {
	log := logutil.GetLogger(ctx)
	log.Info("starting anki-copycat-importer", zap.String("version", version))
	gin.SetMode(gin.ReleaseMode)

	app, err := NewApp(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Error("error closing collection", zap.Error(err))
		}
	}()

	if err := app.Imports.Recover(ctx); err != nil {
		return err
	}

	routerCfg := http_controllers.RouterConfig{
		Database:      app.DB,
		Imports:       app.Imports,
		Settings:      app.Settings,
		Audit:         app.Audit,
		Collection:    app.Collection,
		Auth:          auth.NewMiddleware(cfg.HTTP.APIToken),
		UploadDir:     cfg.HTTP.UploadDir,
		MaxUploadSize: cfg.HTTP.MaxUploadSize,
		Version:       version,
	}
	if cfg.HTTP.APIToken == "" && cfg.HTTP.Host != "127.0.0.1" && cfg.HTTP.Host != "localhost" {
		log.Warn("API_TOKEN is not set; the API is open to anyone who can reach " + cfg.HTTP.Host)
	}

	var (
		taskClient *tasks.Client
		maint      *scheduler.MaintenanceScheduler
		taskCancel context.CancelFunc = func() {}
	)
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Tasks.DBPath, tasks.ConfigFrom(cfg.Tasks))
		if err != nil {
			return fmt.Errorf("failed to initialize task queue: %w", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Error("error closing task client", zap.Error(err))
			}
		}()

		taskClient.Register(
			tasks.NewImportQueue(app.Imports),
			tasks.NewMaintenanceQueue(tasks.Cleaners{
				Audit: app.Audit,
				Tags:  tags.NewRepository(app.DB.DB),
				Runs:  runs.NewRepository(app.DB.DB),
			}),
		)
		app.Imports.SetEnqueuer(taskClient)

		var taskCtx context.Context
		taskCtx, taskCancel = context.WithCancel(ctx)
		taskClient.Start(taskCtx)

		maint = scheduler.NewMaintenanceScheduler(taskClient, cfg.Tasks.MaintenanceSchedule, tasks.MaintenanceTask{
			AuditRetentionDays: cfg.Audit.RetentionDays,
			RunRetentionDays:   cfg.Tasks.RunRetentionDays,
		})
		if err := maint.Start(taskCtx); err != nil {
			taskCancel()
			return err
		}
		routerCfg.TaskClient = taskClient
		routerCfg.Maintenance = maint
	}
	defer taskCancel()

	router := http_controllers.NewRouter(routerCfg)

	onShutdown := func(ctx context.Context) {
		if maint != nil {
			maint.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
		}
	}
	return Serve(ctx, router, cfg, onShutdown)
}
