package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/guidarr/guidarr/internal/config"
	"github.com/guidarr/guidarr/internal/database"
	"github.com/guidarr/guidarr/internal/database/migrations"
	internalhttp "github.com/guidarr/guidarr/internal/http"
	"github.com/guidarr/guidarr/internal/http/handlers"
	"github.com/guidarr/guidarr/internal/ingestor"
	"github.com/guidarr/guidarr/internal/kvstore"
	"github.com/guidarr/guidarr/internal/repository"
	"github.com/guidarr/guidarr/internal/scheduler"
	"github.com/guidarr/guidarr/internal/service"
	"github.com/guidarr/guidarr/internal/startup"
	"github.com/guidarr/guidarr/internal/storage"
	"github.com/guidarr/guidarr/internal/version"
	"github.com/guidarr/guidarr/pkg/httpclient"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the guidarr server",
	Long: `Start the guidarr HTTP server and API.

The server provides:
- REST API for managing EPG sources and querying the guide
- XMLTV export of the merged guide at /api/v1/epg.xml
- Health check endpoint
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "guidarr.db", "Database DSN (file path for sqlite)")
	serveCmd.Flags().String("data-dir", "./data", "Data directory for cached icons and temp files")

	mustBindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	mustBindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	mustBindPFlag("database.dsn", serveCmd.Flags().Lookup("database"))
	mustBindPFlag("storage.base_dir", serveCmd.Flags().Lookup("data-dir"))
}

// loadConfig unmarshals the global viper state (defaults, config file,
// env vars, bound flags) into a validated Config.
func loadConfig() (*config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Clean up orphaned temp directories from previous runs
	orphansRemoved, err := startup.CleanupSystemTempDirs(logger)
	if err != nil {
		logger.Warn("failed to clean orphaned temp directories",
			slog.String("error", err.Error()),
		)
	} else if orphansRemoved > 0 {
		logger.Info("cleaned orphaned temp directories on startup",
			slog.Int("removed_count", orphansRemoved),
		)
	}

	// Initialize database
	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	// Run migrations
	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(context.Background()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	// Initialize repositories and cache store
	sourceRepo := repository.NewEpgSourceRepository(db.DB)
	store := kvstore.NewGormStore(db.DB)

	// A crash mid-refresh leaves sources stuck in the refreshing status
	recovered, err := startup.RecoverStaleSourceStatuses(context.Background(), logger, sourceRepo)
	if err != nil {
		logger.Warn("failed to recover stale source statuses",
			slog.String("error", err.Error()),
		)
	} else if recovered > 0 {
		logger.Info("recovered stale source statuses on startup",
			slog.Int("recovered_count", recovered),
		)
	}

	// Initialize source handlers with HTTP client settings from config.
	// The extended timeout tier covers full EPG document downloads; the
	// Xtream handler narrows it per call for auth probes and API calls.
	epgHTTPConfig := httpclient.DefaultConfig()
	epgHTTPConfig.Timeout = cfg.Epg.TimeoutExtended
	epgHTTPConfig.RetryAttempts = cfg.Epg.RetryAttempts
	epgHTTPConfig.RetryDelay = cfg.Epg.RetryDelay
	epgHTTPConfig.MaxResponseSize = int64(cfg.Epg.MaxResponseSize)
	epgHTTPConfig.Logger = logger

	handlerFactory := ingestor.NewHandlerFactory()
	handlerFactory.Register(ingestor.NewXMLTVHandler().WithHTTPClientConfig(epgHTTPConfig))
	handlerFactory.Register(ingestor.NewXtreamHandler().
		WithHTTPClientConfig(epgHTTPConfig).
		WithAuthTimeout(cfg.Epg.TimeoutShort))

	epgService := service.NewEpgService(store, sourceRepo, handlerFactory).
		WithLogger(logger).
		WithCachePolicy(cfg.Epg.RefreshInterval, cfg.Epg.RetentionWindow)

	// Initialize icon cache and service. Missing icons are expected and
	// shouldn't trip the circuit breaker, so 404 counts as acceptable.
	var iconService *service.IconService
	if cfg.Icons.Enabled {
		iconCache, err := storage.NewIconCache(cfg.Storage.BaseDir)
		if err != nil {
			return fmt.Errorf("initializing icon cache: %w", err)
		}

		iconHTTPConfig := httpclient.DefaultConfig()
		iconHTTPConfig.Timeout = cfg.Icons.Timeout
		iconHTTPConfig.RetryAttempts = cfg.Icons.RetryAttempts
		iconHTTPConfig.AcceptableStatusCodes = httpclient.StatusCodesFromSlice([]int{http.StatusOK, http.StatusNotFound})
		iconHTTPConfig.Logger = logger
		iconHTTPClient := httpclient.New(iconHTTPConfig)

		// Register HTTP client for health monitoring
		httpclient.DefaultRegistry.Register("icon-fetcher", iconHTTPClient)

		iconService = service.NewIconService(iconCache, iconHTTPClient).
			WithLogger(logger)
	}

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize scheduler. It also serves as the cron validator for the
	// source API, so it is built even when auto refresh is disabled.
	sched := scheduler.New(sourceRepo, epgService).WithLogger(logger)
	if cfg.Epg.AutoRefresh {
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	// Initialize HTTP server
	serverConfig := internalhttp.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := internalhttp.NewServer(serverConfig, logger, version.Version)

	// Register handlers
	healthHandler := handlers.NewHealthHandler(version.Version).WithDB(db.DB)
	healthHandler.Register(server.API())

	epgSourceHandler := handlers.NewEpgSourceHandler(epgService, sched, logger)
	epgSourceHandler.RegisterEpgSourceRoutes(server.API())

	guideHandler := handlers.NewGuideHandler(epgService, logger)
	guideHandler.RegisterGuideRoutes(server.API())

	cacheHandler := handlers.NewCacheHandler(epgService, iconService, logger)
	cacheHandler.RegisterCacheRoutes(server.API())

	circuitBreakerHandler := handlers.NewCircuitBreakerHandler(httpclient.DefaultManager)
	circuitBreakerHandler.Register(server.API())

	versionHandler := handlers.NewVersionHandler(version.Version, version.Commit, version.Date)
	versionHandler.Register(server.API())

	if iconService != nil {
		iconHandler := handlers.NewIconHandler(iconService, epgService, logger)
		iconHandler.Register(server.API())
		iconHandler.RegisterFileServer(server.Router())
	}

	exportHandler := handlers.NewExportHandler(epgService, logger)
	exportHandler.RegisterExportRoutes(server.Router())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	// Start server
	logger.Info("starting guidarr server",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}
