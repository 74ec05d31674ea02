package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/guidarr/guidarr/internal/database"
	"github.com/guidarr/guidarr/internal/database/migrations"
	"github.com/guidarr/guidarr/internal/ingestor"
	"github.com/guidarr/guidarr/internal/kvstore"
	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/repository"
	"github.com/guidarr/guidarr/internal/service"
	"github.com/guidarr/guidarr/pkg/format"
	"github.com/guidarr/guidarr/pkg/httpclient"
)

var refreshForce bool

var refreshCmd = &cobra.Command{
	Use:   "refresh [source name]",
	Short: "Refresh EPG sources",
	Long: `Fetch fresh guide data for enabled EPG sources and update the cache.

Without arguments, all enabled sources are refreshed. Pass a source name
to refresh just that source. Sources whose cache is still fresh are
skipped unless --force is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRefresh,
}

func init() {
	refreshCmd.Flags().BoolVar(&refreshForce, "force", false, "refresh even if the cache is still fresh")
	rootCmd.AddCommand(refreshCmd)
}

func runRefresh(cmd *cobra.Command, args []string) error {
	logger := slog.Default()
	ctx := context.Background()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := database.New(cfg.Database, logger, nil)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	migrator := migrations.NewMigrator(db.DB, logger)
	migrator.RegisterAll(migrations.AllMigrations())
	if err := migrator.Up(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	sourceRepo := repository.NewEpgSourceRepository(db.DB)
	store := kvstore.NewGormStore(db.DB)

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

	var sources []*models.EpgSource
	if len(args) == 1 {
		source, err := sourceRepo.GetByName(ctx, args[0])
		if err != nil {
			return fmt.Errorf("looking up source %q: %w", args[0], err)
		}
		sources = append(sources, source)
	} else {
		sources, err = sourceRepo.GetEnabled(ctx)
		if err != nil {
			return fmt.Errorf("listing sources: %w", err)
		}
	}

	if len(sources) == 0 {
		fmt.Println("No enabled EPG sources configured.")
		return nil
	}

	var failures int
	for _, source := range sources {
		fmt.Printf("Refreshing %s...\n", source.Name)
		if err := epgService.Refresh(ctx, source.ID, refreshForce); err != nil {
			failures++
			fmt.Printf("  failed: %v\n", err)
			continue
		}

		refreshed, err := sourceRepo.GetByID(ctx, source.ID)
		if err != nil {
			fmt.Println("  done")
			continue
		}
		fmt.Printf("  done: %s channels, %s programmes\n",
			format.Number(int64(refreshed.ChannelCount)),
			format.Number(int64(refreshed.ProgramCount)),
		)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d sources failed to refresh", failures, len(sources))
	}
	return nil
}
