package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/guidarr/guidarr/internal/database"
	"github.com/guidarr/guidarr/internal/database/migrations"
	"github.com/guidarr/guidarr/internal/repository"
	"github.com/guidarr/guidarr/pkg/duration"
	"github.com/guidarr/guidarr/pkg/format"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "EPG source management commands",
	Long:  `Commands for inspecting configured EPG sources.`,
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured EPG sources",
	Long: `List all configured EPG sources with their refresh status.

Shows each source's type, refresh schedule, last refresh time and the
channel and programme counts from the last successful fetch.`,
	RunE: runSourcesList,
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, args []string) error {
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
	sources, err := sourceRepo.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("listing sources: %w", err)
	}

	if len(sources) == 0 {
		fmt.Println("No EPG sources configured.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tENABLED\tSTATUS\tSCHEDULE\tLAST REFRESH\tCHANNELS\tPROGRAMMES")

	for _, source := range sources {
		schedule := "manual"
		switch {
		case source.CronSchedule != "":
			schedule = format.CronDescription(source.CronSchedule)
		case source.AutoRefresh && source.RefreshInterval > 0:
			schedule = "every " + duration.Format(source.RefreshInterval)
		case source.AutoRefresh:
			schedule = "default interval"
		}

		lastRefresh := "never"
		if source.LastRefreshAt != nil {
			lastRefresh = duration.FormatRelative(*source.LastRefreshAt)
		}

		fmt.Fprintf(w, "%s\t%s\t%t\t%s\t%s\t%s\t%s\t%s\n",
			source.Name,
			source.Type,
			source.Enabled,
			source.Status,
			schedule,
			lastRefresh,
			format.Number(int64(source.ChannelCount)),
			format.Number(int64(source.ProgramCount)),
		)
	}

	return w.Flush()
}
