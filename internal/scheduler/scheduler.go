// Package scheduler drives automatic EPG refreshes. A background sync
// loop periodically walks the configured sources and triggers a refresh
// for each one that is due, either on its cron schedule or through the
// cache repository's own staleness check.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/repository"
)

// Refresher triggers a guide refresh for one source. Implemented by
// service.EpgService; the cache repository's single-flight guard makes
// repeated triggers for the same source collapse into one download.
type Refresher interface {
	Refresh(ctx context.Context, id models.ULID, force bool) error
}

// Scheduler periodically checks EPG sources and refreshes the ones that
// are due. Sources with a cron schedule refresh when the expression
// fires; interval-only sources lean on the repository's staleness check,
// so triggering them every sync is a cheap no-op while fresh.
type Scheduler struct {
	mu sync.RWMutex

	sources   repository.EpgSourceRepository
	refresher Refresher

	logger *slog.Logger
	parser cron.Parser

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	syncInterval time.Duration
}

// Config holds configuration for the scheduler.
type Config struct {
	// SyncInterval is how often the source list is checked for due
	// refreshes. Default: 1 minute.
	SyncInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		SyncInterval: time.Minute,
	}
}

// New creates a new scheduler.
func New(sources repository.EpgSourceRepository, refresher Refresher) *Scheduler {
	config := DefaultConfig()
	return &Scheduler{
		sources:      sources,
		refresher:    refresher,
		logger:       slog.Default(),
		parser:       cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow),
		syncInterval: config.SyncInterval,
	}
}

// WithLogger sets a custom logger.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// WithConfig applies configuration to the scheduler.
func (s *Scheduler) WithConfig(config Config) *Scheduler {
	if config.SyncInterval > 0 {
		s.syncInterval = config.SyncInterval
	}
	return s
}

// Start begins the scheduler's background sync loop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ctx != nil {
		return fmt.Errorf("scheduler already started")
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.syncLoop()

	s.logger.Info("scheduler started",
		slog.Duration("sync_interval", s.syncInterval))

	return nil
}

// Stop stops the scheduler and waits for the sync loop to exit. Refreshes
// already handed to the refresher keep running; only the loop stops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	s.wg.Wait()

	s.mu.Lock()
	s.ctx = nil
	s.cancel = nil
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

// syncLoop periodically checks sources and triggers due refreshes.
func (s *Scheduler) syncLoop() {
	defer s.wg.Done()

	// Run immediately on start
	s.syncSources(s.ctx)

	ticker := time.NewTicker(s.syncInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.syncSources(s.ctx)
		}
	}
}

// syncSources walks the enabled sources and triggers refreshes that are
// due. Each trigger runs detached so a slow download never stalls the
// loop; overlapping triggers for one source collapse in the repository.
func (s *Scheduler) syncSources(ctx context.Context) {
	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to get EPG sources for scheduling", slog.Any("error", err))
		return
	}

	for _, source := range sources {
		if !source.AutoRefresh || !source.IsConfigured() {
			continue
		}

		force := false
		if source.CronSchedule != "" {
			if !s.isDue(source.CronSchedule) {
				continue
			}
			// A firing cron expression refreshes even when the cache is
			// still inside its TTL.
			force = true
		}

		s.triggerRefresh(source, force)
	}
}

// triggerRefresh starts a detached refresh for one source.
func (s *Scheduler) triggerRefresh(source *models.EpgSource, force bool) {
	id := source.ID
	name := source.Name

	go func() {
		// Background context so stopping the scheduler does not kill an
		// in-flight download.
		if err := s.refresher.Refresh(context.Background(), id, force); err != nil {
			s.logger.Error("scheduled refresh failed",
				slog.String("source", name),
				slog.String("source_id", id.String()),
				slog.Any("error", err))
		}
	}()
}

// isDue checks if a cron schedule is due for execution. A schedule is
// due if a fire time falls within the current sync window.
func (s *Scheduler) isDue(cronExpr string) bool {
	schedule, err := s.parser.Parse(cronExpr)
	if err != nil {
		s.logger.Warn("invalid cron expression", slog.String("cron", cronExpr), slog.Any("error", err))
		return false
	}

	now := time.Now()
	next := schedule.Next(now.Add(-s.syncInterval))

	return next.Before(now) || next.Equal(now) || next.Before(now.Add(s.syncInterval))
}

// ParseCron validates a cron expression and returns the next run time.
func (s *Scheduler) ParseCron(expr string) (time.Time, error) {
	schedule, err := s.parser.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron expression: %w", err)
	}
	return schedule.Next(time.Now()), nil
}

// ValidateCron validates a cron expression.
func (s *Scheduler) ValidateCron(expr string) error {
	_, err := s.parser.Parse(expr)
	return err
}
