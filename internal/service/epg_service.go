package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/guidarr/guidarr/internal/ingestor"
	"github.com/guidarr/guidarr/internal/kvstore"
	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/repository"
)

// EpgService provides business logic for EPG source management and guide
// queries. Each configured source is backed by one cache repository,
// created on first use and shared by every caller so the repository's
// in-flight refresh guard works across the whole process. Guide reads
// are source-agnostic: per-source snapshots are merged into one view.
type EpgService struct {
	store      kvstore.Store
	sources    repository.EpgSourceRepository
	handlers   *ingestor.HandlerFactory
	logger     *slog.Logger
	defaultTTL time.Duration
	retention  time.Duration

	mu    sync.Mutex
	repos map[models.ULID]repository.EpgRepository
}

// SourceStatus pairs a source with its cache bookkeeping for status
// reporting. Metadata is nil when the source has no snapshot yet.
type SourceStatus struct {
	Source   *models.EpgSource          `json:"source"`
	Metadata *models.EpgStorageMetadata `json:"metadata,omitempty"`
	Stale    bool                       `json:"stale"`
}

// NewEpgService creates a new EPG service.
func NewEpgService(store kvstore.Store, sources repository.EpgSourceRepository, handlers *ingestor.HandlerFactory) *EpgService {
	return &EpgService{
		store:    store,
		sources:  sources,
		handlers: handlers,
		logger:   slog.Default(),
		repos:    make(map[models.ULID]repository.EpgRepository),
	}
}

// WithLogger sets the logger for the service.
func (s *EpgService) WithLogger(logger *slog.Logger) *EpgService {
	s.logger = logger
	return s
}

// WithCachePolicy sets the default staleness TTL for sources without a
// refresh interval of their own, and the guide data retention window.
// Zero values keep the built-in defaults. The policy applies to cache
// repositories created afterwards.
func (s *EpgService) WithCachePolicy(defaultTTL, retention time.Duration) *EpgService {
	s.defaultTTL = defaultTTL
	s.retention = retention
	return s
}

// CreateSource creates a new EPG source.
func (s *EpgService) CreateSource(ctx context.Context, source *models.EpgSource) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.sources.Create(ctx, source); err != nil {
		return fmt.Errorf("creating EPG source: %w", err)
	}

	s.logger.Info("created EPG source",
		"id", source.ID.String(),
		"name", source.Name,
		"type", source.Type,
	)

	return nil
}

// UpdateSource updates an existing EPG source. The source's cache
// repository is rebuilt on next use so interval and credential changes
// take effect without waiting for the next refresh.
func (s *EpgService) UpdateSource(ctx context.Context, source *models.EpgSource) error {
	if err := source.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if err := s.sources.Update(ctx, source); err != nil {
		return fmt.Errorf("updating EPG source: %w", err)
	}

	s.forgetRepo(source.ID)

	s.logger.Info("updated EPG source",
		"id", source.ID.String(),
		"name", source.Name,
	)

	return nil
}

// DeleteSource deletes an EPG source together with its cached guide data.
func (s *EpgService) DeleteSource(ctx context.Context, id models.ULID) error {
	repo, err := s.repoFor(ctx, id)
	if err != nil {
		return err
	}

	// First drop the cached snapshot, then the source row.
	if err := repo.ClearCache(ctx); err != nil {
		return fmt.Errorf("clearing guide cache: %w", err)
	}

	if err := s.sources.Delete(ctx, id); err != nil {
		return fmt.Errorf("deleting EPG source: %w", err)
	}

	s.forgetRepo(id)

	s.logger.Info("deleted EPG source", "id", id.String())

	return nil
}

// GetSource retrieves an EPG source by ID.
func (s *EpgService) GetSource(ctx context.Context, id models.ULID) (*models.EpgSource, error) {
	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting EPG source: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("getting EPG source: %w", models.ErrSourceNotFound)
	}
	return source, nil
}

// GetSourceByName retrieves an EPG source by name.
func (s *EpgService) GetSourceByName(ctx context.Context, name string) (*models.EpgSource, error) {
	source, err := s.sources.GetByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting EPG source by name: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("getting EPG source by name: %w", models.ErrSourceNotFound)
	}
	return source, nil
}

// ListSources returns all EPG sources.
func (s *EpgService) ListSources(ctx context.Context) ([]*models.EpgSource, error) {
	sources, err := s.sources.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing EPG sources: %w", err)
	}
	return sources, nil
}

// ListEnabledSources returns all enabled EPG sources.
func (s *EpgService) ListEnabledSources(ctx context.Context) ([]*models.EpgSource, error) {
	sources, err := s.sources.GetEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing enabled EPG sources: %w", err)
	}
	return sources, nil
}

// Guide returns the merged guide across all enabled sources. Sources
// without a cached snapshot are skipped; when no source has one the
// read fails with repository.ErrNoCache.
func (s *EpgService) Guide(ctx context.Context) (*models.EpgData, error) {
	snapshots, err := s.enabledSnapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, fmt.Errorf("reading guide: %w", repository.ErrNoCache)
	}
	if len(snapshots) == 1 {
		return snapshots[0], nil
	}
	return mergeSnapshots(snapshots), nil
}

// ChannelPrograms returns the merged programme list for one channel,
// sorted by start time, optionally restricted to the UTC calendar day
// containing day.
func (s *EpgService) ChannelPrograms(ctx context.Context, channelID string, day *time.Time) ([]models.EpgProgram, error) {
	data, err := s.Guide(ctx)
	if err != nil {
		return nil, err
	}
	if day != nil {
		return data.DailySchedule(channelID, *day), nil
	}
	return data.ChannelPrograms(channelID), nil
}

// Status reports each source together with its cache bookkeeping. Like
// any guide read this loads persisted snapshots on first use and starts
// background refreshes for stale sources.
func (s *EpgService) Status(ctx context.Context) ([]SourceStatus, error) {
	sources, err := s.ListSources(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]SourceStatus, 0, len(sources))
	for _, source := range sources {
		status := SourceStatus{Source: source, Stale: true}
		if source.IsConfigured() {
			if repo, err := s.repoFor(ctx, source.ID); err == nil {
				_, _ = repo.Guide(ctx)
				status.Metadata = repo.Metadata()
				status.Stale = repo.IsStale()
			}
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

// Refresh refreshes one source's guide synchronously. A refresh already
// in flight is a successful no-op; force bypasses the staleness check.
func (s *EpgService) Refresh(ctx context.Context, id models.ULID, force bool) error {
	repo, err := s.repoFor(ctx, id)
	if err != nil {
		return err
	}
	return repo.Refresh(ctx, force)
}

// RefreshAsync verifies the source exists and triggers its refresh in
// the background. The repository's in-flight guard suppresses duplicate
// downloads, so calling this repeatedly is safe.
func (s *EpgService) RefreshAsync(ctx context.Context, id models.ULID, force bool) error {
	repo, err := s.repoFor(ctx, id)
	if err != nil {
		return err
	}

	go func() {
		// New context so the triggering request's cancellation does not
		// kill the refresh.
		bgCtx := context.Background()
		if err := repo.Refresh(bgCtx, force); err != nil {
			s.logger.Error("background refresh failed",
				"source_id", id.String(),
				"error", err.Error(),
			)
		}
	}()

	return nil
}

// ClearCache drops every source's cached guide data, persisted and
// in-memory. The next read starts from fresh downloads.
func (s *EpgService) ClearCache(ctx context.Context) error {
	sources, err := s.ListSources(ctx)
	if err != nil {
		return err
	}

	for _, source := range sources {
		repo, err := s.repoFor(ctx, source.ID)
		if err != nil {
			return err
		}
		if err := repo.ClearCache(ctx); err != nil {
			return fmt.Errorf("clearing cache for source %s: %w", source.ID, err)
		}
	}

	s.logger.Info("cleared guide cache", "sources", len(sources))

	return nil
}

// enabledSnapshots collects the current snapshot of every enabled,
// configured source. GetEnabled orders by name, so merge priority is
// deterministic. A source without a snapshot is skipped; other failures
// are logged and skipped so one broken source cannot take down the
// whole guide.
func (s *EpgService) enabledSnapshots(ctx context.Context) ([]*models.EpgData, error) {
	sources, err := s.ListEnabledSources(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := make([]*models.EpgData, 0, len(sources))
	for _, source := range sources {
		if !source.IsConfigured() {
			continue
		}
		repo, err := s.repoFor(ctx, source.ID)
		if err != nil {
			s.logger.Warn("skipping EPG source",
				"source_id", source.ID.String(),
				"error", err,
			)
			continue
		}
		data, err := repo.Guide(ctx)
		if err != nil {
			if repository.Classify(err) != repository.KindNotFound {
				s.logger.Warn("skipping EPG source",
					"source_id", source.ID.String(),
					"error", err,
				)
			}
			continue
		}
		snapshots = append(snapshots, data)
	}
	return snapshots, nil
}

// repoFor returns the cache repository for a source, creating it on
// first use. The registry guarantees one repository per source so all
// callers share the same snapshot and refresh guard.
func (s *EpgService) repoFor(ctx context.Context, id models.ULID) (repository.EpgRepository, error) {
	s.mu.Lock()
	repo, ok := s.repos[id]
	s.mu.Unlock()
	if ok {
		return repo, nil
	}

	source, err := s.sources.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting EPG source: %w", err)
	}
	if source == nil {
		return nil, fmt.Errorf("getting EPG source: %w", models.ErrSourceNotFound)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if repo, ok := s.repos[id]; ok {
		return repo, nil
	}
	created := repository.NewEpgRepository(s.store, s.sources, s.handlers, source).
		WithLogger(s.logger).
		WithDefaultTTL(s.defaultTTL).
		WithRetentionWindow(s.retention)
	s.repos[id] = created
	return created, nil
}

// forgetRepo drops a source's cached repository so the next use rebuilds
// it from current configuration. The persisted snapshot survives; the
// rebuilt repository reloads it on first read.
func (s *EpgService) forgetRepo(id models.ULID) {
	s.mu.Lock()
	delete(s.repos, id)
	s.mu.Unlock()
}
