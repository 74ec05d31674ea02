package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/guidarr/guidarr/internal/ingestor"
	"github.com/guidarr/guidarr/internal/kvstore"
	"github.com/guidarr/guidarr/internal/models"
)

// DefaultRetentionWindow bounds how much guide data one refresh keeps,
// measured from today's UTC midnight.
const DefaultRetentionWindow = 48 * time.Hour

// epgRepo implements EpgRepository: one staleness cache per EPG source.
//
// The in-memory snapshot is immutable; a refresh builds a complete new
// one and publishes it with a single pointer swap under the mutex, so
// readers observe either the old snapshot or the new one, never a
// partial state. The refreshing flag is the single-flight guard: at
// most one download and parse runs at any time, and overlapping refresh
// requests collapse into successful no-ops.
type epgRepo struct {
	sourceID   models.ULID
	store      kvstore.Store
	sources    EpgSourceRepository
	handlers   *ingestor.HandlerFactory
	retention  time.Duration
	defaultTTL time.Duration
	logger     *slog.Logger

	mu         sync.Mutex
	snapshot   *models.EpgData
	meta       *models.EpgStorageMetadata
	sourceTTL  time.Duration
	refreshing bool
}

// NewEpgRepository creates the staleness cache for one EPG source. The
// source's refresh interval is the staleness TTL, falling back to the
// configured default when the source carries none; it follows source
// config changes on every refresh.
func NewEpgRepository(store kvstore.Store, sources EpgSourceRepository, handlers *ingestor.HandlerFactory, source *models.EpgSource) *epgRepo {
	return &epgRepo{
		sourceID:   source.ID,
		store:      store,
		sources:    sources,
		handlers:   handlers,
		retention:  DefaultRetentionWindow,
		defaultTTL: models.DefaultRefreshInterval,
		logger:     slog.Default(),
		sourceTTL:  source.RefreshInterval,
	}
}

// WithLogger sets the logger used for background refresh outcomes.
func (r *epgRepo) WithLogger(logger *slog.Logger) *epgRepo {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// WithRetentionWindow overrides how much guide data a refresh retains.
func (r *epgRepo) WithRetentionWindow(window time.Duration) *epgRepo {
	if window > 0 {
		r.retention = window
	}
	return r
}

// WithDefaultTTL overrides the staleness TTL used for sources without a
// refresh interval of their own.
func (r *epgRepo) WithDefaultTTL(ttl time.Duration) *epgRepo {
	if ttl > 0 {
		r.defaultTTL = ttl
	}
	return r
}

// ttlLocked returns the effective staleness TTL. Callers hold r.mu.
func (r *epgRepo) ttlLocked() time.Duration {
	if r.sourceTTL > 0 {
		return r.sourceTTL
	}
	return r.defaultTTL
}

// Guide returns the current snapshot. On first use the persisted
// snapshot is loaded; with no snapshot anywhere the read fails with
// ErrNoCache. A stale snapshot is returned immediately while a detached
// refresh runs in the background: readers never wait on network I/O.
func (r *epgRepo) Guide(ctx context.Context) (*models.EpgData, error) {
	r.ensureLoaded(ctx)

	r.mu.Lock()
	snapshot := r.snapshot
	stale := r.meta.IsStale(time.Now().UTC(), r.ttlLocked())
	inflight := r.refreshing
	r.mu.Unlock()

	if stale && !inflight {
		// Background context so an HTTP request cancellation does not
		// kill the refresh. Its outcome is observable only through logs
		// and the next read's staleness check.
		go func() {
			if err := r.Refresh(context.Background(), false); err != nil {
				r.logger.Warn("background guide refresh failed",
					"source_id", r.sourceID.String(),
					"error", err,
				)
			}
		}()
	}

	if snapshot == nil {
		return nil, wrapKind(KindNotFound, "reading guide", ErrNoCache)
	}
	return snapshot, nil
}

// ChannelPrograms returns one channel's programmes sorted by start time,
// optionally restricted to the UTC calendar day containing day.
func (r *epgRepo) ChannelPrograms(ctx context.Context, channelID string, day *time.Time) ([]models.EpgProgram, error) {
	data, err := r.Guide(ctx)
	if err != nil {
		return nil, err
	}
	if day != nil {
		return data.DailySchedule(channelID, *day), nil
	}
	return data.ChannelPrograms(channelID), nil
}

// Refresh downloads, parses and persists a new snapshot for the source.
// A refresh already in flight, or a fresh cache without force, is a
// successful no-op. The in-flight guard is released on every exit path.
func (r *epgRepo) Refresh(ctx context.Context, force bool) error {
	r.mu.Lock()
	if r.refreshing {
		r.mu.Unlock()
		return nil
	}
	r.refreshing = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.refreshing = false
		r.mu.Unlock()
	}()

	r.ensureLoaded(ctx)

	if !force && !r.IsStale() {
		return nil
	}

	source, err := r.sources.GetByID(ctx, r.sourceID)
	if err != nil {
		return wrap("loading EPG source", err)
	}
	if source == nil {
		return wrapKind(KindNotFound, "loading EPG source", fmt.Errorf("source %s not found", r.sourceID))
	}
	if !source.IsConfigured() {
		return wrap("refreshing guide", models.ErrSourceNotConfigured)
	}

	handler, err := r.handlers.GetForSource(source)
	if err != nil {
		return wrap("refreshing guide", err)
	}

	r.mu.Lock()
	r.sourceTTL = source.RefreshInterval
	r.mu.Unlock()

	if err := r.sources.UpdateStatus(ctx, source.ID, models.EpgSourceStatusRefreshing); err != nil {
		r.logger.Warn("updating source status failed",
			"source_id", source.ID.String(),
			"error", err,
		)
	}

	data, stats, err := handler.Fetch(ctx, source)
	if err != nil {
		r.recordFailure(err)
		return wrap("refreshing guide", err)
	}

	winStart, winEnd := retentionWindow(time.Now(), r.retention)
	data = filterSnapshot(data, winStart, winEnd)

	fetchedAt := data.FetchedAt
	meta := &models.EpgStorageMetadata{
		SourceID:      source.ID,
		LastFetchedAt: &fetchedAt,
		ChannelCount:  len(data.Channels),
		ProgramCount:  data.TotalPrograms(),
		SourceURL:     data.SourceURL,
		SourceType:    source.Type,
	}

	// The pointer swap publishes the snapshot: readers see the old one
	// or this one, never a partial state.
	r.mu.Lock()
	r.snapshot = data
	r.mu.Unlock()

	if err := r.store.SetJSONList(ctx, kvstore.EpgProgramsKey(r.sourceID.String()), flattenPrograms(data)); err != nil {
		r.recordFailure(err)
		return wrap("persisting guide programmes", err)
	}

	if err := r.store.SetJSON(ctx, kvstore.EpgMetaKey(r.sourceID.String()), meta); err != nil {
		// Tolerated: without fresh metadata the next staleness check
		// treats the cache as stale and retries the persist.
		r.logger.Warn("persisting guide metadata failed",
			"source_id", source.ID.String(),
			"error", err,
		)
	} else {
		r.mu.Lock()
		r.meta = meta
		r.mu.Unlock()
	}

	if err := r.sources.UpdateLastRefresh(ctx, source.ID, meta.ChannelCount, meta.ProgramCount); err != nil {
		r.logger.Warn("updating source bookkeeping failed",
			"source_id", source.ID.String(),
			"error", err,
		)
	}

	r.logger.Info("guide refreshed",
		"source_id", source.ID.String(),
		"source_name", source.Name,
		"channels", meta.ChannelCount,
		"programs", meta.ProgramCount,
		"dropped", stats.DroppedProgrammes,
	)
	return nil
}

// ClearCache removes the persisted snapshot and drops the in-memory one.
// Subsequent reads behave as "no cache" until the next refresh.
func (r *epgRepo) ClearCache(ctx context.Context) error {
	if err := r.store.Remove(ctx, kvstore.EpgProgramsKey(r.sourceID.String())); err != nil {
		return wrap("clearing guide cache", err)
	}
	if err := r.store.Remove(ctx, kvstore.EpgMetaKey(r.sourceID.String())); err != nil {
		return wrap("clearing guide cache", err)
	}

	r.mu.Lock()
	r.snapshot = nil
	r.meta = nil
	r.mu.Unlock()
	return nil
}

// Metadata returns the bookkeeping of the current snapshot, nil when
// none is loaded. The returned value must not be modified.
func (r *epgRepo) Metadata() *models.EpgStorageMetadata {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta
}

// IsStale reports whether the current snapshot is older than the
// source's refresh interval. A missing snapshot is always stale.
func (r *epgRepo) IsStale() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.meta.IsStale(time.Now().UTC(), r.ttlLocked())
}

// recordFailure writes the failed status to the source row. Bookkeeping
// runs on a background context so it survives the caller's cancellation.
func (r *epgRepo) recordFailure(cause error) {
	if err := r.sources.UpdateRefreshFailure(context.Background(), r.sourceID, cause.Error()); err != nil {
		r.logger.Warn("updating source bookkeeping failed",
			"source_id", r.sourceID.String(),
			"error", err,
		)
	}
}

// ensureLoaded populates memory from the persisted store on first use.
// Missing keys and store failures are not errors here: the caller sees
// whatever is in memory afterwards.
func (r *epgRepo) ensureLoaded(ctx context.Context) {
	r.mu.Lock()
	if r.snapshot != nil || r.meta != nil {
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	meta, data, ok := r.loadPersisted(ctx)
	if !ok {
		return
	}

	r.mu.Lock()
	// A concurrent loader or refresh may have won the race.
	if r.snapshot == nil && r.meta == nil {
		r.snapshot = data
		r.meta = meta
	}
	r.mu.Unlock()
}

// loadPersisted reads the metadata and programme records back from the
// store and rebuilds a snapshot. Individually malformed programme
// records are skipped, not fatal. The third return reports whether any
// persisted state existed at all.
func (r *epgRepo) loadPersisted(ctx context.Context) (*models.EpgStorageMetadata, *models.EpgData, bool) {
	found := false

	var meta *models.EpgStorageMetadata
	var m models.EpgStorageMetadata
	if err := r.store.GetJSON(ctx, kvstore.EpgMetaKey(r.sourceID.String()), &m); err == nil {
		meta = &m
		found = true
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		r.logger.Warn("loading guide metadata failed",
			"source_id", r.sourceID.String(),
			"error", err,
		)
	}

	var records []json.RawMessage
	if err := r.store.GetJSONList(ctx, kvstore.EpgProgramsKey(r.sourceID.String()), &records); err == nil {
		found = true
	} else if !errors.Is(err, kvstore.ErrNotFound) {
		r.logger.Warn("loading guide programmes failed",
			"source_id", r.sourceID.String(),
			"error", err,
		)
	}

	if !found {
		return nil, nil, false
	}

	data := models.NewEpgData()
	skipped := 0
	for _, record := range records {
		var p models.EpgProgram
		if err := json.Unmarshal(record, &p); err != nil {
			skipped++
			continue
		}
		if err := p.ValidateRequired(); err != nil {
			skipped++
			continue
		}
		data.Programs[p.ChannelID] = append(data.Programs[p.ChannelID], p)
	}
	if skipped > 0 {
		r.logger.Warn("skipped malformed persisted programmes",
			"source_id", r.sourceID.String(),
			"count", skipped,
		)
	}

	for id := range data.Programs {
		programs := data.Programs[id]
		sort.Slice(programs, func(i, j int) bool {
			return programs[i].Start.Before(programs[j].Start)
		})
	}

	// The persisted layout carries no channel table; reconstruct id-only
	// channels until the next refresh brings display data back.
	for id := range data.Programs {
		data.Channels[id] = models.EpgChannel{ID: id, Name: id}
	}

	if meta != nil {
		if meta.LastFetchedAt != nil {
			data.FetchedAt = *meta.LastFetchedAt
		}
		data.SourceURL = meta.SourceURL
	}

	return meta, data, true
}

// retentionWindow returns the half-open window [today 00:00 UTC,
// today 00:00 UTC + retention) that a refresh keeps programmes for.
func retentionWindow(now time.Time, retention time.Duration) (time.Time, time.Time) {
	utc := now.UTC()
	start := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.Add(retention)
}

// filterSnapshot returns a snapshot keeping only programmes overlapping
// [start, end). A programme that began before the window but is still
// running inside it stays, so "what's on now" keeps working across
// midnight. Channels are kept even when all their programmes fall out.
func filterSnapshot(data *models.EpgData, start, end time.Time) *models.EpgData {
	filtered := models.NewEpgData()
	filtered.FetchedAt = data.FetchedAt
	filtered.SourceURL = data.SourceURL

	for id, ch := range data.Channels {
		filtered.Channels[id] = ch
	}
	for id, programs := range data.Programs {
		for _, p := range programs {
			if p.Start.Before(end) && p.Stop.After(start) {
				filtered.Programs[id] = append(filtered.Programs[id], p)
			}
		}
	}
	return filtered
}

// flattenPrograms flattens the per-channel programme lists into the
// persisted array form, channels in lexical order.
func flattenPrograms(data *models.EpgData) []models.EpgProgram {
	ids := make([]string, 0, len(data.Programs))
	for id := range data.Programs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]models.EpgProgram, 0, data.TotalPrograms())
	for _, id := range ids {
		out = append(out, data.Programs[id]...)
	}
	return out
}

// Ensure epgRepo implements EpgRepository at compile time.
var _ EpgRepository = (*epgRepo)(nil)
