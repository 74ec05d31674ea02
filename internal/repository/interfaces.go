// Package repository defines data access for guidarr's EPG state.
// Source configurations live in the database behind EpgSourceRepository;
// guide snapshots live behind EpgRepository, a staleness cache that
// serves from memory, falls back to the persisted store, and refreshes
// in the background. All access goes through these interfaces, enabling
// easy testing and database backend switching.
package repository

import (
	"context"
	"time"

	"github.com/guidarr/guidarr/internal/models"
)

// EpgSourceRepository defines operations for EPG source persistence.
type EpgSourceRepository interface {
	// Create creates a new EPG source.
	Create(ctx context.Context, source *models.EpgSource) error
	// GetByID retrieves an EPG source by ID.
	GetByID(ctx context.Context, id models.ULID) (*models.EpgSource, error)
	// GetAll retrieves all EPG sources.
	GetAll(ctx context.Context) ([]*models.EpgSource, error)
	// GetEnabled retrieves all enabled EPG sources.
	GetEnabled(ctx context.Context) ([]*models.EpgSource, error)
	// Update updates an existing EPG source.
	Update(ctx context.Context, source *models.EpgSource) error
	// Delete deletes an EPG source by ID.
	Delete(ctx context.Context, id models.ULID) error
	// GetByName retrieves an EPG source by name.
	GetByName(ctx context.Context, name string) (*models.EpgSource, error)
	// GetByURL retrieves an EPG source by URL.
	GetByURL(ctx context.Context, url string) (*models.EpgSource, error)
	// UpdateStatus updates only the refresh status of a source.
	UpdateStatus(ctx context.Context, id models.ULID, status models.EpgSourceStatus) error
	// UpdateLastRefresh records a successful refresh: status, counts,
	// refresh timestamp, cleared error.
	UpdateLastRefresh(ctx context.Context, id models.ULID, channelCount, programCount int) error
	// UpdateRefreshFailure records a failed refresh: status and error
	// message, counts and timestamp untouched.
	UpdateRefreshFailure(ctx context.Context, id models.ULID, message string) error
}

// EpgRepository is the staleness cache for one EPG source's guide data.
// One instance per configured source, shared by all callers.
//
// Reads never block on network I/O: a stale snapshot is returned
// immediately and a detached background refresh is triggered. Failures
// of that background refresh are logged, never surfaced to readers; a
// read only fails when there is no snapshot at all.
type EpgRepository interface {
	// Guide returns the current snapshot, loading the persisted one on
	// first use. Returns ErrNoCache (KindNotFound) when no snapshot
	// exists anywhere.
	Guide(ctx context.Context) (*models.EpgData, error)
	// ChannelPrograms returns one channel's programmes sorted by start
	// time, optionally restricted to the UTC calendar day containing day.
	ChannelPrograms(ctx context.Context, channelID string, day *time.Time) ([]models.EpgProgram, error)
	// Refresh downloads, parses and persists a new snapshot. A refresh
	// already in flight or a fresh cache without force is a successful
	// no-op; at most one download runs at any time.
	Refresh(ctx context.Context, force bool) error
	// ClearCache removes the persisted snapshot and drops the in-memory
	// one; subsequent reads behave as "no cache" until the next refresh.
	ClearCache(ctx context.Context) error
	// Metadata returns the bookkeeping of the current snapshot, nil when
	// none is loaded. The returned value must not be modified.
	Metadata() *models.EpgStorageMetadata
	// IsStale reports whether the current snapshot is older than the
	// source's refresh interval. A missing snapshot is always stale.
	IsStale() bool
}
