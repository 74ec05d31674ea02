package models

import (
	"time"
)

// EpgStorageMetadata records bookkeeping about a persisted EPG snapshot.
// It is stored alongside the serialized programmes and drives the staleness
// check: a snapshot with no metadata, or no LastFetchedAt, is always stale.
type EpgStorageMetadata struct {
	// SourceID is the EpgSource the snapshot was fetched for.
	SourceID ULID `json:"source_id"`

	// LastFetchedAt is when the snapshot was last fetched successfully.
	// Nil means the snapshot age is unknown.
	LastFetchedAt *time.Time `json:"last_fetched_at,omitempty"`

	// ChannelCount is the number of channels in the snapshot.
	ChannelCount int `json:"channel_count"`

	// ProgramCount is the number of programmes in the snapshot.
	ProgramCount int `json:"program_count"`

	// SourceURL identifies where the snapshot came from.
	SourceURL string `json:"source_url,omitempty"`

	// SourceType is the source kind the snapshot was fetched with.
	SourceType EpgSourceType `json:"source_type,omitempty"`
}

// IsStale reports whether the snapshot behind this metadata is older than
// ttl at the given instant. Missing metadata or an unknown fetch time is
// always stale.
func (m *EpgStorageMetadata) IsStale(now time.Time, ttl time.Duration) bool {
	if m == nil || m.LastFetchedAt == nil {
		return true
	}
	return now.Sub(*m.LastFetchedAt) > ttl
}
