package models

import (
	"net/url"
	"strings"
	"time"

	"gorm.io/gorm"
)

// EpgSourceType represents the kind of EPG source configuration.
// The source is a tagged union: "none" carries no payload, "url" carries a
// direct XMLTV document URL, and "xtream" carries Xtream portal credentials.
type EpgSourceType string

const (
	// EpgSourceTypeNone represents an unconfigured source.
	EpgSourceTypeNone EpgSourceType = "none"
	// EpgSourceTypeURL represents a direct XMLTV document URL.
	EpgSourceTypeURL EpgSourceType = "url"
	// EpgSourceTypeXtream represents an Xtream Codes portal.
	EpgSourceTypeXtream EpgSourceType = "xtream"
)

// EpgSourceStatus represents the current refresh status of an EPG source.
type EpgSourceStatus string

const (
	// EpgSourceStatusPending indicates the source has never been refreshed.
	EpgSourceStatusPending EpgSourceStatus = "pending"
	// EpgSourceStatusRefreshing indicates a refresh is in progress.
	EpgSourceStatusRefreshing EpgSourceStatus = "refreshing"
	// EpgSourceStatusSuccess indicates the last refresh was successful.
	EpgSourceStatusSuccess EpgSourceStatus = "success"
	// EpgSourceStatusFailed indicates the last refresh failed.
	EpgSourceStatusFailed EpgSourceStatus = "failed"
)

// DefaultRefreshInterval is the staleness TTL applied when a source does not
// configure its own.
const DefaultRefreshInterval = 6 * time.Hour

// EpgSource represents an upstream EPG (Electronic Program Guide) source.
type EpgSource struct {
	BaseModel

	// Name is a user-friendly name for the source.
	// Must be unique across all EPG sources.
	Name string `gorm:"uniqueIndex;not null;size:255" json:"name"`

	// Type selects the union arm: none, url or xtream.
	Type EpgSourceType `gorm:"not null;default:'none';size:20" json:"type"`

	// URL is the XMLTV document URL (url type) or the Xtream portal base
	// URL (xtream type). Unused for the none type.
	URL string `gorm:"size:2048" json:"url,omitempty"`

	// Username for Xtream authentication.
	Username string `gorm:"size:255" json:"username,omitempty"`

	// Password for Xtream authentication. Cleared by Sanitize before the
	// source is returned from the API.
	Password string `gorm:"size:255" json:"password,omitempty"`

	// UserAgent to use when fetching the source (optional).
	UserAgent string `gorm:"size:512" json:"user_agent,omitempty"`

	// RefreshInterval is the staleness TTL for this source's guide data.
	// Zero means DefaultRefreshInterval.
	RefreshInterval time.Duration `gorm:"default:0" json:"refresh_interval"`

	// AutoRefresh enables scheduled background refreshes for this source.
	AutoRefresh bool `gorm:"default:true" json:"auto_refresh"`

	// CronSchedule optionally pins refreshes to a cron expression instead
	// of the interval-based staleness check. Empty means interval only.
	CronSchedule string `gorm:"size:100" json:"cron_schedule,omitempty"`

	// Enabled indicates whether this source should be refreshed at all.
	Enabled bool `gorm:"default:true" json:"enabled"`

	// Status indicates the current refresh status.
	Status EpgSourceStatus `gorm:"not null;default:'pending';size:20" json:"status"`

	// LastRefreshAt is the timestamp of the last successful refresh.
	LastRefreshAt *time.Time `json:"last_refresh_at,omitempty"`

	// LastError contains the error message from the last failed refresh.
	LastError string `gorm:"size:4096" json:"last_error,omitempty"`

	// ChannelCount is the number of channels from the last refresh.
	ChannelCount int `gorm:"default:0" json:"channel_count"`

	// ProgramCount is the number of programmes from the last refresh.
	ProgramCount int `gorm:"default:0" json:"program_count"`
}

// TableName returns the table name for EpgSource.
func (EpgSource) TableName() string {
	return "epg_sources"
}

// IsConfigured returns true when the source selects a real kind and carries
// that kind's payload: a URL for url sources, portal credentials for xtream.
func (s *EpgSource) IsConfigured() bool {
	switch s.Type {
	case EpgSourceTypeURL:
		return s.URL != ""
	case EpgSourceTypeXtream:
		return s.URL != "" && s.Username != "" && s.Password != ""
	default:
		return false
	}
}

// IsURL returns true if this is a direct XMLTV URL source.
func (s *EpgSource) IsURL() bool {
	return s.Type == EpgSourceTypeURL
}

// IsXtream returns true if this is an Xtream portal source.
func (s *EpgSource) IsXtream() bool {
	return s.Type == EpgSourceTypeXtream
}

// EffectiveRefreshInterval returns the configured refresh interval, falling
// back to DefaultRefreshInterval when unset.
func (s *EpgSource) EffectiveRefreshInterval() time.Duration {
	if s.RefreshInterval > 0 {
		return s.RefreshInterval
	}
	return DefaultRefreshInterval
}

// MarkRefreshing sets the source status to refreshing.
func (s *EpgSource) MarkRefreshing() {
	s.Status = EpgSourceStatusRefreshing
	s.LastError = ""
}

// MarkSuccess sets the source status to success with the snapshot counts.
func (s *EpgSource) MarkSuccess(channelCount, programCount int) {
	s.Status = EpgSourceStatusSuccess
	now := time.Now().UTC()
	s.LastRefreshAt = &now
	s.ChannelCount = channelCount
	s.ProgramCount = programCount
	s.LastError = ""
}

// MarkFailed sets the source status to failed with an error message.
func (s *EpgSource) MarkFailed(err error) {
	s.Status = EpgSourceStatusFailed
	if err != nil {
		s.LastError = err.Error()
	}
}

// Sanitize trims whitespace from user-provided fields and clears the
// password so the source can be returned from the API.
func (s *EpgSource) Sanitize() {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.Username = strings.TrimSpace(s.Username)
	s.UserAgent = strings.TrimSpace(s.UserAgent)
	s.Password = ""
}

// Validate performs basic validation on the EPG source, enforcing the
// union's invariants per type.
func (s *EpgSource) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	s.URL = strings.TrimSpace(s.URL)
	s.Username = strings.TrimSpace(s.Username)
	s.Password = strings.TrimSpace(s.Password)

	if s.Name == "" {
		return ErrNameRequired
	}

	switch s.Type {
	case EpgSourceTypeNone:
		return nil
	case EpgSourceTypeURL:
		if s.URL == "" {
			return ErrEpgURLRequired
		}
	case EpgSourceTypeXtream:
		if s.URL == "" || s.Username == "" || s.Password == "" {
			return ErrXtreamCredentialsRequired
		}
	default:
		return ErrInvalidEpgSourceType
	}

	if _, err := url.Parse(s.URL); err != nil {
		return ErrInvalidURL
	}
	return nil
}

// BeforeCreate is a GORM hook that validates the source and generates ULID.
func (s *EpgSource) BeforeCreate(tx *gorm.DB) error {
	if err := s.BaseModel.BeforeCreate(tx); err != nil {
		return err
	}
	if s.Type == "" {
		s.Type = EpgSourceTypeNone
	}
	return s.Validate()
}

// BeforeUpdate is a GORM hook that validates the source before update.
func (s *EpgSource) BeforeUpdate(tx *gorm.DB) error {
	return s.Validate()
}
