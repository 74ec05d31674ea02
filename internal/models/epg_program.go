package models

import (
	"time"
)

// EpgProgram represents a single TV programme entry in an EPG snapshot.
// Programmes are plain values: they are built in memory from a parsed guide
// and persisted as serialized records, never as database rows.
//
// Start and Stop are stored in UTC and describe the half-open interval
// [Start, Stop): a programme is on air from its start up to, but not
// including, its stop.
type EpgProgram struct {
	// ChannelID is the EPG channel identifier the programme belongs to.
	ChannelID string `json:"channel_id"`

	// Start is the programme start time (UTC).
	Start time.Time `json:"start"`

	// Stop is the programme end time (UTC).
	Stop time.Time `json:"stop"`

	// Title is the programme title.
	Title string `json:"title"`

	// SubTitle is the episode title or subtitle.
	SubTitle string `json:"sub_title,omitempty"`

	// Description is the full programme description.
	Description string `json:"description,omitempty"`

	// Category is the programme genre/category.
	Category string `json:"category,omitempty"`

	// Icon is the URL to a programme image.
	Icon string `json:"icon,omitempty"`

	// EpisodeNum is the episode number in various formats (e.g., "S01E05").
	EpisodeNum string `json:"episode_num,omitempty"`

	// Language is the programme language.
	Language string `json:"language,omitempty"`
}

// Duration returns the programme duration.
func (p *EpgProgram) Duration() time.Duration {
	return p.Stop.Sub(p.Start)
}

// IsOnAirAt returns true if the programme is airing at the given instant,
// i.e. now is within [Start, Stop).
func (p *EpgProgram) IsOnAirAt(now time.Time) bool {
	return !now.Before(p.Start) && now.Before(p.Stop)
}

// IsUpcomingAt returns true if the programme starts after the given instant.
func (p *EpgProgram) IsUpcomingAt(now time.Time) bool {
	return p.Start.After(now)
}

// HasEndedAt returns true if the programme has ended at the given instant.
// A programme ends exactly at its stop time.
func (p *EpgProgram) HasEndedAt(now time.Time) bool {
	return !now.Before(p.Stop)
}

// ProgressAt returns the elapsed fraction of the programme at the given
// instant, clamped to [0, 1]: exactly 0 before the start and exactly 1 at
// or after the stop.
func (p *EpgProgram) ProgressAt(now time.Time) float64 {
	if now.Before(p.Start) {
		return 0
	}
	if !now.Before(p.Stop) {
		return 1
	}
	total := p.Stop.Sub(p.Start)
	if total <= 0 {
		return 1
	}
	return float64(now.Sub(p.Start)) / float64(total)
}

// RemainingAt returns the time left until the programme ends, never negative.
func (p *EpgProgram) RemainingAt(now time.Time) time.Duration {
	if !now.Before(p.Stop) {
		return 0
	}
	return p.Stop.Sub(now)
}

// TimeUntilStartAt returns the time until the programme starts, never negative.
func (p *EpgProgram) TimeUntilStartAt(now time.Time) time.Duration {
	if !now.Before(p.Start) {
		return 0
	}
	return p.Start.Sub(now)
}

// ValidateRequired checks the fields a programme record is unusable
// without: channel, start, stop and title. This is the drop decision
// for ingest and persisted-snapshot loads; zero or negative durations
// pass, since query paths tolerate them.
func (p *EpgProgram) ValidateRequired() error {
	if p.ChannelID == "" {
		return ErrChannelIDRequired
	}
	if p.Start.IsZero() {
		return ErrStartTimeRequired
	}
	if p.Stop.IsZero() {
		return ErrEndTimeRequired
	}
	if p.Title == "" {
		return ErrTitleRequired
	}
	return nil
}

// Validate performs full validation on the EPG programme, including the
// time-range sanity check.
func (p *EpgProgram) Validate() error {
	if err := p.ValidateRequired(); err != nil {
		return err
	}
	if !p.Stop.After(p.Start) {
		return ErrInvalidTimeRange
	}
	return nil
}
