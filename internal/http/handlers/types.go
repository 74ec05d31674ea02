// Package handlers provides HTTP API handlers for guidarr.
package handlers

import (
	"errors"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/repository"
)

// EpgSourceResponse represents an EPG source in API responses. Passwords
// never appear here; Sanitize clears them before conversion.
type EpgSourceResponse struct {
	ID              models.ULID            `json:"id"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
	Name            string                 `json:"name"`
	Type            models.EpgSourceType   `json:"type"`
	URL             string                 `json:"url,omitempty"`
	Username        string                 `json:"username,omitempty"`
	UserAgent       string                 `json:"user_agent,omitempty"`
	RefreshInterval string                 `json:"refresh_interval"`
	AutoRefresh     bool                   `json:"auto_refresh"`
	CronSchedule    string                 `json:"cron_schedule,omitempty"`
	Enabled         bool                   `json:"enabled"`
	Configured      bool                   `json:"configured"`
	Status          models.EpgSourceStatus `json:"status"`
	LastRefreshAt   *time.Time             `json:"last_refresh_at,omitempty"`
	LastError       string                 `json:"last_error,omitempty"`
	ChannelCount    int                    `json:"channel_count"`
	ProgramCount    int                    `json:"program_count"`
}

// EpgSourceFromModel converts a model to a response, sanitizing
// credentials on a copy so the caller's model stays intact.
func EpgSourceFromModel(s *models.EpgSource) EpgSourceResponse {
	clean := *s
	clean.Sanitize()
	return EpgSourceResponse{
		ID:              clean.ID,
		CreatedAt:       clean.CreatedAt,
		UpdatedAt:       clean.UpdatedAt,
		Name:            clean.Name,
		Type:            clean.Type,
		URL:             clean.URL,
		Username:        clean.Username,
		UserAgent:       clean.UserAgent,
		RefreshInterval: clean.EffectiveRefreshInterval().String(),
		AutoRefresh:     clean.AutoRefresh,
		CronSchedule:    clean.CronSchedule,
		Enabled:         clean.Enabled,
		Configured:      clean.IsConfigured(),
		Status:          clean.Status,
		LastRefreshAt:   clean.LastRefreshAt,
		LastError:       clean.LastError,
		ChannelCount:    clean.ChannelCount,
		ProgramCount:    clean.ProgramCount,
	}
}

// CreateEpgSourceRequest is the request body for creating an EPG source.
type CreateEpgSourceRequest struct {
	Name            string               `json:"name" doc:"User-friendly name for the source" minLength:"1" maxLength:"255"`
	Type            models.EpgSourceType `json:"type" doc:"Source type: none, url or xtream" enum:"none,url,xtream"`
	URL             string               `json:"url,omitempty" doc:"XMLTV document URL or Xtream portal base URL" maxLength:"2048"`
	Username        string               `json:"username,omitempty" doc:"Username for Xtream authentication" maxLength:"255"`
	Password        string               `json:"password,omitempty" doc:"Password for Xtream authentication" maxLength:"255"`
	UserAgent       string               `json:"user_agent,omitempty" doc:"Custom User-Agent header" maxLength:"512"`
	RefreshInterval string               `json:"refresh_interval,omitempty" doc:"Staleness TTL, e.g. 6h (default 6h)"`
	AutoRefresh     *bool                `json:"auto_refresh,omitempty" doc:"Enable scheduled background refreshes (default: true)"`
	CronSchedule    string               `json:"cron_schedule,omitempty" doc:"Cron expression pinning refresh times" maxLength:"100"`
	Enabled         *bool                `json:"enabled,omitempty" doc:"Whether the source is enabled (default: true)"`
}

// ToModel converts the request to a model.
func (r *CreateEpgSourceRequest) ToModel() (*models.EpgSource, error) {
	source := &models.EpgSource{
		Name:         r.Name,
		Type:         r.Type,
		URL:          r.URL,
		Username:     r.Username,
		Password:     r.Password,
		UserAgent:    r.UserAgent,
		CronSchedule: r.CronSchedule,
		AutoRefresh:  true,
		Enabled:      true,
	}
	if r.RefreshInterval != "" {
		interval, err := time.ParseDuration(r.RefreshInterval)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid refresh_interval format: " + err.Error())
		}
		source.RefreshInterval = interval
	}
	if r.AutoRefresh != nil {
		source.AutoRefresh = *r.AutoRefresh
	}
	if r.Enabled != nil {
		source.Enabled = *r.Enabled
	}
	return source, nil
}

// UpdateEpgSourceRequest is the request body for updating an EPG source.
// Only provided fields are applied.
type UpdateEpgSourceRequest struct {
	Name            *string               `json:"name,omitempty" doc:"User-friendly name for the source" maxLength:"255"`
	Type            *models.EpgSourceType `json:"type,omitempty" doc:"Source type: none, url or xtream" enum:"none,url,xtream"`
	URL             *string               `json:"url,omitempty" doc:"XMLTV document URL or Xtream portal base URL" maxLength:"2048"`
	Username        *string               `json:"username,omitempty" doc:"Username for Xtream authentication" maxLength:"255"`
	Password        *string               `json:"password,omitempty" doc:"Password for Xtream authentication" maxLength:"255"`
	UserAgent       *string               `json:"user_agent,omitempty" doc:"Custom User-Agent header" maxLength:"512"`
	RefreshInterval *string               `json:"refresh_interval,omitempty" doc:"Staleness TTL, e.g. 6h"`
	AutoRefresh     *bool                 `json:"auto_refresh,omitempty" doc:"Enable scheduled background refreshes"`
	CronSchedule    *string               `json:"cron_schedule,omitempty" doc:"Cron expression pinning refresh times" maxLength:"100"`
	Enabled         *bool                 `json:"enabled,omitempty" doc:"Whether the source is enabled"`
}

// ApplyToModel applies provided fields to an existing model.
func (r *UpdateEpgSourceRequest) ApplyToModel(source *models.EpgSource) error {
	if r.Name != nil {
		source.Name = *r.Name
	}
	if r.Type != nil {
		source.Type = *r.Type
	}
	if r.URL != nil {
		source.URL = *r.URL
	}
	if r.Username != nil {
		source.Username = *r.Username
	}
	if r.Password != nil {
		source.Password = *r.Password
	}
	if r.UserAgent != nil {
		source.UserAgent = *r.UserAgent
	}
	if r.RefreshInterval != nil {
		interval, err := time.ParseDuration(*r.RefreshInterval)
		if err != nil {
			return huma.Error400BadRequest("invalid refresh_interval format: " + err.Error())
		}
		source.RefreshInterval = interval
	}
	if r.AutoRefresh != nil {
		source.AutoRefresh = *r.AutoRefresh
	}
	if r.CronSchedule != nil {
		source.CronSchedule = *r.CronSchedule
	}
	if r.Enabled != nil {
		source.Enabled = *r.Enabled
	}
	return nil
}

// ChannelResponse represents an EPG channel in API responses.
type ChannelResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	IconURL      string   `json:"icon_url,omitempty"`
	DisplayNames []string `json:"display_names,omitempty"`
}

// ChannelFromModel converts a channel to a response.
func ChannelFromModel(c models.EpgChannel) ChannelResponse {
	return ChannelResponse{
		ID:           c.ID,
		Name:         c.Name,
		IconURL:      c.IconURL,
		DisplayNames: c.DisplayNames,
	}
}

// ProgramResponse represents a programme in API responses. The derived
// timing fields are computed against the request's wall-clock time.
type ProgramResponse struct {
	ChannelID   string    `json:"channel_id"`
	Start       time.Time `json:"start"`
	Stop        time.Time `json:"stop"`
	Title       string    `json:"title"`
	SubTitle    string    `json:"sub_title,omitempty"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	EpisodeNum  string    `json:"episode_num,omitempty"`
	Language    string    `json:"language,omitempty"`

	OnAir           bool    `json:"on_air"`
	Progress        float64 `json:"progress"`
	DurationSeconds float64 `json:"duration_seconds"`
}

// ProgramFromModel converts a programme to a response, evaluating the
// derived fields at now.
func ProgramFromModel(p models.EpgProgram, now time.Time) ProgramResponse {
	return ProgramResponse{
		ChannelID:       p.ChannelID,
		Start:           p.Start,
		Stop:            p.Stop,
		Title:           p.Title,
		SubTitle:        p.SubTitle,
		Description:     p.Description,
		Category:        p.Category,
		Icon:            p.Icon,
		EpisodeNum:      p.EpisodeNum,
		Language:        p.Language,
		OnAir:           p.IsOnAirAt(now),
		Progress:        p.ProgressAt(now),
		DurationSeconds: p.Duration().Seconds(),
	}
}

// ProgramsFromModels converts a programme slice to responses.
func ProgramsFromModels(programs []models.EpgProgram, now time.Time) []ProgramResponse {
	out := make([]ProgramResponse, 0, len(programs))
	for _, p := range programs {
		out = append(out, ProgramFromModel(p, now))
	}
	return out
}

// guideError maps a repository failure kind onto the API error space.
// The guide is best effort: a missing cache is a 404, upstream trouble
// maps to gateway-style statuses, and nothing here ever takes a page
// down with a raw 500 unless the kind is truly unknown.
func guideError(err error) error {
	var httpErr huma.StatusError
	if errors.As(err, &httpErr) {
		return err
	}

	switch repository.Classify(err) {
	case repository.KindNotFound:
		return huma.Error404NotFound("no guide data available", err)
	case repository.KindAuth:
		return huma.Error502BadGateway("EPG provider rejected credentials", err)
	case repository.KindTimeout:
		return huma.Error504GatewayTimeout("EPG provider timed out", err)
	case repository.KindNetwork, repository.KindServer, repository.KindParse:
		return huma.Error502BadGateway("EPG provider unavailable", err)
	default:
		return huma.Error500InternalServerError("guide request failed", err)
	}
}

// validationError maps model validation sentinels onto 400 responses,
// falling back to a 500 for unexpected failures.
func validationError(err error, fallback string) error {
	if errors.Is(err, models.ErrNameRequired) ||
		errors.Is(err, models.ErrEpgURLRequired) ||
		errors.Is(err, models.ErrInvalidURL) ||
		errors.Is(err, models.ErrInvalidEpgSourceType) ||
		errors.Is(err, models.ErrXtreamCredentialsRequired) {
		return huma.Error400BadRequest(err.Error())
	}
	return huma.Error500InternalServerError(fallback, err)
}
