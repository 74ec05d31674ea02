package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/service"
)

// GuideHandler serves guide queries against the merged EPG snapshot.
type GuideHandler struct {
	epg    *service.EpgService
	logger *slog.Logger

	// now is replaceable for tests.
	now func() time.Time
}

// NewGuideHandler creates a new guide handler.
func NewGuideHandler(epg *service.EpgService, logger *slog.Logger) *GuideHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GuideHandler{
		epg:    epg,
		logger: logger,
		now:    time.Now,
	}
}

// ListChannelsOutput is the response for listing guide channels.
type ListChannelsOutput struct {
	Body struct {
		Channels []ChannelResponse `json:"channels"`
		Total    int               `json:"total"`
	}
}

// ChannelProgramsInput identifies a channel.
type ChannelProgramsInput struct {
	ChannelID string `path:"channel_id" doc:"XMLTV channel identifier"`
}

// ChannelProgramsOutput is the response for a channel's schedule.
type ChannelProgramsOutput struct {
	Body struct {
		ChannelID string            `json:"channel_id"`
		Programs  []ProgramResponse `json:"programs"`
		Total     int               `json:"total"`
	}
}

// NowNextInput identifies a channel for a now/next query.
type NowNextInput struct {
	ChannelID string `path:"channel_id" doc:"XMLTV channel identifier"`
}

// NowNextEntry holds the on-air and following programme for one channel.
// Either may be null when nothing is scheduled.
type NowNextEntry struct {
	ChannelID string           `json:"channel_id"`
	Current   *ProgramResponse `json:"current,omitempty"`
	Next      *ProgramResponse `json:"next,omitempty"`
}

// NowNextOutput is the response for a single-channel now/next query.
type NowNextOutput struct {
	Body NowNextEntry
}

// RangeInput identifies a channel and a time window.
type RangeInput struct {
	ChannelID string    `path:"channel_id" doc:"XMLTV channel identifier"`
	Start     time.Time `query:"start" doc:"Window start (RFC 3339)"`
	End       time.Time `query:"end" doc:"Window end (RFC 3339), exclusive"`
}

// DayInput identifies a channel and a calendar day.
type DayInput struct {
	ChannelID string `path:"channel_id" doc:"XMLTV channel identifier"`
	Date      string `query:"date" doc:"UTC calendar day, YYYY-MM-DD (default: today)" required:"false"`
}

// GuideNowOutput is the response for the all-channel now/next query.
type GuideNowOutput struct {
	Body struct {
		Entries []NowNextEntry `json:"entries"`
		Total   int            `json:"total"`
	}
}

// GuideStatusOutput reports per-source cache bookkeeping.
type GuideStatusOutput struct {
	Body struct {
		Sources      []SourceStatusResponse `json:"sources"`
		ChannelCount int                    `json:"channel_count"`
		ProgramCount int                    `json:"program_count"`
		HasGuide     bool                   `json:"has_guide"`
	}
}

// SourceStatusResponse pairs a source with its cache state.
type SourceStatusResponse struct {
	Source        EpgSourceResponse `json:"source"`
	Stale         bool              `json:"stale"`
	LastFetchedAt *time.Time        `json:"last_fetched_at,omitempty"`
	ChannelCount  int               `json:"channel_count"`
	ProgramCount  int               `json:"program_count"`
}

// RegisterGuideRoutes registers guide endpoints with the API.
func (h *GuideHandler) RegisterGuideRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-guide-channels",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/channels",
		Summary:     "List guide channels",
		Description: "Returns every channel in the merged EPG snapshot, sorted by name.",
		Tags:        []string{"Guide"},
	}, h.ListChannels)

	huma.Register(api, huma.Operation{
		OperationID: "get-channel-programs",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/channels/{channel_id}/programs",
		Summary:     "Get channel schedule",
		Description: "Returns the full programme list for one channel, sorted by start time.",
		Tags:        []string{"Guide"},
	}, h.ChannelPrograms)

	huma.Register(api, huma.Operation{
		OperationID: "get-channel-now-next",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/channels/{channel_id}/now",
		Summary:     "Get current and next programme",
		Tags:        []string{"Guide"},
	}, h.ChannelNowNext)

	huma.Register(api, huma.Operation{
		OperationID: "get-channel-programs-range",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/channels/{channel_id}/range",
		Summary:     "Get programmes in a time window",
		Description: "Returns programmes overlapping the half-open window [start, end).",
		Tags:        []string{"Guide"},
	}, h.ChannelRange)

	huma.Register(api, huma.Operation{
		OperationID: "get-channel-day-schedule",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/channels/{channel_id}/day",
		Summary:     "Get daily schedule",
		Description: "Returns programmes overlapping one UTC calendar day.",
		Tags:        []string{"Guide"},
	}, h.ChannelDay)

	huma.Register(api, huma.Operation{
		OperationID: "get-guide-now",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/now",
		Summary:     "Get now/next across all channels",
		Tags:        []string{"Guide"},
	}, h.GuideNow)

	huma.Register(api, huma.Operation{
		OperationID: "get-guide-status",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/status",
		Summary:     "Get guide cache status",
		Description: "Reports per-source cache metadata, staleness and guide totals.",
		Tags:        []string{"Guide"},
	}, h.GuideStatus)
}

// ListChannels handles GET /api/v1/guide/channels.
func (h *GuideHandler) ListChannels(ctx context.Context, input *struct{}) (*ListChannelsOutput, error) {
	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}

	channels := make([]ChannelResponse, 0, len(data.Channels))
	for _, c := range data.Channels {
		channels = append(channels, ChannelFromModel(c))
	}
	sort.Slice(channels, func(i, j int) bool {
		if channels[i].Name != channels[j].Name {
			return channels[i].Name < channels[j].Name
		}
		return channels[i].ID < channels[j].ID
	})

	resp := &ListChannelsOutput{}
	resp.Body.Channels = channels
	resp.Body.Total = len(channels)
	return resp, nil
}

// ChannelPrograms handles GET /api/v1/guide/channels/{channel_id}/programs.
func (h *GuideHandler) ChannelPrograms(ctx context.Context, input *ChannelProgramsInput) (*ChannelProgramsOutput, error) {
	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}
	if _, ok := data.Channels[input.ChannelID]; !ok {
		return nil, huma.Error404NotFound("channel not found: " + input.ChannelID)
	}

	now := h.now()
	resp := &ChannelProgramsOutput{}
	resp.Body.ChannelID = input.ChannelID
	resp.Body.Programs = ProgramsFromModels(data.ChannelPrograms(input.ChannelID), now)
	resp.Body.Total = len(resp.Body.Programs)
	return resp, nil
}

// ChannelNowNext handles GET /api/v1/guide/channels/{channel_id}/now.
func (h *GuideHandler) ChannelNowNext(ctx context.Context, input *NowNextInput) (*NowNextOutput, error) {
	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}
	if _, ok := data.Channels[input.ChannelID]; !ok {
		return nil, huma.Error404NotFound("channel not found: " + input.ChannelID)
	}

	now := h.now()
	resp := &NowNextOutput{}
	resp.Body = nowNextFor(data, input.ChannelID, now)
	return resp, nil
}

// ChannelRange handles GET /api/v1/guide/channels/{channel_id}/range.
func (h *GuideHandler) ChannelRange(ctx context.Context, input *RangeInput) (*ChannelProgramsOutput, error) {
	if input.Start.IsZero() || input.End.IsZero() {
		return nil, huma.Error400BadRequest("start and end query parameters are required")
	}
	if !input.End.After(input.Start) {
		return nil, huma.Error400BadRequest("end must be after start")
	}

	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}
	if _, ok := data.Channels[input.ChannelID]; !ok {
		return nil, huma.Error404NotFound("channel not found: " + input.ChannelID)
	}

	now := h.now()
	resp := &ChannelProgramsOutput{}
	resp.Body.ChannelID = input.ChannelID
	resp.Body.Programs = ProgramsFromModels(data.ProgramsInRange(input.ChannelID, input.Start, input.End), now)
	resp.Body.Total = len(resp.Body.Programs)
	return resp, nil
}

// ChannelDay handles GET /api/v1/guide/channels/{channel_id}/day.
func (h *GuideHandler) ChannelDay(ctx context.Context, input *DayInput) (*ChannelProgramsOutput, error) {
	day := h.now().UTC()
	if input.Date != "" {
		parsed, err := time.Parse("2006-01-02", input.Date)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid date, expected YYYY-MM-DD: " + input.Date)
		}
		day = parsed
	}

	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}
	if _, ok := data.Channels[input.ChannelID]; !ok {
		return nil, huma.Error404NotFound("channel not found: " + input.ChannelID)
	}

	now := h.now()
	resp := &ChannelProgramsOutput{}
	resp.Body.ChannelID = input.ChannelID
	resp.Body.Programs = ProgramsFromModels(data.DailySchedule(input.ChannelID, day), now)
	resp.Body.Total = len(resp.Body.Programs)
	return resp, nil
}

// GuideNow handles GET /api/v1/guide/now.
func (h *GuideHandler) GuideNow(ctx context.Context, input *struct{}) (*GuideNowOutput, error) {
	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}

	now := h.now()
	entries := make([]NowNextEntry, 0, len(data.Channels))
	for id := range data.Channels {
		entries = append(entries, nowNextFor(data, id, now))
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ChannelID < entries[j].ChannelID
	})

	resp := &GuideNowOutput{}
	resp.Body.Entries = entries
	resp.Body.Total = len(entries)
	return resp, nil
}

// GuideStatus handles GET /api/v1/guide/status.
func (h *GuideHandler) GuideStatus(ctx context.Context, input *struct{}) (*GuideStatusOutput, error) {
	statuses, err := h.epg.Status(ctx)
	if err != nil {
		return nil, guideError(err)
	}

	resp := &GuideStatusOutput{}
	resp.Body.Sources = make([]SourceStatusResponse, 0, len(statuses))
	for _, st := range statuses {
		entry := SourceStatusResponse{
			Source: EpgSourceFromModel(st.Source),
			Stale:  st.Stale,
		}
		if st.Metadata != nil {
			entry.LastFetchedAt = st.Metadata.LastFetchedAt
			entry.ChannelCount = st.Metadata.ChannelCount
			entry.ProgramCount = st.Metadata.ProgramCount
		}
		resp.Body.Sources = append(resp.Body.Sources, entry)
	}

	if data, err := h.epg.Guide(ctx); err == nil {
		resp.Body.HasGuide = true
		resp.Body.ChannelCount = len(data.Channels)
		resp.Body.ProgramCount = data.TotalPrograms()
	}
	return resp, nil
}

// nowNextFor builds the now/next entry for one channel.
func nowNextFor(data *models.EpgData, channelID string, now time.Time) NowNextEntry {
	entry := NowNextEntry{ChannelID: channelID}
	if current := data.CurrentProgram(channelID, now); current != nil {
		r := ProgramFromModel(*current, now)
		entry.Current = &r
	}
	if next := data.NextProgram(channelID, now); next != nil {
		r := ProgramFromModel(*next, now)
		entry.Next = &r
	}
	return entry
}
