package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/service"
)

// CronValidator validates cron expressions before they are persisted.
// Implemented by scheduler.Scheduler.
type CronValidator interface {
	ValidateCron(expr string) error
}

// EpgSourceHandler handles EPG source configuration endpoints.
type EpgSourceHandler struct {
	epg    *service.EpgService
	cron   CronValidator
	logger *slog.Logger
}

// NewEpgSourceHandler creates a new EPG source handler. cron may be nil,
// in which case cron expressions are stored unvalidated.
func NewEpgSourceHandler(epg *service.EpgService, cron CronValidator, logger *slog.Logger) *EpgSourceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EpgSourceHandler{
		epg:    epg,
		cron:   cron,
		logger: logger,
	}
}

// ListEpgSourcesOutput is the response for listing EPG sources.
type ListEpgSourcesOutput struct {
	Body struct {
		Sources []EpgSourceResponse `json:"sources"`
		Total   int                 `json:"total"`
	}
}

// GetEpgSourceInput identifies a source by ID.
type GetEpgSourceInput struct {
	ID string `path:"id" doc:"EPG source ULID"`
}

// EpgSourceOutput wraps a single source response.
type EpgSourceOutput struct {
	Body EpgSourceResponse
}

// CreateEpgSourceInput wraps the creation request body.
type CreateEpgSourceInput struct {
	Body CreateEpgSourceRequest
}

// UpdateEpgSourceInput wraps the update request body.
type UpdateEpgSourceInput struct {
	ID   string `path:"id" doc:"EPG source ULID"`
	Body UpdateEpgSourceRequest
}

// DeleteEpgSourceInput identifies a source to delete.
type DeleteEpgSourceInput struct {
	ID string `path:"id" doc:"EPG source ULID"`
}

// DeleteEpgSourceOutput is the response for a deletion.
type DeleteEpgSourceOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// RefreshEpgSourceInput identifies a source to refresh.
type RefreshEpgSourceInput struct {
	ID    string `path:"id" doc:"EPG source ULID"`
	Force bool   `query:"force" doc:"Refresh even when the cache is still fresh" required:"false"`
}

// RefreshEpgSourceOutput acknowledges an accepted refresh.
type RefreshEpgSourceOutput struct {
	Status int
	Body   struct {
		Message string `json:"message"`
	}
}

// RegisterEpgSourceRoutes registers EPG source endpoints with the API.
func (h *EpgSourceHandler) RegisterEpgSourceRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "list-epg-sources",
		Method:      http.MethodGet,
		Path:        "/api/v1/sources",
		Summary:     "List EPG sources",
		Tags:        []string{"EPG Sources"},
	}, h.ListEpgSources)

	huma.Register(api, huma.Operation{
		OperationID: "get-epg-source",
		Method:      http.MethodGet,
		Path:        "/api/v1/sources/{id}",
		Summary:     "Get EPG source",
		Tags:        []string{"EPG Sources"},
	}, h.GetEpgSource)

	huma.Register(api, huma.Operation{
		OperationID:   "create-epg-source",
		Method:        http.MethodPost,
		Path:          "/api/v1/sources",
		Summary:       "Create EPG source",
		DefaultStatus: http.StatusCreated,
		Tags:          []string{"EPG Sources"},
	}, h.CreateEpgSource)

	huma.Register(api, huma.Operation{
		OperationID: "update-epg-source",
		Method:      http.MethodPut,
		Path:        "/api/v1/sources/{id}",
		Summary:     "Update EPG source",
		Tags:        []string{"EPG Sources"},
	}, h.UpdateEpgSource)

	huma.Register(api, huma.Operation{
		OperationID: "delete-epg-source",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sources/{id}",
		Summary:     "Delete EPG source",
		Description: "Deletes the source together with its cached guide data.",
		Tags:        []string{"EPG Sources"},
	}, h.DeleteEpgSource)

	huma.Register(api, huma.Operation{
		OperationID:   "refresh-epg-source",
		Method:        http.MethodPost,
		Path:          "/api/v1/sources/{id}/refresh",
		Summary:       "Refresh EPG source",
		Description:   "Triggers a background guide refresh. A refresh already in flight is a no-op.",
		DefaultStatus: http.StatusAccepted,
		Tags:          []string{"EPG Sources"},
	}, h.RefreshEpgSource)
}

// ListEpgSources handles GET /api/v1/sources.
func (h *EpgSourceHandler) ListEpgSources(ctx context.Context, input *struct{}) (*ListEpgSourcesOutput, error) {
	sources, err := h.epg.ListSources(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list EPG sources", err)
	}

	resp := &ListEpgSourcesOutput{}
	resp.Body.Sources = make([]EpgSourceResponse, 0, len(sources))
	for _, s := range sources {
		resp.Body.Sources = append(resp.Body.Sources, EpgSourceFromModel(s))
	}
	resp.Body.Total = len(resp.Body.Sources)
	return resp, nil
}

// GetEpgSource handles GET /api/v1/sources/{id}.
func (h *EpgSourceHandler) GetEpgSource(ctx context.Context, input *GetEpgSourceInput) (*EpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source ID: " + input.ID)
	}

	source, err := h.epg.GetSource(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			return nil, huma.Error404NotFound("EPG source not found: " + input.ID)
		}
		return nil, huma.Error500InternalServerError("failed to get EPG source", err)
	}

	return &EpgSourceOutput{Body: EpgSourceFromModel(source)}, nil
}

// CreateEpgSource handles POST /api/v1/sources.
func (h *EpgSourceHandler) CreateEpgSource(ctx context.Context, input *CreateEpgSourceInput) (*EpgSourceOutput, error) {
	source, err := input.Body.ToModel()
	if err != nil {
		return nil, err
	}

	if err := h.validateCron(source.CronSchedule); err != nil {
		return nil, err
	}

	if err := h.epg.CreateSource(ctx, source); err != nil {
		return nil, validationError(err, "failed to create EPG source")
	}

	h.logger.Info("created EPG source via API",
		slog.String("id", source.ID.String()),
		slog.String("name", source.Name))

	return &EpgSourceOutput{Body: EpgSourceFromModel(source)}, nil
}

// UpdateEpgSource handles PUT /api/v1/sources/{id}.
func (h *EpgSourceHandler) UpdateEpgSource(ctx context.Context, input *UpdateEpgSourceInput) (*EpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source ID: " + input.ID)
	}

	source, err := h.epg.GetSource(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			return nil, huma.Error404NotFound("EPG source not found: " + input.ID)
		}
		return nil, huma.Error500InternalServerError("failed to get EPG source", err)
	}

	if err := input.Body.ApplyToModel(source); err != nil {
		return nil, err
	}

	if err := h.validateCron(source.CronSchedule); err != nil {
		return nil, err
	}

	if err := h.epg.UpdateSource(ctx, source); err != nil {
		return nil, validationError(err, "failed to update EPG source")
	}

	return &EpgSourceOutput{Body: EpgSourceFromModel(source)}, nil
}

// DeleteEpgSource handles DELETE /api/v1/sources/{id}.
func (h *EpgSourceHandler) DeleteEpgSource(ctx context.Context, input *DeleteEpgSourceInput) (*DeleteEpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source ID: " + input.ID)
	}

	if err := h.epg.DeleteSource(ctx, id); err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			return nil, huma.Error404NotFound("EPG source not found: " + input.ID)
		}
		return nil, huma.Error500InternalServerError("failed to delete EPG source", err)
	}

	resp := &DeleteEpgSourceOutput{}
	resp.Body.Message = "EPG source deleted"
	return resp, nil
}

// RefreshEpgSource handles POST /api/v1/sources/{id}/refresh.
func (h *EpgSourceHandler) RefreshEpgSource(ctx context.Context, input *RefreshEpgSourceInput) (*RefreshEpgSourceOutput, error) {
	id, err := models.ParseULID(input.ID)
	if err != nil {
		return nil, huma.Error400BadRequest("invalid source ID: " + input.ID)
	}

	if err := h.epg.RefreshAsync(ctx, id, input.Force); err != nil {
		if errors.Is(err, models.ErrSourceNotFound) {
			return nil, huma.Error404NotFound("EPG source not found: " + input.ID)
		}
		if errors.Is(err, models.ErrSourceNotConfigured) {
			return nil, huma.Error400BadRequest("EPG source is not configured")
		}
		return nil, huma.Error500InternalServerError("failed to trigger refresh", err)
	}

	resp := &RefreshEpgSourceOutput{Status: http.StatusAccepted}
	resp.Body.Message = "refresh started"
	return resp, nil
}

func (h *EpgSourceHandler) validateCron(expr string) error {
	if expr == "" || h.cron == nil {
		return nil
	}
	if err := h.cron.ValidateCron(expr); err != nil {
		return huma.Error400BadRequest("invalid cron_schedule: " + err.Error())
	}
	return nil
}
