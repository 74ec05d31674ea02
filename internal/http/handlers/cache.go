package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/guidarr/guidarr/internal/service"
)

// CacheHandler handles guide cache administration.
type CacheHandler struct {
	epg    *service.EpgService
	icons  *service.IconService
	logger *slog.Logger
}

// NewCacheHandler creates a new cache handler. icons may be nil when icon
// caching is disabled.
func NewCacheHandler(epg *service.EpgService, icons *service.IconService, logger *slog.Logger) *CacheHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheHandler{
		epg:    epg,
		icons:  icons,
		logger: logger,
	}
}

// ClearCacheOutput is the response for a cache clear.
type ClearCacheOutput struct {
	Body struct {
		Message string `json:"message"`
	}
}

// RegisterCacheRoutes registers cache endpoints with the API.
func (h *CacheHandler) RegisterCacheRoutes(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "clear-cache",
		Method:      http.MethodDelete,
		Path:        "/api/v1/cache",
		Summary:     "Clear guide cache",
		Description: "Drops every source's cached guide data and the icon cache. The next guide read starts from fresh downloads.",
		Tags:        []string{"Cache"},
	}, h.ClearCache)
}

// ClearCache handles DELETE /api/v1/cache.
func (h *CacheHandler) ClearCache(ctx context.Context, input *struct{}) (*ClearCacheOutput, error) {
	if err := h.epg.ClearCache(ctx); err != nil {
		return nil, huma.Error500InternalServerError("failed to clear guide cache", err)
	}

	if h.icons != nil {
		if err := h.icons.Clear(); err != nil {
			h.logger.Warn("failed to clear icon cache", slog.Any("error", err))
		}
	}

	resp := &ClearCacheOutput{}
	resp.Body.Message = "cache cleared"
	return resp, nil
}
