package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/go-chi/chi/v5"

	"github.com/guidarr/guidarr/internal/service"
)

// IconHandler serves cached channel icons and resolves icon URLs into
// cache paths.
type IconHandler struct {
	icons  *service.IconService
	epg    *service.EpgService
	logger *slog.Logger
}

// NewIconHandler creates a new icon handler.
func NewIconHandler(icons *service.IconService, epg *service.EpgService, logger *slog.Logger) *IconHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &IconHandler{
		icons:  icons,
		epg:    epg,
		logger: logger,
	}
}

// ChannelIconInput identifies a channel whose icon to resolve.
type ChannelIconInput struct {
	ChannelID string `path:"channel_id" doc:"XMLTV channel identifier"`
}

// ChannelIconOutput is the response for an icon resolution.
type ChannelIconOutput struct {
	Body struct {
		ChannelID string `json:"channel_id"`
		IconURL   string `json:"icon_url"`
		Path      string `json:"path"`
	}
}

// IconStatsOutput reports icon cache counters.
type IconStatsOutput struct {
	Body struct {
		Icons     int   `json:"icons"`
		TotalSize int64 `json:"total_size"`
	}
}

// Register registers icon endpoints with the API.
func (h *IconHandler) Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "resolve-channel-icon",
		Method:      http.MethodGet,
		Path:        "/api/v1/guide/channels/{channel_id}/icon",
		Summary:     "Resolve channel icon",
		Description: "Downloads and caches the channel's icon on first use, returning its serving path.",
		Tags:        []string{"Icons"},
	}, h.ResolveChannelIcon)

	huma.Register(api, huma.Operation{
		OperationID: "get-icon-stats",
		Method:      http.MethodGet,
		Path:        "/api/v1/icons/stats",
		Summary:     "Get icon cache statistics",
		Tags:        []string{"Icons"},
	}, h.GetIconStats)
}

// RegisterFileServer registers the raw file route serving cached icons
// under /icons/. Cache paths are sharded (icons/ab/key.ext), so the
// route takes a wildcard rather than a single segment.
func (h *IconHandler) RegisterFileServer(router chi.Router) {
	router.Get("/icons/*", h.ServeIconFile)
	router.Head("/icons/*", h.ServeIconFile)
}

// ResolveChannelIcon handles GET /api/v1/guide/channels/{channel_id}/icon.
func (h *IconHandler) ResolveChannelIcon(ctx context.Context, input *ChannelIconInput) (*ChannelIconOutput, error) {
	data, err := h.epg.Guide(ctx)
	if err != nil {
		return nil, guideError(err)
	}

	channel, ok := data.Channels[input.ChannelID]
	if !ok {
		return nil, huma.Error404NotFound("channel not found: " + input.ChannelID)
	}
	if channel.IconURL == "" {
		return nil, huma.Error404NotFound("channel has no icon: " + input.ChannelID)
	}

	path, err := h.icons.Resolve(ctx, channel.IconURL)
	if err != nil {
		return nil, huma.Error502BadGateway("failed to fetch channel icon", err)
	}

	resp := &ChannelIconOutput{}
	resp.Body.ChannelID = input.ChannelID
	resp.Body.IconURL = channel.IconURL
	// Resolve returns the cache-relative path, already icons/ prefixed.
	resp.Body.Path = "/" + path
	return resp, nil
}

// GetIconStats handles GET /api/v1/icons/stats.
func (h *IconHandler) GetIconStats(ctx context.Context, input *struct{}) (*IconStatsOutput, error) {
	stats, err := h.icons.Stats()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read icon cache stats", err)
	}

	resp := &IconStatsOutput{}
	resp.Body.Icons = stats.Icons
	resp.Body.TotalSize = stats.TotalSize
	return resp, nil
}

// ServeIconFile serves a cached icon by its cache-relative path.
func (h *IconHandler) ServeIconFile(w http.ResponseWriter, r *http.Request) {
	rest := chi.URLParam(r, "*")
	if rest == "" {
		http.Error(w, "icon path required", http.StatusBadRequest)
		return
	}
	relPath := "icons/" + rest

	file, err := h.icons.Open(relPath)
	if err != nil {
		http.Error(w, "icon not found", http.StatusNotFound)
		return
	}
	defer file.Close()

	w.Header().Set("Content-Type", h.icons.ContentType(relPath))
	// Icons are content addressed, so a cached copy never goes stale.
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")

	if r.Method == http.MethodHead {
		return
	}

	if _, err := io.Copy(w, file); err != nil {
		h.logger.Debug("serving icon interrupted", slog.String("path", relPath), slog.Any("error", err))
	}
}
