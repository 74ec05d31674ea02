package handlers

import (
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/guidarr/guidarr/internal/service"
	"github.com/guidarr/guidarr/pkg/xmltv"
)

// ExportHandler streams the merged guide as an XMLTV document. It is a
// raw chi route rather than a huma operation so the XML body can be
// written incrementally instead of buffered through the JSON codec.
type ExportHandler struct {
	epg    *service.EpgService
	logger *slog.Logger
}

// NewExportHandler creates a new export handler.
func NewExportHandler(epg *service.EpgService, logger *slog.Logger) *ExportHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportHandler{
		epg:    epg,
		logger: logger,
	}
}

// RegisterExportRoutes registers the XMLTV export route on the router.
func (h *ExportHandler) RegisterExportRoutes(router chi.Router) {
	router.Get("/api/v1/epg.xml", h.ExportXMLTV)
}

// ExportXMLTV handles GET /api/v1/epg.xml.
func (h *ExportHandler) ExportXMLTV(w http.ResponseWriter, r *http.Request) {
	data, err := h.epg.Guide(r.Context())
	if err != nil {
		h.logger.Warn("XMLTV export failed", slog.Any("error", err))
		http.Error(w, "no guide data available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="epg.xml"`)

	writer := xmltv.NewWriter(w)
	if err := writer.WriteHeader(); err != nil {
		h.logger.Error("writing XMLTV header", slog.Any("error", err))
		return
	}

	// Deterministic output: channels sorted by id, then each channel's
	// programmes in their stored start-time order.
	ids := make([]string, 0, len(data.Channels))
	for id := range data.Channels {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		c := data.Channels[id]
		ch := &xmltv.Channel{
			ID:           c.ID,
			DisplayNames: c.DisplayNames,
			Icon:         c.IconURL,
		}
		if len(ch.DisplayNames) == 0 && c.Name != "" {
			ch.DisplayNames = []string{c.Name}
		}
		if err := writer.WriteChannel(ch); err != nil {
			h.logger.Error("writing XMLTV channel", slog.String("channel", id), slog.Any("error", err))
			return
		}
	}

	for _, id := range ids {
		for _, p := range data.Programs[id] {
			prog := &xmltv.Programme{
				Channel:     p.ChannelID,
				Start:       p.Start,
				Stop:        p.Stop,
				Title:       p.Title,
				SubTitle:    p.SubTitle,
				Description: p.Description,
				Category:    p.Category,
				Language:    p.Language,
				Icon:        p.Icon,
				EpisodeNum:  p.EpisodeNum,
			}
			if err := writer.WriteProgramme(prog); err != nil {
				h.logger.Error("writing XMLTV programme", slog.String("channel", id), slog.Any("error", err))
				return
			}
		}
	}

	if err := writer.WriteFooter(); err != nil {
		h.logger.Error("writing XMLTV footer", slog.Any("error", err))
	}
}
