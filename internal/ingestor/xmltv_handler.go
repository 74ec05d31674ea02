package ingestor

import (
	"context"
	"fmt"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/internal/urlutil"
	"github.com/guidarr/guidarr/pkg/httpclient"
	"github.com/guidarr/guidarr/pkg/xmltv"
)

// ServiceSourceXMLTV is the circuit breaker service name for direct
// XMLTV document downloads.
const ServiceSourceXMLTV = "source_xmltv"

// XMLTVHandler handles direct XMLTV document sources (the url kind).
// It supports http://, https:// and file:// URLs.
type XMLTVHandler struct {
	cfg     httpclient.Config
	breaker *httpclient.CircuitBreaker
	fetcher *urlutil.ResourceFetcher
}

// NewXMLTVHandler creates a new XMLTV handler with default settings.
func NewXMLTVHandler() *XMLTVHandler {
	cfg := httpclient.DefaultConfig().WithTimeoutTier(httpclient.TimeoutExtended)
	breaker := httpclient.DefaultManager.GetOrCreate(ServiceSourceXMLTV)

	return &XMLTVHandler{
		cfg:     cfg,
		breaker: breaker,
		fetcher: urlutil.NewResourceFetcherWithBreaker(cfg, breaker),
	}
}

// WithHTTPClientConfig sets a custom HTTP client configuration.
func (h *XMLTVHandler) WithHTTPClientConfig(cfg httpclient.Config) *XMLTVHandler {
	h.cfg = cfg
	h.fetcher = urlutil.NewResourceFetcherWithBreaker(cfg, h.breaker)
	return h
}

// Type returns the EPG source type this handler supports.
func (h *XMLTVHandler) Type() models.EpgSourceType {
	return models.EpgSourceTypeURL
}

// Validate checks if the EPG source configuration is valid for XMLTV.
func (h *XMLTVHandler) Validate(source *models.EpgSource) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}
	if source.Type != models.EpgSourceTypeURL {
		return fmt.Errorf("invalid source type: expected %s, got %s", models.EpgSourceTypeURL, source.Type)
	}
	if source.URL == "" {
		return fmt.Errorf("URL is required for XMLTV sources")
	}
	if !urlutil.IsSupportedURL(source.URL) {
		return fmt.Errorf("URL must be an HTTP, HTTPS, or file:// URL")
	}
	return nil
}

// Fetch downloads the XMLTV document and builds a snapshot from it.
// The whole download-and-parse runs under the extended timeout tier.
func (h *XMLTVHandler) Fetch(ctx context.Context, source *models.EpgSource) (*models.EpgData, *xmltv.Stats, error) {
	if err := h.Validate(source); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	budget := h.cfg.Timeout
	if budget <= 0 {
		budget = httpclient.TimeoutExtended
	}

	var data *models.EpgData
	var stats *xmltv.Stats
	err := httpclient.WithTimeout(ctx, "guide download", budget, func(ctx context.Context) error {
		reader, err := h.fetcherFor(source).Fetch(ctx, source.URL)
		if err != nil {
			return fmt.Errorf("fetching guide: %w", err)
		}
		defer reader.Close()

		data, stats, err = buildSnapshot(ctx, reader, source.URL)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return data, stats, nil
}

// fetcherFor returns the fetcher honouring a per-source User-Agent override.
func (h *XMLTVHandler) fetcherFor(source *models.EpgSource) *urlutil.ResourceFetcher {
	if source.UserAgent == "" {
		return h.fetcher
	}
	cfg := h.cfg
	cfg.UserAgent = source.UserAgent
	return urlutil.NewResourceFetcherWithBreaker(cfg, h.breaker)
}

// Ensure XMLTVHandler implements SourceHandler.
var _ SourceHandler = (*XMLTVHandler)(nil)
