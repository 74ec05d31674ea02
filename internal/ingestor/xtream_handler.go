package ingestor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/pkg/httpclient"
	"github.com/guidarr/guidarr/pkg/xmltv"
	"github.com/guidarr/guidarr/pkg/xtream"
)

// ServiceSourceXtream is the circuit breaker service name for Xtream
// portal requests.
const ServiceSourceXtream = "source_xtream"

// URL scheme prefixes accepted for portal base URLs.
const (
	httpSchemePrefix  = "http://"
	httpsSchemePrefix = "https://"
)

// XtreamHandler handles Xtream Codes portal sources. It probes the portal
// with the configured credentials, then downloads the portal's bulk
// xmltv.php guide.
type XtreamHandler struct {
	cfg         httpclient.Config
	breaker     *httpclient.CircuitBreaker
	client      *httpclient.Client
	authTimeout time.Duration
}

// NewXtreamHandler creates a new Xtream handler with default settings.
func NewXtreamHandler() *XtreamHandler {
	cfg := httpclient.DefaultConfig().WithTimeoutTier(httpclient.TimeoutExtended)
	breaker := httpclient.DefaultManager.GetOrCreate(ServiceSourceXtream)

	return &XtreamHandler{
		cfg:         cfg,
		breaker:     breaker,
		client:      httpclient.NewWithBreaker(cfg, breaker),
		authTimeout: httpclient.TimeoutShort,
	}
}

// WithHTTPClientConfig sets a custom HTTP client configuration.
func (h *XtreamHandler) WithHTTPClientConfig(cfg httpclient.Config) *XtreamHandler {
	h.cfg = cfg
	h.client = httpclient.NewWithBreaker(cfg, h.breaker)
	return h
}

// WithAuthTimeout overrides the budget for the portal authentication
// probe. Zero or negative values keep the short-tier default.
func (h *XtreamHandler) WithAuthTimeout(timeout time.Duration) *XtreamHandler {
	if timeout > 0 {
		h.authTimeout = timeout
	}
	return h
}

// Type returns the EPG source type this handler supports.
func (h *XtreamHandler) Type() models.EpgSourceType {
	return models.EpgSourceTypeXtream
}

// Validate checks if the EPG source configuration is valid for Xtream.
func (h *XtreamHandler) Validate(source *models.EpgSource) error {
	if source == nil {
		return fmt.Errorf("source is nil")
	}
	if source.Type != models.EpgSourceTypeXtream {
		return fmt.Errorf("invalid source type: expected %s, got %s", models.EpgSourceTypeXtream, source.Type)
	}
	if source.URL == "" {
		return fmt.Errorf("URL is required for Xtream sources")
	}
	if !strings.HasPrefix(source.URL, httpSchemePrefix) && !strings.HasPrefix(source.URL, httpsSchemePrefix) {
		return fmt.Errorf("URL must be an HTTP(S) URL")
	}
	if source.Username == "" {
		return fmt.Errorf("username is required for Xtream sources")
	}
	if source.Password == "" {
		return fmt.Errorf("password is required for Xtream sources")
	}
	return nil
}

// Fetch authenticates against the portal and downloads its guide.
// The authentication probe runs under the short timeout tier so bad
// credentials fail fast; the guide download runs under the extended tier.
func (h *XtreamHandler) Fetch(ctx context.Context, source *models.EpgSource) (*models.EpgData, *xmltv.Stats, error) {
	if err := h.Validate(source); err != nil {
		return nil, nil, fmt.Errorf("validation failed: %w", err)
	}

	opts := []xtream.ClientOption{xtream.WithHTTPClient(h.client.StandardClient())}
	if source.UserAgent != "" {
		opts = append(opts, xtream.WithUserAgent(source.UserAgent))
	}
	client := xtream.NewClient(source.URL, source.Username, source.Password, opts...)

	// Probe the portal before committing to the full guide download.
	err := httpclient.WithTimeout(ctx, "portal authentication", h.authTimeout, func(ctx context.Context) error {
		info, err := client.GetAuthInfo(ctx)
		if err != nil {
			return fmt.Errorf("probing portal: %w", err)
		}
		if !info.UserInfo.IsAuthenticated() {
			return ErrAuthRejected
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	budget := h.cfg.Timeout
	if budget <= 0 {
		budget = httpclient.TimeoutExtended
	}

	var data *models.EpgData
	var stats *xmltv.Stats
	err = httpclient.WithTimeout(ctx, "guide download", budget, func(ctx context.Context) error {
		reader, err := client.GetXMLTVReader(ctx)
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

// Ensure XtreamHandler implements SourceHandler.
var _ SourceHandler = (*XtreamHandler)(nil)
