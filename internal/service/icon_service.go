package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/guidarr/guidarr/internal/storage"
	"github.com/guidarr/guidarr/pkg/httpclient"
)

// IconService downloads channel icons on demand and serves them from the
// local cache. Raster formats are normalized to PNG; SVGs are stored
// as-is. Concurrent requests for the same icon collapse into a single
// upstream download.
type IconService struct {
	cache     *storage.IconCache
	client    *httpclient.Client
	converter *ImageConverter
	logger    *slog.Logger

	group singleflight.Group
}

// NewIconService creates a new icon service. The client should come from
// the factory's icon_fetch profile so icon host failures trip their own
// circuit breaker instead of the guide's.
func NewIconService(cache *storage.IconCache, client *httpclient.Client) *IconService {
	return &IconService{
		cache:     cache,
		client:    client,
		converter: NewImageConverter(),
		logger:    slog.Default(),
	}
}

// WithLogger sets the logger for the service.
func (s *IconService) WithLogger(logger *slog.Logger) *IconService {
	s.logger = logger
	return s
}

// Resolve returns the cache-relative path for an icon URL, downloading,
// converting and storing the icon on first use. Repeated requests are
// served from cache; concurrent requests for the same icon share one
// in-flight download.
func (s *IconService) Resolve(ctx context.Context, iconURL string) (string, error) {
	if iconURL == "" {
		return "", fmt.Errorf("resolving icon: empty url")
	}

	key := storage.IconKey(iconURL)
	if path, ok := s.cache.Find(key); ok {
		return path, nil
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		// Another caller may have stored the icon between our cache miss
		// and winning the flight.
		if path, ok := s.cache.Find(key); ok {
			return path, nil
		}
		return s.download(ctx, key, iconURL)
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Open opens a cached icon by its cache-relative path.
func (s *IconService) Open(relativePath string) (*os.File, error) {
	return s.cache.Open(relativePath)
}

// ContentType returns the MIME type for a cached icon path.
func (s *IconService) ContentType(relativePath string) string {
	return storage.ContentTypeFromPath(relativePath)
}

// Stats returns cache counters for status reporting.
func (s *IconService) Stats() (storage.IconCacheStats, error) {
	return s.cache.Stats()
}

// Clear removes every cached icon.
func (s *IconService) Clear() error {
	if err := s.cache.Clear(); err != nil {
		return fmt.Errorf("clearing icon cache: %w", err)
	}
	s.logger.Info("cleared icon cache")
	return nil
}

// download fetches the icon and stores it in the cache, returning the
// cache-relative path.
func (s *IconService) download(ctx context.Context, key, iconURL string) (string, error) {
	resp, err := s.client.Get(ctx, iconURL)
	if err != nil {
		return "", fmt.Errorf("downloading icon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("downloading icon: %w", &httpclient.StatusError{StatusCode: resp.StatusCode})
	}

	contentType := resp.Header.Get("Content-Type")
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = contentType[:idx]
	}
	contentType = strings.TrimSpace(contentType)

	// SVGs stay vector. Everything else goes through the PNG converter,
	// whose decoder sniffs the real format, so an upstream lying about
	// the content type still converts correctly.
	if s.converter.IsSVG(contentType) {
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", fmt.Errorf("reading icon data: %w", err)
		}
		return s.store(key, contentType, data, iconURL)
	}

	data, err := s.converter.ConvertToPNGReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("converting icon: %w", err)
	}
	return s.store(key, "image/png", data, iconURL)
}

func (s *IconService) store(key, contentType string, data []byte, iconURL string) (string, error) {
	path, size, err := s.cache.Store(key, contentType, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("storing icon: %w", err)
	}

	s.logger.Debug("cached icon",
		"url", iconURL,
		"path", path,
		"size", size,
		"content_type", contentType,
	)

	return path, nil
}
