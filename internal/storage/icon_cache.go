package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// iconExtensions lists the extensions a cached icon may have been stored
// under, in probe order. PNG first: most icons are converted to PNG
// before storage, so the common case hits on the first stat.
var iconExtensions = []string{".png", ".svg", ".jpg", ".gif", ".webp", ".ico"}

// IconCache stores downloaded channel icons under the storage sandbox.
//
// Layout: icons/{shard}/{key}{ext}, where key is the SHA256 of the
// normalized source URL and shard is its first two hex characters. The
// key is deterministic, so an icon shared by many channels is stored
// once. There are no metadata sidecars; the file extension carries the
// content type.
type IconCache struct {
	sandbox *Sandbox
}

// NewIconCache creates a new IconCache in the given base directory.
func NewIconCache(baseDir string) (*IconCache, error) {
	sandbox, err := NewSandbox(baseDir)
	if err != nil {
		return nil, fmt.Errorf("creating sandbox: %w", err)
	}

	if err := sandbox.MkdirAll("icons"); err != nil {
		return nil, fmt.Errorf("creating icons directory: %w", err)
	}

	return &IconCache{sandbox: sandbox}, nil
}

// IconKey returns the cache key for an icon URL: the SHA256 hex digest
// of the normalized URL. Equivalent URLs (scheme variants, shuffled
// query parameters, default ports) produce the same key.
func IconKey(rawURL string) string {
	hash := sha256.Sum256([]byte(normalizeIconURL(rawURL)))
	return hex.EncodeToString(hash[:])
}

// Path returns the relative cache path for a key and content type.
// The first two characters of the key shard the directory so one
// directory never accumulates every icon.
func (c *IconCache) Path(key, contentType string) string {
	ext := extensionFromContentType(contentType)
	if ext == "" {
		ext = ".png"
	}

	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}

	return filepath.Join("icons", shard, key+ext)
}

// Store writes icon data under the key and returns the relative path
// and file size. The write is atomic: readers never observe a partial
// icon.
func (c *IconCache) Store(key, contentType string, r io.Reader) (string, int64, error) {
	path := c.Path(key, contentType)

	if err := c.sandbox.AtomicWriteReader(path, r); err != nil {
		return "", 0, fmt.Errorf("writing icon file: %w", err)
	}

	size, err := c.sandbox.Size(path)
	if err != nil {
		return "", 0, fmt.Errorf("getting file size: %w", err)
	}

	return path, size, nil
}

// Find probes the known extensions for a cached icon with the given key
// and returns its relative path. The bool reports whether one exists.
func (c *IconCache) Find(key string) (string, bool) {
	shard := key
	if len(shard) > 2 {
		shard = shard[:2]
	}

	for _, ext := range iconExtensions {
		path := filepath.Join("icons", shard, key+ext)
		if exists, _ := c.sandbox.Exists(path); exists {
			return path, true
		}
	}
	return "", false
}

// Open opens a cached icon file for reading.
func (c *IconCache) Open(relativePath string) (*os.File, error) {
	return c.sandbox.OpenFile(relativePath, os.O_RDONLY, 0)
}

// Exists checks whether a cached icon file exists.
func (c *IconCache) Exists(relativePath string) (bool, error) {
	return c.sandbox.Exists(relativePath)
}

// Delete removes a cached icon file.
func (c *IconCache) Delete(relativePath string) error {
	return c.sandbox.Remove(relativePath)
}

// AbsolutePath returns the absolute filesystem path for a relative icon path.
func (c *IconCache) AbsolutePath(relativePath string) (string, error) {
	return c.sandbox.ResolvePath(relativePath)
}

// BaseDir returns the absolute path to the cache base directory.
func (c *IconCache) BaseDir() string {
	return c.sandbox.BaseDir()
}

// IconCacheStats describes the cache contents.
type IconCacheStats struct {
	Icons     int   `json:"icons"`
	TotalSize int64 `json:"total_size"`
}

// Stats walks the icons directory and returns the number of cached
// icons and their total size.
func (c *IconCache) Stats() (IconCacheStats, error) {
	var stats IconCacheStats

	err := c.sandbox.Walk("icons", func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		stats.Icons++
		stats.TotalSize += info.Size()
		return nil
	})
	if err != nil {
		return IconCacheStats{}, fmt.Errorf("walking icons directory: %w", err)
	}

	return stats, nil
}

// Clear removes every cached icon.
func (c *IconCache) Clear() error {
	if err := c.sandbox.RemoveAll("icons"); err != nil {
		return fmt.Errorf("clearing icon cache: %w", err)
	}
	if err := c.sandbox.MkdirAll("icons"); err != nil {
		return fmt.Errorf("recreating icons directory: %w", err)
	}
	return nil
}

// normalizeIconURL normalizes a URL for consistent hashing.
// This ensures that equivalent URLs produce the same key:
//   - Removes scheme (http/https treated as equivalent)
//   - Lowercases hostname
//   - Removes default ports (80, 443)
//   - Sorts query parameters alphabetically
//   - Removes trailing slashes from path
func normalizeIconURL(rawURL string) string {
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		// If parsing fails, just lowercase and return
		return strings.ToLower(rawURL)
	}

	host := strings.ToLower(parsed.Host)
	host = strings.TrimSuffix(host, ":80")
	host = strings.TrimSuffix(host, ":443")

	path := strings.TrimSuffix(parsed.Path, "/")

	// Sort query parameters for consistent ordering
	query := parsed.Query()
	var sortedParams []string
	for key := range query {
		for _, val := range query[key] {
			sortedParams = append(sortedParams, key+"="+val)
		}
	}
	sort.Strings(sortedParams)

	result := host + path
	if len(sortedParams) > 0 {
		result += "?" + strings.Join(sortedParams, "&")
	}

	return result
}

// extensionFromContentType returns the file extension for a content type.
func extensionFromContentType(contentType string) string {
	// Handle content type with parameters (e.g., "image/png; charset=utf-8")
	contentType = strings.Split(contentType, ";")[0]
	contentType = strings.TrimSpace(contentType)
	contentType = strings.ToLower(contentType)

	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/svg+xml":
		return ".svg"
	case "image/x-icon", "image/vnd.microsoft.icon":
		return ".ico"
	default:
		return "" // No extension for unknown types
	}
}

// ContentTypeFromPath guesses the content type from a file path extension.
func ContentTypeFromPath(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".svg":
		return "image/svg+xml"
	case ".ico":
		return "image/x-icon"
	default:
		return "application/octet-stream"
	}
}
