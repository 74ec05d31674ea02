package storage

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIconCache_New(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)
	require.NotNil(t, cache)

	// Check that icons directory was created
	iconsDir := filepath.Join(tempDir, "icons")
	info, err := os.Stat(iconsDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestIconKey_Deterministic(t *testing.T) {
	key1 := IconKey("http://example.com/logo.png")
	key2 := IconKey("http://example.com/logo.png")
	assert.Equal(t, key1, key2)
	assert.Len(t, key1, 64) // SHA256 hex
}

func TestIconKey_NormalizesEquivalentURLs(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
	}{
		{"scheme variants", "http://example.com/logo.png", "https://example.com/logo.png"},
		{"host case", "http://EXAMPLE.com/logo.png", "http://example.com/logo.png"},
		{"default port", "http://example.com:80/logo.png", "http://example.com/logo.png"},
		{"https default port", "https://example.com:443/logo.png", "https://example.com/logo.png"},
		{"query param order", "http://example.com/logo.png?a=1&b=2", "http://example.com/logo.png?b=2&a=1"},
		{"trailing slash", "http://example.com/logos/", "http://example.com/logos"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, IconKey(tt.a), IconKey(tt.b))
		})
	}
}

func TestIconKey_DistinctURLs(t *testing.T) {
	assert.NotEqual(t,
		IconKey("http://example.com/one.png"),
		IconKey("http://example.com/two.png"),
	)
}

func TestIconCache_Path(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	tests := []struct {
		name        string
		key         string
		contentType string
		want        string
	}{
		{"PNG image", "abc123", "image/png", filepath.Join("icons", "ab", "abc123.png")},
		{"JPEG image", "def456", "image/jpeg", filepath.Join("icons", "de", "def456.jpg")},
		{"SVG image", "ghi789", "image/svg+xml", filepath.Join("icons", "gh", "ghi789.svg")},
		{"content type with params", "jkl012", "image/png; charset=utf-8", filepath.Join("icons", "jk", "jkl012.png")},
		{"unknown type defaults to png", "mno345", "application/octet-stream", filepath.Join("icons", "mn", "mno345.png")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cache.Path(tt.key, tt.contentType))
		})
	}
}

func TestIconCache_StoreAndFind(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	testData := []byte("fake png data")
	key := IconKey("http://example.com/logo.png")

	path, size, err := cache.Store(key, "image/png", bytes.NewReader(testData))
	require.NoError(t, err)
	assert.Equal(t, int64(len(testData)), size)
	assert.Equal(t, cache.Path(key, "image/png"), path)

	// Find probes extensions; no metadata sidecar is needed
	found, ok := cache.Find(key)
	require.True(t, ok)
	assert.Equal(t, path, found)

	file, err := cache.Open(found)
	require.NoError(t, err)
	defer file.Close()

	data, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, testData, data)
}

func TestIconCache_Find_Miss(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	_, ok := cache.Find(IconKey("http://example.com/never-stored.png"))
	assert.False(t, ok)
}

func TestIconCache_Find_SVG(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	key := IconKey("http://example.com/vector.svg")
	path, _, err := cache.Store(key, "image/svg+xml", bytes.NewReader([]byte("<svg/>")))
	require.NoError(t, err)

	found, ok := cache.Find(key)
	require.True(t, ok)
	assert.Equal(t, path, found)
	assert.Equal(t, ".svg", filepath.Ext(found))
}

func TestIconCache_Delete(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	key := IconKey("http://example.com/gone.png")
	path, _, err := cache.Store(key, "image/png", bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	err = cache.Delete(path)
	require.NoError(t, err)

	_, ok := cache.Find(key)
	assert.False(t, ok)
}

func TestIconCache_Stats(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	// Empty cache
	stats, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Icons)
	assert.Equal(t, int64(0), stats.TotalSize)

	_, _, err = cache.Store(IconKey("http://example.com/a.png"), "image/png", bytes.NewReader([]byte("aaaa")))
	require.NoError(t, err)
	_, _, err = cache.Store(IconKey("http://example.com/b.png"), "image/png", bytes.NewReader([]byte("bb")))
	require.NoError(t, err)

	stats, err = cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Icons)
	assert.Equal(t, int64(6), stats.TotalSize)
}

func TestIconCache_Clear(t *testing.T) {
	tempDir := t.TempDir()
	cache, err := NewIconCache(tempDir)
	require.NoError(t, err)

	key := IconKey("http://example.com/clear.png")
	_, _, err = cache.Store(key, "image/png", bytes.NewReader([]byte("data")))
	require.NoError(t, err)

	require.NoError(t, cache.Clear())

	_, ok := cache.Find(key)
	assert.False(t, ok)

	// The icons directory itself survives the clear
	stats, err := cache.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Icons)
}

func TestContentTypeFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"icons/ab/abcdef.png", "image/png"},
		{"icons/ab/abcdef.jpg", "image/jpeg"},
		{"icons/ab/abcdef.jpeg", "image/jpeg"},
		{"icons/ab/abcdef.gif", "image/gif"},
		{"icons/ab/abcdef.webp", "image/webp"},
		{"icons/ab/abcdef.svg", "image/svg+xml"},
		{"icons/ab/abcdef.ico", "image/x-icon"},
		{"icons/ab/abcdef", "application/octet-stream"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, ContentTypeFromPath(tt.path))
		})
	}
}
