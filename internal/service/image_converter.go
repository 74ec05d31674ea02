// Package service provides business logic layer for guidarr operations.
package service

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"

	// Register image format decoders
	_ "image/gif"
	_ "image/jpeg"

	// WebP support from x/image
	_ "golang.org/x/image/webp"
)

// ImageConverter normalizes raster channel icons to PNG.
type ImageConverter struct{}

// NewImageConverter creates a new ImageConverter.
func NewImageConverter() *ImageConverter {
	return &ImageConverter{}
}

// ConvertToPNG converts image data to PNG format. The decoder sniffs the
// actual format (PNG, JPEG, GIF, WebP), so a wrong Content-Type from the
// upstream server does not matter. Input that is already PNG is decoded
// and re-encoded, which also validates it.
func (c *ImageConverter) ConvertToPNG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image (format=%s): %w", format, err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding to PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// ConvertToPNGReader converts image data from a reader to PNG format.
func (c *ImageConverter) ConvertToPNGReader(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading image data: %w", err)
	}
	return c.ConvertToPNG(data)
}

// IsSupportedFormat checks if the content type is a raster format the
// converter can decode.
func (c *ImageConverter) IsSupportedFormat(contentType string) bool {
	switch contentType {
	case "image/png", "image/jpeg", "image/jpg", "image/gif", "image/webp":
		return true
	default:
		return false
	}
}

// IsSVG checks if the content type indicates an SVG image.
// SVGs are stored as-is since they are vector graphics.
func (c *ImageConverter) IsSVG(contentType string) bool {
	return contentType == "image/svg+xml"
}
