// Package ingestor provides download handlers for EPG sources.
//
// A handler owns the transport for one source kind: it validates the
// source's configuration, downloads the guide document, and builds an
// immutable snapshot from it. Handlers are stateless between calls and
// safe for concurrent use.
package ingestor

import (
	"context"
	"errors"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/pkg/xmltv"
)

// ErrAuthRejected is returned when an upstream portal answers the
// authentication probe but rejects the configured credentials.
var ErrAuthRejected = errors.New("portal rejected credentials")

// MalformedGuideError reports a guide document that could not be parsed
// at all: unreadable markup, a bad compression header, or a callback
// failure mid-stream. Individually invalid records never produce this
// error; the parser drops those and counts them in the stats.
type MalformedGuideError struct {
	Err error
}

func (e *MalformedGuideError) Error() string {
	return "malformed guide document: " + e.Err.Error()
}

func (e *MalformedGuideError) Unwrap() error {
	return e.Err
}

// SourceHandler defines the interface for fetching guide data from one
// EPG source kind.
type SourceHandler interface {
	// Type returns the source type this handler supports (e.g., "url", "xtream").
	Type() models.EpgSourceType

	// Fetch downloads and parses the source's guide, returning a complete
	// snapshot and the parse statistics.
	Fetch(ctx context.Context, source *models.EpgSource) (*models.EpgData, *xmltv.Stats, error)

	// Validate checks if the source configuration is valid for this handler.
	Validate(source *models.EpgSource) error
}
