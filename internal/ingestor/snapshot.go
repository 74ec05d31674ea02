package ingestor

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/guidarr/guidarr/internal/models"
	"github.com/guidarr/guidarr/pkg/xmltv"
)

// buildSnapshot streams an XMLTV document into an EPG snapshot. Channels
// keep their document display names; programmes are grouped per channel
// and sorted ascending by start time. Records the parser rejects, or
// that are missing a required field, are counted in the returned stats
// and skipped. Zero or negative durations are kept as-is.
func buildSnapshot(ctx context.Context, r io.Reader, sourceURL string) (*models.EpgData, *xmltv.Stats, error) {
	data := models.NewEpgData()
	var droppedInvalid int

	parser := &xmltv.Parser{
		OnChannel: func(ch *xmltv.Channel) error {
			data.Channels[ch.ID] = models.EpgChannel{
				ID:           ch.ID,
				Name:         ch.Name(),
				IconURL:      ch.Icon,
				DisplayNames: ch.DisplayNames,
			}
			return nil
		},
		OnProgramme: func(p *xmltv.Programme) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			program := convertProgramme(p)
			if err := program.ValidateRequired(); err != nil {
				droppedInvalid++
				return nil
			}
			data.Programs[program.ChannelID] = append(data.Programs[program.ChannelID], *program)
			return nil
		},
	}

	if err := parser.ParseCompressed(r); err != nil {
		return nil, nil, fmt.Errorf("parsing guide: %w", &MalformedGuideError{Err: err})
	}

	// Programmes arrive in document order; the snapshot query paths
	// require per-channel lists sorted by start time.
	for id := range data.Programs {
		programs := data.Programs[id]
		sort.Slice(programs, func(i, j int) bool {
			return programs[i].Start.Before(programs[j].Start)
		})
	}

	// Channels referenced only by programmes still get an entry so guide
	// queries can address them.
	for id := range data.Programs {
		if _, ok := data.Channels[id]; !ok {
			data.Channels[id] = models.EpgChannel{ID: id, Name: id}
		}
	}

	data.FetchedAt = time.Now().UTC()
	data.SourceURL = sourceURL

	stats := parser.Stats()
	stats.Programmes -= droppedInvalid
	stats.DroppedProgrammes += droppedInvalid
	return data, &stats, nil
}

// convertProgramme converts a parsed XMLTV programme to the snapshot model.
func convertProgramme(p *xmltv.Programme) *models.EpgProgram {
	return &models.EpgProgram{
		ChannelID:   p.Channel,
		Start:       p.Start,
		Stop:        p.Stop,
		Title:       p.Title,
		SubTitle:    p.SubTitle,
		Description: p.Description,
		Category:    p.Category,
		Icon:        p.Icon,
		EpisodeNum:  p.EpisodeNum,
		Language:    p.Language,
	}
}
