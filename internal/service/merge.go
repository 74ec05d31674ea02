package service

import (
	"sort"

	"github.com/guidarr/guidarr/internal/models"
)

// mergeSnapshots combines per-source snapshots into a single guide view.
// Earlier snapshots take priority for channel metadata; programme lists
// are merged per channel with duplicates skipped, then sorted by start
// time. Two sources carrying the same broadcast list it with the same
// start time, so start-time identity is the duplicate test.
//
// FetchedAt of the merged view is the oldest fetch time of its inputs:
// the view is only as fresh as its stalest constituent.
func mergeSnapshots(snapshots []*models.EpgData) *models.EpgData {
	merged := models.NewEpgData()

	for _, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}

		if !snapshot.FetchedAt.IsZero() &&
			(merged.FetchedAt.IsZero() || snapshot.FetchedAt.Before(merged.FetchedAt)) {
			merged.FetchedAt = snapshot.FetchedAt
		}

		for id, channel := range snapshot.Channels {
			if _, exists := merged.Channels[id]; !exists {
				merged.Channels[id] = channel
			}
		}

		for id, programs := range snapshot.Programs {
			merged.Programs[id] = mergePrograms(merged.Programs[id], programs)
		}
	}

	for id := range merged.Programs {
		programs := merged.Programs[id]
		sort.Slice(programs, func(i, j int) bool {
			return programs[i].Start.Before(programs[j].Start)
		})
	}

	return merged
}

// mergePrograms appends the incoming programmes that are not already
// scheduled at the same start time.
func mergePrograms(existing, incoming []models.EpgProgram) []models.EpgProgram {
	for _, program := range incoming {
		duplicate := false
		for i := range existing {
			if existing[i].Start.Equal(program.Start) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			existing = append(existing, program)
		}
	}
	return existing
}
