package models

import (
	"time"
)

// EpgChannel describes a channel in an EPG snapshot.
type EpgChannel struct {
	// ID is the XMLTV channel identifier.
	ID string `json:"id"`

	// Name is the preferred display name.
	Name string `json:"name"`

	// IconURL is the channel icon URL, if any.
	IconURL string `json:"icon_url,omitempty"`

	// DisplayNames holds all display names from the source document,
	// in document order. Name is the first of these when present.
	DisplayNames []string `json:"display_names,omitempty"`
}

// EpgData is an immutable EPG snapshot: the channel table plus per-channel
// programme lists, each sorted ascending by start time. A refresh builds a
// complete new snapshot and swaps the pointer; an existing snapshot is never
// mutated, so readers can hold one without locking.
type EpgData struct {
	// Channels maps channel ID to channel metadata.
	Channels map[string]EpgChannel `json:"channels"`

	// Programs maps channel ID to that channel's programmes, sorted
	// ascending by start time.
	Programs map[string][]EpgProgram `json:"programs"`

	// FetchedAt is when this snapshot was fetched from the source.
	FetchedAt time.Time `json:"fetched_at"`

	// SourceURL identifies where the snapshot came from.
	SourceURL string `json:"source_url,omitempty"`
}

// NewEpgData returns an empty snapshot with initialized maps.
func NewEpgData() *EpgData {
	return &EpgData{
		Channels: make(map[string]EpgChannel),
		Programs: make(map[string][]EpgProgram),
	}
}

// ChannelPrograms returns the programmes for a channel, sorted ascending by
// start time. Returns nil when the channel is unknown.
func (d *EpgData) ChannelPrograms(channelID string) []EpgProgram {
	return d.Programs[channelID]
}

// CurrentProgram returns the programme airing on the channel at the given
// instant, or nil if none is airing.
func (d *EpgData) CurrentProgram(channelID string, now time.Time) *EpgProgram {
	for i := range d.Programs[channelID] {
		if d.Programs[channelID][i].IsOnAirAt(now) {
			return &d.Programs[channelID][i]
		}
	}
	return nil
}

// NextProgram returns the programme following the one airing at the given
// instant: the first upcoming programme listed after the current one. With
// overlapping schedule data that programme may start before the current one
// ends. When nothing is on air it is simply the first upcoming programme.
// Returns nil when nothing further is scheduled.
func (d *EpgData) NextProgram(channelID string, now time.Time) *EpgProgram {
	programs := d.Programs[channelID]

	from := 0
	for i := range programs {
		if programs[i].IsOnAirAt(now) {
			from = i + 1
			break
		}
	}

	for i := from; i < len(programs); i++ {
		if programs[i].IsUpcomingAt(now) {
			return &programs[i]
		}
	}
	return nil
}

// ProgramsInRange returns the channel's programmes overlapping the half-open
// window [start, end): every programme with Start < end and Stop > start.
func (d *EpgData) ProgramsInRange(channelID string, start, end time.Time) []EpgProgram {
	var result []EpgProgram
	for _, p := range d.Programs[channelID] {
		if p.Start.Before(end) && p.Stop.After(start) {
			result = append(result, p)
		}
	}
	return result
}

// DailySchedule returns the channel's programmes overlapping the UTC
// calendar day containing the given time.
func (d *EpgData) DailySchedule(channelID string, day time.Time) []EpgProgram {
	utc := day.UTC()
	dayStart := time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
	return d.ProgramsInRange(channelID, dayStart, dayStart.Add(24*time.Hour))
}

// TotalPrograms returns the number of programmes across all channels.
func (d *EpgData) TotalPrograms() int {
	total := 0
	for _, programs := range d.Programs {
		total += len(programs)
	}
	return total
}

// IsEmpty returns true when the snapshot has no channels and no programmes.
func (d *EpgData) IsEmpty() bool {
	return len(d.Channels) == 0 && d.TotalPrograms() == 0
}
