package models

import (
	"errors"
	"testing"
	"time"
)

func TestEpgProgram_Validate(t *testing.T) {
	now := time.Now()
	oneHourLater := now.Add(time.Hour)

	tests := []struct {
		name    string
		program *EpgProgram
		wantErr error
	}{
		{
			name:    "missing channel ID",
			program: &EpgProgram{Start: now, Stop: oneHourLater, Title: "Test"},
			wantErr: ErrChannelIDRequired,
		},
		{
			name:    "missing start time",
			program: &EpgProgram{ChannelID: "ch1", Stop: oneHourLater, Title: "Test"},
			wantErr: ErrStartTimeRequired,
		},
		{
			name:    "missing end time",
			program: &EpgProgram{ChannelID: "ch1", Start: now, Title: "Test"},
			wantErr: ErrEndTimeRequired,
		},
		{
			name:    "missing title",
			program: &EpgProgram{ChannelID: "ch1", Start: now, Stop: oneHourLater},
			wantErr: ErrTitleRequired,
		},
		{
			name:    "end before start",
			program: &EpgProgram{ChannelID: "ch1", Start: oneHourLater, Stop: now, Title: "Test"},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "zero duration",
			program: &EpgProgram{ChannelID: "ch1", Start: now, Stop: now, Title: "Test"},
			wantErr: ErrInvalidTimeRange,
		},
		{
			name:    "valid program",
			program: &EpgProgram{ChannelID: "ch1", Start: now, Stop: oneHourLater, Title: "Test Program"},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.program.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
			} else {
				if err == nil {
					t.Errorf("expected error %v, got nil", tt.wantErr)
				} else if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
			}
		})
	}
}

func TestEpgProgram_ValidateRequired(t *testing.T) {
	now := time.Now()

	// Required fields only: odd time ranges pass, so ingest and load keep
	// zero-duration and backwards records.
	zeroDuration := &EpgProgram{ChannelID: "ch1", Start: now, Stop: now, Title: "Placeholder"}
	if err := zeroDuration.ValidateRequired(); err != nil {
		t.Errorf("expected zero-duration program to pass, got %v", err)
	}

	backwards := &EpgProgram{ChannelID: "ch1", Start: now.Add(time.Hour), Stop: now, Title: "Backwards"}
	if err := backwards.ValidateRequired(); err != nil {
		t.Errorf("expected backwards program to pass, got %v", err)
	}

	missingTitle := &EpgProgram{ChannelID: "ch1", Start: now, Stop: now.Add(time.Hour)}
	if err := missingTitle.ValidateRequired(); !errors.Is(err, ErrTitleRequired) {
		t.Errorf("expected ErrTitleRequired, got %v", err)
	}
}

func TestEpgProgram_Duration(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stop := time.Date(2024, 1, 1, 11, 30, 0, 0, time.UTC)

	program := &EpgProgram{
		Start: start,
		Stop:  stop,
	}

	expected := 90 * time.Minute
	if program.Duration() != expected {
		t.Errorf("expected duration %v, got %v", expected, program.Duration())
	}
}

func TestEpgProgram_IsOnAirAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stop := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	program := &EpgProgram{Start: start, Stop: stop}

	tests := []struct {
		name     string
		now      time.Time
		expected bool
	}{
		{"before start", start.Add(-time.Minute), false},
		{"exactly at start", start, true},
		{"mid program", start.Add(30 * time.Minute), true},
		{"just before stop", stop.Add(-time.Second), true},
		{"exactly at stop", stop, false},
		{"after stop", stop.Add(time.Minute), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := program.IsOnAirAt(tt.now); got != tt.expected {
				t.Errorf("expected IsOnAirAt %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEpgProgram_IsUpcomingAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	program := &EpgProgram{Start: start, Stop: start.Add(time.Hour)}

	if !program.IsUpcomingAt(start.Add(-time.Minute)) {
		t.Error("expected IsUpcomingAt to be true before start")
	}
	if program.IsUpcomingAt(start) {
		t.Error("expected IsUpcomingAt to be false exactly at start")
	}
	if program.IsUpcomingAt(start.Add(time.Minute)) {
		t.Error("expected IsUpcomingAt to be false after start")
	}
}

func TestEpgProgram_HasEndedAt(t *testing.T) {
	stop := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)
	program := &EpgProgram{Start: stop.Add(-time.Hour), Stop: stop}

	if program.HasEndedAt(stop.Add(-time.Second)) {
		t.Error("expected HasEndedAt to be false before stop")
	}
	if !program.HasEndedAt(stop) {
		t.Error("expected HasEndedAt to be true exactly at stop")
	}
	if !program.HasEndedAt(stop.Add(time.Minute)) {
		t.Error("expected HasEndedAt to be true after stop")
	}
}

func TestEpgProgram_ProgressAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)
	program := &EpgProgram{Start: start, Stop: stop}

	tests := []struct {
		name     string
		now      time.Time
		expected float64
	}{
		{"before start", start.Add(-time.Hour), 0},
		{"at start", start, 0},
		{"quarter", start.Add(15 * time.Minute), 0.25},
		{"halfway", start.Add(30 * time.Minute), 0.5},
		{"at stop", stop, 1},
		{"after stop", stop.Add(time.Hour), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := program.ProgressAt(tt.now)
			if got != tt.expected {
				t.Errorf("expected progress %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestEpgProgram_RemainingAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	stop := start.Add(time.Hour)
	program := &EpgProgram{Start: start, Stop: stop}

	if got := program.RemainingAt(start.Add(45 * time.Minute)); got != 15*time.Minute {
		t.Errorf("expected 15m remaining, got %v", got)
	}
	if got := program.RemainingAt(stop.Add(time.Hour)); got != 0 {
		t.Errorf("expected 0 remaining after stop, got %v", got)
	}
}

func TestEpgProgram_TimeUntilStartAt(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	program := &EpgProgram{Start: start, Stop: start.Add(time.Hour)}

	if got := program.TimeUntilStartAt(start.Add(-20 * time.Minute)); got != 20*time.Minute {
		t.Errorf("expected 20m until start, got %v", got)
	}
	if got := program.TimeUntilStartAt(start.Add(time.Minute)); got != 0 {
		t.Errorf("expected 0 until start once started, got %v", got)
	}
}
