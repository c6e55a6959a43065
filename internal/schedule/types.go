/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"time"

	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/sequencer"
)

// Limit caps the number of programs a compile may produce.
const Limit = 40000

// FlexPreference decides where leftover slot time goes.
type FlexPreference string

const (
	FlexDistribute FlexPreference = "distribute"
	FlexEnd        FlexPreference = "end"
)

// PadStyle decides what gets padded to the pad boundary.
type PadStyle string

const (
	PadSlot    PadStyle = "slot"
	PadEpisode PadStyle = "episode"
)

// RandomSlot is a weighted time budget for one show.
type RandomSlot struct {
	Duration int64          `json:"duration" yaml:"duration"`
	ShowID   string         `json:"showId" yaml:"showId"`
	Cooldown int64          `json:"cooldown,omitempty" yaml:"cooldown,omitempty"`
	Weight   *float64       `json:"weight,omitempty" yaml:"weight,omitempty"`
	Order    sequencer.Mode `json:"order,omitempty" yaml:"order,omitempty"`
}

// RandomSlotsSchedule describes a random-slot programming rule. Durations are
// milliseconds.
type RandomSlotsSchedule struct {
	Slots          []RandomSlot   `json:"slots" yaml:"slots"`
	Pad            int64          `json:"pad" yaml:"pad"`
	Period         int64          `json:"period,omitempty" yaml:"period,omitempty"`
	MaxDays        int            `json:"maxDays" yaml:"maxDays"`
	FlexPreference FlexPreference `json:"flexPreference,omitempty" yaml:"flexPreference,omitempty"`
	PadStyle       PadStyle       `json:"padStyle,omitempty" yaml:"padStyle,omitempty"`
}

// TimeSlot anchors a show at an offset into the period.
type TimeSlot struct {
	Time   int64          `json:"time" yaml:"time"`
	ShowID string         `json:"showId" yaml:"showId"`
	Order  sequencer.Mode `json:"order,omitempty" yaml:"order,omitempty"`
}

// TimeSlotsSchedule describes a time-of-day (or time-of-week) programming rule.
type TimeSlotsSchedule struct {
	Slots          []TimeSlot     `json:"slots" yaml:"slots"`
	Pad            int64          `json:"pad" yaml:"pad"`
	Period         int64          `json:"period,omitempty" yaml:"period,omitempty"`
	Lateness       *int64         `json:"lateness" yaml:"lateness"`
	MaxDays        int            `json:"maxDays" yaml:"maxDays"`
	FlexPreference FlexPreference `json:"flexPreference,omitempty" yaml:"flexPreference,omitempty"`
	TimeZoneOffset *int           `json:"timeZoneOffset" yaml:"timeZoneOffset"` // minutes
}

// Result is a compiled cyclic program list.
type Result struct {
	Programs  []models.Program `json:"programs"`
	StartTime time.Time        `json:"startTime"`
}

// Duration is the length of one cycle.
func (r Result) Duration() int64 {
	return models.TotalDuration(r.Programs)
}

// Apply copies the compiled list onto a channel.
func (r Result) Apply(ch *models.Channel) {
	ch.Programs = models.ClonePrograms(r.Programs)
	ch.Duration = r.Duration()
	ch.StartTime = r.StartTime
}
