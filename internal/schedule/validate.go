/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"fmt"
	"sort"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/sequencer"
)

// ValidationError reports a malformed schedule. Nothing is compiled.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

func validateCommon(pad, period int64, maxDays int, pref FlexPreference) error {
	if pad <= 0 {
		return invalid("pad", "expected a positive pad")
	}
	if period <= 0 {
		return invalid("period", "expected a positive period")
	}
	if maxDays <= 0 {
		return invalid("maxDays", "maxDays must be defined")
	}
	if pref != FlexDistribute && pref != FlexEnd {
		return invalid("flexPreference", "invalid value %q", pref)
	}
	return nil
}

func validateShow(set *sequencer.Set, field, showID string, order sequencer.Mode) error {
	if showID == "" {
		return invalid(field, "each slot should have a showId")
	}
	if order != "" && order != sequencer.ModeNext && order != sequencer.ModeShuffle {
		return invalid(field, "invalid order %q", order)
	}
	if classify.IsFlexID(showID) {
		return nil
	}
	if _, ok := classify.RedirectTarget(showID); ok {
		return nil
	}
	show, ok := set.Show(showID)
	if !ok || len(show.Programs) == 0 {
		return invalid(field, "no programs for show %q", showID)
	}
	return nil
}

// normalizeRandom fills defaults and rejects malformed random-slot schedules.
// The caller's value is not modified.
func normalizeRandom(s RandomSlotsSchedule, set *sequencer.Set) (RandomSlotsSchedule, error) {
	out := s
	out.Slots = make([]RandomSlot, len(s.Slots))
	copy(out.Slots, s.Slots)

	if out.Period == 0 {
		out.Period = models.DayMS
	}
	if out.FlexPreference == "" {
		out.FlexPreference = FlexDistribute
	}
	if out.PadStyle == "" {
		out.PadStyle = PadSlot
	}
	if len(out.Slots) == 0 {
		return out, invalid("slots", "expected at least one slot")
	}
	for i := range out.Slots {
		slot := &out.Slots[i]
		field := fmt.Sprintf("slots[%d]", i)
		if slot.Duration <= 0 {
			return out, invalid(field, "slot duration should be an integer number of milliseconds greater than 0")
		}
		if err := validateShow(set, field, slot.ShowID, slot.Order); err != nil {
			return out, err
		}
		if slot.Cooldown < 0 {
			slot.Cooldown = 0
		}
		if slot.Weight == nil {
			w := 1.0
			slot.Weight = &w
		} else if *slot.Weight < 0 {
			return out, invalid(field, "weight must not be negative")
		}
	}
	if err := validateCommon(out.Pad, out.Period, out.MaxDays, out.FlexPreference); err != nil {
		return out, err
	}
	if out.PadStyle != PadSlot && out.PadStyle != PadEpisode {
		return out, invalid("padStyle", "invalid value %q", out.PadStyle)
	}
	return out, nil
}

// normalizeTime fills defaults, shifts slot times by the time zone offset and
// sorts them. The caller's value is not modified.
func normalizeTime(s TimeSlotsSchedule, set *sequencer.Set) (TimeSlotsSchedule, error) {
	out := s
	out.Slots = make([]TimeSlot, len(s.Slots))
	copy(out.Slots, s.Slots)

	if out.TimeZoneOffset == nil {
		return out, invalid("timeZoneOffset", "expected a time zone offset")
	}
	if out.Period == 0 {
		out.Period = models.DayMS
	}
	if out.FlexPreference == "" {
		out.FlexPreference = FlexDistribute
	}
	if len(out.Slots) == 0 {
		return out, invalid("slots", "expected at least one slot")
	}
	if out.Period < 0 {
		return out, invalid("period", "expected a positive period")
	}
	shift := int64(*out.TimeZoneOffset) * models.MinuteMS
	for i := range out.Slots {
		slot := &out.Slots[i]
		field := fmt.Sprintf("slots[%d]", i)
		if slot.Time < 0 || slot.Time >= out.Period {
			return out, invalid(field, "slot times should be an integer number of milliseconds between 0 and period-1")
		}
		if err := validateShow(set, field, slot.ShowID, slot.Order); err != nil {
			return out, err
		}
		slot.Time = ((slot.Time+shift)%out.Period + out.Period) % out.Period
	}
	sort.SliceStable(out.Slots, func(i, j int) bool { return out.Slots[i].Time < out.Slots[j].Time })
	for i := 1; i < len(out.Slots); i++ {
		if out.Slots[i].Time == out.Slots[i-1].Time {
			return out, invalid("slots", "slot times should be unique")
		}
	}
	if out.Lateness == nil {
		return out, invalid("lateness", "lateness must be defined")
	}
	if *out.Lateness < 0 {
		return out, invalid("lateness", "lateness must not be negative")
	}
	if err := validateCommon(out.Pad, out.Period, out.MaxDays, out.FlexPreference); err != nil {
		return out, err
	}
	return out, nil
}
