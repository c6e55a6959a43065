/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/sequencer"
)

var midnight = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func newTestCompiler(now time.Time) *Compiler {
	c := NewCompiler(classify.Default{}, zerolog.Nop())
	c.now = func() time.Time { return now }
	c.random = rand.New(rand.NewSource(7)).Float64
	return c
}

func episodes(show string, n int, duration int64) []models.Program {
	out := make([]models.Program, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, models.Program{
			Kind:      models.ProgramMedia,
			Type:      "episode",
			ShowTitle: show,
			Season:    1,
			Episode:   i,
			ServerKey: "srv",
			Key:       fmt.Sprintf("/%s/%d", show, i),
			Duration:  duration,
		})
	}
	return out
}

func weight(w float64) *float64 { return &w }
func ms(v int64) *int64         { return &v }
func minutes(v int) *int        { return &v }

func TestRandomSlotsPacksEpisodeAndPadsSlot(t *testing.T) {
	c := newTestCompiler(midnight)
	pool := episodes("Solo", 1, 1_000_000)

	res, err := c.CompileRandomSlots(context.Background(), pool, RandomSlotsSchedule{
		Slots:   []RandomSlot{{Duration: 1_800_000, ShowID: "tv.Solo", Order: sequencer.ModeNext}},
		Pad:     300_000,
		MaxDays: 1,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}

	if !res.StartTime.Equal(midnight) {
		t.Errorf("StartTime = %v, want %v", res.StartTime, midnight)
	}
	if got := res.Duration(); got != models.DayMS {
		t.Fatalf("cycle duration = %d, want %d", got, models.DayMS)
	}
	if len(res.Programs) != 96 {
		t.Fatalf("programs = %d, want 96", len(res.Programs))
	}
	for i := 0; i < len(res.Programs); i += 2 {
		ep, flex := res.Programs[i], res.Programs[i+1]
		if ep.IsOffline() || ep.Duration != 1_000_000 {
			t.Fatalf("program %d = %+v, want the episode", i, ep)
		}
		if !flex.IsFlex() || flex.Duration != 800_000 {
			t.Fatalf("program %d = %+v, want 800000ms flex", i+1, flex)
		}
		if ep.Duration+flex.Duration != 1_800_000 {
			t.Fatalf("slot %d length = %d", i/2, ep.Duration+flex.Duration)
		}
	}
}

func TestRandomSlotsFollowsEpisodeOrder(t *testing.T) {
	c := newTestCompiler(midnight)
	pool := episodes("Serial", 3, 25*models.MinuteMS)

	res, err := c.CompileRandomSlots(context.Background(), pool, RandomSlotsSchedule{
		Slots:   []RandomSlot{{Duration: models.HourMS, ShowID: "tv.Serial", Order: sequencer.ModeNext}},
		Pad:     5 * models.MinuteMS,
		MaxDays: 1,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}

	var got []int
	for _, p := range res.Programs {
		if !p.IsOffline() {
			got = append(got, p.Episode)
		}
	}
	if len(got) != 48 {
		t.Fatalf("episodes = %d, want 48", len(got))
	}
	for i, ep := range got {
		if want := i%3 + 1; ep != want {
			t.Fatalf("episode %d = %d, want %d", i, ep, want)
		}
	}
}

func TestRandomSlotsCooldownInsertsFlex(t *testing.T) {
	c := newTestCompiler(midnight)
	pool := episodes("Cool", 2, 30*models.MinuteMS)

	res, err := c.CompileRandomSlots(context.Background(), pool, RandomSlotsSchedule{
		Slots: []RandomSlot{{
			Duration: 30 * models.MinuteMS,
			ShowID:   "tv.Cool",
			Cooldown: models.HourMS,
			Order:    sequencer.ModeNext,
		}},
		Pad:     5 * models.MinuteMS,
		MaxDays: 1,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}

	var at int64
	var starts []int64
	for _, p := range res.Programs {
		if !p.IsOffline() {
			starts = append(starts, at)
		}
		at += p.Duration
	}
	if len(starts) < 2 {
		t.Fatalf("expected several plays, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		if gap := starts[i] - starts[i-1]; gap != 90*models.MinuteMS {
			t.Fatalf("gap between plays %d and %d = %d, want %d", i-1, i, gap, 90*models.MinuteMS)
		}
	}
}

func TestRandomSlotsSlidesOversizedItem(t *testing.T) {
	c := newTestCompiler(midnight)
	pool := episodes("Long", 1, 40*models.MinuteMS)

	res, err := c.CompileRandomSlots(context.Background(), pool, RandomSlotsSchedule{
		Slots:   []RandomSlot{{Duration: 30 * models.MinuteMS, ShowID: "tv.Long"}},
		Pad:     10 * models.MinuteMS,
		MaxDays: 1,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}
	if res.Programs[0].Duration != 40*models.MinuteMS {
		t.Fatalf("first program = %+v, want the full 40 minute episode", res.Programs[0])
	}
	if res.Duration()%models.DayMS != 0 {
		t.Errorf("cycle duration %d is not a multiple of a day", res.Duration())
	}
}

func TestRandomSlotsFlexAndRedirectSlots(t *testing.T) {
	c := newTestCompiler(midnight)

	res, err := c.CompileRandomSlots(context.Background(), nil, RandomSlotsSchedule{
		Slots: []RandomSlot{
			{Duration: models.HourMS, ShowID: classify.RedirectID(7), Weight: weight(1)},
		},
		Pad:     5 * models.MinuteMS,
		MaxDays: 1,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}
	if len(res.Programs) != 24 {
		t.Fatalf("programs = %d, want 24", len(res.Programs))
	}
	for _, p := range res.Programs {
		if !p.IsRedirect() || p.Channel != 7 || p.Duration != models.HourMS {
			t.Fatalf("program = %+v, want hour-long redirect to 7", p)
		}
	}

	res, err = c.CompileRandomSlots(context.Background(), nil, RandomSlotsSchedule{
		Slots:   []RandomSlot{{Duration: models.HourMS, ShowID: classify.FlexShowID}},
		Pad:     5 * models.MinuteMS,
		MaxDays: 2,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}
	if len(res.Programs) != 1 || !res.Programs[0].IsFlex() || res.Programs[0].Duration != 2*models.DayMS {
		t.Fatalf("programs = %+v, want one merged two-day flex", res.Programs)
	}
}

func TestRandomSlotsEpisodePadStyle(t *testing.T) {
	c := newTestCompiler(midnight)
	// 22 minute episodes pad to 25, two fit in an hour, leaving 10 minutes
	// which goes out in whole pad units to the smaller pads.
	pool := episodes("Sitcom", 4, 22*models.MinuteMS)

	res, err := c.CompileRandomSlots(context.Background(), pool, RandomSlotsSchedule{
		Slots:    []RandomSlot{{Duration: models.HourMS, ShowID: "tv.Sitcom"}},
		Pad:      5 * models.MinuteMS,
		MaxDays:  1,
		PadStyle: PadEpisode,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}
	want := []int64{
		22 * models.MinuteMS, 8 * models.MinuteMS,
		22 * models.MinuteMS, 8 * models.MinuteMS,
	}
	for i, d := range want {
		if res.Programs[i].Duration != d {
			t.Fatalf("program %d duration = %d, want %d", i, res.Programs[i].Duration, d)
		}
	}
}

func TestRandomSlotsFlexAtEnd(t *testing.T) {
	c := newTestCompiler(midnight)
	pool := episodes("Sitcom", 4, 20*models.MinuteMS)

	res, err := c.CompileRandomSlots(context.Background(), pool, RandomSlotsSchedule{
		Slots:          []RandomSlot{{Duration: models.HourMS - 10*models.MinuteMS, ShowID: "tv.Sitcom"}},
		Pad:            5 * models.MinuteMS,
		MaxDays:        1,
		FlexPreference: FlexEnd,
	})
	if err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}
	want := []int64{20 * models.MinuteMS, 20 * models.MinuteMS, 10 * models.MinuteMS}
	for i, d := range want {
		if res.Programs[i].Duration != d {
			t.Fatalf("program %d duration = %d, want %d", i, res.Programs[i].Duration, d)
		}
	}
	if !res.Programs[2].IsFlex() {
		t.Errorf("program 2 should be trailing flex")
	}
}

func TestRandomSlotsValidation(t *testing.T) {
	pool := episodes("Known", 2, models.HourMS)
	base := func() RandomSlotsSchedule {
		return RandomSlotsSchedule{
			Slots:   []RandomSlot{{Duration: models.HourMS, ShowID: "tv.Known"}},
			Pad:     models.MinuteMS,
			MaxDays: 1,
		}
	}

	tests := []struct {
		name  string
		edit  func(*RandomSlotsSchedule)
		field string
	}{
		{"no slots", func(s *RandomSlotsSchedule) { s.Slots = nil }, "slots"},
		{"zero duration", func(s *RandomSlotsSchedule) { s.Slots[0].Duration = 0 }, "slots[0]"},
		{"missing show", func(s *RandomSlotsSchedule) { s.Slots[0].ShowID = "" }, "slots[0]"},
		{"unknown show", func(s *RandomSlotsSchedule) { s.Slots[0].ShowID = "tv.Nope" }, "slots[0]"},
		{"bad order", func(s *RandomSlotsSchedule) { s.Slots[0].Order = "backwards" }, "slots[0]"},
		{"negative weight", func(s *RandomSlotsSchedule) { s.Slots[0].Weight = weight(-1) }, "slots[0]"},
		{"all zero weights", func(s *RandomSlotsSchedule) { s.Slots[0].Weight = weight(0) }, "slots"},
		{"missing pad", func(s *RandomSlotsSchedule) { s.Pad = 0 }, "pad"},
		{"missing maxDays", func(s *RandomSlotsSchedule) { s.MaxDays = 0 }, "maxDays"},
		{"bad flex preference", func(s *RandomSlotsSchedule) { s.FlexPreference = "middle" }, "flexPreference"},
		{"bad pad style", func(s *RandomSlotsSchedule) { s.PadStyle = "show" }, "padStyle"},
	}

	c := newTestCompiler(midnight)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.edit(&s)
			_, err := c.CompileRandomSlots(context.Background(), pool, s)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestRandomSlotsDoesNotMutateInput(t *testing.T) {
	c := newTestCompiler(midnight)
	s := RandomSlotsSchedule{
		Slots:   []RandomSlot{{Duration: models.HourMS, ShowID: classify.FlexShowID}},
		Pad:     models.MinuteMS,
		MaxDays: 1,
	}
	if _, err := c.CompileRandomSlots(context.Background(), nil, s); err != nil {
		t.Fatalf("CompileRandomSlots: %v", err)
	}
	if s.Slots[0].Weight != nil || s.Period != 0 || s.PadStyle != "" {
		t.Errorf("schedule was modified: %+v", s)
	}
}

func TestTimeSlotsLateWindowBecomesFlex(t *testing.T) {
	now := midnight.Add(3 * time.Hour)
	pool := append(episodes("Morning", 2, models.HourMS), episodes("Evening", 2, models.HourMS)...)
	sched := TimeSlotsSchedule{
		Slots: []TimeSlot{
			{Time: 0, ShowID: "tv.Morning"},
			{Time: 12 * models.HourMS, ShowID: "tv.Evening"},
		},
		Pad:            5 * models.MinuteMS,
		Lateness:       ms(0),
		MaxDays:        1,
		TimeZoneOffset: minutes(0),
	}

	res, err := newTestCompiler(now).CompileTimeSlots(context.Background(), pool, sched)
	if err != nil {
		t.Fatalf("CompileTimeSlots: %v", err)
	}
	if !res.StartTime.Equal(midnight) {
		t.Errorf("StartTime = %v, want %v", res.StartTime, midnight)
	}
	if p := res.Programs[0]; !p.IsFlex() || p.Duration != 12*models.HourMS {
		t.Fatalf("program 0 = %+v, want 12h flex", p)
	}
	if p := res.Programs[1]; p.ShowTitle != "Evening" || p.Episode != 1 {
		t.Fatalf("program 1 = %+v, want Evening episode 1", p)
	}
	if res.Duration()%models.DayMS != 0 {
		t.Errorf("cycle duration %d is not a multiple of a day", res.Duration())
	}
}

func TestTimeSlotsWithinLateness(t *testing.T) {
	now := midnight.Add(3 * time.Hour)
	pool := append(episodes("Morning", 2, models.HourMS), episodes("Evening", 2, models.HourMS)...)
	sched := TimeSlotsSchedule{
		Slots: []TimeSlot{
			{Time: 0, ShowID: "tv.Morning"},
			{Time: 12 * models.HourMS, ShowID: "tv.Evening"},
		},
		Pad:            5 * models.MinuteMS,
		Lateness:       ms(4 * models.HourMS),
		MaxDays:        1,
		TimeZoneOffset: minutes(0),
	}

	res, err := newTestCompiler(now).CompileTimeSlots(context.Background(), pool, sched)
	if err != nil {
		t.Fatalf("CompileTimeSlots: %v", err)
	}
	if p := res.Programs[0]; !p.IsFlex() || p.Duration != 3*models.HourMS {
		t.Fatalf("program 0 = %+v, want 3h flex", p)
	}
	if p := res.Programs[1]; p.ShowTitle != "Morning" {
		t.Fatalf("program 1 = %+v, want a Morning episode", p)
	}
}

func TestTimeSlotsTimeZoneOffset(t *testing.T) {
	pool := episodes("News", 1, 30*models.MinuteMS)
	sched := TimeSlotsSchedule{
		Slots: []TimeSlot{
			{Time: 0, ShowID: "tv.News"},
			{Time: 30 * models.MinuteMS, ShowID: classify.FlexShowID},
		},
		Pad:            5 * models.MinuteMS,
		Lateness:       ms(0),
		MaxDays:        1,
		TimeZoneOffset: minutes(90),
	}

	res, err := newTestCompiler(midnight).CompileTimeSlots(context.Background(), pool, sched)
	if err != nil {
		t.Fatalf("CompileTimeSlots: %v", err)
	}
	if want := midnight.Add(90 * time.Minute); !res.StartTime.Equal(want) {
		t.Errorf("StartTime = %v, want %v", res.StartTime, want)
	}
	if p := res.Programs[0]; p.ShowTitle != "News" {
		t.Fatalf("program 0 = %+v, want News", p)
	}
	if p := res.Programs[1]; !p.IsFlex() || p.Duration != models.DayMS-30*models.MinuteMS {
		t.Fatalf("program 1 = %+v, want flex to the end of the day", p)
	}
}

func TestTimeSlotsValidation(t *testing.T) {
	pool := episodes("Known", 2, models.HourMS)
	base := func() TimeSlotsSchedule {
		return TimeSlotsSchedule{
			Slots:          []TimeSlot{{Time: 0, ShowID: "tv.Known"}},
			Pad:            models.MinuteMS,
			Lateness:       ms(0),
			MaxDays:        1,
			TimeZoneOffset: minutes(0),
		}
	}

	tests := []struct {
		name  string
		edit  func(*TimeSlotsSchedule)
		field string
	}{
		{"missing time zone", func(s *TimeSlotsSchedule) { s.TimeZoneOffset = nil }, "timeZoneOffset"},
		{"no slots", func(s *TimeSlotsSchedule) { s.Slots = nil }, "slots"},
		{"time out of range", func(s *TimeSlotsSchedule) { s.Slots[0].Time = models.DayMS }, "slots[0]"},
		{"negative time", func(s *TimeSlotsSchedule) { s.Slots[0].Time = -1 }, "slots[0]"},
		{"unknown show", func(s *TimeSlotsSchedule) { s.Slots[0].ShowID = "tv.Nope" }, "slots[0]"},
		{"duplicate times", func(s *TimeSlotsSchedule) {
			s.Slots = append(s.Slots, TimeSlot{Time: 0, ShowID: classify.FlexShowID})
		}, "slots"},
		{"missing lateness", func(s *TimeSlotsSchedule) { s.Lateness = nil }, "lateness"},
		{"missing pad", func(s *TimeSlotsSchedule) { s.Pad = 0 }, "pad"},
		{"missing maxDays", func(s *TimeSlotsSchedule) { s.MaxDays = 0 }, "maxDays"},
		{"bad flex preference", func(s *TimeSlotsSchedule) { s.FlexPreference = "middle" }, "flexPreference"},
	}

	c := newTestCompiler(midnight)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base()
			tt.edit(&s)
			_, err := c.CompileTimeSlots(context.Background(), pool, s)
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestLocateWrapsAroundPeriod(t *testing.T) {
	slots := []TimeSlot{{Time: 6 * models.HourMS}, {Time: 18 * models.HourMS}}

	tests := []struct {
		name      string
		t         int64
		slotTime  int64
		remaining int64
		late      int64
	}{
		{"inside first", 7 * models.HourMS, 6 * models.HourMS, 11 * models.HourMS, models.HourMS},
		{"inside last", 20 * models.HourMS, 18 * models.HourMS, 10 * models.HourMS, 2 * models.HourMS},
		{"before first wraps to last", 2 * models.HourMS, 18 * models.HourMS, 4 * models.HourMS, 8 * models.HourMS},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slot, remaining, late, ok := locate(slots, models.DayMS, models.DayMS*3+tt.t)
			if !ok {
				t.Fatal("no slot found")
			}
			if slot.Time != tt.slotTime || remaining != tt.remaining || late != tt.late {
				t.Errorf("got slot %d remaining %d late %d, want %d %d %d",
					slot.Time, remaining, late, tt.slotTime, tt.remaining, tt.late)
			}
		})
	}
}

func TestSpreadByPad(t *testing.T) {
	pads := []padded{{pad: 3}, {pad: 0}, {pad: 1}}
	spreadByPad(10)(pads, 27)
	// 7 goes to the last item, then one whole unit to each of the two
	// smallest pads.
	want := []int64{13, 10, 8}
	for i, p := range pads {
		if p.pad != want[i] {
			t.Errorf("pad %d = %d, want %d", i, p.pad, want[i])
		}
	}
}

func TestSpreadEvenly(t *testing.T) {
	pads := []padded{{}, {}, {}}
	spreadEvenly(pads, 10)
	want := []int64{4, 3, 3}
	for i, p := range pads {
		if p.pad != want[i] {
			t.Errorf("pad %d = %d, want %d", i, p.pad, want[i])
		}
	}
}
