/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/sequencer"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
)

// CompileTimeSlots fills maxDays with slots anchored at fixed offsets into the
// period. The cycle starts at the first slot of the current period; time
// between that start and now is flex. A window entered more than lateness
// past its start is given to flex.
func (c *Compiler) CompileTimeSlots(ctx context.Context, programs []models.Program, s TimeSlotsSchedule) (res Result, err error) {
	_, span := telemetry.StartSpan(ctx, tracerName, "schedule.time_slots")
	defer span.End()
	started := time.Now()
	defer func() { c.done(span, "time_slots", started, res, err) }()

	set := sequencer.NewSet(programs, c.classifier)
	s, err = normalizeTime(s, set)
	if err != nil {
		return Result{}, err
	}

	now := c.now().UnixMilli()
	t0 := now - now%s.Period + s.Slots[0].Time
	b := newBuilder(set, t0)
	if now > t0 {
		b.pushFlex(now - t0)
	}
	hardLimit := t0 + int64(s.MaxDays)*models.DayMS

	spread := spreadToEnd
	if s.FlexPreference == FlexDistribute {
		spread = spreadByPad(s.Pad)
	}

	for b.t < hardLimit && len(b.programs) < Limit {
		runtime.Gosched()
		if b.align(s.Pad) {
			continue
		}

		slot, remaining, late, ok := locate(s.Slots, s.Period, b.t)
		if !ok {
			return Result{}, fmt.Errorf("no slot for time of day %d", b.t%s.Period)
		}
		showID := slot.ShowID
		if late >= *s.Lateness+models.SlackMS {
			showID = classify.FlexShowID
		}
		if _, err := b.fill(showID, slot.Order, remaining, s.Pad, spread); err != nil {
			return Result{}, fmt.Errorf("fill slot at %d: %w", slot.Time, err)
		}
	}
	b.finish(hardLimit, s.Period)

	return Result{Programs: b.programs, StartTime: time.UnixMilli(t0).UTC()}, nil
}

// locate finds the slot whose window contains t, wrapping the last slot's
// window into the next period. It returns the time left in the window and how
// far into the window t is.
func locate(slots []TimeSlot, period, t int64) (slot TimeSlot, remaining, late int64, ok bool) {
	dayTime := t % period
	for i, s := range slots {
		end := slots[0].Time + period
		if i+1 < len(slots) {
			end = slots[i+1].Time
		}
		if s.Time <= dayTime && dayTime < end {
			return s, end - dayTime, dayTime - s.Time, true
		}
		if wrapped := dayTime + period; s.Time <= wrapped && wrapped < end {
			return s, end - wrapped, wrapped - s.Time, true
		}
	}
	return TimeSlot{}, 0, 0, false
}
