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

	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/sequencer"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
	"github.com/friendsincode/grimnir_tv/internal/weighted"
)

// CompileRandomSlots fills maxDays from now with slots drawn by weight. A slot
// is ineligible until its cooldown has passed since it last played; when every
// slot is cooling down the gap is filled with flex.
func (c *Compiler) CompileRandomSlots(ctx context.Context, programs []models.Program, s RandomSlotsSchedule) (res Result, err error) {
	_, span := telemetry.StartSpan(ctx, tracerName, "schedule.random_slots")
	defer span.End()
	started := time.Now()
	defer func() { c.done(span, "random_slots", started, res, err) }()

	set := sequencer.NewSet(programs, c.classifier)
	s, err = normalizeRandom(s, set)
	if err != nil {
		return Result{}, err
	}
	positive := false
	for _, slot := range s.Slots {
		positive = positive || *slot.Weight > 0
	}
	if !positive {
		return Result{}, invalid("slots", "at least one slot needs a positive weight")
	}

	t0 := c.now().UnixMilli()
	b := newBuilder(set, t0)
	hardLimit := t0 + int64(s.MaxDays)*models.DayMS

	padUnit := s.Pad
	if s.PadStyle == PadSlot {
		padUnit = 0
	}
	var spread spreadFunc
	switch {
	case s.FlexPreference == FlexEnd:
		spread = spreadToEnd
	case s.PadStyle == PadEpisode:
		spread = spreadByPad(s.Pad)
	default:
		spread = spreadEvenly
	}

	lastPlayed := make(map[int]int64, len(s.Slots))
	for b.t < hardLimit && len(b.programs) < Limit {
		runtime.Gosched()
		if b.align(s.Pad) {
			continue
		}

		picked := -1
		var total float64
		minNext := b.t + 24*models.DayMS
		for i, slot := range s.Slots {
			if last, ok := lastPlayed[i]; ok {
				if last+slot.Cooldown < minNext {
					minNext = last + slot.Cooldown
				}
				if b.t-last < slot.Cooldown-models.SlackMS {
					continue
				}
			}
			total += *slot.Weight
			if weighted.Accept(c.random, *slot.Weight, total) {
				picked = i
			}
		}
		if picked < 0 {
			wait := minNext - b.t
			if wait <= 0 {
				wait = s.Pad
			}
			b.pushFlex(wait)
			continue
		}

		slot := s.Slots[picked]
		last, err := b.fill(slot.ShowID, slot.Order, slot.Duration, padUnit, spread)
		if err != nil {
			return Result{}, fmt.Errorf("fill slot %d: %w", picked, err)
		}
		lastPlayed[picked] = last
	}
	b.finish(hardLimit, s.Period)

	return Result{Programs: b.programs, StartTime: time.UnixMilli(t0).UTC()}, nil
}
