/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package schedule

import (
	"sort"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/sequencer"
)

// builder accumulates a program list on a virtual clock t, in epoch ms.
type builder struct {
	set      *sequencer.Set
	t0       int64
	t        int64
	programs []models.Program
}

func newBuilder(set *sequencer.Set, t0 int64) *builder {
	return &builder{set: set, t0: t0, t: t0}
}

// pushFlex extends a trailing flex program or appends a new one.
func (b *builder) pushFlex(d int64) {
	if d <= 0 {
		return
	}
	b.t += d
	if n := len(b.programs); n > 0 && b.programs[n-1].IsFlex() {
		b.programs[n-1].Duration += d
		return
	}
	b.programs = append(b.programs, models.NewFlex(d))
}

func (b *builder) push(p models.Program) {
	if p.IsFlex() {
		b.pushFlex(p.Duration)
		return
	}
	b.programs = append(b.programs, p)
	b.t += p.Duration
}

// align pushes flex up to the next pad boundary unless t is within SLACK of
// one. It reports whether anything was pushed.
func (b *builder) align(pad int64) bool {
	m := b.t % pad
	if m > models.SlackMS && pad-m > models.SlackMS {
		b.pushFlex(pad - m)
		return true
	}
	return false
}

// finish trims overshoot past hardLimit (keeping at least one program) and
// pads the cycle to a multiple of period.
func (b *builder) finish(hardLimit, period int64) {
	for len(b.programs) > 1 && (b.t > hardLimit || len(b.programs) >= Limit) {
		last := b.programs[len(b.programs)-1]
		b.programs = b.programs[:len(b.programs)-1]
		b.t -= last.Duration
	}
	if m := (b.t - b.t0) % period; m != 0 || len(b.programs) == 0 {
		b.pushFlex(period - m)
	}
}

func (b *builder) next(showID string, order sequencer.Mode, remaining int64) (models.Program, error) {
	if classify.IsFlexID(showID) {
		return models.NewFlex(remaining), nil
	}
	if channel, ok := classify.RedirectTarget(showID); ok {
		return models.NewRedirect(channel, remaining), nil
	}
	seq, err := b.set.Sequencer(showID, order)
	if err != nil {
		return models.Program{}, err
	}
	return seq.Current(), nil
}

func (b *builder) advance(showID string, order sequencer.Mode) {
	if classify.IsFlexID(showID) {
		return
	}
	if _, ok := classify.RedirectTarget(showID); ok {
		return
	}
	if seq, err := b.set.Sequencer(showID, order); err == nil {
		seq.Advance()
	}
}

type padded struct {
	item models.Program
	pad  int64
}

func (p padded) total() int64 {
	return p.item.Duration + p.pad
}

// makePadded rounds an item up to the next multiple of unit when it is more
// than SLACK away from one. A unit of zero leaves it unpadded.
func makePadded(item models.Program, unit int64) padded {
	if unit <= 1 {
		return padded{item: item}
	}
	m := item.Duration % unit
	var f int64
	if m > models.SlackMS && unit-m > models.SlackMS {
		f = unit - m
	}
	return padded{item: item, pad: f}
}

type spreadFunc func(pads []padded, rem int64)

// spreadByPad hands out rem in whole pad units, smallest pads first, and
// gives the sub-unit remainder to the last item.
func spreadByPad(unit int64) spreadFunc {
	return func(pads []padded, rem int64) {
		div := rem / unit
		pads[len(pads)-1].pad += rem % unit

		order := make([]int, len(pads))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool { return pads[order[a]].pad < pads[order[b]].pad })

		n := int64(len(pads))
		for i, j := range order {
			q := div / n
			if int64(i) < div%n {
				q++
			}
			pads[j].pad += q * unit
		}
	}
}

// spreadEvenly splits rem evenly, remainder to the first item.
func spreadEvenly(pads []padded, rem int64) {
	n := int64(len(pads))
	div := rem / n
	for i := range pads {
		pads[i].pad += div
	}
	pads[0].pad += rem - div*n
}

// spreadToEnd leaves all of rem as trailing flex.
func spreadToEnd(pads []padded, rem int64) {
	pads[len(pads)-1].pad += rem
}

// fill places one slot window of content and returns the virtual time right
// after the last non-padding program.
//
// Offline slots take the whole window. An item longer than the window is
// played anyway and the schedule slides. Otherwise items are packed while
// they fit and the leftover window is spread across their pads.
func (b *builder) fill(showID string, order sequencer.Mode, remaining, padUnit int64, spread spreadFunc) (int64, error) {
	item, err := b.next(showID, order, remaining)
	if err != nil {
		return 0, err
	}
	if item.IsOffline() {
		item.Duration = remaining
		b.push(item)
		return b.t, nil
	}
	if item.Duration > remaining {
		b.push(item)
		b.advance(showID, order)
		return b.t, nil
	}

	pads := []padded{makePadded(item, padUnit)}
	total := pads[0].total()
	b.advance(showID, order)
	for len(pads) < Limit {
		more, err := b.next(showID, order, remaining)
		if err != nil {
			return 0, err
		}
		if more.Duration <= 0 || total+more.Duration > remaining {
			break
		}
		p := makePadded(more, padUnit)
		pads = append(pads, p)
		b.advance(showID, order)
		total += p.total()
	}

	rem := remaining - total
	if rem < 0 {
		rem = 0
	}
	spread(pads, rem)

	var last int64
	for _, p := range pads {
		b.push(p.item)
		last = b.t
		b.pushFlex(p.pad)
	}
	return last, nil
}
