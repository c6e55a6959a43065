/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package lineup

import (
	"errors"
	"time"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

// ErrCorruptSchedule means no program owns the current time. The channel's
// program list or duration is inconsistent.
var ErrCorruptSchedule = errors.New("no program found for the current time")

// Position is the program airing on a channel at some instant.
type Position struct {
	Program models.Program
	Elapsed int64 // ms into Program
	Index   int   // -1 when the channel has not started yet
	Err     error // set on error placeholders
}

// CurrentProgram maps now onto the channel's cyclic program list. Before the
// channel's start time the gap is reported as flex. A program within SLACK of
// its end is skipped in favour of the next one.
func CurrentProgram(now time.Time, ch *models.Channel) (Position, error) {
	return currentProgram(now.UnixMilli(), ch)
}

func currentProgram(now int64, ch *models.Channel) (Position, error) {
	start := ch.StartMS()
	if start > now {
		return Position{Program: models.NewFlex(start - now), Index: -1}, nil
	}
	if len(ch.Programs) == 0 || ch.Duration <= 0 {
		return Position{}, ErrCorruptSchedule
	}

	elapsed := (now - start) % ch.Duration
	for i, p := range ch.Programs {
		if elapsed < p.Duration {
			if p.Duration > 2*models.SlackMS && elapsed > p.Duration-models.SlackMS {
				next := (i + 1) % len(ch.Programs)
				return Position{Program: ch.Programs[next].Clone(), Index: next}, nil
			}
			return Position{Program: p.Clone(), Elapsed: elapsed, Index: i}, nil
		}
		elapsed -= p.Duration
	}
	return Position{}, ErrCorruptSchedule
}

func errorPosition(err error) Position {
	return Position{Program: models.NewFlex(errorDuration), Err: err}
}
