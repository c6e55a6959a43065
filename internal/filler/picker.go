/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package filler picks clips from a channel's filler collections to cover
// offline windows.
package filler

import (
	"errors"
	"math"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
	"github.com/friendsincode/grimnir_tv/internal/weighted"
)

// ErrFillerExhausted means no clip is eligible right now.
var ErrFillerExhausted = errors.New("no eligible filler")

const (
	// NoWait is the MinimumWait reported when no cooling-down clip would fit.
	NoWait int64 = 1_000_000_000

	// neverPlayed stands in for the time since a clip or collection that has
	// no play record.
	neverPlayed = models.WeekMS

	// idleCeiling caps the benefit of having been idle.
	idleCeiling = 5 * models.HourMS

	// firstViewLeadOut keeps a random first-view start this far from the end.
	firstViewLeadOut = 15 * models.SecondMS
)

// History answers when a clip or collection last finished playing on a
// channel. Zero means never.
type History interface {
	ProgramLastPlayTime(channel int, programKey string) int64
	FillerLastPlayTime(channel int, fillerID string) int64
}

// Pick is the outcome of a filler pick. When nothing is eligible Clip is nil
// and MinimumWait is how long until some clip that would fit becomes eligible.
type Pick struct {
	Clip        *models.Program
	FillerID    string
	MinimumWait int64
}

// Picker runs cooldown-aware weighted selection over filler collections.
type Picker struct {
	history History
	random  weighted.Source
	logger  zerolog.Logger
}

// NewPicker constructs a picker reading play times from history.
func NewPicker(history History, logger zerolog.Logger) *Picker {
	return &Picker{
		history: history,
		random:  weighted.Default,
		logger:  logger.With().Str("component", "filler").Logger(),
	}
}

// Pick chooses a clip no longer than maxDuration (+SLACK) at time now (epoch
// ms). A clip is skipped while it is within the channel's repeat cooldown; a
// collection is skipped while within its own cooldown. Collections are drawn
// by weight, then clips within the drawn collection by how long they have
// been idle and how long they are.
func (p *Picker) Pick(ch *models.Channel, fillers []models.FillerCollection, maxDuration, now int64) (Pick, error) {
	repeatCooldown := ch.RepeatCooldown()
	minimumWait := NoWait
	limit := maxDuration + models.SlackMS

	var (
		picked      *models.Program
		fillerID    string
		weightTotal float64
	)
	for _, collection := range fillers {
		chosen := false
		var n float64

		for i := range collection.Content {
			clip := &collection.Content[i]
			if clip.Duration > limit {
				continue
			}

			since := p.since(now, p.history.ProgramLastPlayTime(ch.Number, clip.PlaybackKey()))
			if since < repeatCooldown-models.SlackMS {
				if wait := repeatCooldown - since; clip.Duration+wait <= limit && wait < minimumWait {
					minimumWait = wait
				}
				continue
			}

			if !chosen {
				listSince := p.since(now, p.history.FillerLastPlayTime(ch.Number, collection.ID))
				if listSince+models.SlackMS < collection.Cooldown {
					if wait := collection.Cooldown - listSince; clip.Duration+wait <= limit && wait < minimumWait {
						minimumWait = wait
					}
					break
				}
				weightTotal += collection.Weight
				if !weighted.Accept(p.random, collection.Weight, weightTotal) {
					break
				}
				chosen = true
			}

			if since <= 0 {
				continue
			}
			w := idleScore(min(since, idleCeiling)) + durationScore(clip.Duration)
			n += w
			if weighted.Accept(p.random, w, n) {
				c := clip.Clone()
				picked = &c
				fillerID = collection.ID
			}
		}
	}

	if picked == nil {
		telemetry.FillerPicksTotal.WithLabelValues("exhausted").Inc()
		p.logger.Debug().Int("channel", ch.Number).Int64("max_duration_ms", maxDuration).Int64("minimum_wait_ms", minimumWait).Msg("no eligible filler")
		return Pick{MinimumWait: minimumWait}, ErrFillerExhausted
	}
	telemetry.FillerPicksTotal.WithLabelValues("picked").Inc()
	return Pick{Clip: picked, FillerID: fillerID, MinimumWait: minimumWait}, nil
}

// FirstViewStart picks a start offset into clip for a viewer tuning in so
// they do not always land at the very start of a commercial. The offset
// leaves room for the clip to end with the window and keeps at least 15s
// plus SLACK of the clip to play.
func (p *Picker) FirstViewStart(clip models.Program, remaining int64) int64 {
	start := max(0, clip.Duration-remaining)
	more := max(0, clip.Duration-start-firstViewLeadOut-models.SlackMS)
	if more == 0 {
		return start
	}
	return start + min(more, int64(p.random()*float64(more+1)))
}

func (p *Picker) since(now, last int64) int64 {
	if last == 0 {
		return neverPlayed
	}
	return now - last
}

// durationScore favours clips up to three minutes and grows logarithmically
// beyond that.
func durationScore(duration int64) float64 {
	x := float64(duration) / float64(models.MinuteMS)
	if x >= 3 {
		x = 3 + math.Log(x)
	}
	y := 10000 * (math.Ceil(x*1000) + 1)
	return math.Ceil(y/1_000_000) + 1
}

// idleScore grows quadratically with time since last play, in ms.
func idleScore(since int64) float64 {
	y := math.Ceil(float64(since)/600) + 1
	y *= y
	return math.Ceil(y/1_000_000) + 1
}
