/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package lineup resolves what a channel is airing at a given instant into a
// concrete playback instruction.
package lineup

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_tv/internal/filler"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/resume"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
	"github.com/friendsincode/grimnir_tv/internal/throttle"
)

const tracerName = "grimnir_tv/lineup"

const (
	gapDuration     int64 = 750
	errorDuration         = models.MinuteMS
	offlineCap            = 10 * models.MinuteMS
	snapWindow            = 30 * models.SecondMS
	permanentWindow       = 365 * models.DayMS
)

var (
	// ErrRecursiveRedirect marks a redirect chain that revisits a channel.
	// It is reported through an error placeholder, never returned.
	ErrRecursiveRedirect = errors.New("recursive channel redirect found")

	// ErrInvalidRedirect marks a redirect to a channel that does not exist.
	ErrInvalidRedirect = errors.New("invalid redirect to a channel that doesn't exist")

	// ErrTooManyAttempts marks a session re-requesting the same item in a loop.
	ErrTooManyAttempts = errors.New("too many attempts, throttling")

	// ErrChannelNotFound is returned for an unknown channel number.
	ErrChannelNotFound = errors.New("channel not found")
)

// ChannelSource loads channels. A nil channel with a nil error means the
// number is unknown.
type ChannelSource interface {
	GetChannel(ctx context.Context, number int) (*models.Channel, error)
}

// FillerSource loads the filler collections referenced by a channel.
type FillerSource interface {
	FillersForChannel(ctx context.Context, ch *models.Channel) ([]models.FillerCollection, error)
}

// Mode requests a short gap item instead of channel content.
type Mode string

const (
	ModeNormal    Mode = ""
	ModeLoading   Mode = "loading"
	ModeInterlude Mode = "interlude"
)

// Options tune a single resolve.
type Options struct {
	// First marks a viewer tuning in; filler may run longer than the window
	// and start part-way through.
	First bool
	Mode  Mode
	// Session identifies a playback session for retry-loop throttling.
	Session string
}

// Resolver turns channel + wall clock into a LineupItem. It is safe for
// concurrent use; the resume cache is the only shared mutable state.
type Resolver struct {
	channels ChannelSource
	fillers  FillerSource
	cache    *resume.Cache
	picker   *filler.Picker
	throttle *throttle.Throttler
	logger   zerolog.Logger
}

// NewResolver wires a resolver. A nil throttler disables throttling.
func NewResolver(channels ChannelSource, fillers FillerSource, cache *resume.Cache, picker *filler.Picker, throttler *throttle.Throttler, logger zerolog.Logger) *Resolver {
	return &Resolver{
		channels: channels,
		fillers:  fillers,
		cache:    cache,
		picker:   picker,
		throttle: throttler,
		logger:   logger.With().Str("component", "lineup").Logger(),
	}
}

// Resolve returns what the channel airs at now. Every level of a redirect
// chain records the result so later viewers of any of those channels join the
// same item.
func (r *Resolver) Resolve(ctx context.Context, number int, now time.Time, opts Options) (models.LineupItem, error) {
	ctx, span := telemetry.StartSpan(ctx, tracerName, "lineup.resolve")
	defer span.End()
	started := time.Now()
	defer func() { telemetry.ResolveDuration.Observe(time.Since(started).Seconds()) }()

	ch, err := r.channels.GetChannel(ctx, number)
	if err != nil {
		telemetry.RecordError(span, err)
		return models.LineupItem{}, fmt.Errorf("load channel %d: %w", number, err)
	}
	if ch == nil {
		return models.LineupItem{}, fmt.Errorf("%d: %w", number, ErrChannelNotFound)
	}

	t0 := now.UnixMilli()
	item, err := r.resolve(ctx, ch, t0, opts, true)
	if err != nil {
		if errors.Is(err, ErrCorruptSchedule) {
			telemetry.ResolveErrorsTotal.WithLabelValues("corrupt_schedule").Inc()
		}
		telemetry.RecordError(span, err)
		r.logger.Error().Err(err).Int("channel", number).Msg("resolve failed")
		return models.LineupItem{}, err
	}

	if opts.Session != "" && r.throttle != nil && r.throttle.TooManyAttempts(opts.Session, t0, item) {
		telemetry.ResolveErrorsTotal.WithLabelValues("throttled").Inc()
		r.logger.Warn().Int("channel", number).Str("session", opts.Session).Msg("same item requested too often, sending error item")
		item = errorItem(ErrTooManyAttempts, errorDuration)
		item.RedirectChannels = []models.ChannelContext{ch.Context()}
	}

	telemetry.ResolvesTotal.WithLabelValues(string(item.Type)).Inc()
	telemetry.AddSpanAttributes(span, map[string]any{
		"channel":         number,
		"lineup.type":     string(item.Type),
		"lineup.start":    item.Start,
		"lineup.duration": item.StreamDuration,
	})
	r.logger.Debug().
		Int("channel", number).
		Str("type", string(item.Type)).
		Str("title", item.Title).
		Int64("start", item.Start).
		Int64("stream_duration", item.StreamDuration).
		Msg("lineup resolved")
	return item, nil
}

func (r *Resolver) resolve(ctx context.Context, ch *models.Channel, now int64, opts Options, allowSkip bool) (models.LineupItem, error) {
	switch opts.Mode {
	case ModeLoading:
		return gapItem(models.LineupLoading, "Loading Screen", ch), nil
	case ModeInterlude:
		return gapItem(models.LineupInterlude, "Interlude Screen", ch), nil
	}

	var (
		chain  []models.ChannelContext
		bounds []int64
		pos    Position
		err    error
	)
	brand := ch
	item, cached := r.cache.CurrentLineupItem(ch.Number, now)
	if cached {
		chain, bounds = item.RedirectChannels, item.UpperBounds
		if len(chain) == 0 || len(chain) != len(bounds) {
			chain = []models.ChannelContext{ch.Context()}
			bounds = []int64{item.Remaining()}
		}
	} else {
		pos, err = currentProgram(now, ch)
		if err != nil {
			return models.LineupItem{}, fmt.Errorf("channel %d: %w", ch.Number, err)
		}
		for {
			chain = append(chain, brand.Context())
			bounds = append(bounds, pos.Program.Duration-pos.Elapsed)
			if pos.Err != nil || !pos.Program.IsRedirect() {
				break
			}

			target := pos.Program.Channel
			if inChain(chain, target) {
				r.logger.Warn().Int("channel", ch.Number).Int("target", target).Msg("recursive channel redirect")
				telemetry.ResolveErrorsTotal.WithLabelValues("recursive_redirect").Inc()
				pos = errorPosition(ErrRecursiveRedirect)
				break
			}
			next, err := r.channels.GetChannel(ctx, target)
			if err != nil {
				return models.LineupItem{}, fmt.Errorf("load redirect target %d: %w", target, err)
			}
			if next == nil {
				r.logger.Warn().Int("channel", brand.Number).Int("target", target).Msg("redirect to missing channel")
				telemetry.ResolveErrorsTotal.WithLabelValues("invalid_redirect").Inc()
				pos = errorPosition(ErrInvalidRedirect)
				break
			}
			brand = next

			if hit, ok := r.cache.CurrentLineupItem(next.Number, now); ok {
				nested, nestedBounds := hit.RedirectChannels, hit.UpperBounds
				if len(nested) == 0 || len(nested) != len(nestedBounds) {
					nested = []models.ChannelContext{next.Context()}
					nestedBounds = []int64{hit.Remaining()}
				}
				if overlaps(chain, nested) {
					telemetry.ResolveErrorsTotal.WithLabelValues("recursive_redirect").Inc()
					pos = errorPosition(ErrRecursiveRedirect)
					break
				}
				chain = append(chain, nested...)
				bounds = append(bounds, nestedBounds...)
				item, cached = hit, true
				break
			}
			pos, err = currentProgram(now, next)
			if err != nil {
				return models.LineupItem{}, fmt.Errorf("redirect target %d: %w", target, err)
			}
		}
	}

	if !cached {
		switch {
		case pos.Err == nil && pos.Program.IsFlex() && len(brand.Programs) == 1 && pos.Index != -1:
			// A lone flex program means the channel is permanently offline.
			pos.Program = models.NewFlex(permanentWindow)
		case allowSkip && pos.Err == nil && pos.Program.IsOffline() && pos.Program.Duration-pos.Elapsed <= models.SlackMS+1:
			dt := pos.Program.Duration - pos.Elapsed
			for _, c := range chain {
				r.cache.ClearPlayback(c.Number)
			}
			r.logger.Debug().Int("channel", ch.Number).Int64("remaining_ms", dt).Msg("offline window too short, skipping ahead")
			return r.resolve(ctx, ch, now+dt+1, opts, false)
		}
		item = r.createItem(ctx, brand, pos, opts.First, now)
	}

	upper := int64(math.MaxInt64)
	offset := item.BeginningOffset
	if item.OriginalT0 == nil {
		t := now
		item.OriginalT0 = &t
	}
	for i := len(chain) - 1; i >= 0; i-- {
		item = item.Clone()
		item.RedirectChannels = append([]models.ChannelContext(nil), chain...)
		item.UpperBounds = append([]int64(nil), bounds...)
		item.StreamDuration = min(upper, item.StreamDuration, bounds[i]+offset)
		upper = item.StreamDuration
		r.cache.RecordPlayback(chain[i].Number, now, item)
	}
	return item, nil
}

// createItem turns a program position into a playback instruction.
func (r *Resolver) createItem(ctx context.Context, ch *models.Channel, pos Position, first bool, now int64) models.LineupItem {
	remaining := pos.Program.Duration - pos.Elapsed

	if pos.Err != nil {
		return errorItem(pos.Err, remaining)
	}

	if pos.Program.IsOffline() {
		return r.offlineItem(ctx, ch, remaining, first, now)
	}

	p := pos.Program
	start := pos.Elapsed
	if start < snapWindow {
		start = 0
	}
	return models.LineupItem{
		Type:            models.LineupProgram,
		Title:           p.Title,
		Key:             p.Key,
		ServerKey:       p.ServerKey,
		RatingKey:       p.RatingKey,
		File:            p.File,
		Start:           start,
		StreamDuration:  p.Duration - start,
		Duration:        p.Duration,
		BeginningOffset: pos.Elapsed - start,
	}
}

// offlineItem fills a flex window with filler, the channel's fallback clip,
// or an offline screen capped at ten minutes.
func (r *Resolver) offlineItem(ctx context.Context, ch *models.Channel, remaining int64, first bool, now int64) models.LineupItem {
	var collections []models.FillerCollection
	if len(ch.FillerCollections) > 0 && r.fillers != nil {
		loaded, err := r.fillers.FillersForChannel(ctx, ch)
		if err != nil {
			r.logger.Warn().Err(err).Int("channel", ch.Number).Msg("failed to load filler collections")
		}
		collections = loaded
	}

	window := remaining
	if first {
		window += models.WeekMS
	}
	pick, err := r.picker.Pick(ch, collections, window, now)
	clip := pick.Clip
	if err != nil && remaining > pick.MinimumWait {
		remaining = pick.MinimumWait
	}

	fallback := false
	if clip == nil && ch.OfflineMode == models.OfflineClip && len(ch.Fallback) > 0 {
		c := ch.Fallback[0].Clone()
		clip = &c
		fallback = true
	}

	if clip != nil {
		var start int64
		switch {
		case fallback:
			start = max(0, clip.Duration-remaining)
		case first:
			start = r.picker.FirstViewStart(*clip, remaining)
		}
		item := models.LineupItem{
			Type:           models.LineupCommercial,
			Title:          clip.Title,
			Key:            clip.Key,
			ServerKey:      clip.ServerKey,
			RatingKey:      clip.RatingKey,
			File:           clip.File,
			Start:          start,
			StreamDuration: max(1, min(clip.Duration-start, remaining)),
			Duration:       clip.Duration,
		}
		if !fallback {
			item.FillerID = pick.FillerID
		}
		return item
	}

	remaining = min(remaining, offlineCap)
	return models.LineupItem{
		Type:           models.LineupOffline,
		Title:          "Channel Offline",
		StreamDuration: remaining,
		Duration:       remaining,
	}
}

func errorItem(err error, duration int64) models.LineupItem {
	return models.LineupItem{
		Type:           models.LineupOffline,
		Title:          "Error",
		Err:            err.Error(),
		StreamDuration: duration,
		Duration:       duration,
	}
}

func gapItem(kind models.LineupType, title string, ch *models.Channel) models.LineupItem {
	return models.LineupItem{
		Type:             kind,
		Title:            title,
		StreamDuration:   gapDuration,
		Duration:         gapDuration,
		RedirectChannels: []models.ChannelContext{ch.Context()},
	}
}

func inChain(chain []models.ChannelContext, number int) bool {
	for _, c := range chain {
		if c.Number == number {
			return true
		}
	}
	return false
}

func overlaps(chain, nested []models.ChannelContext) bool {
	for _, c := range nested {
		if inChain(chain, c.Number) {
			return true
		}
	}
	return false
}
