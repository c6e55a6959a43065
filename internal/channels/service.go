/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package channels is the read-through channel service shared by the lineup
// resolver and the admin API.
package channels

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/friendsincode/grimnir_tv/internal/cache"
	"github.com/friendsincode/grimnir_tv/internal/events"
	"github.com/friendsincode/grimnir_tv/internal/lineup"
	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/resume"
	"github.com/friendsincode/grimnir_tv/internal/schedule"
	"github.com/friendsincode/grimnir_tv/internal/store"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
)

// ErrInvalidChannel is returned when a channel document fails validation.
var ErrInvalidChannel = errors.New("invalid channel")

// Defaults fill in settings a saved channel or schedule leaves out.
type Defaults struct {
	FillerRepeatCooldown time.Duration
	CompileMaxDays       int
}

// Service caches channel configs in process and in Redis, and keeps the
// resume cache consistent with saved channels.
type Service struct {
	store    *store.Store
	shared   *cache.Cache
	resume   *resume.Cache
	bus      *events.Bus
	compiler *schedule.Compiler
	defaults Defaults
	logger   zerolog.Logger

	loads singleflight.Group

	mu      sync.RWMutex
	configs map[int]*models.Channel // nil value: known to be missing
	numbers []int

	// Bumped on every invalidation. A load only caches what it read if
	// the generation it started under is still current.
	gens       map[int]uint64
	epoch      uint64
	numbersGen uint64
}

type generation struct {
	epoch, n uint64
}

// generation must be called with mu held.
func (s *Service) generation(number int) generation {
	return generation{epoch: s.epoch, n: s.gens[number]}
}

func (s *Service) current(number int, g generation) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation(number) == g
}

// bump must be called with mu held.
func (s *Service) bump(number int) {
	s.gens[number]++
	s.numbersGen++
	s.numbers = nil
	s.loads.Forget(strconv.Itoa(number))
}

// New constructs the service. shared may be a disabled cache.
func New(st *store.Store, shared *cache.Cache, resumeCache *resume.Cache, bus *events.Bus, compiler *schedule.Compiler, defaults Defaults, logger zerolog.Logger) *Service {
	if defaults.CompileMaxDays <= 0 {
		defaults.CompileMaxDays = 365
	}
	return &Service{
		store:    st,
		shared:   shared,
		resume:   resumeCache,
		bus:      bus,
		compiler: compiler,
		defaults: defaults,
		logger:   logger.With().Str("component", "channels").Logger(),
		configs:  make(map[int]*models.Channel),
		gens:     make(map[int]uint64),
	}
}

// GetChannel returns a copy of the channel, or nil if it does not exist.
// Concurrent misses for the same number share one load.
func (s *Service) GetChannel(ctx context.Context, number int) (*models.Channel, error) {
	s.mu.RLock()
	ch, ok := s.configs[number]
	gen := s.generation(number)
	s.mu.RUnlock()
	if ok {
		telemetry.ChannelCacheLookups.WithLabelValues("local", "hit").Inc()
		return ch.Clone(), nil
	}
	telemetry.ChannelCacheLookups.WithLabelValues("local", "miss").Inc()

	v, err, _ := s.loads.Do(strconv.Itoa(number), func() (any, error) {
		if cached, ok := s.shared.GetChannel(ctx, number); ok {
			return cached, nil
		}
		loaded, err := s.store.GetChannel(ctx, number)
		if err != nil {
			return nil, err
		}
		if loaded != nil && s.current(number, gen) {
			if err := s.shared.SetChannel(ctx, loaded); err != nil {
				s.logger.Debug().Err(err).Int("channel", number).Msg("failed to share channel config")
			}
			// A save that landed between the check and the write has
			// already deleted the key; take the stale copy back out.
			if !s.current(number, gen) {
				_ = s.shared.InvalidateChannel(ctx, number)
			}
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	loaded := v.(*models.Channel)

	s.mu.Lock()
	if s.generation(number) == gen {
		s.configs[number] = loaded
	}
	s.mu.Unlock()
	return loaded.Clone(), nil
}

// FillersForChannel loads the channel's filler collections.
func (s *Service) FillersForChannel(ctx context.Context, ch *models.Channel) ([]models.FillerCollection, error) {
	return s.store.FillersForChannel(ctx, ch)
}

// ChannelNumbers lists every channel number.
func (s *Service) ChannelNumbers(ctx context.Context) ([]int, error) {
	s.mu.RLock()
	numbers := s.numbers
	gen := s.numbersGen
	s.mu.RUnlock()
	if numbers != nil {
		return append([]int(nil), numbers...), nil
	}

	if cached, ok := s.shared.GetChannelNumbers(ctx); ok {
		numbers = cached
	} else {
		var err error
		if numbers, err = s.store.ChannelNumbers(ctx); err != nil {
			return nil, err
		}
		if numbers == nil {
			numbers = []int{}
		}
		_ = s.shared.SetChannelNumbers(ctx, numbers)
	}

	s.mu.Lock()
	stale := s.numbersGen != gen
	if !stale {
		s.numbers = numbers
	}
	s.mu.Unlock()
	if stale {
		_ = s.shared.InvalidateChannelNumbers(ctx)
	}
	return append([]int(nil), numbers...), nil
}

// ListChannels returns every channel. Numbers whose config vanished are
// skipped with a warning.
func (s *Service) ListChannels(ctx context.Context) ([]*models.Channel, error) {
	numbers, err := s.ChannelNumbers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Channel, 0, len(numbers))
	for _, n := range numbers {
		ch, err := s.GetChannel(ctx, n)
		if err != nil {
			return nil, err
		}
		if ch == nil {
			s.logger.Warn().Int("channel", n).Msg("channel listed but not found")
			continue
		}
		out = append(out, ch)
	}
	return out, nil
}

// SaveChannel validates and stores ch, then drops every cached view of it:
// the config caches, the number list, and the resume entries of the channel
// and its redirect chain.
func (s *Service) SaveChannel(ctx context.Context, ch *models.Channel) error {
	if err := s.normalize(ch); err != nil {
		return err
	}
	if err := s.store.SaveChannel(ctx, ch); err != nil {
		return err
	}
	s.invalidate(ctx, ch.Number, ch.Clone())
	s.bus.Publish(events.Event{Type: events.EventChannelSaved, Channel: ch.Number})
	s.logger.Info().Int("channel", ch.Number).Int("programs", len(ch.Programs)).Int64("duration_ms", ch.Duration).Msg("channel saved")
	return nil
}

// DeleteChannel removes a channel.
func (s *Service) DeleteChannel(ctx context.Context, number int) error {
	if err := s.store.DeleteChannel(ctx, number); err != nil {
		return err
	}
	s.invalidate(ctx, number, nil)
	s.bus.Publish(events.Event{Type: events.EventChannelDeleted, Channel: number})
	return nil
}

func (s *Service) invalidate(ctx context.Context, number int, current *models.Channel) {
	s.mu.Lock()
	s.configs[number] = current
	s.bump(number)
	s.mu.Unlock()

	if err := s.shared.InvalidateChannel(ctx, number); err != nil {
		s.logger.Debug().Err(err).Int("channel", number).Msg("failed to invalidate shared channel cache")
	}
	s.resume.InvalidateChannel(number)
}

func (s *Service) normalize(ch *models.Channel) error {
	if ch == nil || ch.Number <= 0 {
		return fmt.Errorf("%w: number must be positive", ErrInvalidChannel)
	}
	for i, p := range ch.Programs {
		if p.Duration <= 0 {
			return fmt.Errorf("%w: programs[%d] has no duration", ErrInvalidChannel, i)
		}
		if p.IsRedirect() && p.Channel <= 0 {
			return fmt.Errorf("%w: programs[%d] redirects to no channel", ErrInvalidChannel, i)
		}
	}
	ch.Duration = models.TotalDuration(ch.Programs)
	if ch.StartTime.IsZero() {
		ch.StartTime = time.Now().UTC()
	}
	if ch.FillerRepeatCooldown == nil {
		v := s.defaults.FillerRepeatCooldown.Milliseconds()
		ch.FillerRepeatCooldown = &v
	}
	if ch.OfflineMode == "" {
		ch.OfflineMode = models.OfflinePicture
	}
	return nil
}

// ClearPlayback forgets what the channel is airing so the next viewer
// resolves from the schedule.
func (s *Service) ClearPlayback(number int) {
	s.resume.ClearPlayback(number)
	s.bus.Publish(events.Event{Type: events.EventPlaybackCleared, Channel: number})
}

// ApplyRemote brings in-process caches in line with a change made by another
// instance. The shared cache was already invalidated at the origin, and
// nothing is republished.
func (s *Service) ApplyRemote(ev events.Event) {
	switch ev.Type {
	case events.EventChannelSaved, events.EventChannelDeleted, events.EventScheduleCompiled:
		s.mu.Lock()
		delete(s.configs, ev.Channel)
		s.bump(ev.Channel)
		s.mu.Unlock()
		s.resume.InvalidateChannel(ev.Channel)
	case events.EventPlaybackCleared:
		s.resume.ClearPlayback(ev.Channel)
	}
}

// Reset drops every in-process cache. Play-time history is kept.
func (s *Service) Reset() {
	s.mu.Lock()
	s.configs = make(map[int]*models.Channel)
	s.numbers = nil
	s.epoch++
	s.numbersGen++
	s.mu.Unlock()
	s.resume.Clear()
}

// CompileRandomSlots compiles a random-slot schedule for the channel and saves
// the result. An empty pool reuses the channel's current programs. Nothing is
// saved when the compile fails.
func (s *Service) CompileRandomSlots(ctx context.Context, number int, pool []models.Program, rule schedule.RandomSlotsSchedule) (*models.Channel, error) {
	if rule.MaxDays == 0 {
		rule.MaxDays = s.defaults.CompileMaxDays
	}
	return s.compile(ctx, number, pool, func(programs []models.Program) (schedule.Result, error) {
		return s.compiler.CompileRandomSlots(ctx, programs, rule)
	})
}

// CompileTimeSlots is CompileRandomSlots for a time-slot schedule.
func (s *Service) CompileTimeSlots(ctx context.Context, number int, pool []models.Program, rule schedule.TimeSlotsSchedule) (*models.Channel, error) {
	if rule.MaxDays == 0 {
		rule.MaxDays = s.defaults.CompileMaxDays
	}
	return s.compile(ctx, number, pool, func(programs []models.Program) (schedule.Result, error) {
		return s.compiler.CompileTimeSlots(ctx, programs, rule)
	})
}

func (s *Service) compile(ctx context.Context, number int, pool []models.Program, run func([]models.Program) (schedule.Result, error)) (*models.Channel, error) {
	ch, err := s.GetChannel(ctx, number)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, fmt.Errorf("%d: %w", number, lineup.ErrChannelNotFound)
	}
	if len(pool) == 0 {
		pool = ch.Programs
	}

	res, err := run(pool)
	if err != nil {
		return nil, err
	}
	res.Apply(ch)
	if err := s.SaveChannel(ctx, ch); err != nil {
		return nil, err
	}
	s.bus.Publish(events.Event{
		Type:    events.EventScheduleCompiled,
		Channel: number,
		Detail:  map[string]any{"programs": len(res.Programs), "duration_ms": res.Duration()},
	})
	return ch, nil
}

// CreateFiller stores a new filler list.
func (s *Service) CreateFiller(ctx context.Context, name string, content []models.Program) (*models.FillerRecord, error) {
	rec, err := s.store.CreateFiller(ctx, name, content)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(events.Event{Type: events.EventFillerSaved, Filler: rec.ID})
	return rec, nil
}

// UpdateFiller replaces a filler list.
func (s *Service) UpdateFiller(ctx context.Context, id, name string, content []models.Program) (*models.FillerRecord, error) {
	rec, err := s.store.UpdateFiller(ctx, id, name, content)
	if err != nil {
		return nil, err
	}
	s.bus.Publish(events.Event{Type: events.EventFillerSaved, Filler: rec.ID})
	return rec, nil
}

// GetFiller loads a filler list.
func (s *Service) GetFiller(ctx context.Context, id string) (*models.FillerRecord, error) {
	return s.store.GetFiller(ctx, id)
}

// ListFillers lists filler lists without content.
func (s *Service) ListFillers(ctx context.Context) ([]models.FillerRecord, error) {
	return s.store.ListFillers(ctx)
}
