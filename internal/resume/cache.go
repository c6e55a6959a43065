/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package resume remembers the item each channel is airing so that viewers
// tuning in around the same time converge on the same playback position.
package resume

import (
	"strconv"
	"sync"

	"github.com/friendsincode/grimnir_tv/internal/models"
	"github.com/friendsincode/grimnir_tv/internal/telemetry"
)

type entry struct {
	t0   int64
	item models.LineupItem
}

// Cache holds the last resolved item per channel and the last play times per
// program and filler collection. Play times only move forward. All times are
// epoch milliseconds.
type Cache struct {
	mu       sync.Mutex
	entries  map[int]entry
	programs map[string]int64
	fillers  map[string]int64
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{
		entries:  make(map[int]entry),
		programs: make(map[string]int64),
		fillers:  make(map[string]int64),
	}
}

func programKey(channel int, key string) string {
	return strconv.Itoa(channel) + "|" + key
}

func fillerKey(channel int, fillerID string) string {
	return strconv.Itoa(channel) + "|" + fillerID
}

// CurrentLineupItem returns the channel's cached item advanced to now, or
// false if there is none or it has effectively finished.
//
// A lookup within SLACK of the recording (and of the first recording of the
// same item) returns the item unchanged so quick reconnects keep their exact
// position. An advanced item has no OriginalT0.
func (c *Cache) CurrentLineupItem(channel int, now int64) (models.LineupItem, bool) {
	c.mu.Lock()
	recorded, ok := c.entries[channel]
	c.mu.Unlock()
	if !ok {
		telemetry.ResumeCacheLookups.WithLabelValues("miss").Inc()
		return models.LineupItem{}, false
	}

	item := recorded.item.Clone()
	diff := now - recorded.t0
	if diff <= models.SlackMS && diff+models.SlackMS < item.Remaining() {
		originalT0 := recorded.t0
		if item.OriginalT0 != nil {
			originalT0 = *item.OriginalT0
		}
		if now-originalT0 <= models.SlackMS {
			item.OriginalT0 = &originalT0
			telemetry.ResumeCacheLookups.WithLabelValues("hit").Inc()
			return item, true
		}
	}

	item.Start += diff
	item.StreamDuration -= diff
	item.OriginalT0 = nil
	if item.StreamDuration < models.SlackMS || item.Start+models.SlackMS > item.Duration {
		telemetry.ResumeCacheLookups.WithLabelValues("expired").Inc()
		return models.LineupItem{}, false
	}
	telemetry.ResumeCacheLookups.WithLabelValues("advanced").Inc()
	return item, true
}

// RecordPlayback stores item as the channel's current item as of t0 and marks
// its program (and filler collection, if any) as played until it ends.
func (c *Cache) RecordPlayback(channel int, t0 int64, item models.LineupItem) {
	end := t0 + item.StreamDuration

	c.mu.Lock()
	defer c.mu.Unlock()

	pk := programKey(channel, item.PlaybackKey())
	if end > c.programs[pk] {
		c.programs[pk] = end
	}
	if item.FillerID != "" {
		fk := fillerKey(channel, item.FillerID)
		if end > c.fillers[fk] {
			c.fillers[fk] = end
		}
	}
	c.entries[channel] = entry{t0: t0, item: item.Clone()}
}

// ClearPlayback forgets the channel's current item.
func (c *Cache) ClearPlayback(channel int) {
	c.mu.Lock()
	delete(c.entries, channel)
	c.mu.Unlock()
}

// InvalidateChannel forgets the channel's current item and the items of every
// channel in its redirect chain.
func (c *Cache) InvalidateChannel(channel int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if recorded, ok := c.entries[channel]; ok {
		for _, ctx := range recorded.item.RedirectChannels {
			delete(c.entries, ctx.Number)
		}
		delete(c.entries, channel)
	}
}

// Clear forgets every current item. Play times are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[int]entry)
	c.mu.Unlock()
}

// ProgramLastPlayTime returns when the program with the given playback key
// last finished on the channel, or zero.
func (c *Cache) ProgramLastPlayTime(channel int, key string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.programs[programKey(channel, key)]
}

// FillerLastPlayTime returns when the filler collection last finished on the
// channel, or zero.
func (c *Cache) FillerLastPlayTime(channel int, fillerID string) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fillers[fillerKey(channel, fillerID)]
}
