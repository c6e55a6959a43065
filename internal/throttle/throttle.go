/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package throttle detects clients re-requesting the same lineup item in a
// tight loop.
package throttle

import (
	"sync"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

// TooFrequent is the window, in ms, inside which a repeated request for the
// same item counts as a retry loop.
const TooFrequent int64 = 1000

type attempt struct {
	at   int64
	item *models.LineupItem
}

// Throttler tracks the last item handed to each playback session.
type Throttler struct {
	mu       sync.Mutex
	sessions map[string]attempt
}

// New creates a throttler.
func New() *Throttler {
	return &Throttler{sessions: make(map[string]attempt)}
}

// TooManyAttempts records item for session at now (epoch ms) and reports
// whether the session already received the same playable item less than
// TooFrequent ago.
func (t *Throttler) TooManyAttempts(session string, now int64, item models.LineupItem) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	result := false
	if prev, ok := t.sessions[session]; ok && now-prev.at < TooFrequent {
		result = sameItem(prev.item, item)
	}
	stored := item.Clone()
	t.sessions[session] = attempt{at: now, item: &stored}
	t.prune(now)
	return result
}

// prune forgets sessions idle for five windows.
func (t *Throttler) prune(now int64) {
	for session, a := range t.sessions {
		if now-a.at > 5*TooFrequent {
			delete(t.sessions, session)
		}
	}
}

// Len reports the number of tracked sessions.
func (t *Throttler) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

func sameItem(a *models.LineupItem, b models.LineupItem) bool {
	if a == nil || a.Type == models.LineupOffline || b.Type == models.LineupOffline {
		return false
	}
	return a.Title == b.Title && a.Key == b.Key
}
