/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events is an in-process pubsub for channel lifecycle changes.
package events

import (
	"sync"
	"time"
)

// EventType enumerates event categories.
type EventType string

const (
	EventChannelSaved     EventType = "channel.saved"
	EventChannelDeleted   EventType = "channel.deleted"
	EventScheduleCompiled EventType = "channel.schedule_compiled"
	EventPlaybackCleared  EventType = "channel.playback_cleared"
	EventFillerSaved      EventType = "filler.saved"
)

// Event is one published change.
type Event struct {
	Type    EventType      `json:"type"`
	Channel int            `json:"channel,omitempty"` // zero for filler events
	Filler  string         `json:"filler,omitempty"`  // filler list id, if any
	At      time.Time      `json:"at"`
	Detail  map[string]any `json:"detail,omitempty"`

	// Remote marks an event relayed from another instance.
	Remote bool `json:"-"`
}

// Subscriber receives events.
type Subscriber chan Event

// subscriberBuffer is how many events a slow subscriber may lag before
// events are dropped for it.
const subscriberBuffer = 16

// Bus implements a simple in-process pubsub. Publishing never blocks.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for the given event types.
func (b *Bus) Subscribe(types ...EventType) Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	b.mu.Lock()
	for _, t := range types {
		b.subs[t] = append(b.subs[t], ch)
	}
	b.mu.Unlock()
	return ch
}

// Publish sends ev to its subscribers, dropping it for any that are full.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[ev.Type] {
		select {
		case sub <- ev:
		default:
		}
	}
}

// Unsubscribe removes the subscriber from every type and closes it.
func (b *Bus) Unsubscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for t, subs := range b.subs {
		kept := subs[:0]
		for _, candidate := range subs {
			if candidate != sub {
				kept = append(kept, candidate)
			}
		}
		if len(kept) == 0 {
			delete(b.subs, t)
		} else {
			b.subs[t] = kept
		}
	}
	close(sub)
}
