/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays change events between instances over Redis pub/sub
// so that per-process channel caches stay coherent.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/friendsincode/grimnir_tv/internal/events"
)

// Topic is the Redis pub/sub channel carrying relayed events.
const Topic = "grimnir_tv:events"

// relayed lists the event types that cross instances.
var relayed = []events.EventType{
	events.EventChannelSaved,
	events.EventChannelDeleted,
	events.EventScheduleCompiled,
	events.EventPlaybackCleared,
	events.EventFillerSaved,
}

// message is the wire form of a relayed event.
type message struct {
	NodeID string       `json:"node_id"`
	Event  events.Event `json:"event"`
}

// ApplyFunc drops local state made stale by another instance's event.
type ApplyFunc func(events.Event)

// Relay forwards local events to Redis. Other instances' events are handed to
// apply, which must see every one of them, and then republished on the local
// bus with Remote set for listeners that can tolerate drops.
type Relay struct {
	client *redis.Client
	bus    *events.Bus
	nodeID string
	apply  ApplyFunc
	logger zerolog.Logger
}

// NewRelay creates a relay for this node. apply may be nil.
func NewRelay(client *redis.Client, bus *events.Bus, nodeID string, apply ApplyFunc, logger zerolog.Logger) *Relay {
	return &Relay{
		client: client,
		bus:    bus,
		nodeID: nodeID,
		apply:  apply,
		logger: logger.With().Str("component", "eventbus").Str("node_id", nodeID).Logger(),
	}
}

// Run relays until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, Topic)
	defer pubsub.Close()
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", Topic, err)
	}

	local := r.bus.Subscribe(relayed...)
	defer r.bus.Unsubscribe(local)

	remote := pubsub.Channel()
	r.logger.Info().Msg("event relay started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("event relay stopped")
			return nil

		case ev, ok := <-local:
			if !ok {
				return nil
			}
			if ev.Remote {
				continue
			}
			payload, err := r.encode(ev)
			if err != nil {
				r.logger.Error().Err(err).Str("event", string(ev.Type)).Msg("failed to encode event")
				continue
			}
			if err := r.client.Publish(ctx, Topic, payload).Err(); err != nil {
				r.logger.Warn().Err(err).Str("event", string(ev.Type)).Msg("failed to relay event")
			}

		case msg, ok := <-remote:
			if !ok {
				return fmt.Errorf("redis subscription to %s closed", Topic)
			}
			r.handle(msg.Payload)
		}
	}
}

func (r *Relay) encode(ev events.Event) ([]byte, error) {
	return json.Marshal(message{NodeID: r.nodeID, Event: ev})
}

// handle applies and republishes a relayed event. Our own echoes are dropped.
func (r *Relay) handle(payload string) {
	var msg message
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		r.logger.Error().Err(err).Msg("failed to decode relayed event")
		return
	}
	if msg.NodeID == r.nodeID {
		return
	}
	msg.Event.Remote = true
	if r.apply != nil {
		r.apply(msg.Event)
	}
	r.bus.Publish(msg.Event)
}
