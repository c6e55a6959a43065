/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// DefaultFillerRepeatCooldown is applied when a channel does not set one.
const DefaultFillerRepeatCooldown = 30 * MinuteMS

// OfflineMode selects what a channel shows when nothing else is available.
type OfflineMode string

const (
	OfflinePicture OfflineMode = "pic"
	OfflineClip    OfflineMode = "clip"
)

// FillerRef attaches a filler collection to a channel.
type FillerRef struct {
	ID       string  `json:"id"`
	Weight   float64 `json:"weight"`
	Cooldown int64   `json:"cooldown"` // milliseconds
}

// Channel is a simulated linear channel. Programs repeat every Duration
// milliseconds starting at StartTime.
type Channel struct {
	Number               int         `json:"number"`
	Name                 string      `json:"name"`
	Icon                 string      `json:"icon,omitempty"`
	Programs             []Program   `json:"programs"`
	Duration             int64       `json:"duration"`
	StartTime            time.Time   `json:"startTime"`
	Fallback             []Program   `json:"fallback,omitempty"`
	OfflineMode          OfflineMode `json:"offlineMode,omitempty"`
	FillerCollections    []FillerRef `json:"fillerCollections,omitempty"`
	FillerRepeatCooldown *int64      `json:"fillerRepeatCooldown,omitempty"`
}

// RepeatCooldown returns the per-clip filler cooldown in milliseconds.
func (c *Channel) RepeatCooldown() int64 {
	if c.FillerRepeatCooldown == nil {
		return DefaultFillerRepeatCooldown
	}
	return *c.FillerRepeatCooldown
}

// StartMS returns the channel start time as epoch milliseconds.
func (c *Channel) StartMS() int64 {
	return c.StartTime.UnixMilli()
}

// Context snapshots the fields a playback collaborator needs from a channel.
func (c *Channel) Context() ChannelContext {
	return ChannelContext{
		Number:      c.Number,
		Name:        c.Name,
		Icon:        c.Icon,
		OfflineMode: c.OfflineMode,
	}
}

// Clone returns a deep copy.
func (c *Channel) Clone() *Channel {
	if c == nil {
		return nil
	}
	out := *c
	out.Programs = ClonePrograms(c.Programs)
	out.Fallback = ClonePrograms(c.Fallback)
	if c.FillerCollections != nil {
		out.FillerCollections = append([]FillerRef(nil), c.FillerCollections...)
	}
	if c.FillerRepeatCooldown != nil {
		v := *c.FillerRepeatCooldown
		out.FillerRepeatCooldown = &v
	}
	return &out
}

// ChannelContext is one level of a redirect chain.
type ChannelContext struct {
	Number      int         `json:"number"`
	Name        string      `json:"name,omitempty"`
	Icon        string      `json:"icon,omitempty"`
	OfflineMode OfflineMode `json:"offlineMode,omitempty"`
}

// FillerCollection is a filler list resolved for one channel.
type FillerCollection struct {
	ID       string    `json:"id"`
	Name     string    `json:"name,omitempty"`
	Weight   float64   `json:"weight"`
	Cooldown int64     `json:"cooldown"`
	Content  []Program `json:"content"`
}
