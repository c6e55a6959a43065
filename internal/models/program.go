/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

// SlackMS is the tolerance, in milliseconds, used for every "close enough"
// boundary comparison in scheduling and playback.
const SlackMS int64 = 9999

// Common durations in milliseconds.
const (
	SecondMS int64 = 1000
	MinuteMS int64 = 60 * SecondMS
	HourMS   int64 = 60 * MinuteMS
	DayMS    int64 = 24 * HourMS
	WeekMS   int64 = 7 * DayMS
)

// ProgramKind distinguishes the payload a program carries.
type ProgramKind string

const (
	ProgramMedia    ProgramKind = "media"
	ProgramFlex     ProgramKind = "flex"
	ProgramRedirect ProgramKind = "redirect"
)

// Program is one entry of a channel's cyclic program list, a filler clip or
// an item of the program pool handed to the schedule compiler.
type Program struct {
	Kind     ProgramKind `json:"kind" yaml:"kind"`
	Duration int64       `json:"duration" yaml:"duration"` // milliseconds

	// Media payload
	Title     string `json:"title,omitempty" yaml:"title,omitempty"`
	ServerKey string `json:"serverKey,omitempty" yaml:"serverKey,omitempty"`
	Key       string `json:"key,omitempty" yaml:"key,omitempty"`
	RatingKey string `json:"ratingKey,omitempty" yaml:"ratingKey,omitempty"`
	File      string `json:"file,omitempty" yaml:"file,omitempty"`

	// Classification metadata
	Type           string `json:"type,omitempty" yaml:"type,omitempty"` // episode, movie, track
	ShowTitle      string `json:"showTitle,omitempty" yaml:"showTitle,omitempty"`
	Season         int    `json:"season,omitempty" yaml:"season,omitempty"`
	Episode        int    `json:"episode,omitempty" yaml:"episode,omitempty"`
	CustomShowID   string `json:"customShowId,omitempty" yaml:"customShowId,omitempty"`
	CustomShowName string `json:"customShowName,omitempty" yaml:"customShowName,omitempty"`
	CustomOrder    int    `json:"customOrder,omitempty" yaml:"customOrder,omitempty"`

	// Redirect payload
	Channel int `json:"channel,omitempty" yaml:"channel,omitempty"`

	// ShuffleOrder is the absolute shuffle position the program was drawn at.
	ShuffleOrder *int64 `json:"shuffleOrder,omitempty" yaml:"shuffleOrder,omitempty"`
}

// NewFlex returns an offline window of the given length.
func NewFlex(duration int64) Program {
	return Program{Kind: ProgramFlex, Duration: duration}
}

// NewRedirect returns a window that plays another channel.
func NewRedirect(channel int, duration int64) Program {
	return Program{Kind: ProgramRedirect, Channel: channel, Duration: duration}
}

// IsOffline reports whether the program is a flex or redirect window.
func (p Program) IsOffline() bool {
	return p.Kind == ProgramFlex || p.Kind == ProgramRedirect
}

// IsFlex reports whether the program is a plain flex window.
func (p Program) IsFlex() bool {
	return p.Kind == ProgramFlex
}

// IsRedirect reports whether the program redirects to another channel.
func (p Program) IsRedirect() bool {
	return p.Kind == ProgramRedirect
}

// ID identifies the underlying media regardless of where the program is placed.
func (p Program) ID() string {
	server := p.ServerKey
	if server == "" {
		server = "unknown"
	}
	key := p.Key
	if key == "" {
		key = "unknown"
	}
	return server + "|" + key
}

// Clone returns a deep copy.
func (p Program) Clone() Program {
	out := p
	if p.ShuffleOrder != nil {
		v := *p.ShuffleOrder
		out.ShuffleOrder = &v
	}
	return out
}

// ClonePrograms deep-copies a program list.
func ClonePrograms(in []Program) []Program {
	if in == nil {
		return nil
	}
	out := make([]Program, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}

// TotalDuration sums program durations.
func TotalDuration(programs []Program) int64 {
	var total int64
	for _, p := range programs {
		total += p.Duration
	}
	return total
}
