/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

// LineupType enumerates playback instruction kinds.
type LineupType string

const (
	LineupProgram    LineupType = "program"
	LineupCommercial LineupType = "commercial"
	LineupOffline    LineupType = "offline"
	LineupRedirect   LineupType = "redirect"
	LineupLoading    LineupType = "loading"
	LineupInterlude  LineupType = "interlude"
)

// LineupItem is one concrete, time-bounded playback instruction handed to the
// streaming collaborator. All times are milliseconds.
type LineupItem struct {
	Type      LineupType `json:"type"`
	Title     string     `json:"title,omitempty"`
	Key       string     `json:"key,omitempty"`
	ServerKey string     `json:"serverKey,omitempty"`
	RatingKey string     `json:"ratingKey,omitempty"`
	File      string     `json:"file,omitempty"`
	FillerID  string     `json:"fillerId,omitempty"`
	Err       string     `json:"err,omitempty"`

	Start           int64 `json:"start"`
	StreamDuration  int64 `json:"streamDuration"`
	Duration        int64 `json:"duration"`
	BeginningOffset int64 `json:"beginningOffset"`

	RedirectChannels []ChannelContext `json:"redirectChannels,omitempty"`
	UpperBounds      []int64          `json:"upperBounds,omitempty"`
	OriginalT0       *int64           `json:"originalT0,omitempty"`
}

// Remaining returns how much of the item is left to stream.
func (l LineupItem) Remaining() int64 {
	rem := l.Duration - l.Start
	if l.StreamDuration < rem {
		rem = l.StreamDuration
	}
	return rem
}

// PlaybackKey is the program half of a play-time record key.
func (l LineupItem) PlaybackKey() string {
	return playbackKey(l.ServerKey, l.Key)
}

// PlaybackKey is the program half of a play-time record key.
func (p Program) PlaybackKey() string {
	return playbackKey(p.ServerKey, p.Key)
}

func playbackKey(serverKey, key string) string {
	server := "!unknown!"
	if serverKey != "" {
		server = "plex|" + serverKey
	}
	if key == "" {
		key = "!unknownProgram!"
	}
	return server + "|" + key
}

// Clone returns a deep copy.
func (l LineupItem) Clone() LineupItem {
	out := l
	if l.RedirectChannels != nil {
		out.RedirectChannels = append([]ChannelContext(nil), l.RedirectChannels...)
	}
	if l.UpperBounds != nil {
		out.UpperBounds = append([]int64(nil), l.UpperBounds...)
	}
	if l.OriginalT0 != nil {
		v := *l.OriginalT0
		out.OriginalT0 = &v
	}
	return out
}
