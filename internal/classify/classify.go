/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package classify groups programs into shows for the schedule compiler.
package classify

import (
	"strconv"
	"strings"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

// Reserved show ids used by slot configurations.
const (
	FlexShowID     = "flex."
	RedirectPrefix = "redirect."
	MovieShowID    = "movie."
	CustomPrefix   = "custom."
	TVPrefix       = "tv."
)

// ShowInfo is the classification of a single program.
type ShowInfo struct {
	HasShow     bool
	ShowID      string
	Order       int64
	DisplayName string
}

// Classifier maps a program to its show group.
type Classifier interface {
	Classify(p models.Program) ShowInfo
}

// Default classifies by custom show, then movie, then episode metadata.
type Default struct{}

// Classify implements Classifier.
func (Default) Classify(p models.Program) ShowInfo {
	switch {
	case p.IsRedirect():
		return ShowInfo{
			HasShow:     true,
			ShowID:      RedirectID(p.Channel),
			Order:       int64(p.Channel),
			DisplayName: "Redirect to channel " + strconv.Itoa(p.Channel),
		}
	case p.IsFlex():
		return ShowInfo{HasShow: true, ShowID: FlexShowID, DisplayName: "Flex"}
	case p.CustomShowID != "":
		return ShowInfo{
			HasShow:     true,
			ShowID:      CustomPrefix + p.CustomShowID,
			Order:       int64(p.CustomOrder),
			DisplayName: p.CustomShowName,
		}
	case p.Type == "movie":
		return ShowInfo{HasShow: true, ShowID: MovieShowID, DisplayName: "Movies"}
	case p.Type == "episode" && p.ShowTitle != "":
		return ShowInfo{
			HasShow:     true,
			ShowID:      TVPrefix + p.ShowTitle,
			Order:       int64(p.Season)*100000 + int64(p.Episode),
			DisplayName: p.ShowTitle,
		}
	}
	return ShowInfo{}
}

// RedirectID returns the show id of a redirect to channel.
func RedirectID(channel int) string {
	return RedirectPrefix + strconv.Itoa(channel)
}

// IsFlexID reports whether showID names the flex pseudo-show.
func IsFlexID(showID string) bool {
	return showID == FlexShowID
}

// RedirectTarget parses a redirect show id.
func RedirectTarget(showID string) (int, bool) {
	rest, ok := strings.CutPrefix(showID, RedirectPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return n, true
}
