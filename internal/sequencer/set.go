/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package sequencer

import (
	"fmt"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
)

// Set groups a program pool into shows and hands out one sequencer per show
// and mode for the lifetime of a compile.
type Set struct {
	classifier classify.Classifier
	shows      map[string]*Show
	order      []string
	sequencers map[Mode]map[string]Sequencer
}

// NewSet classifies the pool. Duplicate media and flex/redirect programs are
// not added as members.
func NewSet(programs []models.Program, c classify.Classifier) *Set {
	s := &Set{
		classifier: c,
		shows:      make(map[string]*Show),
		sequencers: map[Mode]map[string]Sequencer{
			ModeNext:    {},
			ModeShuffle: {},
		},
	}
	seen := make(map[string]map[string]struct{})
	for _, p := range programs {
		info := c.Classify(p)
		if !info.HasShow {
			continue
		}
		show, ok := s.shows[info.ShowID]
		if !ok {
			show = &Show{ID: info.ShowID, Founder: p.Clone()}
			s.shows[info.ShowID] = show
			s.order = append(s.order, info.ShowID)
			seen[info.ShowID] = make(map[string]struct{})
		}
		if p.IsOffline() {
			continue
		}
		id := p.ID()
		if _, dup := seen[info.ShowID][id]; dup {
			continue
		}
		seen[info.ShowID][id] = struct{}{}
		show.Programs = append(show.Programs, p.Clone())
	}
	return s
}

// Show returns the show with the given id.
func (s *Set) Show(id string) (*Show, bool) {
	show, ok := s.shows[id]
	return show, ok
}

// IDs lists show ids in pool order.
func (s *Set) IDs() []string {
	return append([]string(nil), s.order...)
}

// Sequencer returns the sequencer for a show, creating it on first use.
func (s *Set) Sequencer(showID string, mode Mode) (Sequencer, error) {
	if mode != ModeShuffle {
		mode = ModeNext
	}
	if seq, ok := s.sequencers[mode][showID]; ok {
		return seq, nil
	}
	show, ok := s.shows[showID]
	if !ok {
		return nil, fmt.Errorf("unknown show %q", showID)
	}
	var (
		seq Sequencer
		err error
	)
	if mode == ModeShuffle {
		seq, err = NewShuffle(show, s.classifier)
	} else {
		seq, err = NewStrict(show, s.classifier)
	}
	if err != nil {
		return nil, err
	}
	s.sequencers[mode][showID] = seq
	return seq, nil
}
