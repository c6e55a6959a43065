/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package sequencer orders the episodes of a show for repeated slot plays.
package sequencer

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"

	"github.com/seehuhn/mt19937"

	"github.com/friendsincode/grimnir_tv/internal/classify"
	"github.com/friendsincode/grimnir_tv/internal/models"
)

// ErrEmptyShow is returned when a sequencer is requested for a show without members.
var ErrEmptyShow = errors.New("show has no programs")

// Mode selects how a show's members are ordered.
type Mode string

const (
	ModeNext    Mode = "next"
	ModeShuffle Mode = "shuffle"
)

// Sequencer yields a show's members one at a time.
type Sequencer interface {
	Current() models.Program
	Advance()
}

// Show is a group of programs sharing a show id.
type Show struct {
	ID       string
	Founder  models.Program
	Programs []models.Program
}

func sortedMembers(show *Show, c classify.Classifier) []models.Program {
	sorted := models.ClonePrograms(show.Programs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return c.Classify(sorted[i]).Order < c.Classify(sorted[j]).Order
	})
	return sorted
}

// Strict plays members in episode order, wrapping at the end.
type Strict struct {
	sorted   []models.Program
	position int
}

// NewStrict starts at the founder's episode so a series continues where the
// channel left off.
func NewStrict(show *Show, c classify.Classifier) (*Strict, error) {
	if len(show.Programs) == 0 {
		return nil, fmt.Errorf("%s: %w", show.ID, ErrEmptyShow)
	}
	sorted := sortedMembers(show, c)
	founderOrder := c.Classify(show.Founder).Order
	position := 0
	for position+1 < len(sorted) && c.Classify(sorted[position]).Order != founderOrder {
		position++
	}
	return &Strict{sorted: sorted, position: position}, nil
}

// Current implements Sequencer.
func (s *Strict) Current() models.Program {
	return s.sorted[s.position].Clone()
}

// Advance implements Sequencer.
func (s *Strict) Advance() {
	s.position = (s.position + 1) % len(s.sorted)
}

// Shuffle plays members in a per-generation shuffled order. Each generation
// shuffles the two halves of a base permutation independently with a
// generator seeded from the show id and generation number, so any position
// can be rebuilt without storing the order.
type Shuffle struct {
	seed     []uint64
	base     []models.Program
	order    []models.Program
	position int64
}

// NewShuffle resumes at the founder's recorded shuffle position.
func NewShuffle(show *Show, c classify.Classifier) (*Shuffle, error) {
	if len(show.Programs) == 0 {
		return nil, fmt.Errorf("%s: %w", show.ID, ErrEmptyShow)
	}
	s := &Shuffle{
		base:  sortedMembers(show, c),
		order: make([]models.Program, len(show.Programs)),
	}
	for _, b := range []byte(c.Classify(show.Programs[0]).ShowID) {
		s.seed = append(s.seed, uint64(b))
	}
	if show.Founder.ShuffleOrder != nil && *show.Founder.ShuffleOrder > 0 {
		s.position = *show.Founder.ShuffleOrder
	}

	n := int64(len(s.base))
	shuffleRange(s.base, 0, len(s.base), s.generator(0))
	s.initGeneration(s.position / n)
	return s, nil
}

func (s *Shuffle) generator(generation int64) *rand.Rand {
	key := make([]uint64, len(s.seed), len(s.seed)+1)
	copy(key, s.seed)
	key = append(key, uint64(generation))
	mt := mt19937.New()
	mt.SeedFromSlice(key)
	return rand.New(mt)
}

func (s *Shuffle) initGeneration(generation int64) {
	rng := s.generator(generation)
	copy(s.order, s.base)
	half := len(s.order) / 2
	shuffleRange(s.order, 0, half, rng)
	shuffleRange(s.order, half, len(s.order), rng)
}

// Current implements Sequencer.
func (s *Shuffle) Current() models.Program {
	p := s.order[s.position%int64(len(s.order))].Clone()
	pos := s.position
	p.ShuffleOrder = &pos
	return p
}

// Advance implements Sequencer.
func (s *Shuffle) Advance() {
	s.position++
	n := int64(len(s.order))
	if s.position%n == 0 {
		s.initGeneration(s.position / n)
	}
}

// shuffleRange is a Fisher-Yates shuffle of list[lo:hi].
func shuffleRange(list []models.Program, lo, hi int, rng *rand.Rand) {
	for current := hi; current > lo; current-- {
		r := lo + rng.Intn(current-lo)
		list[current-1], list[r] = list[r], list[current-1]
	}
}
