/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists channels and filler lists with gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// fillerLoadLimit bounds concurrent filler list loads for one channel.
const fillerLoadLimit = 4

// Store reads and writes channel documents and filler lists.
type Store struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// New creates a store on an open database.
func New(db *gorm.DB, logger zerolog.Logger) *Store {
	return &Store{
		db:     db,
		logger: logger.With().Str("component", "store").Logger(),
	}
}

// GetChannel loads a channel. A missing channel is (nil, nil).
func (s *Store) GetChannel(ctx context.Context, number int) (*models.Channel, error) {
	var rec models.ChannelRecord
	err := s.db.WithContext(ctx).First(&rec, "number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load channel %d: %w", number, err)
	}
	if rec.Data == nil {
		return nil, fmt.Errorf("channel %d has no data", number)
	}
	ch := rec.Data
	ch.Number = rec.Number
	return ch, nil
}

// ChannelNumbers lists channel numbers in ascending order.
func (s *Store) ChannelNumbers(ctx context.Context) ([]int, error) {
	var numbers []int
	if err := s.db.WithContext(ctx).Model(&models.ChannelRecord{}).Order("number").Pluck("number", &numbers).Error; err != nil {
		return nil, fmt.Errorf("list channel numbers: %w", err)
	}
	return numbers, nil
}

// SaveChannel inserts or replaces a channel document.
func (s *Store) SaveChannel(ctx context.Context, ch *models.Channel) error {
	if ch == nil || ch.Number <= 0 {
		return fmt.Errorf("save channel: invalid channel number")
	}
	rec := models.ChannelRecord{Number: ch.Number, Name: ch.Name, Data: ch}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "number"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "data", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save channel %d: %w", ch.Number, err)
	}
	s.logger.Debug().Int("channel", ch.Number).Int("programs", len(ch.Programs)).Msg("channel saved")
	return nil
}

// DeleteChannel removes a channel.
func (s *Store) DeleteChannel(ctx context.Context, number int) error {
	res := s.db.WithContext(ctx).Delete(&models.ChannelRecord{}, "number = ?", number)
	if res.Error != nil {
		return fmt.Errorf("delete channel %d: %w", number, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("channel %d: %w", number, ErrNotFound)
	}
	return nil
}

// CreateFiller stores a new filler list under a fresh id.
func (s *Store) CreateFiller(ctx context.Context, name string, content []models.Program) (*models.FillerRecord, error) {
	if name == "" {
		name = "Unnamed Filler"
	}
	rec := &models.FillerRecord{
		ID:      uuid.NewString(),
		Name:    name,
		Content: models.ClonePrograms(content),
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return nil, fmt.Errorf("create filler: %w", err)
	}
	return rec, nil
}

// GetFiller loads a filler list.
func (s *Store) GetFiller(ctx context.Context, id string) (*models.FillerRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("filler %q: %w", id, ErrNotFound)
	}
	var rec models.FillerRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("filler %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("load filler %s: %w", id, err)
	}
	return &rec, nil
}

// UpdateFiller replaces a filler list's name and content.
func (s *Store) UpdateFiller(ctx context.Context, id, name string, content []models.Program) (*models.FillerRecord, error) {
	rec, err := s.GetFiller(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		rec.Name = name
	}
	rec.Content = models.ClonePrograms(content)
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("update filler %s: %w", id, err)
	}
	return rec, nil
}

// ListFillers returns every filler list without content.
func (s *Store) ListFillers(ctx context.Context) ([]models.FillerRecord, error) {
	var recs []models.FillerRecord
	if err := s.db.WithContext(ctx).Omit("content").Order("name").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list fillers: %w", err)
	}
	return recs, nil
}

// FillersForChannel loads the channel's filler collections concurrently,
// carrying weight and cooldown from the channel's references. A reference to
// a missing list yields an empty collection.
func (s *Store) FillersForChannel(ctx context.Context, ch *models.Channel) ([]models.FillerCollection, error) {
	out := make([]models.FillerCollection, len(ch.FillerCollections))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fillerLoadLimit)
	for i, ref := range ch.FillerCollections {
		g.Go(func() error {
			fc := models.FillerCollection{ID: ref.ID, Weight: ref.Weight, Cooldown: ref.Cooldown}
			rec, err := s.GetFiller(gctx, ref.ID)
			switch {
			case errors.Is(err, ErrNotFound):
				s.logger.Warn().Int("channel", ch.Number).Str("filler_id", ref.ID).Msg("channel references a missing filler list")
			case err != nil:
				return err
			default:
				fc.Name = rec.Name
				fc.Content = rec.Content
			}
			out[i] = fc
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load fillers for channel %d: %w", ch.Number, err)
	}
	return out, nil
}
