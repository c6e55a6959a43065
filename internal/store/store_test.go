/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_tv/internal/config"
	"github.com/friendsincode/grimnir_tv/internal/db"
	"github.com/friendsincode/grimnir_tv/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.Connect(&config.Config{DBBackend: config.DatabaseSQLite, DBDSN: ":memory:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { _ = db.Close(database) })
	return database
}

func clip(key string, duration int64) models.Program {
	return models.Program{Kind: models.ProgramMedia, Title: key, ServerKey: "srv", Key: key, Duration: duration}
}

func TestChannelRoundTrip(t *testing.T) {
	s := New(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	start := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	ch := &models.Channel{
		Number:    7,
		Name:      "Seven",
		Programs:  []models.Program{clip("/a", 1000), models.NewFlex(500), models.NewRedirect(2, 250)},
		Duration:  1750,
		StartTime: start,
	}
	if err := s.SaveChannel(ctx, ch); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.GetChannel(ctx, 7)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Name != "Seven" || len(got.Programs) != 3 || got.Duration != 1750 {
		t.Fatalf("unexpected channel: %+v", got)
	}
	if !got.StartTime.Equal(start) || !got.Programs[2].IsRedirect() || got.Programs[2].Channel != 2 {
		t.Fatalf("channel fields lost: %+v", got)
	}

	ch.Name = "Seven HD"
	if err := s.SaveChannel(ctx, ch); err != nil {
		t.Fatalf("resave: %v", err)
	}
	got, err = s.GetChannel(ctx, 7)
	if err != nil || got.Name != "Seven HD" {
		t.Fatalf("expected upsert, got %+v, %v", got, err)
	}

	missing, err := s.GetChannel(ctx, 99)
	if err != nil || missing != nil {
		t.Fatalf("missing channel should be nil, nil; got %+v, %v", missing, err)
	}
}

func TestChannelNumbersAndDelete(t *testing.T) {
	s := New(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	for _, n := range []int{12, 3, 7} {
		if err := s.SaveChannel(ctx, &models.Channel{Number: n, Name: "ch"}); err != nil {
			t.Fatalf("save %d: %v", n, err)
		}
	}
	numbers, err := s.ChannelNumbers(ctx)
	if err != nil {
		t.Fatalf("numbers: %v", err)
	}
	if len(numbers) != 3 || numbers[0] != 3 || numbers[1] != 7 || numbers[2] != 12 {
		t.Fatalf("unexpected numbers: %v", numbers)
	}

	if err := s.DeleteChannel(ctx, 7); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.DeleteChannel(ctx, 7); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete should be ErrNotFound, got %v", err)
	}
	if err := s.SaveChannel(ctx, &models.Channel{Number: 0}); err == nil {
		t.Fatal("expected channel number 0 to be rejected")
	}
}

func TestFillerLifecycle(t *testing.T) {
	s := New(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	rec, err := s.CreateFiller(ctx, "", []models.Program{clip("/bump", 30_000)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || rec.Name != "Unnamed Filler" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	updated, err := s.UpdateFiller(ctx, rec.ID, "Bumpers", []models.Program{clip("/bump", 30_000), clip("/promo", 60_000)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Bumpers" || len(updated.Content) != 2 {
		t.Fatalf("unexpected update: %+v", updated)
	}

	list, err := s.ListFillers(ctx)
	if err != nil || len(list) != 1 || list[0].Name != "Bumpers" {
		t.Fatalf("unexpected list: %+v, %v", list, err)
	}

	if _, err := s.GetFiller(ctx, "not-a-uuid"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFillersForChannel(t *testing.T) {
	s := New(newTestDB(t), zerolog.Nop())
	ctx := context.Background()

	bumpers, err := s.CreateFiller(ctx, "Bumpers", []models.Program{clip("/bump", 30_000)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	promos, err := s.CreateFiller(ctx, "Promos", []models.Program{clip("/p1", 60_000), clip("/p2", 90_000)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	ch := &models.Channel{
		Number: 1,
		FillerCollections: []models.FillerRef{
			{ID: bumpers.ID, Weight: 3, Cooldown: 60_000},
			{ID: "5f0c9a3e-0000-4000-8000-000000000000", Weight: 1},
			{ID: promos.ID, Weight: 2},
		},
	}
	got, err := s.FillersForChannel(ctx, ch)
	if err != nil {
		t.Fatalf("fillers: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected one collection per reference, got %d", len(got))
	}
	if got[0].Name != "Bumpers" || got[0].Weight != 3 || got[0].Cooldown != 60_000 || len(got[0].Content) != 1 {
		t.Fatalf("unexpected first collection: %+v", got[0])
	}
	if len(got[1].Content) != 0 || got[1].Weight != 1 {
		t.Fatalf("missing list should load empty: %+v", got[1])
	}
	if got[2].Name != "Promos" || len(got[2].Content) != 2 {
		t.Fatalf("unexpected third collection: %+v", got[2])
	}
}
