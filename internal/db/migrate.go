/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_tv/internal/models"
)

// Migrate applies database schema migrations using GORM auto-migrate.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.ChannelRecord{},
		&models.FillerRecord{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return backfillFillerNames(database)
}

// backfillFillerNames names filler lists created before names were required.
func backfillFillerNames(database *gorm.DB) error {
	err := database.Model(&models.FillerRecord{}).
		Where("name IS NULL OR name = ''").
		Update("name", "Unnamed Filler").Error
	if err != nil {
		return fmt.Errorf("backfill filler names: %w", err)
	}
	return nil
}
