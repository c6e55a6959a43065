/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import "time"

// ChannelRecord persists a channel document.
type ChannelRecord struct {
	Number    int      `gorm:"primaryKey;autoIncrement:false"`
	Name      string   `gorm:"type:varchar(255)"`
	Data      *Channel `gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM.
func (ChannelRecord) TableName() string {
	return "channels"
}

// FillerRecord persists a filler list. Weight and cooldown live on the
// channel's FillerRef, not here.
type FillerRecord struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(255);not null;default:'Unnamed Filler'" json:"name"`
	Content   []Program `gorm:"type:jsonb;serializer:json" json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName returns the table name for GORM.
func (FillerRecord) TableName() string {
	return "fillers"
}
