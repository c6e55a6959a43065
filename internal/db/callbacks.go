/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/grimnir_tv/internal/telemetry"
)

const startTimeKey = "telemetry:start_time"

// RegisterCallbacks records query latency and errors for channel and filler
// reads and writes.
func RegisterCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	steps := []struct {
		name     string
		register func(string, func(*gorm.DB)) error
		fn       func(*gorm.DB)
	}{
		{"telemetry:before_query", cb.Query().Before("gorm:query").Register, beforeCallback},
		{"telemetry:after_query", cb.Query().After("gorm:query").Register, afterCallback("query")},
		{"telemetry:before_create", cb.Create().Before("gorm:create").Register, beforeCallback},
		{"telemetry:after_create", cb.Create().After("gorm:create").Register, afterCallback("create")},
		{"telemetry:before_update", cb.Update().Before("gorm:update").Register, beforeCallback},
		{"telemetry:after_update", cb.Update().After("gorm:update").Register, afterCallback("update")},
		{"telemetry:before_delete", cb.Delete().Before("gorm:delete").Register, beforeCallback},
		{"telemetry:after_delete", cb.Delete().After("gorm:delete").Register, afterCallback("delete")},
	}
	for _, step := range steps {
		if err := step.register(step.name, step.fn); err != nil {
			return err
		}
	}
	return nil
}

func beforeCallback(db *gorm.DB) {
	db.InstanceSet(startTimeKey, time.Now())
}

func afterCallback(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		v, ok := db.InstanceGet(startTimeKey)
		started, isTime := v.(time.Time)
		if !ok || !isTime {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(started).Seconds())

		switch {
		case db.Error == nil, errors.Is(db.Error, gorm.ErrRecordNotFound):
		case errors.Is(db.Error, gorm.ErrDuplicatedKey):
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "duplicate_key").Inc()
		default:
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "query_error").Inc()
		}
	}
}

// UpdateConnectionMetrics samples the connection pool. The server calls it
// on a ticker.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}

	stats := sqlDB.Stats()
	telemetry.DatabaseConnectionsActive.Set(float64(stats.OpenConnections))
}
