/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package db

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/friendsincode/eir_schedule/internal/telemetry"
)

const _startTime = "gorm:start_time"

// RegisterCallbacks hooks query timing metrics into every GORM operation.
// The schedule is read and rewritten as a whole, so create/query/update/delete
// all share one pair of callbacks.
func RegisterCallbacks(db *gorm.DB) error {
	return errors.Join(
		db.Callback().Query().Before("gorm:query").Register("telemetry:before_query", recordStart),
		db.Callback().Query().After("gorm:query").Register("telemetry:after_query", recordMetrics("query")),
		db.Callback().Create().Before("gorm:create").Register("telemetry:before_create", recordStart),
		db.Callback().Create().After("gorm:create").Register("telemetry:after_create", recordMetrics("create")),
		db.Callback().Update().Before("gorm:update").Register("telemetry:before_update", recordStart),
		db.Callback().Update().After("gorm:update").Register("telemetry:after_update", recordMetrics("update")),
		db.Callback().Delete().Before("gorm:delete").Register("telemetry:before_delete", recordStart),
		db.Callback().Delete().After("gorm:delete").Register("telemetry:after_delete", recordMetrics("delete")),
	)
}

func recordStart(db *gorm.DB) {
	db.InstanceSet(_startTime, time.Now())
}

// recordMetrics builds the after-callback for one operation kind.
func recordMetrics(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		value, exists := db.InstanceGet(_startTime)
		if !exists {
			return
		}
		start, ok := value.(time.Time)
		if !ok {
			return
		}

		table := db.Statement.Table
		if table == "" {
			table = "unknown"
		}
		telemetry.DatabaseQueryDuration.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())

		// A missing row is an answer, not a fault.
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			telemetry.DatabaseErrorsTotal.WithLabelValues(operation, "query_error").Inc()
		}
	}
}

// UpdateConnectionMetrics publishes connection pool gauges.
// Called on a ticker from the server's background workers.
func UpdateConnectionMetrics(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	telemetry.DatabaseConnectionsActive.Set(float64(sqlDB.Stats().OpenConnections))
}
