/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package store persists the day schedule. Two backends exist: a gorm
// relational store and a flat JSON file. Both read fail-open: missing
// or unreadable state yields an empty schedule so the service can
// rebuild from incoming updates.
package store

import (
	"context"

	"github.com/friendsincode/eir_schedule/internal/models"
)

// ScheduleStore reads and replaces the full day schedule. ReplaceAll
// is atomic: a concurrent ReadAll observes either the previous or the
// new schedule, never a mix.
type ScheduleStore interface {
	ReadAll(ctx context.Context) ([]models.SurgeryBlock, error)
	ReplaceAll(ctx context.Context, blocks []models.SurgeryBlock) error
}
