/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/eir_schedule/internal/models"
)

// GormStore persists the schedule in a relational database through
// gorm (postgres, mysql or sqlite).
type GormStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewGormStore wraps an open gorm connection.
func NewGormStore(db *gorm.DB, logger zerolog.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: logger.With().Str("component", "schedule_store").Logger(),
	}
}

// ReadAll returns every block in propagation order. A read failure is
// logged and an empty schedule returned; the caller rebuilds state
// from updates.
func (s *GormStore) ReadAll(ctx context.Context) ([]models.SurgeryBlock, error) {
	var blocks []models.SurgeryBlock
	err := s.db.WithContext(ctx).
		Order("position ASC").
		Order("original_start ASC").
		Find(&blocks).Error
	if err != nil {
		s.logger.Warn().Err(err).Msg("schedule read failed, starting empty")
		return []models.SurgeryBlock{}, nil
	}
	return blocks, nil
}

// ReplaceAll swaps the stored schedule for the given one in a single
// transaction.
func (s *GormStore) ReplaceAll(ctx context.Context, blocks []models.SurgeryBlock) error {
	for i := range blocks {
		blocks[i].Position = i
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.SurgeryBlock{}).Error; err != nil {
			return fmt.Errorf("clear schedule: %w", err)
		}
		if len(blocks) == 0 {
			return nil
		}
		if err := tx.Create(&blocks).Error; err != nil {
			return fmt.Errorf("write schedule: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace schedule: %w", err)
	}
	return nil
}
