/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/models"
)

// FileStore keeps the schedule in one JSON file. Writes go to a temp
// file in the same directory and are renamed into place, so readers
// never see a half-written schedule.
type FileStore struct {
	mu     sync.RWMutex
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a file-backed store at path. The parent
// directory is created if needed.
func NewFileStore(path string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create schedule dir: %w", err)
	}
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "schedule_store").Logger(),
	}, nil
}

// ReadAll loads the schedule file. A missing or corrupt file is logged
// and an empty schedule returned.
func (s *FileStore) ReadAll(ctx context.Context) ([]models.SurgeryBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("path", s.path).Msg("schedule file unreadable, starting empty")
		}
		return []models.SurgeryBlock{}, nil
	}

	var blocks []models.SurgeryBlock
	if err := json.Unmarshal(data, &blocks); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("schedule file corrupt, starting empty")
		return []models.SurgeryBlock{}, nil
	}
	return blocks, nil
}

// ReplaceAll writes the schedule atomically via temp file and rename.
func (s *FileStore) ReplaceAll(ctx context.Context, blocks []models.SurgeryBlock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if blocks == nil {
		blocks = []models.SurgeryBlock{}
	}
	for i := range blocks {
		blocks[i].Position = i
	}

	data, err := json.MarshalIndent(blocks, "", "  ")
	if err != nil {
		return fmt.Errorf("encode schedule: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".schedule-*.json")
	if err != nil {
		return fmt.Errorf("create temp schedule: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp schedule: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp schedule: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("swap schedule file: %w", err)
	}
	return nil
}
