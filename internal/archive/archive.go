/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package archive snapshots the corrected schedule to object storage
// after each update. Archival is best-effort: failures are logged and
// never fail the update that triggered them.
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/models"
)

// ObjectStore abstracts object storage operations.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Archiver writes timestamped schedule snapshots to an ObjectStore.
type Archiver struct {
	store  ObjectStore
	logger zerolog.Logger
	now    func() time.Time
}

// New creates an archiver over the given store.
func New(store ObjectStore, logger zerolog.Logger) *Archiver {
	return &Archiver{
		store:  store,
		logger: logger.With().Str("component", "archive").Logger(),
		now:    time.Now,
	}
}

// Snapshot stores the schedule under snapshots/<date>/<time>.json.
func (a *Archiver) Snapshot(ctx context.Context, blocks []models.SurgeryBlock) error {
	data, err := json.Marshal(blocks)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	ts := a.now().UTC()
	key := fmt.Sprintf("snapshots/%s/%s.json", ts.Format("2006-01-02"), ts.Format("150405"))

	if err := a.store.Put(ctx, key, data); err != nil {
		return fmt.Errorf("store snapshot %s: %w", key, err)
	}

	a.logger.Debug().Str("key", key).Int("blocks", len(blocks)).Msg("schedule snapshot archived")
	return nil
}
