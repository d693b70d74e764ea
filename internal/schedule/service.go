/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package schedule is the serialized core of the consistency engine:
// one update at a time flows through read, propagate, resolve,
// persist, broadcast.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/archive"
	"github.com/friendsincode/eir_schedule/internal/cache"
	"github.com/friendsincode/eir_schedule/internal/events"
	"github.com/friendsincode/eir_schedule/internal/models"
	"github.com/friendsincode/eir_schedule/internal/scheduling"
	"github.com/friendsincode/eir_schedule/internal/store"
	"github.com/friendsincode/eir_schedule/internal/telemetry"
)

// Publisher is the event bus surface the service needs.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service owns the day schedule. All mutation goes through one mutex
// so concurrent updates serialize; each sees the schedule the previous
// one produced.
type Service struct {
	mu sync.Mutex

	store    store.ScheduleStore
	engine   *scheduling.Engine
	cache    *cache.Cache
	bus      Publisher
	archiver *archive.Archiver
	logger   zerolog.Logger
}

// New creates the schedule service. Cache and archiver are optional.
func New(st store.ScheduleStore, engine *scheduling.Engine, c *cache.Cache, bus Publisher, archiver *archive.Archiver, logger zerolog.Logger) *Service {
	return &Service{
		store:    st,
		engine:   engine,
		cache:    c,
		bus:      bus,
		archiver: archiver,
		logger:   logger.With().Str("component", "schedule_service").Logger(),
	}
}

// ApplyUpdate ingests one update event and returns the corrected
// schedule. The critical section covers read through persist, so two
// racing updates both land: the second starts from the first's result.
func (s *Service) ApplyUpdate(ctx context.Context, update models.SurgeryBlock) ([]models.SurgeryBlock, []models.ValidationViolation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("read schedule: %w", err)
	}

	next, warnings, err := s.engine.Apply(current, update)
	if err != nil {
		return nil, nil, err
	}
	telemetry.PropagationRunsTotal.Inc()

	if err := s.store.ReplaceAll(ctx, next); err != nil {
		return nil, nil, fmt.Errorf("persist schedule: %w", err)
	}

	telemetry.ScheduleBlocks.Set(float64(len(next)))
	for range warnings {
		telemetry.ScheduleWarningsTotal.Inc()
	}
	for _, w := range warnings {
		s.logger.Warn().Str("block_id", w.BlockID).Str("severity", string(w.Severity)).Msg(w.Message)
	}

	s.afterWrite(ctx, next, events.EventScheduleUpdate)

	s.logger.Info().
		Str("block_id", update.ID).
		Int("delay_minutes", update.DelayDuration).
		Int("blocks", len(next)).
		Msg("schedule update applied")

	return next, warnings, nil
}

// Schedule returns the current schedule, preferring the cache. Reads
// never take the update mutex.
func (s *Service) Schedule(ctx context.Context) ([]models.SurgeryBlock, error) {
	if s.cache != nil {
		if blocks, ok := s.cache.GetSchedule(ctx); ok {
			return blocks, nil
		}
	}

	blocks, err := s.store.ReadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("read schedule: %w", err)
	}
	if s.cache != nil {
		_ = s.cache.SetSchedule(ctx, blocks)
	}
	return blocks, nil
}

// Import replaces the schedule wholesale, normalizing order and
// resolving conflicts in the incoming set.
func (s *Service) Import(ctx context.Context, blocks []models.SurgeryBlock) ([]models.SurgeryBlock, []models.ValidationViolation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalized, warnings := s.engine.Normalize(blocks)

	if err := s.store.ReplaceAll(ctx, normalized); err != nil {
		return nil, nil, fmt.Errorf("persist schedule: %w", err)
	}
	telemetry.ScheduleBlocks.Set(float64(len(normalized)))

	s.afterWrite(ctx, normalized, events.EventScheduleUpdate)

	s.logger.Info().Int("blocks", len(normalized)).Msg("schedule imported")
	return normalized, warnings, nil
}

// Reset wipes the schedule.
func (s *Service) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceAll(ctx, nil); err != nil {
		return fmt.Errorf("persist schedule: %w", err)
	}
	telemetry.ScheduleBlocks.Set(0)

	s.afterWrite(ctx, []models.SurgeryBlock{}, events.EventScheduleReset)

	s.logger.Info().Msg("schedule reset")
	return nil
}

// afterWrite refreshes the cache, notifies subscribers and kicks off
// the best-effort snapshot.
func (s *Service) afterWrite(ctx context.Context, blocks []models.SurgeryBlock, event events.EventType) {
	if s.cache != nil {
		if err := s.cache.SetSchedule(ctx, blocks); err != nil {
			_ = s.cache.InvalidateSchedule(ctx)
		}
	}

	if s.bus != nil {
		s.bus.Publish(event, events.Payload{"blocks": blocks})
	}

	if s.archiver != nil {
		snapshot := make([]models.SurgeryBlock, len(blocks))
		copy(snapshot, blocks)
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := s.archiver.Snapshot(ctx, snapshot); err != nil {
				s.logger.Warn().Err(err).Msg("schedule snapshot failed")
			}
		}()
	}
}
