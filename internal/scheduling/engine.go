/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling implements the delay propagation engine and the
// conflict resolver for a single day's operating-room schedule.
package scheduling

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	"github.com/friendsincode/eir_schedule/internal/models"
)

// DefaultBufferMinutes is the mandatory gap enforced between
// consecutive blocks after conflict resolution.
const DefaultBufferMinutes = 10

// ErrMissingID is returned for updates that carry no block id.
var ErrMissingID = errors.New("update is missing id")

// ErrInvalidUpdate wraps every validation failure of an update event,
// so callers can tell a bad request from a failed write.
var ErrInvalidUpdate = errors.New("invalid update")

// Engine applies update events to a schedule. It is a pure
// transformation: inputs are never mutated, a corrected copy is
// returned.
type Engine struct {
	buffer int
	logger zerolog.Logger
}

// NewEngine creates an engine with the given inter-block buffer.
func NewEngine(bufferMinutes int, logger zerolog.Logger) *Engine {
	if bufferMinutes < 0 {
		bufferMinutes = DefaultBufferMinutes
	}
	return &Engine{
		buffer: bufferMinutes,
		logger: logger.With().Str("component", "propagation_engine").Logger(),
	}
}

// Buffer returns the configured inter-block gap in minutes.
func (e *Engine) Buffer() int { return e.buffer }

// Apply ingests one update event, recomputes the cascade, resolves
// residual conflicts and returns the corrected schedule together with
// any validation warnings.
//
// An update for an unknown id is treated as a new block insertion. A
// reported delay accumulates: a second delay for the same block adds
// to, never replaces, prior delay.
func (e *Engine) Apply(schedule []models.SurgeryBlock, update models.SurgeryBlock) ([]models.SurgeryBlock, []models.ValidationViolation, error) {
	if update.ID == "" {
		return nil, nil, ErrMissingID
	}
	if err := validateUpdateTimes(update); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrInvalidUpdate, err)
	}

	next := make([]models.SurgeryBlock, len(schedule))
	copy(next, schedule)

	idx := -1
	for i := range next {
		if next[i].ID == update.ID {
			idx = i
			break
		}
	}

	if idx >= 0 {
		merge(&next[idx], update)
		if err := validateOriginalOrder(next[idx]); err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidUpdate, err)
		}
	} else {
		inserted, err := newBlock(update)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %s", ErrInvalidUpdate, err)
		}
		next = append(next, inserted)
		e.logger.Info().Str("block_id", inserted.ID).Str("original_start", inserted.OriginalStart).Msg("inserting new block")
	}

	e.sortByOriginalStart(next)
	e.cascade(next)
	e.resolveOverlaps(next)
	warnings := e.validateDayBounds(next)

	return next, warnings, nil
}

// Normalize recomputes a schedule in place-order without applying an
// update. Used when seeding a schedule from an external source.
func (e *Engine) Normalize(schedule []models.SurgeryBlock) ([]models.SurgeryBlock, []models.ValidationViolation) {
	next := make([]models.SurgeryBlock, len(schedule))
	copy(next, schedule)

	e.sortByOriginalStart(next)
	e.cascade(next)
	e.resolveOverlaps(next)
	warnings := e.validateDayBounds(next)
	return next, warnings
}

func validateUpdateTimes(u models.SurgeryBlock) error {
	for _, t := range []string{u.StartTime, u.EndTime, u.OriginalStart, u.OriginalEnd} {
		if t == "" {
			continue
		}
		if _, err := MinutesOfDay(t); err != nil {
			return err
		}
	}
	if u.Status != "" && !u.Status.Valid() {
		return fmt.Errorf("unknown status %q", u.Status)
	}
	return nil
}

// merge folds an update into an existing block. Delays accumulate;
// other fields overwrite only when provided.
func merge(b *models.SurgeryBlock, u models.SurgeryBlock) {
	if u.DelayDuration != 0 {
		b.DelayTotal += u.DelayDuration
		if b.DelayTotal < 0 {
			b.DelayTotal = 0
		}
		b.DelayDuration = u.DelayDuration
		b.DelayReason = u.DelayReason
	}
	if u.Title != "" {
		b.Title = u.Title
	}
	if u.Status != "" {
		b.Status = u.Status
	}
	if u.OriginalStart != "" {
		b.OriginalStart = u.OriginalStart
	}
	if u.OriginalEnd != "" {
		b.OriginalEnd = u.OriginalEnd
	}
}

// validateOriginalOrder rejects a merge that leaves a block's planned
// start at or past its planned end. A partial update that moves only
// one of the originals can invert the pair even when each time parses
// on its own. Blocks whose stored originals do not parse are left for
// the cascade to skip.
func validateOriginalOrder(b models.SurgeryBlock) error {
	start, errStart := MinutesOfDay(b.OriginalStart)
	end, errEnd := MinutesOfDay(b.OriginalEnd)
	if errStart != nil || errEnd != nil {
		return nil
	}
	if start >= end {
		return fmt.Errorf("block %s start %s is not before end %s", b.ID, b.OriginalStart, b.OriginalEnd)
	}
	return nil
}

// newBlock builds an insertable block from an update for an unknown id.
func newBlock(u models.SurgeryBlock) (models.SurgeryBlock, error) {
	if u.OriginalStart == "" {
		u.OriginalStart = u.StartTime
	}
	if u.OriginalEnd == "" {
		u.OriginalEnd = u.EndTime
	}
	if u.OriginalStart == "" || u.OriginalEnd == "" {
		return models.SurgeryBlock{}, fmt.Errorf("new block %s has no times", u.ID)
	}
	start, err := MinutesOfDay(u.OriginalStart)
	if err != nil {
		return models.SurgeryBlock{}, err
	}
	end, err := MinutesOfDay(u.OriginalEnd)
	if err != nil {
		return models.SurgeryBlock{}, err
	}
	if start >= end {
		return models.SurgeryBlock{}, fmt.Errorf("new block %s has start %s after end %s", u.ID, u.OriginalStart, u.OriginalEnd)
	}
	u.StartTime = u.OriginalStart
	u.EndTime = u.OriginalEnd
	u.DelayTotal = u.DelayDuration
	if u.DelayTotal < 0 {
		u.DelayTotal = 0
	}
	if u.Status == "" {
		u.Status = models.StatusOnTime
	}
	return u, nil
}

// sortByOriginalStart orders blocks by their immutable planned start.
// The sort is stable so ties keep prior relative order; the planned
// start, not the current one, keeps propagation order fixed as times
// shift.
func (e *Engine) sortByOriginalStart(blocks []models.SurgeryBlock) {
	sort.SliceStable(blocks, func(i, j int) bool {
		a, errA := MinutesOfDay(blocks[i].OriginalStart)
		b, errB := MinutesOfDay(blocks[j].OriginalStart)
		if errA != nil || errB != nil {
			return errA == nil && errB != nil
		}
		return a < b
	})
}

// cascade rebuilds current times from the originals. A block's own
// accumulated delay extends its end; downstream displacement is left
// to the resolver so the pass stays idempotent.
func (e *Engine) cascade(blocks []models.SurgeryBlock) {
	for i := range blocks {
		b := &blocks[i]
		if b.Status == models.StatusCancelled {
			continue
		}
		start, err := MinutesOfDay(b.OriginalStart)
		if err != nil {
			e.logger.Warn().Err(err).Str("block_id", b.ID).Msg("skipping block with malformed original start")
			continue
		}
		end, err := MinutesOfDay(b.OriginalEnd)
		if err != nil {
			e.logger.Warn().Err(err).Str("block_id", b.ID).Msg("skipping block with malformed original end")
			continue
		}
		b.StartTime = FormatMinutes(start)
		b.EndTime = FormatMinutes(end + b.DelayTotal)
		b.CumulativeDelay = b.DelayTotal
		if b.CumulativeDelay > 0 {
			b.Status = models.StatusDelayed
		} else {
			b.Status = models.StatusOnTime
		}
	}
}
