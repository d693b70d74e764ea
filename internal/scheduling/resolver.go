/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"fmt"

	"github.com/friendsincode/eir_schedule/internal/models"
	"github.com/friendsincode/eir_schedule/internal/telemetry"
)

// resolveOverlaps walks the schedule left to right and pushes any
// block that starts before its predecessor ends to the predecessor's
// end plus the buffer. A shift can create a new overlap further down,
// which the same walk picks up. Cancelled blocks hold no room time and
// are skipped entirely.
func (e *Engine) resolveOverlaps(blocks []models.SurgeryBlock) {
	prev := -1
	for i := range blocks {
		b := &blocks[i]
		if b.Status == models.StatusCancelled {
			continue
		}
		if prev >= 0 {
			prevEnd, err := MinutesOfDay(blocks[prev].EndTime)
			if err != nil {
				prev = i
				continue
			}
			start, err := MinutesOfDay(b.StartTime)
			if err != nil {
				continue
			}
			end, err := MinutesOfDay(b.EndTime)
			if err != nil {
				continue
			}
			if start < prevEnd {
				shift := prevEnd + e.buffer - start
				b.StartTime = FormatMinutes(start + shift)
				b.EndTime = FormatMinutes(end + shift)
				b.CumulativeDelay += shift
				b.Status = models.StatusDelayed
				telemetry.ConflictShiftsTotal.Inc()
				e.logger.Debug().
					Str("block_id", b.ID).
					Str("pushed_by", blocks[prev].ID).
					Int("shift_minutes", shift).
					Msg("resolved overlap")
			}
		}
		prev = i
	}
}

// validateDayBounds flags blocks whose corrected end runs past
// midnight. The schedule is still returned as computed; the warning is
// advisory and carried on the block as well as in the result set.
func (e *Engine) validateDayBounds(blocks []models.SurgeryBlock) []models.ValidationViolation {
	var out []models.ValidationViolation
	for i := range blocks {
		b := &blocks[i]
		if b.Status == models.StatusCancelled {
			continue
		}
		end, err := MinutesOfDay(b.EndTime)
		if err != nil {
			out = append(out, models.ValidationViolation{
				Severity: models.SeverityError,
				Message:  fmt.Sprintf("block %s has malformed end time %q", b.ID, b.EndTime),
				BlockID:  b.ID,
			})
			continue
		}
		if end > minutesPerDay {
			b.Warning = "schedule extends past end of day"
			out = append(out, models.ValidationViolation{
				Severity: models.SeverityWarning,
				Message:  fmt.Sprintf("block %s ends at %s, past end of day", b.ID, b.EndTime),
				BlockID:  b.ID,
			})
		} else {
			b.Warning = ""
		}
	}
	return out
}
