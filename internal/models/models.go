package models

import (
	"time"
)

// BlockStatus enumerates the lifecycle states of a surgery block.
type BlockStatus string

const (
	StatusOnTime    BlockStatus = "on-time"
	StatusDelayed   BlockStatus = "delayed"
	StatusCancelled BlockStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BlockStatus) Valid() bool {
	switch s {
	case StatusOnTime, StatusDelayed, StatusCancelled:
		return true
	}
	return false
}

// SurgeryBlock is one time-block of the operating-room schedule.
//
// Original times are set once at creation and never touched by
// propagation; they are the stable sort key. Current times are
// recomputed from the originals on every propagation pass. All times
// are wall-clock "HH:MM" within a single day.
type SurgeryBlock struct {
	ID    string `gorm:"primaryKey" json:"id"`
	Title string `json:"title"`

	StartTime     string `gorm:"type:varchar(8)" json:"startTime"`
	EndTime       string `gorm:"type:varchar(8)" json:"endTime"`
	OriginalStart string `gorm:"type:varchar(8);index" json:"originalStart"`
	OriginalEnd   string `gorm:"type:varchar(8)" json:"originalEnd"`

	// DelayDuration is the minutes-of-delay reported in the most recent
	// update for this block. It is the transient input of a propagation
	// pass, kept afterwards for display only.
	DelayDuration int    `json:"delayDuration"`
	DelayReason   string `json:"delayReason,omitempty"`

	// DelayTotal is the sum of every delay reported against this block.
	// Propagation replays it against the original times, so repeated
	// passes are idempotent.
	DelayTotal int `json:"delayTotal,omitempty"`

	// CumulativeDelay is derived on every pass: total minutes this
	// block's start is pushed from OriginalStart, own delays plus
	// everything absorbed from upstream.
	CumulativeDelay int `json:"cumulativeDelay"`

	Status  BlockStatus `gorm:"type:varchar(16)" json:"status"`
	Warning string      `gorm:"type:text" json:"warning,omitempty"`

	// Position persists the propagation order so originalStart ties keep
	// their prior relative order across restarts.
	Position  int       `gorm:"index" json:"-"`
	CreatedAt time.Time `json:"-"`
	UpdatedAt time.Time `json:"-"`
}

// ValidationSeverity grades schedule validation findings.
type ValidationSeverity string

const (
	SeverityError   ValidationSeverity = "error"
	SeverityWarning ValidationSeverity = "warning"
)

// ValidationViolation describes a single schedule validation finding.
type ValidationViolation struct {
	Severity ValidationSeverity `json:"severity"`
	Message  string             `json:"message"`
	BlockID  string             `json:"block_id,omitempty"`
}
