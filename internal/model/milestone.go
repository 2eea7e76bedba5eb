package model

import (
	"fmt"
	"strings"
	"time"
)

// MilestoneStatus is the progress state of a milestone.
type MilestoneStatus string

const (
	MilestonePending    MilestoneStatus = "pending"
	MilestoneInProgress MilestoneStatus = "in_progress"
	MilestoneDone       MilestoneStatus = "done"
	MilestoneDelayed    MilestoneStatus = "delayed"
)

// Valid reports whether s is a known milestone status.
func (s MilestoneStatus) Valid() bool {
	switch s {
	case MilestonePending, MilestoneInProgress, MilestoneDone, MilestoneDelayed:
		return true
	}
	return false
}

// Milestone is a timeline entry on a project: a phase or deadline with
// planned and actual date ranges. SortOrder drives display order; the
// timeline service renumbers on reorder.
type Milestone struct {
	ID           string          `db:"id" json:"id"`
	ProjectID    string          `db:"project_id" json:"project_id"`
	Title        string          `db:"title" json:"title"`
	Description  string          `db:"description" json:"description"`
	PlannedStart *time.Time      `db:"planned_start" json:"planned_start,omitempty"`
	PlannedEnd   *time.Time      `db:"planned_end" json:"planned_end,omitempty"`
	ActualStart  *time.Time      `db:"actual_start" json:"actual_start,omitempty"`
	ActualEnd    *time.Time      `db:"actual_end" json:"actual_end,omitempty"`
	Status       MilestoneStatus `db:"status" json:"status"`
	SortOrder    int             `db:"sort_order" json:"sort_order"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// Overdue reports whether the milestone's planned end has passed without
// completion.
func (m *Milestone) Overdue(now time.Time) bool {
	return m.Status != MilestoneDone && m.PlannedEnd != nil && now.After(*m.PlannedEnd)
}

// Validate checks milestone fields and defaults the status to pending.
func (m *Milestone) Validate() error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("%w: milestone title is required", ErrValidation)
	}
	if len(m.Title) > MaxTitleLength {
		return fmt.Errorf("%w: milestone title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if len(m.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}
	if m.Status == "" {
		m.Status = MilestonePending
	}
	if !m.Status.Valid() {
		return fmt.Errorf("%w: unknown milestone status %q", ErrValidation, m.Status)
	}
	if m.PlannedStart != nil && m.PlannedEnd != nil && m.PlannedEnd.Before(*m.PlannedStart) {
		return fmt.Errorf("%w: planned end before planned start", ErrValidation)
	}
	if m.ActualStart != nil && m.ActualEnd != nil && m.ActualEnd.Before(*m.ActualStart) {
		return fmt.Errorf("%w: actual end before actual start", ErrValidation)
	}
	return nil
}
