// Package dashboard assembles the per-project overview: budget versus
// spend, per-category breakdown, entity counts, milestone outlook, and the
// latest cost entries. Everything is computed from live SQL aggregates.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
	"github.com/fyrsmithlabs/buildledger/internal/store"
	"github.com/fyrsmithlabs/buildledger/internal/timeline"
)

// UpcomingWindowDays is how far ahead the dashboard looks for milestones.
const UpcomingWindowDays = 30

// RecentEntryLimit caps the recent-cost feed.
const RecentEntryLimit = 10

// Store is the persistence surface the dashboard needs.
type Store interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	CostSummary(ctx context.Context, projectID string) (*model.CostSummary, error)
	CountProjectEntities(ctx context.Context, projectID string) (*store.ProjectCounts, error)
	ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error)
	RecentCostEntries(ctx context.Context, projectID string, limit int) ([]model.CostEntry, error)
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Summary is the dashboard response for one project.
type Summary struct {
	Project        *model.Project      `json:"project"`
	Costs          *model.CostSummary  `json:"costs"`
	RemainingCents int64               `json:"remaining_cents"`
	Counts         store.ProjectCounts `json:"counts"`
	Upcoming       []model.Milestone   `json:"upcoming_milestones"`
	Overdue        []model.Milestone   `json:"overdue_milestones"`
	RecentEntries  []model.CostEntry   `json:"recent_entries"`
}

// Service builds dashboard summaries.
type Service struct {
	store  Store
	access Access
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a dashboard service.
func NewService(store Store, access Access, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, access: access, logger: logger, now: time.Now}
}

// Summary builds the project overview. Requires viewer.
func (s *Service) Summary(ctx context.Context, actor *model.User, projectID string) (*Summary, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	costs, err := s.store.CostSummary(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("cost summary: %w", err)
	}
	counts, err := s.store.CountProjectEntities(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("entity counts: %w", err)
	}
	milestones, err := s.store.ListMilestones(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list milestones: %w", err)
	}
	recent, err := s.store.RecentCostEntries(ctx, projectID, RecentEntryLimit)
	if err != nil {
		return nil, fmt.Errorf("recent entries: %w", err)
	}

	now := s.now().UTC()
	return &Summary{
		Project:        project,
		Costs:          costs,
		RemainingCents: project.BudgetCents - costs.TotalCents,
		Counts:         *counts,
		Upcoming:       timeline.Upcoming(milestones, now, UpcomingWindowDays),
		Overdue:        timeline.Overdue(milestones, now),
		RecentEntries:  recent,
	}, nil
}
