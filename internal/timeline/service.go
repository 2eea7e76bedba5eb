// Package timeline implements project milestones and their ordering.
package timeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Store is the persistence surface the timeline service needs.
type Store interface {
	CreateMilestone(ctx context.Context, m *model.Milestone) error
	GetMilestone(ctx context.Context, projectID, id string) (*model.Milestone, error)
	ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error)
	UpdateMilestone(ctx context.Context, m *model.Milestone) error
	ReorderMilestones(ctx context.Context, projectID string, orderedIDs []string) error
	DeleteMilestone(ctx context.Context, projectID, id string) error
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Service implements milestone CRUD and reordering.
type Service struct {
	store  Store
	access Access
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a timeline service.
func NewService(store Store, access Access, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, access: access, logger: logger, now: time.Now}
}

// Create appends a milestone to the project's timeline. Requires editor.
func (s *Service) Create(ctx context.Context, actor *model.User, m *model.Milestone) (*model.Milestone, error) {
	if _, err := s.access.Authorize(ctx, m.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	m.ID = uuid.New().String()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateMilestone(ctx, m); err != nil {
		return nil, fmt.Errorf("create milestone: %w", err)
	}
	return m, nil
}

// Get fetches one milestone. Requires viewer.
func (s *Service) Get(ctx context.Context, actor *model.User, projectID, id string) (*model.Milestone, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.GetMilestone(ctx, projectID, id)
}

// List returns the project's milestones in display order. Requires viewer.
func (s *Service) List(ctx context.Context, actor *model.User, projectID string) ([]model.Milestone, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListMilestones(ctx, projectID)
}

// Update rewrites a milestone (not its position). Requires editor.
func (s *Service) Update(ctx context.Context, actor *model.User, m *model.Milestone) (*model.Milestone, error) {
	if _, err := s.access.Authorize(ctx, m.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	current, err := s.store.GetMilestone(ctx, m.ProjectID, m.ID)
	if err != nil {
		return nil, err
	}
	m.SortOrder = current.SortOrder
	m.CreatedAt = current.CreatedAt
	m.UpdatedAt = s.now().UTC()
	if err := m.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateMilestone(ctx, m); err != nil {
		return nil, fmt.Errorf("update milestone: %w", err)
	}
	return m, nil
}

// Reorder renumbers milestones to match the given ID order. Unlisted
// milestones keep their relative order after the listed ones. Requires
// editor.
func (s *Service) Reorder(ctx context.Context, actor *model.User, projectID string, orderedIDs []string) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	if len(orderedIDs) == 0 {
		return fmt.Errorf("%w: no milestone ids given", model.ErrValidation)
	}
	seen := make(map[string]struct{}, len(orderedIDs))
	for _, id := range orderedIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate milestone id %s", model.ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return s.store.ReorderMilestones(ctx, projectID, orderedIDs)
}

// Delete removes a milestone. Requires editor.
func (s *Service) Delete(ctx context.Context, actor *model.User, projectID, id string) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	return s.store.DeleteMilestone(ctx, projectID, id)
}

// Upcoming returns milestones whose planned window touches the next days
// from now, soonest first. Used by the dashboard.
func Upcoming(milestones []model.Milestone, now time.Time, days int) []model.Milestone {
	horizon := now.AddDate(0, 0, days)
	var out []model.Milestone
	for _, m := range milestones {
		if m.Status == model.MilestoneDone || m.PlannedEnd == nil {
			continue
		}
		if m.PlannedEnd.After(now) && m.PlannedEnd.Before(horizon) {
			out = append(out, m)
		}
	}
	return out
}

// Overdue returns milestones past their planned end without completion.
func Overdue(milestones []model.Milestone, now time.Time) []model.Milestone {
	var out []model.Milestone
	for _, m := range milestones {
		if m.Overdue(now) {
			out = append(out, m)
		}
	}
	return out
}
