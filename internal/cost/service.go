// Package cost implements cost entries and per-category budgets.
package cost

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/events"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Store is the persistence surface the cost service needs.
type Store interface {
	CreateCostEntry(ctx context.Context, e *model.CostEntry) error
	GetCostEntry(ctx context.Context, projectID, id string) (*model.CostEntry, error)
	ListCostEntries(ctx context.Context, projectID string, f model.CostFilter) ([]model.CostEntry, error)
	UpdateCostEntry(ctx context.Context, e *model.CostEntry) error
	DeleteCostEntry(ctx context.Context, projectID, id string) error

	UpsertCategoryBudget(ctx context.Context, b *model.CategoryBudget) error
	DeleteCategoryBudget(ctx context.Context, projectID, category string) error
	ListCategoryBudgets(ctx context.Context, projectID string) ([]model.CategoryBudget, error)
	CostSummary(ctx context.Context, projectID string) (*model.CostSummary, error)

	GetContact(ctx context.Context, projectID, id string) (*model.Contact, error)
}

// Access authorizes project-scoped operations; implemented by the project
// service.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Publisher is the event bus surface the service needs.
type Publisher interface {
	Publish(subject string, payload interface{})
}

// Service implements cost entry CRUD, filtering, and budgets.
type Service struct {
	store  Store
	access Access
	bus    Publisher
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a cost service. bus may be nil.
func NewService(store Store, access Access, bus Publisher, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, access: access, bus: bus, logger: logger, now: time.Now}
}

// Create records a cost entry. Requires editor.
func (s *Service) Create(ctx context.Context, actor *model.User, e *model.CostEntry) (*model.CostEntry, error) {
	if _, err := s.access.Authorize(ctx, e.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	e.ID = uuid.New().String()
	e.CreatedBy = actor.ID
	e.CreatedAt = now
	e.UpdatedAt = now
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkVendor(ctx, e); err != nil {
		return nil, err
	}
	if err := s.store.CreateCostEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("create cost entry: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(events.SubjectCostCreated, events.CostCreated{
			ProjectID:   e.ProjectID,
			CostEntryID: e.ID,
			Category:    e.Category,
			AmountCents: e.AmountCents,
			CreatedBy:   actor.ID,
		})
	}
	s.logger.Debug(ctx, "cost entry created",
		zap.String("cost_entry_id", e.ID), zap.Int64("amount_cents", e.AmountCents))
	return e, nil
}

// Get fetches one cost entry. Requires viewer.
func (s *Service) Get(ctx context.Context, actor *model.User, projectID, id string) (*model.CostEntry, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.GetCostEntry(ctx, projectID, id)
}

// List returns filtered, sorted cost entries. Requires viewer.
func (s *Service) List(ctx context.Context, actor *model.User, projectID string, f model.CostFilter) ([]model.CostEntry, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.store.ListCostEntries(ctx, projectID, f)
}

// Update rewrites a cost entry. Requires editor.
func (s *Service) Update(ctx context.Context, actor *model.User, e *model.CostEntry) (*model.CostEntry, error) {
	if _, err := s.access.Authorize(ctx, e.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	current, err := s.store.GetCostEntry(ctx, e.ProjectID, e.ID)
	if err != nil {
		return nil, err
	}
	e.CreatedBy = current.CreatedBy
	e.CreatedAt = current.CreatedAt
	e.UpdatedAt = s.now().UTC()
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkVendor(ctx, e); err != nil {
		return nil, err
	}
	if err := s.store.UpdateCostEntry(ctx, e); err != nil {
		return nil, fmt.Errorf("update cost entry: %w", err)
	}
	return e, nil
}

// Delete removes a cost entry. Requires editor.
func (s *Service) Delete(ctx context.Context, actor *model.User, projectID, id string) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	return s.store.DeleteCostEntry(ctx, projectID, id)
}

// Summary aggregates the project's costs against budgets. Requires viewer.
func (s *Service) Summary(ctx context.Context, actor *model.User, projectID string) (*model.CostSummary, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.CostSummary(ctx, projectID)
}

// SetBudget creates or replaces a per-category budget line. Requires editor.
func (s *Service) SetBudget(ctx context.Context, actor *model.User, b *model.CategoryBudget) error {
	if _, err := s.access.Authorize(ctx, b.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	if err := b.Validate(); err != nil {
		return err
	}
	return s.store.UpsertCategoryBudget(ctx, b)
}

// DeleteBudget removes a per-category budget line. Requires editor.
func (s *Service) DeleteBudget(ctx context.Context, actor *model.User, projectID, category string) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	return s.store.DeleteCategoryBudget(ctx, projectID, category)
}

// Budgets lists budget lines. Requires viewer.
func (s *Service) Budgets(ctx context.Context, actor *model.User, projectID string) ([]model.CategoryBudget, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListCategoryBudgets(ctx, projectID)
}

// checkVendor verifies a vendor reference points at a contact in the same
// project.
func (s *Service) checkVendor(ctx context.Context, e *model.CostEntry) error {
	if e.VendorID == nil || *e.VendorID == "" {
		e.VendorID = nil
		return nil
	}
	if _, err := s.store.GetContact(ctx, e.ProjectID, *e.VendorID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return fmt.Errorf("%w: vendor contact not found in project", model.ErrValidation)
		}
		return fmt.Errorf("check vendor: %w", err)
	}
	return nil
}
