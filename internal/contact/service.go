// Package contact implements project contacts (vendors, tradespeople,
// architects). Cost entries reference contacts as vendors; deleting a
// contact detaches it from costs instead of deleting them.
package contact

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Store is the persistence surface the contact service needs.
type Store interface {
	CreateContact(ctx context.Context, c *model.Contact) error
	GetContact(ctx context.Context, projectID, id string) (*model.Contact, error)
	ListContacts(ctx context.Context, projectID string) ([]model.Contact, error)
	UpdateContact(ctx context.Context, c *model.Contact) error
	DeleteContact(ctx context.Context, projectID, id string) error
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Service implements contact CRUD.
type Service struct {
	store  Store
	access Access
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a contact service.
func NewService(store Store, access Access, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, access: access, logger: logger, now: time.Now}
}

// Create adds a contact. Requires editor.
func (s *Service) Create(ctx context.Context, actor *model.User, c *model.Contact) (*model.Contact, error) {
	if _, err := s.access.Authorize(ctx, c.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	c.ID = uuid.New().String()
	c.CreatedAt = now
	c.UpdatedAt = now
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// Get fetches one contact. Requires viewer.
func (s *Service) Get(ctx context.Context, actor *model.User, projectID, id string) (*model.Contact, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.GetContact(ctx, projectID, id)
}

// List returns a project's contacts. Requires viewer.
func (s *Service) List(ctx context.Context, actor *model.User, projectID string) ([]model.Contact, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListContacts(ctx, projectID)
}

// Update rewrites a contact. Requires editor.
func (s *Service) Update(ctx context.Context, actor *model.User, c *model.Contact) (*model.Contact, error) {
	if _, err := s.access.Authorize(ctx, c.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	current, err := s.store.GetContact(ctx, c.ProjectID, c.ID)
	if err != nil {
		return nil, err
	}
	c.CreatedAt = current.CreatedAt
	c.UpdatedAt = s.now().UTC()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateContact(ctx, c); err != nil {
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// Delete removes a contact. Cost entries keep their rows; the vendor
// reference goes NULL. Requires editor.
func (s *Service) Delete(ctx context.Context, actor *model.User, projectID, id string) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	return s.store.DeleteContact(ctx, projectID, id)
}
