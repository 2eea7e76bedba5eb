// Package project implements projects, memberships, and partner invites.
//
// It is also the access-control authority: every other project-scoped
// service authorizes through Service.Authorize, which resolves the caller's
// membership and compares roles. Non-members see not-found rather than
// permission-denied, so project IDs leak nothing.
package project

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
	"github.com/fyrsmithlabs/buildledger/internal/events"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Store is the persistence surface the project service needs.
type Store interface {
	CreateProject(ctx context.Context, p *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListProjectsForUser(ctx context.Context, userID string) ([]model.Project, error)
	UpdateProject(ctx context.Context, p *model.Project) error
	DeleteProject(ctx context.Context, id string) error

	GetMembership(ctx context.Context, projectID, userID string) (*model.Membership, error)
	ListMembers(ctx context.Context, projectID string) ([]model.Member, error)
	UpdateMembershipRole(ctx context.Context, projectID, userID string, role model.Role) error
	DeleteMembership(ctx context.Context, projectID, userID string) error
	CountOwners(ctx context.Context, projectID string) (int, error)
	MemberEmailExists(ctx context.Context, projectID, email string) (bool, error)

	CreateInvite(ctx context.Context, inv *model.Invite) error
	GetInviteByTokenDigest(ctx context.Context, digest string) (*model.Invite, error)
	ListPendingInvites(ctx context.Context, projectID string, now time.Time) ([]model.Invite, error)
	HasPendingInvite(ctx context.Context, projectID, email string, now time.Time) (bool, error)
	AcceptInvite(ctx context.Context, inv *model.Invite, userID string, now time.Time) error
	DeleteInvite(ctx context.Context, projectID, inviteID string) error
}

// Publisher is the event bus surface the service needs.
type Publisher interface {
	Publish(subject string, payload interface{})
}

// Config holds project service settings.
type Config struct {
	InviteTTL time.Duration
}

// Service implements project CRUD, member management, and invites.
type Service struct {
	store  Store
	bus    Publisher
	cfg    Config
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a project service. bus may be nil in tools that do
// not run the event bus (blctl).
func NewService(store Store, bus Publisher, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.InviteTTL == 0 {
		cfg.InviteTTL = 14 * 24 * time.Hour
	}
	return &Service{store: store, bus: bus, cfg: cfg, logger: logger, now: time.Now}
}

// Authorize resolves the user's membership on a project and checks it
// against the minimum role. Non-members get model.ErrNotFound; members
// below the minimum get model.ErrPermissionDenied.
func (s *Service) Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error) {
	m, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("lookup membership: %w", err)
	}
	if !m.Role.AtLeast(min) {
		return nil, fmt.Errorf("%w: requires %s role", model.ErrPermissionDenied, min)
	}
	return m, nil
}

// Create creates a project owned by the actor.
func (s *Service) Create(ctx context.Context, actor *model.User, p *model.Project) (*model.Project, error) {
	now := s.now().UTC()
	p.ID = uuid.New().String()
	p.CreatedBy = actor.ID
	p.CreatedAt = now
	p.UpdatedAt = now
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.CreateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.logger.Info(ctx, "project created",
		zap.String("project_id", p.ID), zap.String("name", p.Name))
	return p, nil
}

// Get returns a project the actor is a member of.
func (s *Service) Get(ctx context.Context, actor *model.User, projectID string) (*model.Project, error) {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.GetProject(ctx, projectID)
}

// List returns all projects the actor is a member of.
func (s *Service) List(ctx context.Context, actor *model.User) ([]model.Project, error) {
	return s.store.ListProjectsForUser(ctx, actor.ID)
}

// Update writes mutable project fields. Requires editor.
func (s *Service) Update(ctx context.Context, actor *model.User, p *model.Project) (*model.Project, error) {
	if _, err := s.Authorize(ctx, p.ID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	current, err := s.store.GetProject(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	p.CreatedBy = current.CreatedBy
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = s.now().UTC()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// Archive sets the project status to archived. Requires owner.
func (s *Service) Archive(ctx context.Context, actor *model.User, projectID string) (*model.Project, error) {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return nil, err
	}
	p, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	p.Status = model.ProjectArchived
	p.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateProject(ctx, p); err != nil {
		return nil, fmt.Errorf("archive project: %w", err)
	}
	s.logger.Info(ctx, "project archived", zap.String("project_id", projectID))
	return p, nil
}

// Delete removes a project and everything under it. Requires owner.
func (s *Service) Delete(ctx context.Context, actor *model.User, projectID string) error {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return err
	}
	if err := s.store.DeleteProject(ctx, projectID); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.logger.Info(ctx, "project deleted", zap.String("project_id", projectID))
	return nil
}

// Members lists project members. Any member may look.
func (s *Service) Members(ctx context.Context, actor *model.User, projectID string) ([]model.Member, error) {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListMembers(ctx, projectID)
}

// ChangeMemberRole changes another member's role. Requires owner. Demoting
// the last owner is rejected.
func (s *Service) ChangeMemberRole(ctx context.Context, actor *model.User, projectID, userID string, role model.Role) error {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return err
	}
	if !role.Valid() {
		return fmt.Errorf("%w: unknown role %q", model.ErrValidation, role)
	}
	target, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleOwner && role != model.RoleOwner {
		if err := s.requireAnotherOwner(ctx, projectID); err != nil {
			return err
		}
	}
	return s.store.UpdateMembershipRole(ctx, projectID, userID, role)
}

// RemoveMember removes a member. Requires owner. Owners cannot remove
// themselves, and the last owner can never be removed.
func (s *Service) RemoveMember(ctx context.Context, actor *model.User, projectID, userID string) error {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return err
	}
	if userID == actor.ID {
		return fmt.Errorf("%w: cannot remove own membership", model.ErrConflict)
	}
	target, err := s.store.GetMembership(ctx, projectID, userID)
	if err != nil {
		return err
	}
	if target.Role == model.RoleOwner {
		if err := s.requireAnotherOwner(ctx, projectID); err != nil {
			return err
		}
	}
	if err := s.store.DeleteMembership(ctx, projectID, userID); err != nil {
		return err
	}
	s.logger.Info(ctx, "member removed",
		zap.String("project_id", projectID), zap.String("removed_user_id", userID))
	return nil
}

func (s *Service) requireAnotherOwner(ctx context.Context, projectID string) error {
	n, err := s.store.CountOwners(ctx, projectID)
	if err != nil {
		return err
	}
	if n <= 1 {
		return fmt.Errorf("%w: project would be left without an owner", model.ErrConflict)
	}
	return nil
}

// Invite invites a partner by email. Requires owner. The returned token is
// the cleartext invite token; it also goes out on the event bus for the
// mailer and is never stored.
func (s *Service) Invite(ctx context.Context, actor *model.User, projectID, email string, role model.Role) (*model.Invite, string, error) {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return nil, "", err
	}
	now := s.now().UTC()

	inv := &model.Invite{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		Email:     email,
		Role:      role,
		InvitedBy: actor.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.InviteTTL),
	}
	if err := inv.Validate(); err != nil {
		return nil, "", err
	}

	isMember, err := s.store.MemberEmailExists(ctx, projectID, inv.Email)
	if err != nil {
		return nil, "", fmt.Errorf("check membership: %w", err)
	}
	if isMember {
		return nil, "", fmt.Errorf("%w: %s is already a member", model.ErrConflict, inv.Email)
	}
	pending, err := s.store.HasPendingInvite(ctx, projectID, inv.Email, now)
	if err != nil {
		return nil, "", fmt.Errorf("check pending invites: %w", err)
	}
	if pending {
		return nil, "", fmt.Errorf("%w: %s already has a pending invite", model.ErrConflict, inv.Email)
	}

	token, digest, err := auth.NewToken()
	if err != nil {
		return nil, "", fmt.Errorf("generate invite token: %w", err)
	}
	inv.TokenDigest = digest

	if err := s.store.CreateInvite(ctx, inv); err != nil {
		return nil, "", fmt.Errorf("create invite: %w", err)
	}

	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, "", err
	}
	if s.bus != nil {
		s.bus.Publish(events.SubjectInviteCreated, events.InviteCreated{
			InviteID:    inv.ID,
			ProjectID:   projectID,
			ProjectName: project.Name,
			Email:       inv.Email,
			Role:        inv.Role,
			Token:       token,
			InvitedBy:   actor.Name,
			ExpiresAt:   inv.ExpiresAt,
		})
	}

	s.logger.Info(ctx, "invite created",
		zap.String("project_id", projectID), zap.String("invite_id", inv.ID))
	return inv, token, nil
}

// PendingInvites lists unaccepted, unexpired invites. Requires owner.
func (s *Service) PendingInvites(ctx context.Context, actor *model.User, projectID string) ([]model.Invite, error) {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return nil, err
	}
	return s.store.ListPendingInvites(ctx, projectID, s.now().UTC())
}

// RevokeInvite deletes a pending invite. Requires owner.
func (s *Service) RevokeInvite(ctx context.Context, actor *model.User, projectID, inviteID string) error {
	if _, err := s.Authorize(ctx, projectID, actor.ID, model.RoleOwner); err != nil {
		return err
	}
	return s.store.DeleteInvite(ctx, projectID, inviteID)
}

// AcceptInvite redeems an invite token for the actor and creates the
// membership. Expired or already-accepted invites are a conflict, as is
// accepting when already a member.
func (s *Service) AcceptInvite(ctx context.Context, actor *model.User, token string) (*model.Membership, error) {
	inv, err := s.store.GetInviteByTokenDigest(ctx, auth.DigestToken(token))
	if err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if !inv.Pending(now) {
		return nil, fmt.Errorf("%w: invite expired or already accepted", model.ErrConflict)
	}
	if err := s.store.AcceptInvite(ctx, inv, actor.ID, now); err != nil {
		if errors.Is(err, model.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: already a member", model.ErrConflict)
		}
		return nil, fmt.Errorf("accept invite: %w", err)
	}

	if s.bus != nil {
		s.bus.Publish(events.SubjectMemberJoined, events.MemberJoined{
			ProjectID: inv.ProjectID,
			UserID:    actor.ID,
			Email:     actor.Email,
			Role:      inv.Role,
		})
	}

	s.logger.Info(ctx, "invite accepted",
		zap.String("project_id", inv.ProjectID), zap.String("invite_id", inv.ID))
	return &model.Membership{
		ProjectID: inv.ProjectID,
		UserID:    actor.ID,
		Role:      inv.Role,
		CreatedAt: now,
	}, nil
}
