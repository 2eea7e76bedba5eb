package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CreateProject inserts the project and its owner membership in one
// transaction, so a project can never exist without an owner.
func (s *Store) CreateProject(ctx context.Context, p *model.Project) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.NamedExecContext(ctx, `
			INSERT INTO projects (id, name, description, address, currency, budget_cents,
			                      status, start_date, end_date, created_by, created_at, updated_at)
			VALUES (:id, :name, :description, :address, :currency, :budget_cents,
			        :status, :start_date, :end_date, :created_by, :created_at, :updated_at)`, p); err != nil {
			return mapErr(err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO memberships (project_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)`, p.ID, p.CreatedBy, model.RoleOwner, p.CreatedAt); err != nil {
			return mapErr(err)
		}
		return nil
	})
}

// GetProject fetches a project by ID.
func (s *Store) GetProject(ctx context.Context, id string) (*model.Project, error) {
	var p model.Project
	err := s.db.GetContext(ctx, &p, `SELECT * FROM projects WHERE id = $1`, id)
	if err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

// ListProjectsForUser returns all projects the user is a member of,
// newest first.
func (s *Store) ListProjectsForUser(ctx context.Context, userID string) ([]model.Project, error) {
	var projects []model.Project
	err := s.db.SelectContext(ctx, &projects, `
		SELECT p.* FROM projects p
		JOIN memberships m ON m.project_id = p.id
		WHERE m.user_id = $1
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return projects, nil
}

// UpdateProject writes mutable project fields.
func (s *Store) UpdateProject(ctx context.Context, p *model.Project) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE projects SET
			name = :name, description = :description, address = :address,
			currency = :currency, budget_cents = :budget_cents, status = :status,
			start_date = :start_date, end_date = :end_date, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteProject removes a project; memberships, invites, and all project
// data cascade.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// GetMembership returns the caller's membership on a project, or
// model.ErrNotFound when the user is not a member.
func (s *Store) GetMembership(ctx context.Context, projectID, userID string) (*model.Membership, error) {
	var m model.Membership
	err := s.db.GetContext(ctx, &m, `
		SELECT * FROM memberships WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// ListMembers returns memberships joined with user identity, owners first.
func (s *Store) ListMembers(ctx context.Context, projectID string) ([]model.Member, error) {
	var members []model.Member
	err := s.db.SelectContext(ctx, &members, `
		SELECT m.project_id, m.user_id, m.role, m.created_at, u.email, u.name
		FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1
		ORDER BY CASE m.role WHEN 'owner' THEN 0 WHEN 'editor' THEN 1 ELSE 2 END, u.name`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return members, nil
}

// UpdateMembershipRole changes a member's role.
func (s *Store) UpdateMembershipRole(ctx context.Context, projectID, userID string, role model.Role) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE memberships SET role = $1 WHERE project_id = $2 AND user_id = $3`,
		role, projectID, userID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// MemberEmailExists reports whether a user with this email is already a
// member of the project.
func (s *Store) MemberEmailExists(ctx context.Context, projectID, email string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM memberships m
		JOIN users u ON u.id = m.user_id
		WHERE m.project_id = $1 AND u.email = $2`, projectID, model.NormalizeEmail(email))
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

// DeleteMembership removes a member from a project.
func (s *Store) DeleteMembership(ctx context.Context, projectID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM memberships WHERE project_id = $1 AND user_id = $2`, projectID, userID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// CountOwners returns the number of owner memberships on a project.
func (s *Store) CountOwners(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM memberships WHERE project_id = $1 AND role = 'owner'`, projectID)
	if err != nil {
		return 0, mapErr(err)
	}
	return n, nil
}

// CreateInvite inserts a pending invite.
func (s *Store) CreateInvite(ctx context.Context, inv *model.Invite) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO invites (id, project_id, email, role, token_digest, invited_by,
		                     created_at, expires_at, accepted_at)
		VALUES (:id, :project_id, :email, :role, :token_digest, :invited_by,
		        :created_at, :expires_at, :accepted_at)`, inv)
	return mapErr(err)
}

// GetInviteByTokenDigest fetches an invite by its token digest.
func (s *Store) GetInviteByTokenDigest(ctx context.Context, digest string) (*model.Invite, error) {
	var inv model.Invite
	err := s.db.GetContext(ctx, &inv, `SELECT * FROM invites WHERE token_digest = $1`, digest)
	if err != nil {
		return nil, mapErr(err)
	}
	return &inv, nil
}

// ListPendingInvites returns invites on a project that are unaccepted and
// unexpired at now.
func (s *Store) ListPendingInvites(ctx context.Context, projectID string, now time.Time) ([]model.Invite, error) {
	var invites []model.Invite
	err := s.db.SelectContext(ctx, &invites, `
		SELECT * FROM invites
		WHERE project_id = $1 AND accepted_at IS NULL AND expires_at > $2
		ORDER BY created_at DESC`, projectID, now)
	if err != nil {
		return nil, mapErr(err)
	}
	return invites, nil
}

// HasPendingInvite reports whether the email already has an unaccepted,
// unexpired invite on the project.
func (s *Store) HasPendingInvite(ctx context.Context, projectID, email string, now time.Time) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, `
		SELECT COUNT(*) FROM invites
		WHERE project_id = $1 AND email = $2 AND accepted_at IS NULL AND expires_at > $3`,
		projectID, model.NormalizeEmail(email), now)
	if err != nil {
		return false, mapErr(err)
	}
	return n > 0, nil
}

// AcceptInvite marks the invite accepted and creates the membership in one
// transaction.
func (s *Store) AcceptInvite(ctx context.Context, inv *model.Invite, userID string, now time.Time) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE invites SET accepted_at = $1
			WHERE id = $2 AND accepted_at IS NULL`, now, inv.ID)
		if err != nil {
			return mapErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return model.ErrConflict
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO memberships (project_id, user_id, role, created_at)
			VALUES ($1, $2, $3, $4)`, inv.ProjectID, userID, inv.Role, now); err != nil {
			return mapErr(err)
		}
		return nil
	})
}

// DeleteInvite revokes a pending invite.
func (s *Store) DeleteInvite(ctx context.Context, projectID, inviteID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM invites WHERE id = $1 AND project_id = $2 AND accepted_at IS NULL`,
		inviteID, projectID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
