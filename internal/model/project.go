package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// ProjectStatus is the lifecycle state of a project.
type ProjectStatus string

const (
	ProjectPlanning ProjectStatus = "planning"
	ProjectActive   ProjectStatus = "active"
	ProjectOnHold   ProjectStatus = "on_hold"
	ProjectDone     ProjectStatus = "done"
	ProjectArchived ProjectStatus = "archived"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectActive, ProjectOnHold, ProjectDone, ProjectArchived:
		return true
	}
	return false
}

// Project is a construction or renovation project. BudgetCents is the total
// budget in the project currency; per-category budgets live in
// CategoryBudget rows.
type Project struct {
	ID          string        `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description"`
	Address     string        `db:"address" json:"address"`
	Currency    string        `db:"currency" json:"currency"`
	BudgetCents int64         `db:"budget_cents" json:"budget_cents"`
	Status      ProjectStatus `db:"status" json:"status"`
	StartDate   *time.Time    `db:"start_date" json:"start_date,omitempty"`
	EndDate     *time.Time    `db:"end_date" json:"end_date,omitempty"`
	CreatedBy   string        `db:"created_by" json:"created_by"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updated_at"`
}

const (
	MaxProjectNameLength = 200
	MaxDescriptionLength = 5000
)

// Validate checks project fields and applies defaults (status planning,
// currency EUR) for zero values.
func (p *Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: project name is required", ErrValidation)
	}
	if len(p.Name) > MaxProjectNameLength {
		return fmt.Errorf("%w: project name exceeds %d characters", ErrValidation, MaxProjectNameLength)
	}
	if len(p.Description) > MaxDescriptionLength {
		return fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	}
	if p.Status == "" {
		p.Status = ProjectPlanning
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown project status %q", ErrValidation, p.Status)
	}
	if p.Currency == "" {
		p.Currency = "EUR"
	}
	p.Currency = strings.ToUpper(p.Currency)
	if len(p.Currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter ISO 4217 code", ErrValidation)
	}
	if p.BudgetCents < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return fmt.Errorf("%w: end date before start date", ErrValidation)
	}
	return nil
}

// Role is a member's role on a project. Roles are strictly ordered:
// owner > editor > viewer.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// AtLeast reports whether r grants at least the privileges of min.
func (r Role) AtLeast(min Role) bool {
	return r.rank() >= min.rank()
}

func (r Role) rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleEditor:
		return 2
	case RoleViewer:
		return 1
	}
	return 0
}

// Membership links a user to a project with a role. The (project, user)
// pair is unique; every project keeps at least one owner row.
type Membership struct {
	ProjectID string    `db:"project_id" json:"project_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Role      Role      `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Member is a membership joined with user identity, as listed in the API.
type Member struct {
	Membership
	Email string `db:"email" json:"email"`
	Name  string `db:"name" json:"name"`
}

// Invite is a pending partner invitation. Like sessions, only the token
// digest is stored; the cleartext token goes out in the invite email.
type Invite struct {
	ID          string     `db:"id" json:"id"`
	ProjectID   string     `db:"project_id" json:"project_id"`
	Email       string     `db:"email" json:"email"`
	Role        Role       `db:"role" json:"role"`
	TokenDigest string     `db:"token_digest" json:"-"`
	InvitedBy   string     `db:"invited_by" json:"invited_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt  *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
}

// Pending reports whether the invite can still be accepted at now.
func (i *Invite) Pending(now time.Time) bool {
	return i.AcceptedAt == nil && now.Before(i.ExpiresAt)
}

// Validate checks invite fields. Owner invites are rejected: ownership is
// only ever established at project creation or by transfer, not by invite.
func (i *Invite) Validate() error {
	i.Email = NormalizeEmail(i.Email)
	if i.Email == "" {
		return fmt.Errorf("%w: invite email is required", ErrValidation)
	}
	if _, err := mail.ParseAddress(i.Email); err != nil {
		return fmt.Errorf("%w: invalid invite email", ErrValidation)
	}
	if !i.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrValidation, i.Role)
	}
	if i.Role == RoleOwner {
		return fmt.Errorf("%w: cannot invite as owner", ErrValidation)
	}
	return nil
}
