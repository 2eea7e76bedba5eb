package model

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Contact is a project contact: a vendor, tradesperson, architect, or any
// other party attached to a project. Cost entries may reference a contact
// as their vendor.
type Contact struct {
	ID        string    `db:"id" json:"id"`
	ProjectID string    `db:"project_id" json:"project_id"`
	Name      string    `db:"name" json:"name"`
	Company   string    `db:"company" json:"company"`
	Trade     string    `db:"trade" json:"trade"`
	Email     string    `db:"email" json:"email"`
	Phone     string    `db:"phone" json:"phone"`
	Notes     string    `db:"notes" json:"notes"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Validate checks contact fields. Email is optional but must parse when set.
func (c *Contact) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("%w: contact name is required", ErrValidation)
	}
	if len(c.Name) > MaxNameLength {
		return fmt.Errorf("%w: contact name exceeds %d characters", ErrValidation, MaxNameLength)
	}
	if c.Email != "" {
		c.Email = NormalizeEmail(c.Email)
		if _, err := mail.ParseAddress(c.Email); err != nil {
			return fmt.Errorf("%w: invalid contact email", ErrValidation)
		}
	}
	if len(c.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, MaxNotesLength)
	}
	return nil
}
