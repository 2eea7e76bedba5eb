package store

import (
	"context"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CreateContact inserts a contact.
func (s *Store) CreateContact(ctx context.Context, c *model.Contact) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO contacts (id, project_id, name, company, trade, email, phone, notes,
		                      created_at, updated_at)
		VALUES (:id, :project_id, :name, :company, :trade, :email, :phone, :notes,
		        :created_at, :updated_at)`, c)
	return mapErr(err)
}

// GetContact fetches a contact scoped to a project.
func (s *Store) GetContact(ctx context.Context, projectID, id string) (*model.Contact, error) {
	var c model.Contact
	err := s.db.GetContext(ctx, &c, `
		SELECT id, project_id, name, company, trade, email, phone, notes, created_at, updated_at
		FROM contacts WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// ListContacts returns a project's contacts ordered by name.
func (s *Store) ListContacts(ctx context.Context, projectID string) ([]model.Contact, error) {
	var contacts []model.Contact
	err := s.db.SelectContext(ctx, &contacts, `
		SELECT id, project_id, name, company, trade, email, phone, notes, created_at, updated_at
		FROM contacts WHERE project_id = $1 ORDER BY name`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return contacts, nil
}

// UpdateContact writes mutable contact fields.
func (s *Store) UpdateContact(ctx context.Context, c *model.Contact) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE contacts SET
			name = :name, company = :company, trade = :trade, email = :email,
			phone = :phone, notes = :notes, updated_at = :updated_at
		WHERE id = :id AND project_id = :project_id`, c)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteContact removes a contact. Cost entries referencing it keep their
// rows with vendor_id set to NULL (schema ON DELETE SET NULL).
func (s *Store) DeleteContact(ctx context.Context, projectID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM contacts WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
