package store

import (
	"context"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CreateDocument inserts document metadata. The caller is responsible for
// having written the blob first; on error it must clean the blob up.
func (s *Store) CreateDocument(ctx context.Context, d *model.Document) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO documents (id, project_id, title, filename, content_type, size_bytes,
		                       storage_key, cost_entry_id, contact_id, uploaded_by, created_at)
		VALUES (:id, :project_id, :title, :filename, :content_type, :size_bytes,
		        :storage_key, :cost_entry_id, :contact_id, :uploaded_by, :created_at)`, d)
	return mapErr(err)
}

// GetDocument fetches document metadata scoped to a project.
func (s *Store) GetDocument(ctx context.Context, projectID, id string) (*model.Document, error) {
	var d model.Document
	err := s.db.GetContext(ctx, &d, `
		SELECT id, project_id, title, filename, content_type, size_bytes, storage_key,
		       cost_entry_id, contact_id, uploaded_by, created_at
		FROM documents WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

// ListDocuments returns a project's documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]model.Document, error) {
	var docs []model.Document
	err := s.db.SelectContext(ctx, &docs, `
		SELECT id, project_id, title, filename, content_type, size_bytes, storage_key,
		       cost_entry_id, contact_id, uploaded_by, created_at
		FROM documents WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return docs, nil
}

// DeleteDocument removes document metadata and returns the storage key so
// the caller can delete the blob.
func (s *Store) DeleteDocument(ctx context.Context, projectID, id string) (storageKey string, err error) {
	err = s.db.QueryRowxContext(ctx, `
		DELETE FROM documents WHERE id = $1 AND project_id = $2 RETURNING storage_key`,
		id, projectID).Scan(&storageKey)
	if err != nil {
		return "", mapErr(err)
	}
	return storageKey, nil
}
