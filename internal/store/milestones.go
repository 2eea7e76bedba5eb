package store

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CreateMilestone inserts a milestone at the end of the project's ordering.
func (s *Store) CreateMilestone(ctx context.Context, m *model.Milestone) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &m.SortOrder, `
			SELECT COALESCE(MAX(sort_order), -1) + 1 FROM milestones WHERE project_id = $1`,
			m.ProjectID); err != nil {
			return mapErr(err)
		}
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO milestones (id, project_id, title, description, planned_start, planned_end,
			                        actual_start, actual_end, status, sort_order, created_at, updated_at)
			VALUES (:id, :project_id, :title, :description, :planned_start, :planned_end,
			        :actual_start, :actual_end, :status, :sort_order, :created_at, :updated_at)`, m)
		return mapErr(err)
	})
}

// GetMilestone fetches a milestone scoped to a project.
func (s *Store) GetMilestone(ctx context.Context, projectID, id string) (*model.Milestone, error) {
	var m model.Milestone
	err := s.db.GetContext(ctx, &m, `
		SELECT id, project_id, title, description, planned_start, planned_end,
		       actual_start, actual_end, status, sort_order, created_at, updated_at
		FROM milestones WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &m, nil
}

// ListMilestones returns a project's milestones in display order.
func (s *Store) ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error) {
	var milestones []model.Milestone
	err := s.db.SelectContext(ctx, &milestones, `
		SELECT id, project_id, title, description, planned_start, planned_end,
		       actual_start, actual_end, status, sort_order, created_at, updated_at
		FROM milestones WHERE project_id = $1 ORDER BY sort_order, created_at`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return milestones, nil
}

// UpdateMilestone writes mutable milestone fields (not sort order; use
// ReorderMilestones for that).
func (s *Store) UpdateMilestone(ctx context.Context, m *model.Milestone) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE milestones SET
			title = :title, description = :description,
			planned_start = :planned_start, planned_end = :planned_end,
			actual_start = :actual_start, actual_end = :actual_end,
			status = :status, updated_at = :updated_at
		WHERE id = :id AND project_id = :project_id`, m)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ReorderMilestones renumbers the project's milestones to match the given
// ID order. IDs not listed keep their relative order after the listed ones.
func (s *Store) ReorderMilestones(ctx context.Context, projectID string, orderedIDs []string) error {
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		for i, id := range orderedIDs {
			res, err := tx.ExecContext(ctx, `
				UPDATE milestones SET sort_order = $1, updated_at = now()
				WHERE id = $2 AND project_id = $3`, i, id, projectID)
			if err != nil {
				return mapErr(err)
			}
			if n, _ := res.RowsAffected(); n == 0 {
				return model.ErrNotFound
			}
		}
		_, err := tx.ExecContext(ctx, `
			UPDATE milestones SET sort_order = sort_order + $1
			WHERE project_id = $2 AND NOT (id = ANY($3))`,
			len(orderedIDs), projectID, orderedIDs)
		return mapErr(err)
	})
}

// DeleteMilestone removes a milestone.
func (s *Store) DeleteMilestone(ctx context.Context, projectID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM milestones WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}
