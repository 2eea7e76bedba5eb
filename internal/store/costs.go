package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CreateCostEntry inserts a cost entry.
func (s *Store) CreateCostEntry(ctx context.Context, e *model.CostEntry) error {
	_, err := s.db.NamedExecContext(ctx, costInsertSQL, e)
	return mapErr(err)
}

const costInsertSQL = `
	INSERT INTO cost_entries (id, project_id, category, title, vendor_id, amount_cents,
	                          currency, incurred_on, status, invoice_no, notes,
	                          created_by, created_at, updated_at)
	VALUES (:id, :project_id, :category, :title, :vendor_id, :amount_cents,
	        :currency, :incurred_on, :status, :invoice_no, :notes,
	        :created_by, :created_at, :updated_at)`

// CreateCostEntries inserts a batch of cost entries in one transaction.
// Used by the CSV importer; either all rows land or none do.
func (s *Store) CreateCostEntries(ctx context.Context, entries []model.CostEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PrepareNamedContext(ctx, costInsertSQL)
		if err != nil {
			return mapErr(err)
		}
		defer stmt.Close()
		for i := range entries {
			if _, err := stmt.ExecContext(ctx, entries[i]); err != nil {
				return mapErr(err)
			}
		}
		return nil
	})
}

// GetCostEntry fetches a cost entry scoped to a project.
func (s *Store) GetCostEntry(ctx context.Context, projectID, id string) (*model.CostEntry, error) {
	var e model.CostEntry
	err := s.db.GetContext(ctx, &e, `
		SELECT id, project_id, category, title, vendor_id, amount_cents, currency,
		       incurred_on, status, invoice_no, notes, created_by, created_at, updated_at
		FROM cost_entries WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

// ListCostEntries returns cost entries matching the filter. The filter must
// be validated by the caller; unknown sort columns would otherwise reach SQL.
func (s *Store) ListCostEntries(ctx context.Context, projectID string, f model.CostFilter) ([]model.CostEntry, error) {
	query, args := buildCostListQuery(projectID, f)
	var entries []model.CostEntry
	if err := s.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, mapErr(err)
	}
	return entries, nil
}

// buildCostListQuery assembles the filtered, sorted list query. Sort columns
// are mapped through a fixed table, never interpolated from input.
func buildCostListQuery(projectID string, f model.CostFilter) (string, []interface{}) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, project_id, category, title, vendor_id, amount_cents, currency,
		       incurred_on, status, invoice_no, notes, created_by, created_at, updated_at
		FROM cost_entries WHERE project_id = $1`)
	args := []interface{}{projectID}

	add := func(clause string, val interface{}) {
		args = append(args, val)
		fmt.Fprintf(&sb, " AND %s $%d", clause, len(args))
	}

	if f.Category != "" {
		add("category =", f.Category)
	}
	if f.Status != "" {
		add("status =", string(f.Status))
	}
	if f.VendorID != "" {
		add("vendor_id =", f.VendorID)
	}
	if f.From != nil {
		add("incurred_on >=", *f.From)
	}
	if f.To != nil {
		add("incurred_on <=", *f.To)
	}
	if f.MinCents != nil {
		add("amount_cents >=", *f.MinCents)
	}
	if f.MaxCents != nil {
		add("amount_cents <=", *f.MaxCents)
	}
	if f.Query != "" {
		args = append(args, f.Query)
		fmt.Fprintf(&sb, " AND search @@ websearch_to_tsquery('simple', $%d)", len(args))
	}

	col := map[model.CostSort]string{
		model.CostSortDate:     "incurred_on",
		model.CostSortAmount:   "amount_cents",
		model.CostSortCategory: "category",
		model.CostSortCreated:  "created_at",
	}[f.Sort]
	if col == "" {
		col = "incurred_on"
	}
	dir := "ASC"
	if f.Descending {
		dir = "DESC"
	}
	fmt.Fprintf(&sb, " ORDER BY %s %s, id", col, dir)

	args = append(args, f.Limit)
	fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	args = append(args, f.Offset)
	fmt.Fprintf(&sb, " OFFSET $%d", len(args))

	return sb.String(), args
}

// UpdateCostEntry writes mutable cost entry fields.
func (s *Store) UpdateCostEntry(ctx context.Context, e *model.CostEntry) error {
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE cost_entries SET
			category = :category, title = :title, vendor_id = :vendor_id,
			amount_cents = :amount_cents, currency = :currency, incurred_on = :incurred_on,
			status = :status, invoice_no = :invoice_no, notes = :notes, updated_at = :updated_at
		WHERE id = :id AND project_id = :project_id`, e)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// DeleteCostEntry removes a cost entry.
func (s *Store) DeleteCostEntry(ctx context.Context, projectID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM cost_entries WHERE id = $1 AND project_id = $2`, id, projectID)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// UpsertCategoryBudget creates or replaces a per-category budget line.
func (s *Store) UpsertCategoryBudget(ctx context.Context, b *model.CategoryBudget) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO category_budgets (project_id, category, budget_cents)
		VALUES (:project_id, :category, :budget_cents)
		ON CONFLICT (project_id, category) DO UPDATE SET budget_cents = EXCLUDED.budget_cents`, b)
	return mapErr(err)
}

// DeleteCategoryBudget removes a per-category budget line.
func (s *Store) DeleteCategoryBudget(ctx context.Context, projectID, category string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM category_budgets WHERE project_id = $1 AND category = $2`, projectID, category)
	if err != nil {
		return mapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return model.ErrNotFound
	}
	return nil
}

// ListCategoryBudgets returns all budget lines for a project.
func (s *Store) ListCategoryBudgets(ctx context.Context, projectID string) ([]model.CategoryBudget, error) {
	var budgets []model.CategoryBudget
	err := s.db.SelectContext(ctx, &budgets, `
		SELECT * FROM category_budgets WHERE project_id = $1 ORDER BY category`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return budgets, nil
}

// CostSummary aggregates a project's cost entries overall and per category,
// joining in per-category budgets.
func (s *Store) CostSummary(ctx context.Context, projectID string) (*model.CostSummary, error) {
	var sum model.CostSummary
	err := s.db.QueryRowxContext(ctx, `
		SELECT COALESCE(SUM(amount_cents), 0),
		       COALESCE(SUM(amount_cents) FILTER (WHERE status = 'planned'), 0),
		       COALESCE(SUM(amount_cents) FILTER (WHERE status = 'invoiced'), 0),
		       COALESCE(SUM(amount_cents) FILTER (WHERE status = 'paid'), 0),
		       COUNT(*)
		FROM cost_entries WHERE project_id = $1`, projectID).
		Scan(&sum.TotalCents, &sum.PlannedCents, &sum.InvoicedCents, &sum.PaidCents, &sum.EntryCount)
	if err != nil {
		return nil, mapErr(err)
	}

	err = s.db.SelectContext(ctx, &sum.ByCategory, `
		SELECT COALESCE(e.category, b.category)            AS category,
		       COALESCE(b.budget_cents, 0)                 AS budget_cents,
		       COALESCE(e.spent_cents, 0)                  AS spent_cents,
		       COALESCE(e.entry_count, 0)                  AS entry_count
		FROM (
			SELECT category, SUM(amount_cents) AS spent_cents, COUNT(*) AS entry_count
			FROM cost_entries WHERE project_id = $1 GROUP BY category
		) e
		FULL OUTER JOIN category_budgets b
			ON b.project_id = $1 AND b.category = e.category
		WHERE b.project_id = $1 OR b.project_id IS NULL
		ORDER BY 1`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &sum, nil
}
