package store

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// SearchHit is one ranked full text search result. Kind names the source
// table: cost, contact, document, or milestone.
type SearchHit struct {
	Kind     string  `db:"kind" json:"kind"`
	ID       string  `db:"id" json:"id"`
	Title    string  `db:"title" json:"title"`
	Headline string  `db:"headline" json:"headline"`
	Rank     float64 `db:"rank" json:"rank"`
}

// searchUnionSQL queries the four searchable tables with the database's
// native tsvector machinery and merges them by rank. Every branch filters
// on project_id, so results can never leak across projects.
const searchUnionSQL = `
	WITH q AS (SELECT websearch_to_tsquery('simple', $2) AS query)
	SELECT kind, id, title, headline, rank FROM (
		SELECT 'cost' AS kind, e.id::text AS id, e.title,
		       ts_headline('simple', e.title || ' ' || e.notes, q.query) AS headline,
		       ts_rank(e.search, q.query) AS rank
		FROM cost_entries e, q
		WHERE e.project_id = $1 AND e.search @@ q.query
		UNION ALL
		SELECT 'contact', c.id::text, c.name,
		       ts_headline('simple', c.name || ' ' || c.company || ' ' || c.notes, q.query),
		       ts_rank(c.search, q.query)
		FROM contacts c, q
		WHERE c.project_id = $1 AND c.search @@ q.query
		UNION ALL
		SELECT 'document', d.id::text, d.title,
		       ts_headline('simple', d.title || ' ' || d.filename, q.query),
		       ts_rank(d.search, q.query)
		FROM documents d, q
		WHERE d.project_id = $1 AND d.search @@ q.query
		UNION ALL
		SELECT 'milestone', m.id::text, m.title,
		       ts_headline('simple', m.title || ' ' || m.description, q.query),
		       ts_rank(m.search, q.query)
		FROM milestones m, q
		WHERE m.project_id = $1 AND m.search @@ q.query
	) hits
	ORDER BY rank DESC, kind, id
	LIMIT $3`

// Search runs project-scoped full text search across cost entries,
// contacts, documents, and milestones.
func (s *Store) Search(ctx context.Context, projectID, query string, limit int) ([]SearchHit, error) {
	var hits []SearchHit
	if err := s.db.SelectContext(ctx, &hits, searchUnionSQL, projectID, query, limit); err != nil {
		return nil, fmt.Errorf("search: %w", mapErr(err))
	}
	return hits, nil
}

// ProjectCounts returns entity counts used by the dashboard.
type ProjectCounts struct {
	Contacts   int `db:"contacts" json:"contacts"`
	Documents  int `db:"documents" json:"documents"`
	Milestones int `db:"milestones" json:"milestones"`
	Members    int `db:"members" json:"members"`
}

// CountProjectEntities returns the dashboard's count block in one query.
func (s *Store) CountProjectEntities(ctx context.Context, projectID string) (*ProjectCounts, error) {
	var c ProjectCounts
	err := s.db.GetContext(ctx, &c, `
		SELECT
			(SELECT COUNT(*) FROM contacts WHERE project_id = $1)    AS contacts,
			(SELECT COUNT(*) FROM documents WHERE project_id = $1)   AS documents,
			(SELECT COUNT(*) FROM milestones WHERE project_id = $1)  AS milestones,
			(SELECT COUNT(*) FROM memberships WHERE project_id = $1) AS members`, projectID)
	if err != nil {
		return nil, mapErr(err)
	}
	return &c, nil
}

// RecentCostEntries returns the newest cost entries for the dashboard feed.
func (s *Store) RecentCostEntries(ctx context.Context, projectID string, limit int) ([]model.CostEntry, error) {
	var entries []model.CostEntry
	err := s.db.SelectContext(ctx, &entries, `
		SELECT id, project_id, category, title, vendor_id, amount_cents, currency,
		       incurred_on, status, invoice_no, notes, created_by, created_at, updated_at
		FROM cost_entries WHERE project_id = $1
		ORDER BY created_at DESC LIMIT $2`, projectID, limit)
	if err != nil {
		return nil, mapErr(err)
	}
	return entries, nil
}
