// Package search exposes project-scoped full text search. The heavy
// lifting happens in PostgreSQL (generated tsvector columns, GIN indexes);
// this layer does authorization and input hygiene.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
	"github.com/fyrsmithlabs/buildledger/internal/store"
)

const (
	// DefaultLimit is the result cap when the caller does not ask for one.
	DefaultLimit = 20
	// MaxLimit bounds the result cap.
	MaxLimit = 100
	// MaxQueryLength bounds the raw query string.
	MaxQueryLength = 200
)

// Store is the persistence surface the search service needs.
type Store interface {
	Search(ctx context.Context, projectID, query string, limit int) ([]store.SearchHit, error)
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Service implements project search.
type Service struct {
	store  Store
	access Access
	logger *logging.Logger
}

// NewService creates a search service.
func NewService(st Store, access Access, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: st, access: access, logger: logger}
}

// Search runs a ranked full text query over the project's cost entries,
// contacts, documents, and milestones. Requires viewer. Empty queries are
// rejected rather than scanning everything.
func (s *Service) Search(ctx context.Context, actor *model.User, projectID, query string, limit int) ([]store.SearchHit, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", model.ErrValidation)
	}
	if len(query) > MaxQueryLength {
		return nil, fmt.Errorf("%w: search query exceeds %d characters", model.ErrValidation, MaxQueryLength)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return s.store.Search(ctx, projectID, query, limit)
}
