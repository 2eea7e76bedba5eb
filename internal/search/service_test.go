package search

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/buildledger/internal/model"
	"github.com/fyrsmithlabs/buildledger/internal/store"
)

type memSearchStore struct {
	gotQuery string
	gotLimit int
	hits     []store.SearchHit
}

func (m *memSearchStore) Search(_ context.Context, _, query string, limit int) ([]store.SearchHit, error) {
	m.gotQuery = query
	m.gotLimit = limit
	return m.hits, nil
}

type roleAccess struct {
	role model.Role
}

func (a roleAccess) Authorize(_ context.Context, projectID, userID string, min model.Role) (*model.Membership, error) {
	if !a.role.AtLeast(min) {
		return nil, model.ErrPermissionDenied
	}
	return &model.Membership{ProjectID: projectID, UserID: userID, Role: a.role}, nil
}

var actor = &model.User{ID: "user-1"}

func TestService_Search(t *testing.T) {
	st := &memSearchStore{hits: []store.SearchHit{{Kind: "cost", ID: "c1", Title: "Roof tiles"}}}
	svc := NewService(st, roleAccess{model.RoleViewer}, nil)

	hits, err := svc.Search(context.Background(), actor, "p1", "  roof  ", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "roof", st.gotQuery, "query is trimmed")
	assert.Equal(t, DefaultLimit, st.gotLimit)
}

func TestService_SearchValidation(t *testing.T) {
	svc := NewService(&memSearchStore{}, roleAccess{model.RoleViewer}, nil)

	_, err := svc.Search(context.Background(), actor, "p1", "   ", 10)
	assert.ErrorIs(t, err, model.ErrValidation, "empty query")

	long := make([]byte, MaxQueryLength+1)
	for i := range long {
		long[i] = 'a'
	}
	_, err = svc.Search(context.Background(), actor, "p1", string(long), 10)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestService_SearchLimitClamp(t *testing.T) {
	st := &memSearchStore{}
	svc := NewService(st, roleAccess{model.RoleViewer}, nil)

	_, err := svc.Search(context.Background(), actor, "p1", "roof", 10000)
	require.NoError(t, err)
	assert.Equal(t, MaxLimit, st.gotLimit)
}

func TestService_SearchRequiresMembership(t *testing.T) {
	svc := NewService(&memSearchStore{}, roleAccess{""}, nil)
	_, err := svc.Search(context.Background(), actor, "p1", "roof", 10)
	assert.Error(t, err)
}
