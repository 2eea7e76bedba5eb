package timeline

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

type memStore struct {
	milestones map[string]*model.Milestone
	nextOrder  int
}

func newMemStore() *memStore {
	return &memStore{milestones: map[string]*model.Milestone{}}
}

func (m *memStore) CreateMilestone(_ context.Context, ms *model.Milestone) error {
	ms.SortOrder = m.nextOrder
	m.nextOrder++
	cp := *ms
	m.milestones[ms.ID] = &cp
	return nil
}

func (m *memStore) GetMilestone(_ context.Context, projectID, id string) (*model.Milestone, error) {
	if ms, ok := m.milestones[id]; ok && ms.ProjectID == projectID {
		cp := *ms
		return &cp, nil
	}
	return nil, model.ErrNotFound
}

func (m *memStore) ListMilestones(_ context.Context, projectID string) ([]model.Milestone, error) {
	var out []model.Milestone
	for _, ms := range m.milestones {
		if ms.ProjectID == projectID {
			out = append(out, *ms)
		}
	}
	return out, nil
}

func (m *memStore) UpdateMilestone(_ context.Context, ms *model.Milestone) error {
	if old, ok := m.milestones[ms.ID]; !ok || old.ProjectID != ms.ProjectID {
		return model.ErrNotFound
	}
	cp := *ms
	m.milestones[ms.ID] = &cp
	return nil
}

func (m *memStore) ReorderMilestones(_ context.Context, projectID string, orderedIDs []string) error {
	for i, id := range orderedIDs {
		ms, ok := m.milestones[id]
		if !ok || ms.ProjectID != projectID {
			return model.ErrNotFound
		}
		ms.SortOrder = i
	}
	return nil
}

func (m *memStore) DeleteMilestone(_ context.Context, projectID, id string) error {
	if ms, ok := m.milestones[id]; !ok || ms.ProjectID != projectID {
		return model.ErrNotFound
	}
	delete(m.milestones, id)
	return nil
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

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestService_CreateDefaultsStatus(t *testing.T) {
	svc := NewService(newMemStore(), roleAccess{model.RoleEditor}, nil)

	ms, err := svc.Create(context.Background(), actor, &model.Milestone{
		ProjectID: "p1", Title: "Foundation poured",
	})
	require.NoError(t, err)
	assert.Equal(t, model.MilestonePending, ms.Status)
}

func TestService_ReorderValidation(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemStore(), roleAccess{model.RoleEditor}, nil)

	err := svc.Reorder(ctx, actor, "p1", nil)
	assert.ErrorIs(t, err, model.ErrValidation)

	err = svc.Reorder(ctx, actor, "p1", []string{"a", "a"})
	assert.ErrorIs(t, err, model.ErrValidation, "duplicate ids")
}

func TestService_Reorder(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, roleAccess{model.RoleEditor}, nil)

	a, err := svc.Create(ctx, actor, &model.Milestone{ProjectID: "p1", Title: "A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, actor, &model.Milestone{ProjectID: "p1", Title: "B"})
	require.NoError(t, err)

	require.NoError(t, svc.Reorder(ctx, actor, "p1", []string{b.ID, a.ID}))
	assert.Equal(t, 0, store.milestones[b.ID].SortOrder)
	assert.Equal(t, 1, store.milestones[a.ID].SortOrder)
}

func TestService_UpdateKeepsSortOrder(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	svc := NewService(store, roleAccess{model.RoleEditor}, nil)

	ms, err := svc.Create(ctx, actor, &model.Milestone{ProjectID: "p1", Title: "Raw build"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, actor, &model.Milestone{
		ID: ms.ID, ProjectID: "p1", Title: "Raw build done",
		Status: model.MilestoneDone, SortOrder: 99,
	})
	require.NoError(t, err)
	assert.Equal(t, ms.SortOrder, updated.SortOrder, "position only changes via reorder")
}

func TestUpcomingAndOverdue(t *testing.T) {
	now := time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)
	milestones := []model.Milestone{
		{Title: "past due", Status: model.MilestonePending, PlannedEnd: datePtr(2026, 6, 1)},
		{Title: "done late", Status: model.MilestoneDone, PlannedEnd: datePtr(2026, 6, 1)},
		{Title: "soon", Status: model.MilestoneInProgress, PlannedEnd: datePtr(2026, 6, 20)},
		{Title: "far out", Status: model.MilestonePending, PlannedEnd: datePtr(2026, 9, 1)},
		{Title: "no dates", Status: model.MilestonePending},
	}

	overdue := Overdue(milestones, now)
	require.Len(t, overdue, 1)
	assert.Equal(t, "past due", overdue[0].Title)

	upcoming := Upcoming(milestones, now, 14)
	require.Len(t, upcoming, 1)
	assert.Equal(t, "soon", upcoming[0].Title)
}
