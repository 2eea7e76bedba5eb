package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
	"github.com/fyrsmithlabs/buildledger/internal/export"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
	"github.com/fyrsmithlabs/buildledger/internal/project"
)

// memStore backs auth and project services for handler tests.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*model.User
	sessions    map[string]*model.Session
	projects    map[string]*model.Project
	memberships map[string]*model.Membership
	invites     map[string]*model.Invite
	costs       []model.CostEntry
}

func newMemStore() *memStore {
	return &memStore{
		users:       map[string]*model.User{},
		sessions:    map[string]*model.Session{},
		projects:    map[string]*model.Project{},
		memberships: map[string]*model.Membership{},
		invites:     map[string]*model.Invite{},
	}
}

func memKey(projectID, userID string) string { return projectID + "/" + userID }

func (m *memStore) CreateUser(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.users {
		if other.Email == u.Email {
			return model.ErrAlreadyExists
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *memStore) GetUser(_ context.Context, id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return u, nil
}

func (m *memStore) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	email = model.NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memStore) CreateSession(_ context.Context, sess *model.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.TokenDigest] = sess
	return nil
}

func (m *memStore) GetSession(_ context.Context, digest string) (*model.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.sessions[digest]
	if !ok {
		return nil, model.ErrNotFound
	}
	return sess, nil
}

func (m *memStore) DeleteSession(_ context.Context, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, digest)
	return nil
}

func (m *memStore) PurgeExpiredSessions(_ context.Context, now time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for digest, sess := range m.sessions {
		if sess.Expired(now) {
			delete(m.sessions, digest)
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.projects[p.ID] = p
	m.memberships[memKey(p.ID, p.CreatedBy)] = &model.Membership{
		ProjectID: p.ID, UserID: p.CreatedBy, Role: model.RoleOwner, CreatedAt: p.CreatedAt,
	}
	return nil
}

func (m *memStore) GetProject(_ context.Context, id string) (*model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.projects[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListProjectsForUser(_ context.Context, userID string) ([]model.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Project
	for _, mem := range m.memberships {
		if mem.UserID == userID {
			out = append(out, *m.projects[mem.ProjectID])
		}
	}
	return out, nil
}

func (m *memStore) UpdateProject(_ context.Context, p *model.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[p.ID]; !ok {
		return model.ErrNotFound
	}
	m.projects[p.ID] = p
	return nil
}

func (m *memStore) DeleteProject(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.projects[id]; !ok {
		return model.ErrNotFound
	}
	delete(m.projects, id)
	return nil
}

func (m *memStore) GetMembership(_ context.Context, projectID, userID string) (*model.Membership, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[memKey(projectID, userID)]
	if !ok {
		return nil, model.ErrNotFound
	}
	return mem, nil
}

func (m *memStore) ListMembers(_ context.Context, projectID string) ([]model.Member, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Member
	for _, mem := range m.memberships {
		if mem.ProjectID == projectID {
			u := m.users[mem.UserID]
			out = append(out, model.Member{Membership: *mem, Email: u.Email, Name: u.Name})
		}
	}
	return out, nil
}

func (m *memStore) UpdateMembershipRole(_ context.Context, projectID, userID string, role model.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	mem, ok := m.memberships[memKey(projectID, userID)]
	if !ok {
		return model.ErrNotFound
	}
	mem.Role = role
	return nil
}

func (m *memStore) DeleteMembership(_ context.Context, projectID, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(projectID, userID)
	if _, ok := m.memberships[key]; !ok {
		return model.ErrNotFound
	}
	delete(m.memberships, key)
	return nil
}

func (m *memStore) CountOwners(_ context.Context, projectID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, mem := range m.memberships {
		if mem.ProjectID == projectID && mem.Role == model.RoleOwner {
			n++
		}
	}
	return n, nil
}

func (m *memStore) MemberEmailExists(_ context.Context, projectID, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, mem := range m.memberships {
		if mem.ProjectID == projectID && m.users[mem.UserID].Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) CreateInvite(_ context.Context, inv *model.Invite) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invites[inv.ID] = inv
	return nil
}

func (m *memStore) GetInviteByTokenDigest(_ context.Context, digest string) (*model.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.TokenDigest == digest {
			return inv, nil
		}
	}
	return nil, model.ErrNotFound
}

func (m *memStore) ListPendingInvites(_ context.Context, projectID string, now time.Time) ([]model.Invite, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.Invite
	for _, inv := range m.invites {
		if inv.ProjectID == projectID && inv.Pending(now) {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (m *memStore) HasPendingInvite(_ context.Context, projectID, email string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inv := range m.invites {
		if inv.ProjectID == projectID && inv.Email == email && inv.Pending(now) {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) AcceptInvite(_ context.Context, inv *model.Invite, userID string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := memKey(inv.ProjectID, userID)
	if _, ok := m.memberships[key]; ok {
		return model.ErrAlreadyExists
	}
	m.memberships[key] = &model.Membership{
		ProjectID: inv.ProjectID, UserID: userID, Role: inv.Role, CreatedAt: now,
	}
	stored := m.invites[inv.ID]
	stored.AcceptedAt = &now
	return nil
}

func (m *memStore) DeleteInvite(_ context.Context, projectID, inviteID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[inviteID]
	if !ok || inv.ProjectID != projectID {
		return model.ErrNotFound
	}
	delete(m.invites, inviteID)
	return nil
}

func (m *memStore) ListCostEntries(_ context.Context, projectID string, _ model.CostFilter) ([]model.CostEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.CostEntry
	for _, e := range m.costs {
		if e.ProjectID == projectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) CostSummary(_ context.Context, projectID string) (*model.CostSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sum := &model.CostSummary{}
	for _, e := range m.costs {
		if e.ProjectID == projectID {
			sum.TotalCents += e.AmountCents
			sum.EntryCount++
		}
	}
	return sum, nil
}

func (m *memStore) ListMilestones(_ context.Context, _ string) ([]model.Milestone, error) {
	return nil, nil
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(context.Context) error { return p.err }

func newTestServer(t *testing.T, db Pinger) (*Server, *memStore) {
	t.Helper()
	store := newMemStore()
	logger := logging.NewNop()
	authSvc := auth.NewService(store, auth.Config{BcryptCost: bcrypt.MinCost}, logger)
	projSvc := project.NewService(store, nil, project.Config{}, logger)
	exportSvc := export.NewService(store, projSvc, logger)

	srv, err := NewServer(Services{
		Auth:     authSvc,
		Projects: projSvc,
		Export:   exportSvc,
		DB:       db,
	}, logger, &Config{Host: "localhost", Port: 0})
	require.NoError(t, err)
	return srv, store
}

func doJSON(srv *Server, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func registerAndLogin(t *testing.T, srv *Server, email string) string {
	t.Helper()
	rec := doJSON(srv, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email": email, "name": "Test User", "password": "correct horse battery",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(srv, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email": email, "password": "correct horse battery",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	rec := doJSON(srv, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestReady_DatabaseDown(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{err: errors.New("connection refused")})
	rec := doJSON(srv, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unavailable", resp.Error.Code)
}

func TestAuthFlow(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	token := registerAndLogin(t, srv, "alice@example.com")

	rec := doJSON(srv, http.MethodGet, "/api/v1/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var me model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &me))
	assert.Equal(t, "alice@example.com", me.Email)

	rec = doJSON(srv, http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequired(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	rec := doJSON(srv, http.MethodGet, "/api/v1/projects", "", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unauthorized", resp.Error.Code)
}

func TestProjectLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	token := registerAndLogin(t, srv, "owner@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", token, map[string]interface{}{
		"name": "Roof renovation", "currency": "EUR", "budget_cents": 1500000,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var p model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, model.ProjectPlanning, p.Status)

	rec = doJSON(srv, http.MethodGet, "/api/v1/projects/"+p.ID, token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(srv, http.MethodGet, "/api/v1/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var list []model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Len(t, list, 1)

	rec = doJSON(srv, http.MethodDelete, "/api/v1/projects/"+p.ID, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestProjectHiddenFromNonMembers(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	ownerToken := registerAndLogin(t, srv, "owner@example.com")
	strangerToken := registerAndLogin(t, srv, "stranger@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", ownerToken, map[string]interface{}{
		"name": "Kitchen remodel",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = doJSON(srv, http.MethodGet, "/api/v1/projects/"+p.ID, strangerToken, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "not_found", resp.Error.Code)
}

func TestInviteFlow(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	ownerToken := registerAndLogin(t, srv, "owner@example.com")
	partnerToken := registerAndLogin(t, srv, "partner@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", ownerToken, map[string]interface{}{
		"name": "Garden house",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = doJSON(srv, http.MethodPost, fmt.Sprintf("/api/v1/projects/%s/invites", p.ID), ownerToken,
		map[string]string{"email": "partner@example.com", "role": "editor"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// The cleartext token is delivered by email only, never in the
	// response body.
	assert.NotContains(t, rec.Body.String(), "token")

	var inv model.Invite
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &inv))
	assert.Equal(t, model.RoleEditor, inv.Role)

	// Accepting with a made-up token fails.
	rec = doJSON(srv, http.MethodPost, "/api/v1/invites/accept?token=bogus", partnerToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Members list still has just the owner.
	rec = doJSON(srv, http.MethodGet, fmt.Sprintf("/api/v1/projects/%s/members", p.ID), ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var members []model.Member
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &members))
	assert.Len(t, members, 1)
}

func TestExportHiddenFromNonMembers(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	ownerToken := registerAndLogin(t, srv, "owner@example.com")
	strangerToken := registerAndLogin(t, srv, "stranger@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", ownerToken, map[string]interface{}{
		"name": "Attic conversion",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	for _, target := range []string{
		"/api/v1/projects/" + p.ID + "/export/costs.csv",
		"/api/v1/projects/" + p.ID + "/export/costs.xlsx",
		"/api/v1/projects/" + p.ID + "/export/summary.pdf",
	} {
		rec = doJSON(srv, http.MethodGet, target, strangerToken, nil)
		require.Equal(t, http.StatusNotFound, rec.Code, target)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), target)
		assert.Equal(t, "not_found", resp.Error.Code, target)
	}
}

func TestExportInvalidFilter(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	token := registerAndLogin(t, srv, "owner@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", token, map[string]interface{}{
		"name": "Attic conversion",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	rec = doJSON(srv, http.MethodGet,
		"/api/v1/projects/"+p.ID+"/export/costs.csv?from=2026-01-02&to=2026-01-01", token, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error.Code)
}

func TestExportCSV(t *testing.T) {
	srv, store := newTestServer(t, stubPinger{})
	token := registerAndLogin(t, srv, "owner@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", token, map[string]interface{}{
		"name": "Attic conversion",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var p model.Project
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))

	store.costs = append(store.costs, model.CostEntry{
		ID: "c1", ProjectID: p.ID, Category: "roofing", Title: "Shingles",
		AmountCents: 123456, Currency: "EUR", Status: model.CostPaid,
		IncurredOn: time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC),
	})

	rec = doJSON(srv, http.MethodGet, "/api/v1/projects/"+p.ID+"/export/costs.csv", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentType), "text/csv")
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "costs.csv")
	assert.Contains(t, rec.Body.String(), "date,category,title,amount,currency,status")
	assert.Contains(t, rec.Body.String(), "2026-03-14,roofing,Shingles,1234.56,EUR,paid")
}

func TestValidationErrorEnvelope(t *testing.T) {
	srv, _ := newTestServer(t, stubPinger{})
	token := registerAndLogin(t, srv, "owner@example.com")

	rec := doJSON(srv, http.MethodPost, "/api/v1/projects", token, map[string]interface{}{
		"name": "",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_failed", resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Message)
}
