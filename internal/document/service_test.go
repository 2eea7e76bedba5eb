package document

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/buildledger/internal/blob"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

type memStore struct {
	docs map[string]*model.Document
}

func newMemStore() *memStore {
	return &memStore{docs: map[string]*model.Document{}}
}

func (m *memStore) CreateDocument(_ context.Context, d *model.Document) error {
	cp := *d
	m.docs[d.ID] = &cp
	return nil
}

func (m *memStore) GetDocument(_ context.Context, projectID, id string) (*model.Document, error) {
	if d, ok := m.docs[id]; ok && d.ProjectID == projectID {
		cp := *d
		return &cp, nil
	}
	return nil, model.ErrNotFound
}

func (m *memStore) ListDocuments(_ context.Context, projectID string) ([]model.Document, error) {
	var out []model.Document
	for _, d := range m.docs {
		if d.ProjectID == projectID {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *memStore) DeleteDocument(_ context.Context, projectID, id string) (string, error) {
	d, ok := m.docs[id]
	if !ok || d.ProjectID != projectID {
		return "", model.ErrNotFound
	}
	delete(m.docs, id)
	return d.StorageKey, nil
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

func newTestService(t *testing.T, cfg Config) (*Service, *memStore, blob.Store) {
	t.Helper()
	blobs, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	store := newMemStore()
	return NewService(store, blobs, roleAccess{model.RoleEditor}, cfg, nil), store, blobs
}

func TestService_UploadDownloadDelete(t *testing.T) {
	ctx := context.Background()
	svc, store, blobs := newTestService(t, Config{})

	d, err := svc.Upload(ctx, actor, &model.Document{
		ProjectID:   "p1",
		Title:       "Roof invoice",
		Filename:    "invoice-0815.pdf",
		ContentType: "application/pdf",
	}, strings.NewReader("pdf bytes"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), d.SizeBytes)
	assert.Equal(t, actor.ID, d.UploadedBy)
	assert.NotEmpty(t, d.StorageKey)

	got, rc, err := svc.Open(ctx, actor, "p1", d.ID)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
	assert.Equal(t, "invoice-0815.pdf", got.Filename)

	require.NoError(t, svc.Delete(ctx, actor, "p1", d.ID))
	assert.Empty(t, store.docs)
	_, err = blobs.Open(ctx, d.StorageKey)
	assert.ErrorIs(t, err, blob.ErrNotFound, "blob removed with the row")
}

func TestService_UploadSizeLimit(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, Config{MaxSizeBytes: 10})

	_, err := svc.Upload(ctx, actor, &model.Document{
		ProjectID: "p1", Title: "Too big", Filename: "big.bin",
	}, strings.NewReader("0123456789abcdef"))
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.Empty(t, store.docs, "no metadata row for rejected upload")
}

func TestService_UploadContentTypeAllowlist(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t, Config{ContentTypes: []string{"application/pdf", "image/jpeg"}})

	_, err := svc.Upload(ctx, actor, &model.Document{
		ProjectID: "p1", Title: "Script", Filename: "x.sh",
		ContentType: "application/x-sh",
	}, strings.NewReader("#!/bin/sh"))
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.Upload(ctx, actor, &model.Document{
		ProjectID: "p1", Title: "Plan", Filename: "plan.pdf",
		ContentType: "application/pdf; charset=binary",
	}, strings.NewReader("ok"))
	assert.NoError(t, err, "parameters after the media type are ignored")
}

func TestService_OpenMissingBlob(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService(t, Config{})

	store.docs["d1"] = &model.Document{
		ID: "d1", ProjectID: "p1", Title: "Ghost", Filename: "ghost.pdf",
		StorageKey: "nonexistent-key",
	}
	_, _, err := svc.Open(ctx, actor, "p1", "d1")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_UploadRejectsPathyFilename(t *testing.T) {
	svc, _, _ := newTestService(t, Config{})
	_, err := svc.Upload(context.Background(), actor, &model.Document{
		ProjectID: "p1", Title: "Evil", Filename: "../../etc/passwd",
	}, strings.NewReader("x"))
	assert.ErrorIs(t, err, model.ErrValidation)
}
