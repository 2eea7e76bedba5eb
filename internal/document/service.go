// Package document implements project documents: metadata in PostgreSQL,
// bytes in a blob store. Row and blob live and die together; a blob
// cleanup failure after the row is gone is logged, never surfaced.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/blob"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Store is the persistence surface the document service needs.
type Store interface {
	CreateDocument(ctx context.Context, d *model.Document) error
	GetDocument(ctx context.Context, projectID, id string) (*model.Document, error)
	ListDocuments(ctx context.Context, projectID string) ([]model.Document, error)
	DeleteDocument(ctx context.Context, projectID, id string) (storageKey string, err error)
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Config holds upload limits.
type Config struct {
	MaxSizeBytes int64
	ContentTypes []string // allowlist; empty allows all
}

// Service implements document upload, download, listing, and deletion.
type Service struct {
	store  Store
	blobs  blob.Store
	access Access
	cfg    Config
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates a document service.
func NewService(store Store, blobs blob.Store, access Access, cfg Config, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	if cfg.MaxSizeBytes == 0 {
		cfg.MaxSizeBytes = 20 * 1024 * 1024
	}
	return &Service{store: store, blobs: blobs, access: access, cfg: cfg, logger: logger, now: time.Now}
}

// Upload stores the bytes and the metadata row. Requires editor. The reader
// is consumed up to the configured size limit; anything larger is rejected
// and the partial blob removed.
func (s *Service) Upload(ctx context.Context, actor *model.User, d *model.Document, r io.Reader) (*model.Document, error) {
	if _, err := s.access.Authorize(ctx, d.ProjectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}
	return s.upload(ctx, actor, d, r)
}

func (s *Service) upload(ctx context.Context, actor *model.User, d *model.Document, r io.Reader) (*model.Document, error) {
	if err := s.checkContentType(d.ContentType); err != nil {
		return nil, err
	}

	d.ID = uuid.New().String()
	d.StorageKey = uuid.New().String()
	d.UploadedBy = actor.ID
	d.CreatedAt = s.now().UTC()
	if err := d.Validate(); err != nil {
		return nil, err
	}

	// One byte beyond the limit distinguishes "exactly at limit" from
	// "too large" without buffering the whole upload.
	n, err := s.blobs.Put(ctx, d.StorageKey, io.LimitReader(r, s.cfg.MaxSizeBytes+1))
	if err != nil {
		return nil, fmt.Errorf("store document bytes: %w", err)
	}
	if n > s.cfg.MaxSizeBytes {
		s.cleanupBlob(ctx, d.StorageKey)
		return nil, fmt.Errorf("%w: document exceeds %d bytes", model.ErrValidation, s.cfg.MaxSizeBytes)
	}
	d.SizeBytes = n

	if err := s.store.CreateDocument(ctx, d); err != nil {
		s.cleanupBlob(ctx, d.StorageKey)
		return nil, fmt.Errorf("create document: %w", err)
	}

	s.logger.Info(ctx, "document uploaded",
		zap.String("document_id", d.ID), zap.Int64("size_bytes", n))
	return d, nil
}

// Get fetches document metadata. Requires viewer.
func (s *Service) Get(ctx context.Context, actor *model.User, projectID, id string) (*model.Document, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.GetDocument(ctx, projectID, id)
}

// List returns a project's documents. Requires viewer.
func (s *Service) List(ctx context.Context, actor *model.User, projectID string) ([]model.Document, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, err
	}
	return s.store.ListDocuments(ctx, projectID)
}

// Open returns the metadata and a reader over the document bytes. Requires
// viewer. A row whose blob went missing reads as not-found and is logged.
func (s *Service) Open(ctx context.Context, actor *model.User, projectID, id string) (*model.Document, io.ReadCloser, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return nil, nil, err
	}
	d, err := s.store.GetDocument(ctx, projectID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, d.StorageKey)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			s.logger.Error(ctx, "document blob missing",
				zap.String("document_id", d.ID), zap.String("storage_key", d.StorageKey))
			return nil, nil, model.ErrNotFound
		}
		return nil, nil, fmt.Errorf("open document bytes: %w", err)
	}
	return d, rc, nil
}

// Delete removes the metadata row, then the blob. Requires editor.
func (s *Service) Delete(ctx context.Context, actor *model.User, projectID, id string) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return err
	}
	key, err := s.store.DeleteDocument(ctx, projectID, id)
	if err != nil {
		return err
	}
	s.cleanupBlob(ctx, key)
	return nil
}

func (s *Service) cleanupBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn(ctx, "orphaned document blob",
			zap.String("storage_key", key), zap.Error(err))
	}
}

func (s *Service) checkContentType(ct string) error {
	if len(s.cfg.ContentTypes) == 0 {
		return nil
	}
	// Ignore parameters like "; charset=utf-8".
	base := strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	for _, allowed := range s.cfg.ContentTypes {
		if strings.EqualFold(base, allowed) {
			return nil
		}
	}
	return fmt.Errorf("%w: content type %q not allowed", model.ErrValidation, ct)
}
