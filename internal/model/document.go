package model

import (
	"fmt"
	"strings"
	"time"
)

// Document is file metadata for an uploaded project document (invoice scan,
// plan, permit, photo). The bytes live in the blob store under StorageKey;
// row and blob are created and deleted together.
type Document struct {
	ID          string    `db:"id" json:"id"`
	ProjectID   string    `db:"project_id" json:"project_id"`
	Title       string    `db:"title" json:"title"`
	Filename    string    `db:"filename" json:"filename"`
	ContentType string    `db:"content_type" json:"content_type"`
	SizeBytes   int64     `db:"size_bytes" json:"size_bytes"`
	StorageKey  string    `db:"storage_key" json:"-"`
	CostEntryID *string   `db:"cost_entry_id" json:"cost_entry_id,omitempty"`
	ContactID   *string   `db:"contact_id" json:"contact_id,omitempty"`
	UploadedBy  string    `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

const MaxFilenameLength = 255

// Validate checks document metadata. Size limits and content-type allowlists
// are enforced by the document service against its configuration, not here.
func (d *Document) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("%w: document title is required", ErrValidation)
	}
	if len(d.Title) > MaxTitleLength {
		return fmt.Errorf("%w: document title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if d.Filename == "" {
		return fmt.Errorf("%w: filename is required", ErrValidation)
	}
	if len(d.Filename) > MaxFilenameLength {
		return fmt.Errorf("%w: filename exceeds %d characters", ErrValidation, MaxFilenameLength)
	}
	if strings.ContainsAny(d.Filename, "/\\") {
		return fmt.Errorf("%w: filename must not contain path separators", ErrValidation)
	}
	if d.SizeBytes < 0 {
		return fmt.Errorf("%w: size must not be negative", ErrValidation)
	}
	return nil
}
