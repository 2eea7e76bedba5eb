// Package importer loads cost entries from CSV files.
//
// The caller supplies a column mapping from CSV headers to cost fields, so
// arbitrary bank or spreadsheet exports import without reshaping. Rows are
// validated one by one; a real run writes all accepted rows in a single
// transaction and reports the rejected ones, or aborts entirely when
// all-or-nothing is requested.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Importable cost fields. Mapping values must come from this set.
const (
	FieldTitle     = "title"
	FieldAmount    = "amount"
	FieldDate      = "date"
	FieldCategory  = "category"
	FieldStatus    = "status"
	FieldInvoiceNo = "invoice_no"
	FieldNotes     = "notes"
	FieldCurrency  = "currency"
)

// RequiredFields must all be mapped for an import to start.
var RequiredFields = []string{FieldTitle, FieldAmount, FieldDate}

var knownFields = map[string]bool{
	FieldTitle: true, FieldAmount: true, FieldDate: true, FieldCategory: true,
	FieldStatus: true, FieldInvoiceNo: true, FieldNotes: true, FieldCurrency: true,
}

// MaxRows bounds a single import.
const MaxRows = 10000

// Mapping maps CSV header names to cost fields. Header matching is
// case-insensitive and whitespace-trimmed.
type Mapping map[string]string

// Options control one import run.
type Options struct {
	Mapping      Mapping
	DryRun       bool
	AllOrNothing bool
}

// RowError is one rejected CSV row. Line is 1-based and counts the header.
type RowError struct {
	Line    int    `json:"line"`
	Message string `json:"message"`
}

// Report summarizes an import run. On a dry run or an aborted
// all-or-nothing run, Imported is zero and Accepted counts the rows that
// would have landed.
type Report struct {
	Total    int        `json:"total"`
	Accepted int        `json:"accepted"`
	Imported int        `json:"imported"`
	DryRun   bool       `json:"dry_run"`
	Rejected []RowError `json:"rejected,omitempty"`
}

// Store is the persistence surface the importer needs.
type Store interface {
	CreateCostEntries(ctx context.Context, entries []model.CostEntry) error
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Service imports cost entries.
type Service struct {
	store  Store
	access Access
	logger *logging.Logger
	now    func() time.Time
}

// NewService creates an importer.
func NewService(store Store, access Access, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, access: access, logger: logger, now: time.Now}
}

// ImportCosts reads CSV from r and imports cost entries into the project.
// Requires editor.
func (s *Service) ImportCosts(ctx context.Context, actor *model.User, projectID string, r io.Reader, opts Options) (*Report, error) {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleEditor); err != nil {
		return nil, err
	}

	cols, reader, err := readHeader(r, opts.Mapping)
	if err != nil {
		return nil, err
	}

	report := &Report{DryRun: opts.DryRun}
	var accepted []model.CostEntry
	now := s.now().UTC()
	line := 1 // header

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			report.Total++
			report.Rejected = append(report.Rejected, RowError{Line: line, Message: "malformed CSV row"})
			continue
		}
		report.Total++
		if report.Total > MaxRows {
			return nil, fmt.Errorf("%w: import exceeds %d rows", model.ErrValidation, MaxRows)
		}

		entry, err := buildEntry(record, cols, projectID, actor.ID, now)
		if err != nil {
			report.Rejected = append(report.Rejected, RowError{Line: line, Message: err.Error()})
			continue
		}
		accepted = append(accepted, *entry)
	}
	report.Accepted = len(accepted)

	if opts.AllOrNothing && len(report.Rejected) > 0 {
		return report, fmt.Errorf("%w: %d of %d rows invalid", model.ErrValidation, len(report.Rejected), report.Total)
	}
	if opts.DryRun {
		return report, nil
	}

	if err := s.store.CreateCostEntries(ctx, accepted); err != nil {
		return nil, fmt.Errorf("write imported entries: %w", err)
	}
	report.Imported = len(accepted)

	s.logger.Info(ctx, "cost import finished",
		zap.String("project_id", projectID),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", len(report.Rejected)))
	return report, nil
}

// readHeader validates the mapping against the CSV header and returns the
// field -> column index table.
func readHeader(r io.Reader, mapping Mapping) (map[string]int, *csv.Reader, error) {
	if len(mapping) == 0 {
		return nil, nil, fmt.Errorf("%w: column mapping is required", model.ErrValidation)
	}

	normalized := make(map[string]string, len(mapping)) // header -> field
	for header, field := range mapping {
		field = strings.ToLower(strings.TrimSpace(field))
		if !knownFields[field] {
			return nil, nil, fmt.Errorf("%w: unknown field %q in mapping", model.ErrValidation, field)
		}
		normalized[normalizeHeader(header)] = field
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("%w: cannot read CSV header", model.ErrValidation)
	}

	cols := map[string]int{}
	for i, name := range header {
		if field, ok := normalized[normalizeHeader(name)]; ok {
			cols[field] = i
		}
	}
	for _, required := range RequiredFields {
		if _, ok := cols[required]; !ok {
			return nil, nil, fmt.Errorf("%w: required field %q is not mapped to any CSV column", model.ErrValidation, required)
		}
	}
	return cols, reader, nil
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

func buildEntry(record []string, cols map[string]int, projectID, actorID string, now time.Time) (*model.CostEntry, error) {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	amount, err := ParseAmount(get(FieldAmount))
	if err != nil {
		return nil, err
	}
	date, err := ParseDate(get(FieldDate))
	if err != nil {
		return nil, err
	}

	entry := &model.CostEntry{
		ID:          uuid.New().String(),
		ProjectID:   projectID,
		Title:       get(FieldTitle),
		Category:    get(FieldCategory),
		AmountCents: amount,
		Currency:    get(FieldCurrency),
		IncurredOn:  date,
		Status:      model.CostStatus(strings.ToLower(get(FieldStatus))),
		InvoiceNo:   get(FieldInvoiceNo),
		Notes:       get(FieldNotes),
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := entry.Validate(); err != nil {
		return nil, err
	}
	return entry, nil
}

// ParseAmount converts an amount string to cents. Accepted forms:
// "1,234.56", "1234.56", "1234". Commas are thousands separators; at most
// two decimal digits.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: amount is required", model.ErrValidation)
	}
	negative := false
	if strings.HasPrefix(s, "-") {
		negative = true
		s = s[1:]
	}
	s = strings.ReplaceAll(s, ",", "")

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("%w: invalid amount %q", model.ErrValidation, s)
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("%w: amount %q has more than two decimal places", model.ErrValidation, s)
	}
	for frac != "" && len(frac) < 2 {
		frac += "0"
	}
	if frac == "" {
		frac = "00"
	}

	var cents int64
	for _, r := range whole + frac {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: invalid amount character %q", model.ErrValidation, r)
		}
		cents = cents*10 + int64(r-'0')
		if cents < 0 {
			return 0, fmt.Errorf("%w: amount overflows", model.ErrValidation)
		}
	}
	if negative {
		cents = -cents
	}
	return cents, nil
}

// dateLayouts are the accepted incurred-on formats, ISO first.
var dateLayouts = []string{"2006-01-02", "02.01.2006"}

// ParseDate parses an incurred-on date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: date is required", model.ErrValidation)
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognized date %q (want 2006-01-02 or 02.01.2006)", model.ErrValidation, s)
}
