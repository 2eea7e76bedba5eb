package model

import (
	"fmt"
	"strings"
	"time"
)

// CostStatus is the payment state of a cost entry.
type CostStatus string

const (
	CostPlanned  CostStatus = "planned"
	CostInvoiced CostStatus = "invoiced"
	CostPaid     CostStatus = "paid"
)

// Valid reports whether s is a known cost status.
func (s CostStatus) Valid() bool {
	switch s {
	case CostPlanned, CostInvoiced, CostPaid:
		return true
	}
	return false
}

// WellKnownCategories are the categories offered by default. Free-form
// categories are allowed; these exist so imports and dashboards group
// consistently.
var WellKnownCategories = []string{
	"site_preparation",
	"foundation",
	"structure",
	"roofing",
	"windows_doors",
	"electrical",
	"plumbing",
	"heating",
	"insulation",
	"interior",
	"flooring",
	"painting",
	"landscaping",
	"permits_fees",
	"other",
}

// CostEntry is a single tracked cost on a project. AmountCents is in the
// project currency unless Currency overrides it.
type CostEntry struct {
	ID          string     `db:"id" json:"id"`
	ProjectID   string     `db:"project_id" json:"project_id"`
	Category    string     `db:"category" json:"category"`
	Title       string     `db:"title" json:"title"`
	VendorID    *string    `db:"vendor_id" json:"vendor_id,omitempty"`
	AmountCents int64      `db:"amount_cents" json:"amount_cents"`
	Currency    string     `db:"currency" json:"currency"`
	IncurredOn  time.Time  `db:"incurred_on" json:"incurred_on"`
	Status      CostStatus `db:"status" json:"status"`
	InvoiceNo   string     `db:"invoice_no" json:"invoice_no"`
	Notes       string     `db:"notes" json:"notes"`
	CreatedBy   string     `db:"created_by" json:"created_by"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

const (
	MaxTitleLength    = 300
	MaxCategoryLength = 100
	MaxNotesLength    = 10000
)

// Validate checks cost entry fields and applies defaults (category "other",
// status planned).
func (e *CostEntry) Validate() error {
	if strings.TrimSpace(e.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if len(e.Title) > MaxTitleLength {
		return fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	}
	if e.Category == "" {
		e.Category = "other"
	}
	if len(e.Category) > MaxCategoryLength {
		return fmt.Errorf("%w: category exceeds %d characters", ErrValidation, MaxCategoryLength)
	}
	if e.AmountCents < 0 {
		return fmt.Errorf("%w: amount must not be negative", ErrValidation)
	}
	if e.IncurredOn.IsZero() {
		return fmt.Errorf("%w: incurred_on date is required", ErrValidation)
	}
	if e.Status == "" {
		e.Status = CostPlanned
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown cost status %q", ErrValidation, e.Status)
	}
	if e.Currency != "" {
		e.Currency = strings.ToUpper(e.Currency)
		if len(e.Currency) != 3 {
			return fmt.Errorf("%w: currency must be a 3-letter ISO 4217 code", ErrValidation)
		}
	}
	if len(e.Notes) > MaxNotesLength {
		return fmt.Errorf("%w: notes exceed %d characters", ErrValidation, MaxNotesLength)
	}
	return nil
}

// CategoryBudget is a per-category budget line on a project.
type CategoryBudget struct {
	ProjectID   string `db:"project_id" json:"project_id"`
	Category    string `db:"category" json:"category"`
	BudgetCents int64  `db:"budget_cents" json:"budget_cents"`
}

// Validate checks a category budget line.
func (b *CategoryBudget) Validate() error {
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("%w: category is required", ErrValidation)
	}
	if b.BudgetCents < 0 {
		return fmt.Errorf("%w: budget must not be negative", ErrValidation)
	}
	return nil
}

// CostSort is a sortable cost list column.
type CostSort string

const (
	CostSortDate     CostSort = "date"
	CostSortAmount   CostSort = "amount"
	CostSortCategory CostSort = "category"
	CostSortCreated  CostSort = "created"
)

// CostFilter selects and orders cost entries for list, export, and summary
// queries. Zero values mean "no constraint".
type CostFilter struct {
	Category string
	Status   CostStatus
	VendorID string
	From     *time.Time
	To       *time.Time
	MinCents *int64
	MaxCents *int64
	Query    string // matched against title, invoice number, and notes

	Sort       CostSort
	Descending bool
	Limit      int
	Offset     int
}

const (
	DefaultCostLimit = 50
	MaxCostLimit     = 500
)

// Validate checks filter consistency and applies list defaults.
func (f *CostFilter) Validate() error {
	if f.Status != "" && !f.Status.Valid() {
		return fmt.Errorf("%w: unknown cost status %q", ErrValidation, f.Status)
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return fmt.Errorf("%w: date range from after to", ErrValidation)
	}
	if f.MinCents != nil && f.MaxCents != nil && *f.MaxCents < *f.MinCents {
		return fmt.Errorf("%w: amount range min above max", ErrValidation)
	}
	if f.Sort == "" {
		f.Sort = CostSortDate
		f.Descending = true
	}
	switch f.Sort {
	case CostSortDate, CostSortAmount, CostSortCategory, CostSortCreated:
	default:
		return fmt.Errorf("%w: unknown sort column %q", ErrValidation, f.Sort)
	}
	if f.Limit == 0 {
		f.Limit = DefaultCostLimit
	}
	if f.Limit < 1 || f.Limit > MaxCostLimit {
		return fmt.Errorf("%w: limit must be between 1 and %d", ErrValidation, MaxCostLimit)
	}
	if f.Offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", ErrValidation)
	}
	return nil
}

// CategorySummary is spent-vs-budget for one category.
type CategorySummary struct {
	Category    string `db:"category" json:"category"`
	BudgetCents int64  `db:"budget_cents" json:"budget_cents"`
	SpentCents  int64  `db:"spent_cents" json:"spent_cents"`
	EntryCount  int    `db:"entry_count" json:"entry_count"`
}

// CostSummary aggregates a project's cost entries.
type CostSummary struct {
	TotalCents    int64             `json:"total_cents"`
	PlannedCents  int64             `json:"planned_cents"`
	InvoicedCents int64             `json:"invoiced_cents"`
	PaidCents     int64             `json:"paid_cents"`
	EntryCount    int               `json:"entry_count"`
	ByCategory    []CategorySummary `json:"by_category"`
}
