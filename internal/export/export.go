// Package export renders project reports: an Excel cost report, a PDF
// project summary, and a plain CSV dump of filtered cost entries.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// Store is the persistence surface the exporter needs.
type Store interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ListCostEntries(ctx context.Context, projectID string, f model.CostFilter) ([]model.CostEntry, error)
	CostSummary(ctx context.Context, projectID string) (*model.CostSummary, error)
	ListMilestones(ctx context.Context, projectID string) ([]model.Milestone, error)
}

// Access authorizes project-scoped operations.
type Access interface {
	Authorize(ctx context.Context, projectID, userID string, min model.Role) (*model.Membership, error)
}

// Service renders exports. All exports are read-only and require viewer.
type Service struct {
	store  Store
	access Access
	logger *logging.Logger
}

// NewService creates an export service.
func NewService(store Store, access Access, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Service{store: store, access: access, logger: logger}
}

// exportFilter returns a filter covering every matching entry, not a page.
func exportFilter(f model.CostFilter) (model.CostFilter, error) {
	f.Limit = model.MaxCostLimit
	f.Offset = 0
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// collectEntries pages through the store until the filter is exhausted.
func (s *Service) collectEntries(ctx context.Context, projectID string, f model.CostFilter) ([]model.CostEntry, error) {
	var all []model.CostEntry
	for {
		page, err := s.store.ListCostEntries(ctx, projectID, f)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < f.Limit {
			return all, nil
		}
		f.Offset += f.Limit
	}
}

// CostCSV writes the filtered cost entries as CSV.
func (s *Service) CostCSV(ctx context.Context, actor *model.User, projectID string, f model.CostFilter, w io.Writer) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return err
	}
	f, err := exportFilter(f)
	if err != nil {
		return err
	}
	entries, err := s.collectEntries(ctx, projectID, f)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "category", "title", "amount", "currency", "status", "invoice_no", "notes"}); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.IncurredOn.Format("2006-01-02"),
			e.Category,
			e.Title,
			formatAmount(e.AmountCents),
			e.Currency,
			string(e.Status),
			e.InvoiceNo,
			e.Notes,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// CostExcel writes an xlsx workbook with a summary sheet and an entries
// sheet for the filtered cost entries.
func (s *Service) CostExcel(ctx context.Context, actor *model.User, projectID string, f model.CostFilter, w io.Writer) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return err
	}
	f, err := exportFilter(f)
	if err != nil {
		return err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	summary, err := s.store.CostSummary(ctx, projectID)
	if err != nil {
		return err
	}
	entries, err := s.collectEntries(ctx, projectID, f)
	if err != nil {
		return err
	}

	book := excelize.NewFile()
	defer book.Close()

	const summarySheet = "Summary"
	if err := book.SetSheetName("Sheet1", summarySheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	rows := [][]interface{}{
		{"Project", project.Name},
		{"Currency", project.Currency},
		{"Total budget", formatAmount(project.BudgetCents)},
		{"Total costs", formatAmount(summary.TotalCents)},
		{"Remaining", formatAmount(project.BudgetCents - summary.TotalCents)},
		{"Planned", formatAmount(summary.PlannedCents)},
		{"Invoiced", formatAmount(summary.InvoicedCents)},
		{"Paid", formatAmount(summary.PaidCents)},
		{},
		{"Category", "Budget", "Spent", "Entries"},
	}
	for _, c := range summary.ByCategory {
		rows = append(rows, []interface{}{
			c.Category, formatAmount(c.BudgetCents), formatAmount(c.SpentCents), c.EntryCount,
		})
	}
	if err := writeSheet(book, summarySheet, rows); err != nil {
		return err
	}

	const entriesSheet = "Entries"
	if _, err := book.NewSheet(entriesSheet); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	entryRows := [][]interface{}{
		{"Date", "Category", "Title", "Amount", "Currency", "Status", "Invoice no", "Notes"},
	}
	for _, e := range entries {
		entryRows = append(entryRows, []interface{}{
			e.IncurredOn.Format("2006-01-02"), e.Category, e.Title,
			formatAmount(e.AmountCents), e.Currency, string(e.Status), e.InvoiceNo, e.Notes,
		})
	}
	if err := writeSheet(book, entriesSheet, entryRows); err != nil {
		return err
	}

	if err := book.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(book *excelize.File, sheet string, rows [][]interface{}) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := book.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	return nil
}

// ProjectPDF writes a one-page-or-more PDF summary: budget figures,
// per-category breakdown, and the milestone timeline.
func (s *Service) ProjectPDF(ctx context.Context, actor *model.User, projectID string, w io.Writer) error {
	if _, err := s.access.Authorize(ctx, projectID, actor.ID, model.RoleViewer); err != nil {
		return err
	}
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return err
	}
	summary, err := s.store.CostSummary(ctx, projectID)
	if err != nil {
		return err
	}
	milestones, err := s.store.ListMilestones(ctx, projectID)
	if err != nil {
		return err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(project.Name, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, project.Name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	if project.Address != "" {
		pdf.CellFormat(0, 6, project.Address, "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 6, fmt.Sprintf("Status: %s", project.Status), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(0, 8, "Budget", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	money := func(label string, cents int64) {
		pdf.CellFormat(60, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, formatAmount(cents)+" "+project.Currency, "", 1, "R", false, 0, "")
	}
	money("Total budget", project.BudgetCents)
	money("Total costs", summary.TotalCents)
	money("Remaining", project.BudgetCents-summary.TotalCents)
	money("Planned", summary.PlannedCents)
	money("Invoiced", summary.InvoicedCents)
	money("Paid", summary.PaidCents)
	pdf.Ln(4)

	if len(summary.ByCategory) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Categories", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(60, 6, "Category", "B", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, "Budget", "B", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, "Spent", "B", 0, "R", false, 0, "")
		pdf.CellFormat(20, 6, "Entries", "B", 1, "R", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, c := range summary.ByCategory {
			pdf.CellFormat(60, 6, c.Category, "", 0, "L", false, 0, "")
			pdf.CellFormat(35, 6, formatAmount(c.BudgetCents), "", 0, "R", false, 0, "")
			pdf.CellFormat(35, 6, formatAmount(c.SpentCents), "", 0, "R", false, 0, "")
			pdf.CellFormat(20, 6, strconv.Itoa(c.EntryCount), "", 1, "R", false, 0, "")
		}
		pdf.Ln(4)
	}

	if len(milestones) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Timeline", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		for _, m := range milestones {
			window := plannedWindow(m)
			pdf.CellFormat(80, 6, m.Title, "", 0, "L", false, 0, "")
			pdf.CellFormat(45, 6, window, "", 0, "L", false, 0, "")
			pdf.CellFormat(25, 6, string(m.Status), "", 1, "L", false, 0, "")
		}
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func plannedWindow(m model.Milestone) string {
	format := func(t *time.Time) string {
		if t == nil {
			return "-"
		}
		return t.Format("2006-01-02")
	}
	return format(m.PlannedStart) + " - " + format(m.PlannedEnd)
}

// formatAmount renders cents as a decimal amount string.
func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
