package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

type memStore struct {
	project    *model.Project
	entries    []model.CostEntry
	summary    *model.CostSummary
	milestones []model.Milestone
}

func (m *memStore) GetProject(_ context.Context, _ string) (*model.Project, error) {
	return m.project, nil
}

func (m *memStore) ListCostEntries(_ context.Context, _ string, f model.CostFilter) ([]model.CostEntry, error) {
	if f.Offset >= len(m.entries) {
		return nil, nil
	}
	end := f.Offset + f.Limit
	if end > len(m.entries) {
		end = len(m.entries)
	}
	return m.entries[f.Offset:end], nil
}

func (m *memStore) CostSummary(_ context.Context, _ string) (*model.CostSummary, error) {
	return m.summary, nil
}

func (m *memStore) ListMilestones(_ context.Context, _ string) ([]model.Milestone, error) {
	return m.milestones, nil
}

type allowAll struct{}

func (allowAll) Authorize(_ context.Context, projectID, userID string, _ model.Role) (*model.Membership, error) {
	return &model.Membership{ProjectID: projectID, UserID: userID, Role: model.RoleOwner}, nil
}

var actor = &model.User{ID: "user-1"}

func fixtureStore() *memStore {
	end := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	return &memStore{
		project: &model.Project{
			ID: "p1", Name: "Barn conversion", Currency: "EUR",
			BudgetCents: 25000000, Status: model.ProjectActive,
		},
		entries: []model.CostEntry{
			{
				Title: "Roof tiles", Category: "roofing", AmountCents: 452000,
				Currency: "EUR", Status: model.CostPaid,
				IncurredOn: time.Date(2026, 3, 12, 0, 0, 0, 0, time.UTC),
				InvoiceNo:  "R-1001",
			},
			{
				Title: "Gravel, washed", Category: "site_preparation", AmountCents: 31200,
				Currency: "EUR", Status: model.CostPlanned,
				IncurredOn: time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			},
		},
		summary: &model.CostSummary{
			TotalCents: 483200, PaidCents: 452000, PlannedCents: 31200, EntryCount: 2,
			ByCategory: []model.CategorySummary{
				{Category: "roofing", BudgetCents: 1000000, SpentCents: 452000, EntryCount: 1},
				{Category: "site_preparation", SpentCents: 31200, EntryCount: 1},
			},
		},
		milestones: []model.Milestone{
			{Title: "Roof done", Status: model.MilestoneDone, PlannedEnd: &end},
		},
	}
}

func TestCostCSV(t *testing.T) {
	svc := NewService(fixtureStore(), allowAll{}, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.CostCSV(context.Background(), actor, "p1", model.CostFilter{}, &buf))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3, "header plus two entries")
	assert.Equal(t, "date", records[0][0])
	assert.Equal(t, []string{"2026-03-12", "roofing", "Roof tiles", "4520.00", "EUR", "paid", "R-1001", ""}, records[1])
	assert.Equal(t, "Gravel, washed", records[2][2], "commas survive quoting")
	assert.Equal(t, "312.00", records[2][3])
}

func TestCostCSV_InvalidFilter(t *testing.T) {
	svc := NewService(fixtureStore(), allowAll{}, nil)
	var buf bytes.Buffer
	err := svc.CostCSV(context.Background(), actor, "p1", model.CostFilter{Sort: "bogus"}, &buf)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestCostExcel(t *testing.T) {
	svc := NewService(fixtureStore(), allowAll{}, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.CostExcel(context.Background(), actor, "p1", model.CostFilter{}, &buf))

	book, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer book.Close()

	assert.ElementsMatch(t, []string{"Summary", "Entries"}, book.GetSheetList())

	name, err := book.GetCellValue("Summary", "B1")
	require.NoError(t, err)
	assert.Equal(t, "Barn conversion", name)

	total, err := book.GetCellValue("Summary", "B4")
	require.NoError(t, err)
	assert.Equal(t, "4832.00", total)

	title, err := book.GetCellValue("Entries", "C2")
	require.NoError(t, err)
	assert.Equal(t, "Roof tiles", title)
}

func TestProjectPDF(t *testing.T) {
	svc := NewService(fixtureStore(), allowAll{}, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.ProjectPDF(context.Background(), actor, "p1", &buf))
	assert.True(t, strings.HasPrefix(buf.String(), "%PDF-"), "valid PDF magic")
	assert.Greater(t, buf.Len(), 500)
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "0.00", formatAmount(0))
	assert.Equal(t, "0.05", formatAmount(5))
	assert.Equal(t, "4520.00", formatAmount(452000))
	assert.Equal(t, "-12.50", formatAmount(-1250))
}
