package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// CostRequest is the request body for creating or updating a cost entry.
type CostRequest struct {
	Category    string           `json:"category"`
	Title       string           `json:"title"`
	VendorID    *string          `json:"vendor_id"`
	AmountCents int64            `json:"amount_cents"`
	Currency    string           `json:"currency"`
	IncurredOn  *dateOnly        `json:"incurred_on"`
	Status      model.CostStatus `json:"status"`
	InvoiceNo   string           `json:"invoice_no"`
	Notes       string           `json:"notes"`
}

func (r *CostRequest) toModel(projectID, id string) *model.CostEntry {
	e := &model.CostEntry{
		ID:          id,
		ProjectID:   projectID,
		Category:    r.Category,
		Title:       r.Title,
		VendorID:    r.VendorID,
		AmountCents: r.AmountCents,
		Currency:    r.Currency,
		Status:      r.Status,
		InvoiceNo:   r.InvoiceNo,
		Notes:       r.Notes,
	}
	if t := r.IncurredOn.timePtr(); t != nil {
		e.IncurredOn = *t
	}
	return e
}

func (s *Server) handleCreateCost(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req CostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := s.svc.Costs.Create(c.Request().Context(), actor, req.toModel(projectID, ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, e)
}

func (s *Server) handleListCosts(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	f, err := costFilterFromQuery(c)
	if err != nil {
		return err
	}
	entries, err := s.svc.Costs.List(c.Request().Context(), actor, projectID, f)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

func (s *Server) handleGetCost(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	e, err := s.svc.Costs.Get(c.Request().Context(), actor, projectID, c.Param("costID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) handleUpdateCost(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req CostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	e, err := s.svc.Costs.Update(c.Request().Context(), actor, req.toModel(projectID, c.Param("costID")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, e)
}

func (s *Server) handleDeleteCost(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Costs.Delete(c.Request().Context(), actor, projectID, c.Param("costID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleCostSummary(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	sum, err := s.svc.Costs.Summary(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

// BudgetRequest is the request body for PUT /projects/:projectID/budgets/:category.
type BudgetRequest struct {
	BudgetCents int64 `json:"budget_cents"`
}

func (s *Server) handleSetBudget(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req BudgetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	b := &model.CategoryBudget{
		ProjectID:   projectID,
		Category:    c.Param("category"),
		BudgetCents: req.BudgetCents,
	}
	if err := s.svc.Costs.SetBudget(c.Request().Context(), actor, b); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, b)
}

func (s *Server) handleDeleteBudget(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Costs.DeleteBudget(c.Request().Context(), actor, projectID, c.Param("category")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListBudgets(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	budgets, err := s.svc.Costs.Budgets(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, budgets)
}
