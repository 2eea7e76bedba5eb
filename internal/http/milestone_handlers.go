package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// MilestoneRequest is the request body for creating or updating a
// milestone.
type MilestoneRequest struct {
	Title        string                `json:"title"`
	Description  string                `json:"description"`
	PlannedStart *dateOnly             `json:"planned_start"`
	PlannedEnd   *dateOnly             `json:"planned_end"`
	ActualStart  *dateOnly             `json:"actual_start"`
	ActualEnd    *dateOnly             `json:"actual_end"`
	Status       model.MilestoneStatus `json:"status"`
}

func (r *MilestoneRequest) toModel(projectID, id string) *model.Milestone {
	return &model.Milestone{
		ID:           id,
		ProjectID:    projectID,
		Title:        r.Title,
		Description:  r.Description,
		PlannedStart: r.PlannedStart.timePtr(),
		PlannedEnd:   r.PlannedEnd.timePtr(),
		ActualStart:  r.ActualStart.timePtr(),
		ActualEnd:    r.ActualEnd.timePtr(),
		Status:       r.Status,
	}
}

func (s *Server) handleCreateMilestone(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req MilestoneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := s.svc.Timeline.Create(c.Request().Context(), actor, req.toModel(projectID, ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, m)
}

func (s *Server) handleListMilestones(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	milestones, err := s.svc.Timeline.List(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, milestones)
}

func (s *Server) handleGetMilestone(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	m, err := s.svc.Timeline.Get(c.Request().Context(), actor, projectID, c.Param("milestoneID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

func (s *Server) handleUpdateMilestone(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req MilestoneRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	m, err := s.svc.Timeline.Update(c.Request().Context(), actor, req.toModel(projectID, c.Param("milestoneID")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

// ReorderRequest is the request body for milestone reordering.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

func (s *Server) handleReorderMilestones(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req ReorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.svc.Timeline.Reorder(c.Request().Context(), actor, projectID, req.IDs); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleDeleteMilestone(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Timeline.Delete(c.Request().Context(), actor, projectID, c.Param("milestoneID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
