package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// ContactRequest is the request body for creating or updating a contact.
type ContactRequest struct {
	Name    string `json:"name"`
	Company string `json:"company"`
	Trade   string `json:"trade"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Notes   string `json:"notes"`
}

func (r *ContactRequest) toModel(projectID, id string) *model.Contact {
	return &model.Contact{
		ID:        id,
		ProjectID: projectID,
		Name:      r.Name,
		Company:   r.Company,
		Trade:     r.Trade,
		Email:     r.Email,
		Phone:     r.Phone,
		Notes:     r.Notes,
	}
}

func (s *Server) handleCreateContact(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	contact, err := s.svc.Contacts.Create(c.Request().Context(), actor, req.toModel(projectID, ""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, contact)
}

func (s *Server) handleListContacts(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	contacts, err := s.svc.Contacts.List(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contacts)
}

func (s *Server) handleGetContact(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	contact, err := s.svc.Contacts.Get(c.Request().Context(), actor, projectID, c.Param("contactID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (s *Server) handleUpdateContact(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req ContactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	contact, err := s.svc.Contacts.Update(c.Request().Context(), actor, req.toModel(projectID, c.Param("contactID")))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, contact)
}

func (s *Server) handleDeleteContact(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Contacts.Delete(c.Request().Context(), actor, projectID, c.Param("contactID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
