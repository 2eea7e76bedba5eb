package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/model"
)

// actorAndProject pulls the authenticated user and the projectID path
// param, and stamps the project ID into the request context for logging.
func actorAndProject(c echo.Context) (*model.User, string) {
	actor := auth.CurrentUser(c)
	projectID := c.Param("projectID")
	ctx := logging.WithProjectID(c.Request().Context(), projectID)
	c.SetRequest(c.Request().WithContext(ctx))
	return actor, projectID
}

// ProjectRequest is the request body for creating or updating a project.
type ProjectRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Address     string              `json:"address"`
	Currency    string              `json:"currency"`
	BudgetCents int64               `json:"budget_cents"`
	Status      model.ProjectStatus `json:"status"`
	StartDate   *dateOnly           `json:"start_date"`
	EndDate     *dateOnly           `json:"end_date"`
}

func (r *ProjectRequest) toModel(id string) *model.Project {
	return &model.Project{
		ID:          id,
		Name:        r.Name,
		Description: r.Description,
		Address:     r.Address,
		Currency:    r.Currency,
		BudgetCents: r.BudgetCents,
		Status:      r.Status,
		StartDate:   r.StartDate.timePtr(),
		EndDate:     r.EndDate.timePtr(),
	}
}

func (s *Server) handleCreateProject(c echo.Context) error {
	actor := auth.CurrentUser(c)
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.svc.Projects.Create(c.Request().Context(), actor, req.toModel(""))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, p)
}

func (s *Server) handleListProjects(c echo.Context) error {
	actor := auth.CurrentUser(c)
	projects, err := s.svc.Projects.List(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projects)
}

func (s *Server) handleGetProject(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	p, err := s.svc.Projects.Get(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleUpdateProject(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req ProjectRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	p, err := s.svc.Projects.Update(c.Request().Context(), actor, req.toModel(projectID))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleArchiveProject(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	p, err := s.svc.Projects.Archive(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleDeleteProject(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Projects.Delete(c.Request().Context(), actor, projectID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListMembers(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	members, err := s.svc.Projects.Members(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, members)
}

// MemberRoleRequest is the request body for changing a member's role.
type MemberRoleRequest struct {
	Role model.Role `json:"role"`
}

func (s *Server) handleChangeMemberRole(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req MemberRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := s.svc.Projects.ChangeMemberRole(c.Request().Context(), actor, projectID, c.Param("userID"), req.Role); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleRemoveMember(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Projects.RemoveMember(c.Request().Context(), actor, projectID, c.Param("userID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// InviteRequest is the request body for POST /projects/:projectID/invites.
type InviteRequest struct {
	Email string     `json:"email"`
	Role  model.Role `json:"role"`
}

func (s *Server) handleCreateInvite(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var req InviteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	inv, _, err := s.svc.Projects.Invite(c.Request().Context(), actor, projectID, req.Email, req.Role)
	if err != nil {
		return err
	}
	// The cleartext token travels only by email.
	return c.JSON(http.StatusCreated, inv)
}

func (s *Server) handleListInvites(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	invites, err := s.svc.Projects.PendingInvites(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, invites)
}

func (s *Server) handleRevokeInvite(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Projects.RevokeInvite(c.Request().Context(), actor, projectID, c.Param("inviteID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleAcceptInvite(c echo.Context) error {
	actor := auth.CurrentUser(c)
	token := c.QueryParam("token")
	if token == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "token query parameter is required")
	}
	mem, err := s.svc.Projects.AcceptInvite(c.Request().Context(), actor, token)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, mem)
}
