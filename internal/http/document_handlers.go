package http

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/model"
)

func (s *Server) handleUploadDocument(c echo.Context) error {
	actor, projectID := actorAndProject(c)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "multipart field 'file' is required")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	title := c.FormValue("title")
	if title == "" {
		title = fileHeader.Filename
	}
	doc := &model.Document{
		ProjectID:   projectID,
		Title:       title,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}
	if v := c.FormValue("cost_entry_id"); v != "" {
		doc.CostEntryID = &v
	}
	if v := c.FormValue("contact_id"); v != "" {
		doc.ContactID = &v
	}

	doc, err = s.svc.Documents.Upload(c.Request().Context(), actor, doc, file)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	docs, err := s.svc.Documents.List(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	doc, err := s.svc.Documents.Get(c.Request().Context(), actor, projectID, c.Param("documentID"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDownloadDocument(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	doc, rc, err := s.svc.Documents.Open(c.Request().Context(), actor, projectID, c.Param("documentID"))
	if err != nil {
		return err
	}
	defer rc.Close()

	contentType := doc.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, doc.Filename))
	return c.Stream(http.StatusOK, contentType, rc)
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	if err := s.svc.Documents.Delete(c.Request().Context(), actor, projectID, c.Param("documentID")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
