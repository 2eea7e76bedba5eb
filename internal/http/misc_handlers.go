package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/buildledger/internal/importer"
)

func (s *Server) handleDashboard(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	sum, err := s.svc.Dashboard.Summary(c.Request().Context(), actor, projectID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sum)
}

func (s *Server) handleSearch(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	hits, err := s.svc.Search.Search(c.Request().Context(), actor, projectID, c.QueryParam("q"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, hits)
}

// handleImportCosts accepts a multipart form: "file" holds the CSV,
// "mapping" a JSON object of csv-header -> field, and the optional
// "dry_run" / "all_or_nothing" booleans.
func (s *Server) handleImportCosts(c echo.Context) error {
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

	var mapping importer.Mapping
	if raw := c.FormValue("mapping"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &mapping); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "mapping must be a JSON object of column to field")
		}
	}
	opts := importer.Options{
		Mapping:      mapping,
		DryRun:       formBool(c, "dry_run"),
		AllOrNothing: formBool(c, "all_or_nothing"),
	}

	report, err := s.svc.Importer.ImportCosts(c.Request().Context(), actor, projectID, file, opts)
	if err != nil {
		if report != nil {
			// An aborted all-or-nothing run still returns the row report.
			return c.JSON(http.StatusUnprocessableEntity, report)
		}
		return err
	}
	return c.JSON(http.StatusOK, report)
}

func formBool(c echo.Context, name string) bool {
	b, _ := strconv.ParseBool(c.FormValue(name))
	return b
}

// Exports render into a buffer first so that authorization and filter
// errors still reach the JSON error handler. Nothing is committed to the
// response until the document is complete.

func (s *Server) handleExportCSV(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	f, err := costFilterFromQuery(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.svc.Export.CostCSV(c.Request().Context(), actor, projectID, f, &buf); err != nil {
		return err
	}
	return sendAttachment(c, "text/csv; charset=utf-8", "costs.csv", buf.Bytes())
}

func (s *Server) handleExportExcel(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	f, err := costFilterFromQuery(c)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := s.svc.Export.CostExcel(c.Request().Context(), actor, projectID, f, &buf); err != nil {
		return err
	}
	return sendAttachment(c,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "costs.xlsx", buf.Bytes())
}

func (s *Server) handleExportPDF(c echo.Context) error {
	actor, projectID := actorAndProject(c)
	var buf bytes.Buffer
	if err := s.svc.Export.ProjectPDF(c.Request().Context(), actor, projectID, &buf); err != nil {
		return err
	}
	return sendAttachment(c, "application/pdf", "summary.pdf", buf.Bytes())
}

func sendAttachment(c echo.Context, contentType, filename string, data []byte) error {
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, filename))
	return c.Blob(http.StatusOK, contentType, data)
}
