// Package http provides the JSON HTTP API for buildledger.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
	"github.com/fyrsmithlabs/buildledger/internal/contact"
	"github.com/fyrsmithlabs/buildledger/internal/cost"
	"github.com/fyrsmithlabs/buildledger/internal/dashboard"
	"github.com/fyrsmithlabs/buildledger/internal/document"
	"github.com/fyrsmithlabs/buildledger/internal/export"
	"github.com/fyrsmithlabs/buildledger/internal/importer"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/project"
	"github.com/fyrsmithlabs/buildledger/internal/search"
	"github.com/fyrsmithlabs/buildledger/internal/timeline"
)

// Pinger reports backend liveness for the readiness probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles everything the HTTP layer dispatches to.
type Services struct {
	Auth      *auth.Service
	Projects  *project.Service
	Costs     *cost.Service
	Contacts  *contact.Service
	Documents *document.Service
	Timeline  *timeline.Service
	Dashboard *dashboard.Service
	Importer  *importer.Service
	Search    *search.Service
	Export    *export.Service
	DB        Pinger
}

// Config holds HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	BodyLimit       string
	RateLimitPerSec float64
	RateLimitBurst  int
}

// Server is the buildledger HTTP server.
type Server struct {
	echo   *echo.Echo
	svc    Services
	logger *logging.Logger
	config *Config
}

// NewServer creates the HTTP server with the full middleware stack and all
// routes registered.
func NewServer(svc Services, logger *logging.Logger, cfg *Config) (*Server, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 8080}
	}
	if cfg.BodyLimit == "" {
		cfg.BodyLimit = "25M"
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = errorHandler(logger)

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestContext())
	e.Use(requestLogger(logger))
	e.Use(metricsMiddleware())
	e.Use(middleware.BodyLimit(cfg.BodyLimit))
	if cfg.RateLimitPerSec > 0 {
		e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Limit(cfg.RateLimitPerSec),
				Burst:     cfg.RateLimitBurst,
				ExpiresIn: 3 * time.Minute,
			},
		)))
	}

	s := &Server{echo: e, svc: svc, logger: logger, config: cfg}
	s.registerRoutes()
	return s, nil
}

// requestContext stamps the echo request ID into the request context so
// every log line carries it.
func requestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			reqID := c.Response().Header().Get(echo.HeaderXRequestID)
			ctx := logging.WithRequestID(c.Request().Context(), reqID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

func requestLogger(logger *logging.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info(c.Request().Context(), "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			)
			return err
		}
	}
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/ready", s.handleReady)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")

	// Unauthenticated.
	v1.POST("/auth/register", s.handleRegister)
	v1.POST("/auth/login", s.handleLogin)

	// Everything below requires a session.
	api := v1.Group("", auth.Middleware(s.svc.Auth))
	api.POST("/auth/logout", s.handleLogout)
	api.GET("/auth/me", s.handleMe)

	api.POST("/projects", s.handleCreateProject)
	api.GET("/projects", s.handleListProjects)
	api.GET("/projects/:projectID", s.handleGetProject)
	api.PUT("/projects/:projectID", s.handleUpdateProject)
	api.POST("/projects/:projectID/archive", s.handleArchiveProject)
	api.DELETE("/projects/:projectID", s.handleDeleteProject)

	api.GET("/projects/:projectID/members", s.handleListMembers)
	api.PUT("/projects/:projectID/members/:userID", s.handleChangeMemberRole)
	api.DELETE("/projects/:projectID/members/:userID", s.handleRemoveMember)

	api.POST("/projects/:projectID/invites", s.handleCreateInvite)
	api.GET("/projects/:projectID/invites", s.handleListInvites)
	api.DELETE("/projects/:projectID/invites/:inviteID", s.handleRevokeInvite)
	api.POST("/invites/accept", s.handleAcceptInvite)

	api.POST("/projects/:projectID/costs", s.handleCreateCost)
	api.GET("/projects/:projectID/costs", s.handleListCosts)
	api.GET("/projects/:projectID/costs/summary", s.handleCostSummary)
	api.GET("/projects/:projectID/costs/:costID", s.handleGetCost)
	api.PUT("/projects/:projectID/costs/:costID", s.handleUpdateCost)
	api.DELETE("/projects/:projectID/costs/:costID", s.handleDeleteCost)

	api.GET("/projects/:projectID/budgets", s.handleListBudgets)
	api.PUT("/projects/:projectID/budgets/:category", s.handleSetBudget)
	api.DELETE("/projects/:projectID/budgets/:category", s.handleDeleteBudget)

	api.POST("/projects/:projectID/contacts", s.handleCreateContact)
	api.GET("/projects/:projectID/contacts", s.handleListContacts)
	api.GET("/projects/:projectID/contacts/:contactID", s.handleGetContact)
	api.PUT("/projects/:projectID/contacts/:contactID", s.handleUpdateContact)
	api.DELETE("/projects/:projectID/contacts/:contactID", s.handleDeleteContact)

	api.POST("/projects/:projectID/documents", s.handleUploadDocument)
	api.GET("/projects/:projectID/documents", s.handleListDocuments)
	api.GET("/projects/:projectID/documents/:documentID", s.handleGetDocument)
	api.GET("/projects/:projectID/documents/:documentID/download", s.handleDownloadDocument)
	api.DELETE("/projects/:projectID/documents/:documentID", s.handleDeleteDocument)

	api.POST("/projects/:projectID/milestones", s.handleCreateMilestone)
	api.GET("/projects/:projectID/milestones", s.handleListMilestones)
	api.GET("/projects/:projectID/milestones/:milestoneID", s.handleGetMilestone)
	api.PUT("/projects/:projectID/milestones/:milestoneID", s.handleUpdateMilestone)
	api.POST("/projects/:projectID/milestones/reorder", s.handleReorderMilestones)
	api.DELETE("/projects/:projectID/milestones/:milestoneID", s.handleDeleteMilestone)

	api.GET("/projects/:projectID/dashboard", s.handleDashboard)
	api.GET("/projects/:projectID/search", s.handleSearch)
	api.POST("/projects/:projectID/import/costs", s.handleImportCosts)

	api.GET("/projects/:projectID/export/costs.csv", s.handleExportCSV)
	api.GET("/projects/:projectID/export/costs.xlsx", s.handleExportExcel)
	api.GET("/projects/:projectID/export/summary.pdf", s.handleExportPDF)
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleReady(c echo.Context) error {
	if s.svc.DB != nil {
		if err := s.svc.DB.Ping(c.Request().Context()); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ready"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
