// Buildledgerd is the buildledger API server.
//
// It serves the JSON HTTP API, applies database migrations on startup,
// runs the embedded event bus, and sends invite emails when SMTP is
// configured.
//
// Usage:
//
//	# Environment variables only
//	BUILDLEDGER_DATABASE_DSN=postgres://... buildledgerd
//
//	# Explicit config file
//	buildledgerd --config /etc/buildledger/config.yaml
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/buildledger/internal/auth"
	"github.com/fyrsmithlabs/buildledger/internal/blob"
	"github.com/fyrsmithlabs/buildledger/internal/config"
	"github.com/fyrsmithlabs/buildledger/internal/contact"
	"github.com/fyrsmithlabs/buildledger/internal/cost"
	"github.com/fyrsmithlabs/buildledger/internal/dashboard"
	"github.com/fyrsmithlabs/buildledger/internal/document"
	"github.com/fyrsmithlabs/buildledger/internal/events"
	"github.com/fyrsmithlabs/buildledger/internal/export"
	bhttp "github.com/fyrsmithlabs/buildledger/internal/http"
	"github.com/fyrsmithlabs/buildledger/internal/importer"
	"github.com/fyrsmithlabs/buildledger/internal/logging"
	"github.com/fyrsmithlabs/buildledger/internal/mail"
	"github.com/fyrsmithlabs/buildledger/internal/project"
	"github.com/fyrsmithlabs/buildledger/internal/search"
	"github.com/fyrsmithlabs/buildledger/internal/store"
	"github.com/fyrsmithlabs/buildledger/internal/timeline"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default: environment variables only)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("buildledgerd by Fyrsmith Labs\n")
		fmt.Printf("Version:    %s\n", version)
		fmt.Printf("Commit:     %s\n", gitCommit)
		fmt.Printf("Build Date: %s\n", buildDate)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, shutting down", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("server error: %v", err)
	}
	log.Println("shutdown complete")
}

// run wires the whole service graph and blocks until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info(ctx, "starting buildledgerd",
		zap.String("version", version), zap.String("commit", gitCommit))

	st, err := store.Open(ctx, cfg.Database, logger.Underlying())
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer st.Close()

	if err := st.Migrate(); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	bus, err := events.NewBus(events.Config{Port: cfg.Events.Port}, logger.Underlying())
	if err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}
	defer bus.Close()

	blobs, err := blob.NewFSStore(cfg.Documents.Dir)
	if err != nil {
		return fmt.Errorf("open document storage: %w", err)
	}

	mailer, err := mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	}, cfg.Server.BaseURL, logger.Named("mail"))
	if err != nil {
		return fmt.Errorf("init mailer: %w", err)
	}
	if err := mailer.SubscribeInvites(bus); err != nil {
		return fmt.Errorf("subscribe invite mailer: %w", err)
	}

	authSvc := auth.NewService(st, auth.Config{
		SessionTTL: cfg.Auth.SessionTTL,
		BcryptCost: cfg.Auth.BcryptCost,
	}, logger.Named("auth"))

	projectSvc := project.NewService(st, bus, project.Config{
		InviteTTL: cfg.Auth.InviteTTL,
	}, logger.Named("project"))

	// The project service is the access-control authority for everything
	// project scoped.
	costSvc := cost.NewService(st, projectSvc, bus, logger.Named("cost"))
	contactSvc := contact.NewService(st, projectSvc, logger.Named("contact"))
	documentSvc := document.NewService(st, blobs, projectSvc, document.Config{
		MaxSizeBytes: cfg.Documents.MaxSizeBytes,
		ContentTypes: cfg.Documents.ContentTypes,
	}, logger.Named("document"))
	timelineSvc := timeline.NewService(st, projectSvc, logger.Named("timeline"))
	dashboardSvc := dashboard.NewService(st, projectSvc, logger.Named("dashboard"))
	importerSvc := importer.NewService(st, projectSvc, logger.Named("importer"))
	searchSvc := search.NewService(st, projectSvc, logger.Named("search"))
	exportSvc := export.NewService(st, projectSvc, logger.Named("export"))

	srv, err := bhttp.NewServer(bhttp.Services{
		Auth:      authSvc,
		Projects:  projectSvc,
		Costs:     costSvc,
		Contacts:  contactSvc,
		Documents: documentSvc,
		Timeline:  timelineSvc,
		Dashboard: dashboardSvc,
		Importer:  importerSvc,
		Search:    searchSvc,
		Export:    exportSvc,
		DB:        st,
	}, logger.Named("http"), &bhttp.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		BodyLimit:       cfg.Server.BodyLimit,
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateLimitBurst:  cfg.Server.RateLimitBurst,
	})
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	go func() {
		if err := config.WatchLogLevel(ctx, configPath, logger); err != nil {
			logger.Warn(ctx, "config watcher stopped", zap.Error(err))
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
