package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freelance-market/internal/config"
	"freelance-market/internal/database"
	"freelance-market/internal/event"
	"freelance-market/internal/handler"
	"freelance-market/internal/mail"
	"freelance-market/internal/middleware"
	"freelance-market/internal/repository"
	"freelance-market/internal/router"
	"freelance-market/internal/service"
	"freelance-market/internal/storage"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	server       *http.Server
	dispatcher   *service.NotificationDispatcher
	cleanupFuncs []func()
}

func New(cfg *config.Config) (*App, error) {
	files, err := storage.New(cfg.UploadRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize upload storage: %w", err)
	}

	sender, err := mail.NewSender(mail.Config{
		Provider:       cfg.MailProvider,
		From:           cfg.MailFrom,
		FromName:       cfg.MailFromName,
		SMTPHost:       cfg.SMTPHost,
		SMTPPort:       cfg.SMTPPort,
		SMTPUsername:   cfg.SMTPUsername,
		SMTPPassword:   cfg.SMTPPassword,
		SendGridAPIKey: cfg.SendGridAPIKey,
		MailgunDomain:  cfg.MailgunDomain,
		MailgunAPIKey:  cfg.MailgunAPIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mail sender: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	projectRepo := repository.NewProjectRepository(pool)
	bidRepo := repository.NewBidRepository(pool)
	deliverableRepo := repository.NewDeliverableRepository(pool)
	outboxRepo := repository.NewOutboxRepository(pool)
	auditRepo := repository.NewAuditRepository(pool)
	slog.Info("database ready")

	bus := event.NewBus()
	auditService := service.NewAuditService(auditRepo)

	authService := service.NewAuthService(userRepo, auditService, bus, service.AuthConfig{
		AccessSecret:  cfg.JWTAccessSecret,
		RefreshSecret: cfg.JWTRefreshSecret,
		AccessTTL:     cfg.JWTAccessTTL,
		RefreshTTL:    cfg.JWTRefreshTTL,
		BcryptCost:    cfg.BcryptCost,
	})
	projectService := service.NewProjectService(projectRepo, userRepo, auditService, bus, cfg.MailFromName)
	bidService := service.NewBidService(bidRepo, projectRepo, auditService, bus)
	deliverableService := service.NewDeliverableService(deliverableRepo, projectRepo, userRepo, files, auditService, bus,
		cfg.MaxUploadSize, cfg.AllowedMIMETypes)

	dispatcher := service.NewNotificationDispatcher(outboxRepo, sender, bus, service.DispatcherConfig{
		PollEvery:   cfg.OutboxPollEvery,
		BatchSize:   cfg.OutboxBatchSize,
		MaxAttempts: cfg.OutboxMaxAttempts,
	})

	authMiddleware := middleware.NewAuthMiddleware(authService, projectService)
	appRouter := router.New(cfg, authMiddleware, router.Handlers{
		Auth:        handler.NewAuthHandler(authService, handler.CookieOptions{Secure: cfg.CookieSecure, Domain: cfg.CookieDomain}),
		Project:     handler.NewProjectHandler(projectService),
		Bid:         handler.NewBidHandler(bidService, projectService),
		Deliverable: handler.NewDeliverableHandler(deliverableService, cfg.MaxUploadSize),
		Audit:       handler.NewAuditHandler(projectService),
	})

	server := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           appRouter,
		ReadHeaderTimeout: cfg.ServerReadHeaderTimeout,
		WriteTimeout:      cfg.ServerWriteTimeout,
		IdleTimeout:       cfg.ServerIdleTimeout,
	}

	return &App{
		server:     server,
		dispatcher: dispatcher,
		cleanupFuncs: []func(){
			func() {
				db.Close()
			},
		},
	}, nil
}

// Run serves until SIGINT or SIGTERM, then drains in-flight requests and stops
// the notification dispatcher before closing the database.
func (a *App) Run() error {
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		a.dispatcher.Run(dispatchCtx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-stop:
		slog.Info("shutdown requested", "signal", sig.String())
	case err := <-serveErr:
		runErr = fmt.Errorf("server failed: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("graceful shutdown failed: %w", err)
	}

	stopDispatch()
	<-dispatchDone

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return runErr
}
