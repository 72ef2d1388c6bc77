package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"PortfolioDash/internal/usecase"
	"PortfolioDash/pkg/cache"
	"PortfolioDash/pkg/config"
	xhttp "PortfolioDash/pkg/http"
	"PortfolioDash/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *xhttp.Server
	activity   *usecase.ActivityRecorder
	cache      cache.Service
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *logger.Logger,
	httpServer *xhttp.Server,
	activity *usecase.ActivityRecorder,
	c cache.Service,
) *App {
	if l == nil {
		l = logger.Nop()
	}
	return &App{
		cfg:        cfg,
		log:        l,
		httpServer: httpServer,
		activity:   activity,
		cache:      c,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the HTTP server and shuts everything down once ctx is done.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		return err
	}
	activity := "none"
	if a.activity != nil {
		activity = a.activity.Backend()
	}
	a.log.Info("dashboard started",
		logger.Int("port", a.cfg.Server.Port),
		logger.String("backend", a.cfg.Backend.BaseURL),
		logger.String("session_store", a.cfg.Session.Store),
		logger.String("activity", activity),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.Shutdown(context.Background())
}

// Shutdown stops the server first, then flushes logs and activity, then
// closes the session cache.
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error

	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
		errs = append(errs, err)
	}

	// The log collector may publish through the activity producer.
	a.log.RemoveCollector()

	if a.activity != nil {
		if err := a.activity.Close(); err != nil {
			a.log.Warn("activity sink close error", logger.Error(err))
			errs = append(errs, err)
		}
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.Warn("cache close error", logger.Error(err))
			errs = append(errs, err)
		}
	}

	a.log.Info("shutdown complete")
	return errors.Join(errs...)
}
