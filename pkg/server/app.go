package server

import (
	"context"
	"errors"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"SentiDash/internal/handler/api"
	"SentiDash/internal/usecase"
	"SentiDash/pkg/config"
	xhttp "SentiDash/pkg/http"
	applogger "SentiDash/pkg/logger"
)

type closer struct {
	name string
	c    io.Closer
}

// App encapsulates the application lifecycle.
type App struct {
	cfg        *config.Config
	l          *applogger.Logger
	pipeline   *usecase.Pipeline
	acquirer   *usecase.Acquirer
	hub        *api.Hub
	registry   *prometheus.Registry
	httpServer *xhttp.Server
	handler    xhttp.Handler
	closers    []closer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	pipeline *usecase.Pipeline,
	acquirer *usecase.Acquirer,
	hub *api.Hub,
	registry *prometheus.Registry,
) *App {
	return &App{
		cfg:      cfg,
		l:        l,
		pipeline: pipeline,
		acquirer: acquirer,
		hub:      hub,
		registry: registry,
	}
}

// SetHTTPHandler allows DI to inject an HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.handler = h }

// AddCloser registers a resource released by Close, in reverse order.
func (a *App) AddCloser(name string, c io.Closer) {
	if c != nil {
		a.closers = append(a.closers, closer{name: name, c: c})
	}
}

func (a *App) Pipeline() *usecase.Pipeline { return a.pipeline }
func (a *App) Acquirer() *usecase.Acquirer { return a.acquirer }
func (a *App) Logger() *applogger.Logger { return a.l }
func (a *App) Config() *config.Config { return a.cfg }
func (a *App) Registry() *prometheus.Registry { return a.registry }

// Run serves HTTP and refreshes the inputs on a ticker until ctx is done,
// a termination signal arrives or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := a.pipeline.Refresh(ctx, false); err != nil {
		a.l.Warn("initial load failed, serving anyway", applogger.Error(err))
	}

	a.httpServer = xhttp.NewServer(a.handler, a.l,
		xhttp.WithHost(a.cfg.Server.Host),
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithSlowThreshold(a.cfg.Server.SlowThreshold),
		xhttp.WithRegistry(a.registry),
	)
	errc := a.httpServer.Start()

	if iv := a.cfg.Data.RefreshInterval; iv > 0 {
		go a.refreshLoop(ctx, iv)
	}

	var runErr error
	select {
	case <-ctx.Done():
		a.l.Info("shutdown signal received")
	case err := <-errc:
		runErr = err
		a.l.Error("http server failed", applogger.Error(err))
	}
	return errors.Join(runErr, a.shutdown())
}

func (a *App) refreshLoop(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			changed, err := a.pipeline.Refresh(ctx, false)
			if err != nil {
				a.l.Warn("scheduled refresh failed", applogger.Error(err))
				continue
			}
			if changed {
				a.l.Info("inputs changed on disk")
			}
		}
	}
}

// shutdown stops HTTP first, then closes the remaining resources.
func (a *App) shutdown() error {
	a.l.Info("shutting down...")

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Stop(context.Background()); err != nil {
			a.l.Error("http shutdown error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	if err := a.Close(); err != nil {
		errs = append(errs, err)
	}

	a.l.Info("shutdown complete")
	return errors.Join(errs...)
}

// Close releases the hub and every registered resource.
func (a *App) Close() error {
	var errs []error
	if a.hub != nil {
		_ = a.hub.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		c := a.closers[i]
		if err := c.c.Close(); err != nil {
			a.l.Warn(c.name+" close error", applogger.Error(err))
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
