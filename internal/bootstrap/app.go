// Package bootstrap ties long-running components into one lifecycle:
// every Runner lives in an errgroup under a signal-aware context.
package bootstrap

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/Julian6262/BingX/internal/alert"
	"github.com/Julian6262/BingX/internal/core"

	"golang.org/x/sync/errgroup"
)

// Runner is a component that runs until its context is cancelled.
type Runner interface {
	Run(ctx context.Context) error
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) error

func (f RunnerFunc) Run(ctx context.Context) error { return f(ctx) }

// NamedRunner attaches a name used in logs and alerts.
type NamedRunner struct {
	Name   string
	Runner Runner
}

// App drives the application lifecycle.
type App struct {
	logger core.ILogger
	alerts *alert.AlertManager
}

func NewApp(logger core.ILogger, alerts *alert.AlertManager) *App {
	return &App{
		logger: logger.WithField("component", "app"),
		alerts: alerts,
	}
}

// Run starts all runners and blocks until they drain. SIGINT/SIGTERM or
// any runner failure cancels the shared context; a clean cancellation is
// not an error.
func (a *App) Run(ctx context.Context, runners ...NamedRunner) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	a.logger.Info("starting application", "runners", len(runners))

	for _, r := range runners {
		r := r
		g.Go(func() error {
			err := r.Runner.Run(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			a.logger.Error("runner failed", "runner", r.Name, "error", err)
			if a.alerts != nil {
				a.alerts.Alert(context.WithoutCancel(ctx),
					"runner failed", err.Error(), alert.Critical,
					map[string]string{"runner": r.Name})
			}
			return err
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("application shut down gracefully")
	return nil
}
