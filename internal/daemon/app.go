// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package daemon

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Task is a startup job that runs alongside the servers. A task error stops
// the daemon.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// App owns the runtime lifecycle: it runs startup tasks next to the servers
// managed by Manager.
type App struct {
	logger  zerolog.Logger
	manager Manager
	tasks   []Task
}

// NewApp creates a new App orchestrator.
func NewApp(logger zerolog.Logger, manager Manager, tasks ...Task) *App {
	return &App{logger: logger, manager: manager, tasks: tasks}
}

// Run serves until ctx is cancelled or a task or server fails.
func (a *App) Run(ctx context.Context) error {
	if a.manager == nil {
		return ErrMissingManager
	}

	g, gctx := errgroup.WithContext(ctx)

	for _, task := range a.tasks {
		task := task
		g.Go(func() error {
			a.logger.Debug().Str("task", task.Name).Msg("startup task running")
			if err := task.Run(gctx); err != nil {
				if gctx.Err() != nil && errors.Is(err, gctx.Err()) {
					// Interrupted by shutdown, not a failure.
					return nil
				}
				a.logger.Error().Err(err).Str("task", task.Name).Str("event", "task.failed").Msg("startup task failed")
				return fmt.Errorf("%s: %w", task.Name, err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return a.manager.Start(gctx)
	})

	return g.Wait()
}
