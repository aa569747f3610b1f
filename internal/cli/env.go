// Package cli implements oversightctl, the operator tool for migrations and user provisioning.
package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	portssvc "github.com/SscSPs/oversight/internal/core/ports/services"
	"github.com/SscSPs/oversight/internal/core/services"
	"github.com/SscSPs/oversight/internal/platform/config"
	"github.com/SscSPs/oversight/internal/platform/storage"
	"github.com/SscSPs/oversight/pkg/database"
	"github.com/fatih/color"
)

// systemActor is recorded as creator/updater for changes made from the command line.
const systemActor = "oversightctl"

// Env carries what the commands need. Tests swap the factories for in-memory ones.
type Env struct {
	Out io.Writer

	// Users opens a user service; the returned func releases it.
	Users func(ctx context.Context) (portssvc.UserSvcFacade, func(), error)
	// Migrate applies schema migrations in direction.
	Migrate func(direction database.Direction) error
}

// DefaultEnv wires the commands to the database configured through the environment.
func DefaultEnv() *Env {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	return &Env{
		Out: os.Stdout,
		Users: func(ctx context.Context) (portssvc.UserSvcFacade, func(), error) {
			cfg, err := config.LoadConfig()
			if err != nil {
				return nil, nil, err
			}
			store, err := storage.Open(ctx, cfg, false, logger)
			if err != nil {
				return nil, nil, err
			}
			return services.NewUserService(store.Repos.UserRepo), store.Close, nil
		},
		Migrate: func(direction database.Direction) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			return storage.Migrate(cfg, direction, slog.New(slog.NewTextHandler(os.Stderr, nil)))
		},
	}
}

var (
	okMark   = color.New(color.FgGreen).Sprint("✓")
	warnMark = color.New(color.FgYellow).Sprint("!")
)
