// Package app assembles the importer's components from configuration.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/command"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/config"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/geometry"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/importer"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/scripting"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/server"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/storage/postgres"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

const probeTimeout = 2 * time.Second

// App holds the assembled components shared by the binaries.
type App struct {
	Config   config.Config
	Logger   *zap.Logger
	Store    world.Store
	Importer *importer.Importer
	Hooks    *scripting.Manager
	// Probes report the health of the store.
	Probes []server.Probe

	memory *world.MemoryStore
	pool   *postgres.Pool
}

// Build opens the configured store, loads hooks, and constructs the
// importer.
//
// Precondition: cfg must be validated; logger must be non-nil.
// Postcondition: Returns an App that must be closed, or an error with every
// partially opened resource released.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Hooks: scripting.NewManager(logger.Named("hooks"))}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}

	if cfg.Scripting.HookDir != "" {
		if err := a.Hooks.Load(cfg.Scripting.HookDir, cfg.Scripting.InstructionLimit); err != nil {
			a.Close()
			return nil, fmt.Errorf("loading hooks: %w", err)
		}
	}

	imp, err := importer.New(a.Store, ImporterOptions(cfg.Import), logger.Named("importer"))
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Importer = imp
	return a, nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.Config.Store.Driver {
	case DriverMemory, "":
		mem := world.NewMemoryStore()
		if path := a.Config.Store.SnapshotPath; path != "" {
			loaded, err := world.LoadSnapshot(path)
			if err != nil {
				return fmt.Errorf("loading world snapshot: %w", err)
			}
			mem = loaded
			a.Logger.Info("world snapshot loaded",
				zap.String("path", path),
				zap.Int("entities", mem.Len()),
			)
		}
		a.memory = mem
		a.Store = mem
		return nil

	case DriverPostgres:
		pool, err := postgres.NewPool(ctx, a.Config.Database)
		if err != nil {
			return fmt.Errorf("opening world database: %w", err)
		}
		a.pool = pool
		if err := pool.CheckSchema(ctx); err != nil {
			return err
		}
		a.Store = pool.Entities()
		a.Probes = append(a.Probes, server.Probe{
			Name:  "postgres",
			Check: func(ctx context.Context) error { return pool.Health(ctx, probeTimeout) },
		})
		return nil

	default:
		return fmt.Errorf("unknown store driver %q", a.Config.Store.Driver)
	}
}

// Dispatcher builds a command dispatcher that replies through r and runs the
// Lua import hooks.
func (a *App) Dispatcher(r command.Replier) (*command.Dispatcher, error) {
	return command.NewDispatcher(CommandConfig(a.Config.Import), a.Importer, r, a.Logger.Named("command"), a.Hooks)
}

// Save persists the memory store to its snapshot path. It is a no-op for
// other drivers or when no path is configured.
func (a *App) Save() error {
	if a.memory == nil || a.Config.Store.SnapshotPath == "" {
		return nil
	}
	if err := world.SaveSnapshot(a.Config.Store.SnapshotPath, a.memory); err != nil {
		return fmt.Errorf("saving world snapshot: %w", err)
	}
	a.Logger.Info("world snapshot saved",
		zap.String("path", a.Config.Store.SnapshotPath),
		zap.Int("entities", a.memory.Len()),
	)
	return nil
}

// Close saves the snapshot and releases every resource.
func (a *App) Close() error {
	err := a.Save()
	if a.Hooks != nil {
		a.Hooks.Close()
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return err
}

// ImporterOptions maps the import section onto importer options.
func ImporterOptions(c config.ImportConfig) importer.Options {
	opts := importer.Options{
		Transform: geometry.Transform{
			SourceCanvasSize: c.SourceCanvasSize,
			CellPixels:       c.CellPixels,
			RadiusRatio:      c.LightRadiusRatio,
		},
		PageSize:         c.PageSize,
		SceneMode:        importer.SceneMode(c.SceneMode),
		LightMarkerImage: c.LightMarkerImage,
	}
	if opts.LightMarkerImage == "" {
		opts.LightMarkerImage = importer.DefaultLightMarkerImage
	}
	return opts
}

// CommandConfig maps the import section onto dispatcher addressing.
func CommandConfig(c config.ImportConfig) command.Config {
	return command.Config{
		Prefix:    c.CommandPrefix,
		Speaker:   c.Speaker,
		WhisperTo: c.WhisperTo,
	}
}

