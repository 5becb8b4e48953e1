// Package importer reconciles a TAC export against the world model: it
// replaces every named scene, NPC and note in the batch and reports how many
// of each succeeded.
package importer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/geometry"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// SceneMode selects how a scene's page is obtained.
type SceneMode string

const (
	// SceneModeReconcile locates an existing page by name and repopulates it.
	SceneModeReconcile SceneMode = "reconcile"
	// SceneModeRecreate deletes pages with the scene's name and creates a
	// fresh one.
	SceneModeRecreate SceneMode = "recreate"
)

// ErrMissingName is returned for batch items without a name.
var ErrMissingName = errors.New("name is required")

// Options configures an Importer.
type Options struct {
	Transform geometry.Transform
	// PageSize is the edge length, in grid units, every configured page gets.
	PageSize  float64
	SceneMode SceneMode
	// LightMarkerImage is the image source for light-marker graphics.
	LightMarkerImage string
}

// DefaultOptions returns Options built from the geometry defaults.
func DefaultOptions() Options {
	return Options{
		Transform:        geometry.Default(),
		PageSize:         geometry.DefaultPageSize,
		SceneMode:        SceneModeReconcile,
		LightMarkerImage: DefaultLightMarkerImage,
	}
}

// Validate checks every option invariant.
func (o Options) Validate() error {
	if err := o.Transform.Validate(); err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	if o.PageSize <= 0 {
		return fmt.Errorf("page size must be > 0, got %v", o.PageSize)
	}
	switch o.SceneMode {
	case SceneModeReconcile, SceneModeRecreate:
	default:
		return fmt.Errorf("scene mode must be one of [reconcile, recreate], got %q", o.SceneMode)
	}
	return nil
}

// Importer applies import batches to a world Store.
type Importer struct {
	store  world.Store
	opts   Options
	logger *zap.Logger
}

// New constructs an Importer backed by store.
//
// Precondition: store and logger must be non-nil.
// Postcondition: Returns a non-nil Importer, or an error if opts is invalid.
func New(store world.Store, opts Options, logger *zap.Logger) (*Importer, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("importer options: %w", err)
	}
	return &Importer{store: store, opts: opts, logger: logger}, nil
}

// Process imports every scene, then every monster, then every note. Item
// failures are counted and logged; they never stop the batch.
//
// Postcondition: Report tallies hold exactly one outcome per batch item.
func (imp *Importer) Process(ctx context.Context, batch Batch) Report {
	start := time.Now()
	var r Report

	for _, s := range batch.Scenes {
		r.record(imp.ReconcileScene(ctx, s).Outcome)
	}
	for _, m := range batch.Monsters {
		r.record(imp.ImportMonster(ctx, m))
	}
	for _, n := range batch.Notes {
		r.record(imp.ImportNote(ctx, n))
	}

	imp.logger.Info("import complete",
		zap.Int("scenes_configured", r.Scenes.Success),
		zap.Int("scenes_failed", r.Scenes.Failure),
		zap.Int("monsters_imported", r.Monsters.Success),
		zap.Int("monsters_failed", r.Monsters.Failure),
		zap.Int("notes_imported", r.Notes.Success),
		zap.Int("notes_failed", r.Notes.Failure),
		zap.Duration("elapsed", time.Since(start)),
	)
	return r
}

// ImportMonster replaces the character named m.Name with a fresh one
// carrying the description attribute and, when given, the avatar image.
func (imp *Importer) ImportMonster(ctx context.Context, m Monster) Outcome {
	return imp.finish(Outcome{Kind: ItemMonster, Name: m.Name, Err: imp.importMonster(ctx, m)})
}

func (imp *Importer) importMonster(ctx context.Context, m Monster) error {
	if m.Name == "" {
		return ErrMissingName
	}
	if _, err := imp.DeleteByName(ctx, world.KindCharacter, m.Name); err != nil {
		return err
	}

	overrides := world.Attributes{}
	if m.ImageURL != "" {
		overrides["avatar"] = m.ImageURL
	}
	char, err := imp.CreateCharacter(ctx, m.Name, overrides)
	if err != nil {
		return err
	}
	if _, err := imp.CreateAttribute(ctx, char.ID, DescriptionAttribute, m.Description); err != nil {
		return err
	}
	return nil
}

// ImportNote replaces the handout named n.Name with one whose notes body is
// the description.
func (imp *Importer) ImportNote(ctx context.Context, n Note) Outcome {
	return imp.finish(Outcome{Kind: ItemNote, Name: n.Name, Err: imp.importNote(ctx, n)})
}

func (imp *Importer) importNote(ctx context.Context, n Note) error {
	if n.Name == "" {
		return ErrMissingName
	}
	if _, err := imp.DeleteByName(ctx, world.KindHandout, n.Name); err != nil {
		return err
	}
	_, err := imp.CreateHandout(ctx, n.Name, world.Attributes{"notes": n.Description})
	return err
}

// finish logs o and returns it unchanged.
func (imp *Importer) finish(o Outcome) Outcome {
	if o.OK() {
		imp.logger.Info("item imported",
			zap.String("kind", string(o.Kind)),
			zap.String("name", o.Name),
		)
		return o
	}
	imp.logger.Error("item import failed",
		zap.String("kind", string(o.Kind)),
		zap.String("name", o.Name),
		zap.Error(o.Err),
	)
	return o
}
