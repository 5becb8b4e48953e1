package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// ErrPageNotFound is returned when reconcile mode finds no page for a scene.
var ErrPageNotFound = errors.New("no page found")

// SceneResult reports one scene reconciliation. Outcome is the single
// success or failure counted for the scene; the remaining fields are
// diagnostics.
type SceneResult struct {
	Outcome

	PageID          string
	PurgedGraphics  int
	PurgedPaths     int
	WallsRequested  int
	WallsPlaced     int
	LightsRequested int
	LightsPlaced    int
}

// ReconcileScene replaces the contents of the scene's page: it locates (or
// recreates) the page, purges its graphics and paths, applies the page
// settings, then places the background, walls and lights.
//
// A missing page or a failed purge ends the scene immediately. Failures
// placing the background, walls or lights are collected; the scene is then
// reported as one failure carrying every collected message.
func (imp *Importer) ReconcileScene(ctx context.Context, s Scene) SceneResult {
	res := SceneResult{
		Outcome:         Outcome{Kind: ItemScene, Name: s.Name},
		WallsRequested:  len(s.Walls),
		LightsRequested: len(s.Lights),
	}
	res.Err = imp.reconcile(ctx, s, &res)
	imp.finish(res.Outcome)
	imp.logger.Debug("scene reconciled",
		zap.String("scene", s.Name),
		zap.String("page_id", res.PageID),
		zap.Int("purged_graphics", res.PurgedGraphics),
		zap.Int("purged_paths", res.PurgedPaths),
		zap.Int("walls_placed", res.WallsPlaced),
		zap.Int("walls_requested", res.WallsRequested),
		zap.Int("lights_placed", res.LightsPlaced),
		zap.Int("lights_requested", res.LightsRequested),
	)
	return res
}

func (imp *Importer) reconcile(ctx context.Context, s Scene, res *SceneResult) error {
	if s.Name == "" {
		return ErrMissingName
	}

	page, err := imp.obtainPage(ctx, s.Name)
	if err != nil {
		return err
	}
	res.PageID = page.ID

	if res.PurgedGraphics, err = imp.purge(ctx, world.KindGraphic, page.ID); err != nil {
		return err
	}
	if res.PurgedPaths, err = imp.purge(ctx, world.KindPath, page.ID); err != nil {
		return err
	}

	page, err = imp.store.Update(ctx, page.ID, pageSettings(imp.opts.PageSize))
	if err != nil {
		return fmt.Errorf("configuring page: %w", err)
	}
	width, okW := page.Float("width")
	height, okH := page.Float("height")
	if !okW || !okH {
		return fmt.Errorf("configuring page: page %s has no numeric width/height", page.ID)
	}

	var soft []string

	if s.ImageURL != "" {
		attrs := backgroundAttributes(s.Name, s.ImageURL, width, height, imp.opts.Transform.CellPixels)
		if _, err := imp.CreateGraphic(ctx, page.ID, attrs); err != nil {
			soft = append(soft, fmt.Sprintf("background: %v", err))
		}
	}

	var firstWallErr error
	for _, w := range s.Walls {
		a := imp.opts.Transform.Point(w.StartX, w.StartY, width, height)
		b := imp.opts.Transform.Point(w.EndX, w.EndY, width, height)
		if _, err := imp.CreateBarrier(ctx, page.ID, a, b); err != nil {
			if firstWallErr == nil {
				firstWallErr = err
			}
			continue
		}
		res.WallsPlaced++
	}
	if res.WallsPlaced < res.WallsRequested {
		soft = append(soft, fmt.Sprintf("walls: created %d of %d (%v)",
			res.WallsPlaced, res.WallsRequested, firstWallErr))
	}

	var firstLightErr error
	for _, l := range s.Lights {
		p := imp.opts.Transform.Point(l.X, l.Y, width, height)
		radius := imp.opts.Transform.Radius(l.Radius, width)
		attrs := lightAttributes(p, radius, l.Color, imp.opts.LightMarkerImage)
		if _, err := imp.CreateGraphic(ctx, page.ID, attrs); err != nil {
			if firstLightErr == nil {
				firstLightErr = err
			}
			continue
		}
		res.LightsPlaced++
	}
	if res.LightsPlaced < res.LightsRequested {
		soft = append(soft, fmt.Sprintf("lights: created %d of %d (%v)",
			res.LightsPlaced, res.LightsRequested, firstLightErr))
	}

	if len(soft) > 0 {
		return errors.New(strings.Join(soft, "; "))
	}
	return nil
}

// obtainPage returns the page a scene is reconciled into.
func (imp *Importer) obtainPage(ctx context.Context, name string) (*world.Entity, error) {
	if imp.opts.SceneMode == SceneModeRecreate {
		if _, err := imp.DeleteByName(ctx, world.KindPage, name); err != nil {
			return nil, err
		}
		return imp.CreatePage(ctx, name, nil)
	}

	pages, err := world.FindByTypeAndName(ctx, imp.store, world.KindPage, name)
	if err != nil {
		return nil, fmt.Errorf("finding page %q: %w", name, err)
	}
	if len(pages) == 0 {
		return nil, ErrPageNotFound
	}
	if len(pages) > 1 {
		imp.logger.Warn("multiple pages share a scene name; using the first",
			zap.String("scene", name),
			zap.Int("count", len(pages)),
		)
	}
	return pages[0], nil
}

// purge removes every entity of kind attached to pageID.
func (imp *Importer) purge(ctx context.Context, kind world.Kind, pageID string) (int, error) {
	children, err := world.FindChildrenOfPage(ctx, imp.store, kind, pageID)
	if err != nil {
		return 0, fmt.Errorf("listing %s on page: %w", kind, err)
	}
	n := 0
	for _, c := range children {
		err := imp.store.Remove(ctx, c.ID)
		if errors.Is(err, world.ErrNotFound) {
			continue
		}
		if err != nil {
			return n, fmt.Errorf("purging %s %s: %w", kind, c.ID, err)
		}
		n++
	}
	return n, nil
}
