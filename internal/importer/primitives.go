package importer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/geometry"
	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// ErrCreateRejected is wrapped by every create primitive when the store
// yields no entity.
var ErrCreateRejected = errors.New("create rejected")

// DeleteByName removes every live entity of kind named exactly name and
// returns how many were removed. No match is not an error.
func (imp *Importer) DeleteByName(ctx context.Context, kind world.Kind, name string) (int, error) {
	existing, err := world.FindByTypeAndName(ctx, imp.store, kind, name)
	if err != nil {
		return 0, fmt.Errorf("finding %s %q: %w", kind, name, err)
	}

	removed := 0
	for _, e := range existing {
		err := imp.store.Remove(ctx, e.ID)
		if errors.Is(err, world.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, fmt.Errorf("removing %s %q (%s): %w", kind, name, e.ID, err)
		}
		removed++
	}
	if removed > 0 {
		imp.logger.Info("deleted existing entities",
			zap.String("kind", string(kind)),
			zap.String("name", name),
			zap.Int("count", removed),
		)
	}
	return removed, nil
}

// CreatePage creates a page named name with the page bundle sized to the
// configured page edge, overlaid with overrides.
func (imp *Importer) CreatePage(ctx context.Context, name string, overrides world.Attributes) (*world.Entity, error) {
	attrs := world.Merge(pageSettings(imp.opts.PageSize), overrides, world.Attributes{world.FieldName: name})
	return imp.create(ctx, world.KindPage, attrs)
}

// CreateCharacter creates a character named name.
func (imp *Importer) CreateCharacter(ctx context.Context, name string, overrides world.Attributes) (*world.Entity, error) {
	attrs := world.Merge(CharacterDefaults, overrides, world.Attributes{world.FieldName: name})
	return imp.create(ctx, world.KindCharacter, attrs)
}

// CreateAttribute creates an attribute owned by characterID.
func (imp *Importer) CreateAttribute(ctx context.Context, characterID, name, current string) (*world.Entity, error) {
	attrs := world.Merge(AttributeDefaults, world.Attributes{
		world.FieldCharacterID: characterID,
		world.FieldName:        name,
		"current":              current,
	})
	return imp.create(ctx, world.KindAttribute, attrs)
}

// CreateHandout creates a handout named name.
func (imp *Importer) CreateHandout(ctx context.Context, name string, overrides world.Attributes) (*world.Entity, error) {
	attrs := world.Merge(HandoutDefaults, overrides, world.Attributes{world.FieldName: name})
	return imp.create(ctx, world.KindHandout, attrs)
}

// CreateGraphic creates a graphic on pageID.
func (imp *Importer) CreateGraphic(ctx context.Context, pageID string, overrides world.Attributes) (*world.Entity, error) {
	attrs := world.Merge(GraphicDefaults, overrides, world.Attributes{world.FieldPageID: pageID})
	return imp.create(ctx, world.KindGraphic, attrs)
}

// CreateBarrier creates a two-point wall path on pageID from a to b, in
// destination pixels.
func (imp *Importer) CreateBarrier(ctx context.Context, pageID string, a, b geometry.Point) (*world.Entity, error) {
	attrs := world.Merge(barrierAttributes(a, b), world.Attributes{world.FieldPageID: pageID})
	return imp.create(ctx, world.KindPath, attrs)
}

func (imp *Importer) create(ctx context.Context, kind world.Kind, attrs world.Attributes) (*world.Entity, error) {
	e, err := imp.store.Create(ctx, kind, attrs)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w: %w", kind, ErrCreateRejected, err)
	}
	if e == nil {
		return nil, fmt.Errorf("creating %s: %w", kind, ErrCreateRejected)
	}
	return e, nil
}
