package importer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/TAC-Tabletop-Adventure-Creator/roll20-tac-importer/internal/world"
)

// AttributeDump is the raw state of one character attribute.
type AttributeDump struct {
	Name    string
	Current string
	Max     string
}

// CharacterDump is one character and the attributes keyed to it. Err is set
// when the attributes could not be read.
type CharacterDump struct {
	ID         string
	Name       string
	Attributes []AttributeDump
	Err        error
}

// DumpCharacters reads every character and its attributes, logging each
// value. Lookups run strictly one after another so the log follows
// enumeration order. It never mutates the store.
//
// Postcondition: Returns one CharacterDump per character, or an error if the
// characters themselves could not be listed.
func (imp *Importer) DumpCharacters(ctx context.Context) ([]CharacterDump, error) {
	chars, err := world.FindAll(ctx, imp.store, world.KindCharacter)
	if err != nil {
		return nil, fmt.Errorf("listing characters: %w", err)
	}

	out := make([]CharacterDump, 0, len(chars))
	for _, c := range chars {
		d := CharacterDump{ID: c.ID, Name: c.Name()}
		attrs, err := imp.store.Find(ctx, world.Query{Kind: world.KindAttribute, Parent: c.ID})
		if err != nil {
			d.Err = fmt.Errorf("listing attributes: %w", err)
			imp.logger.Error("dumping character",
				zap.String("character", d.Name),
				zap.String("id", d.ID),
				zap.Error(err),
			)
			out = append(out, d)
			continue
		}

		imp.logger.Info("character",
			zap.String("character", d.Name),
			zap.String("id", d.ID),
			zap.Int("attributes", len(attrs)),
		)
		for _, a := range attrs {
			ad := AttributeDump{
				Name:    a.Name(),
				Current: a.String("current"),
				Max:     a.String("max"),
			}
			imp.logger.Info("attribute",
				zap.String("character", d.Name),
				zap.String("name", ad.Name),
				zap.String("current", ad.Current),
				zap.String("max", ad.Max),
			)
			d.Attributes = append(d.Attributes, ad)
		}
		out = append(out, d)
	}
	return out, nil
}
