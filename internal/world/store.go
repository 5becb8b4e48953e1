package world

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when an operation targets an unknown entity ID.
	ErrNotFound = errors.New("entity not found")
	// ErrRejected is returned when the store declines to create an entity.
	ErrRejected = errors.New("create rejected by world store")
)

// Query selects entities. Kind is required. An empty Parent matches any
// value; an empty Name matches any value unless ByName is set, in which case
// only entities whose name is exactly "" match.
type Query struct {
	Kind   Kind
	Name   string
	ByName bool
	Parent string
}

// NameFilter reports whether q constrains entity names.
func (q Query) NameFilter() bool {
	return q.ByName || q.Name != ""
}

// Store is the world-model capability the importer depends on. Results of
// Find are ordered by creation.
type Store interface {
	Find(ctx context.Context, q Query) ([]*Entity, error)
	// Create stores a new entity. The returned entity carries the assigned ID.
	Create(ctx context.Context, kind Kind, attrs Attributes) (*Entity, error)
	// Update merges attrs into the entity and returns the updated snapshot.
	Update(ctx context.Context, id string, attrs Attributes) (*Entity, error)
	// Remove deletes the entity and every entity it owns.
	Remove(ctx context.Context, id string) error
}

// FindByTypeAndName returns every entity of kind whose name equals name
// exactly.
func FindByTypeAndName(ctx context.Context, s Store, kind Kind, name string) ([]*Entity, error) {
	return s.Find(ctx, Query{Kind: kind, Name: name, ByName: true})
}

// FindChildrenOfPage returns every entity of kind attached to pageID.
func FindChildrenOfPage(ctx context.Context, s Store, kind Kind, pageID string) ([]*Entity, error) {
	return s.Find(ctx, Query{Kind: kind, Parent: pageID})
}

// FindAll returns every entity of kind.
func FindAll(ctx context.Context, s Store, kind Kind) ([]*Entity, error) {
	return s.Find(ctx, Query{Kind: kind})
}
