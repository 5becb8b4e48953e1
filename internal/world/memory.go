package world

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

type memoryEntry struct {
	seq    uint64
	entity *Entity
}

// MemoryStore is an in-process Store. It is the host used by the CLI and by
// tests. All methods are safe for concurrent use; callers only ever get
// copies of the stored entities.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*memoryEntry
	seq     uint64
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]*memoryEntry)}
}

// Find implements Store.
func (s *MemoryStore) Find(_ context.Context, q Query) ([]*Entity, error) {
	if !q.Kind.Valid() {
		return nil, fmt.Errorf("finding entities: unknown kind %q", q.Kind)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*memoryEntry, 0)
	for _, me := range s.entries {
		e := me.entity
		if e.Kind != q.Kind {
			continue
		}
		if q.NameFilter() && e.Name() != q.Name {
			continue
		}
		if q.Parent != "" && e.Parent() != q.Parent {
			continue
		}
		matched = append(matched, me)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	out := make([]*Entity, len(matched))
	for i, me := range matched {
		out[i] = me.entity.Clone()
	}
	return out, nil
}

// Create implements Store. A child whose owner does not exist is rejected.
func (s *MemoryStore) Create(_ context.Context, kind Kind, attrs Attributes) (*Entity, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("creating entity: unknown kind %q", kind)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &Entity{ID: uuid.NewString(), Kind: kind, Attrs: Merge(attrs)}
	if parent := e.Parent(); parent != "" {
		if _, ok := s.entries[parent]; !ok {
			return nil, fmt.Errorf("creating %s: owner %q: %w", kind, parent, ErrRejected)
		}
	}
	s.seq++
	s.entries[e.ID] = &memoryEntry{seq: s.seq, entity: e}
	return e.Clone(), nil
}

// Update implements Store.
func (s *MemoryStore) Update(_ context.Context, id string, attrs Attributes) (*Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	me, ok := s.entries[id]
	if !ok {
		return nil, fmt.Errorf("updating %q: %w", id, ErrNotFound)
	}
	me.entity.Attrs = Merge(me.entity.Attrs, attrs)
	return me.entity.Clone(), nil
}

// Remove implements Store. Owned entities are removed with their owner.
func (s *MemoryStore) Remove(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("removing %q: %w", id, ErrNotFound)
	}
	s.removeLocked(id)
	return nil
}

func (s *MemoryStore) removeLocked(id string) {
	delete(s.entries, id)
	for childID, me := range s.entries {
		if me.entity.Parent() == id {
			s.removeLocked(childID)
		}
	}
}

// Len returns the number of live entities.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// All returns every entity in creation order.
func (s *MemoryStore) All() []*Entity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*memoryEntry, 0, len(s.entries))
	for _, me := range s.entries {
		all = append(all, me)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	out := make([]*Entity, len(all))
	for i, me := range all {
		out[i] = me.entity.Clone()
	}
	return out
}
